package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"momentumsentry/clock"
	"momentumsentry/detector"
)

// Config holds the full process configuration: ingest connection,
// session thresholds, feature flags, and the storage/cache/sink
// backends the engine is wired to at startup.
type Config struct {
	IngestURL   string
	IngestToken string

	// Database configuration
	DatabaseHost     string
	DatabasePort     int
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Telegram sink configuration
	Telegram TelegramConfig

	// Detector configuration
	Detector DetectorConfig

	// Feature flags
	Flags Flags
}

// TelegramConfig holds the alert-delivery bot settings.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// DetectorConfig mirrors detector.Config but in env-loadable form, plus
// the session threshold overrides operators tune between runs.
type DetectorConfig struct {
	Profile      string
	BacktestMode bool
	Debug        bool
	Sessions     map[clock.Session]detector.SessionParams
}

// Flags holds the switches that change runtime behavior without
// touching thresholds.
type Flags struct {
	DisableNotifications bool
	TickerFile            string
	SnapshotPath          string
	HistoricalStatsCSV    string
}

// LoadFromEnv loads configuration from environment variables, falling
// back to the shipped defaults for anything unset.
func LoadFromEnv() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		IngestURL:   getEnvOrDefault("INGEST_WS_URL", "wss://stream.example.com/v1/trades"),
		IngestToken: os.Getenv("INGEST_API_TOKEN"),

		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvInt("DB_PORT", 5432),
		DatabaseName:     getEnvOrDefault("DB_NAME", "momentumsentry"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "momentumsentry"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", ""),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		},

		Detector: DetectorConfig{
			Profile:      getEnvOrDefault("DETECTOR_PROFILE", "balanced"),
			BacktestMode: getEnvOrDefault("BACKTEST_MODE", "false") == "true",
			Debug:        getEnvOrDefault("STAGE2_DEBUG", "false") == "true",
			Sessions:     sessionParamsFromEnv(),
		},

		Flags: Flags{
			DisableNotifications: getEnvOrDefault("DISABLE_NOTIFICATIONS", "false") == "true",
			TickerFile:            getEnvOrDefault("TICKER_FILE", "tickers.csv"),
			SnapshotPath:          getEnvOrDefault("SNAPSHOT_PATH", "session_snapshot.json"),
			HistoricalStatsCSV:    getEnvOrDefault("HISTORICAL_STATS_CSV", ""),
		},
	}
}

// DetectorProfile converts the string profile name loaded from the
// environment into detector.Profile, falling back to the balanced
// profile for any unrecognized value.
func (c *Config) DetectorProfile() detector.Profile {
	switch c.Detector.Profile {
	case "persistence":
		return detector.ProfilePersistence
	case "likelihood":
		return detector.ProfileLikelihood
	default:
		return detector.ProfileBalanced
	}
}

// ToDetectorConfig builds the detector.Config the engine is constructed
// with, from the loaded environment configuration.
func (c *Config) ToDetectorConfig() detector.Config {
	return detector.Config{
		Sessions:     c.Detector.Sessions,
		Profile:      c.DetectorProfile(),
		BacktestMode: c.Detector.BacktestMode,
		Debug:        c.Detector.Debug,
	}
}

// sessionParamsFromEnv starts from the shipped default threshold table
// and applies per-session overrides when the corresponding env vars are
// set, e.g. REGULAR_VOL_BASE, PREMARKET_PCT_EARLY.
func sessionParamsFromEnv() map[clock.Session]detector.SessionParams {
	defaults := detector.DefaultSessionParams()
	for session, p := range defaults {
		prefix := string(session) + "_"
		p.VolBase = getEnvFloat(prefix+"VOL_BASE", p.VolBase)
		p.SpreadLimit = getEnvFloat(prefix+"SPREAD_LIMIT", p.SpreadLimit)
		p.PctEarly = getEnvFloat(prefix+"PCT_EARLY", p.PctEarly)
		p.PctConfirm = getEnvFloat(prefix+"PCT_CONFIRM", p.PctConfirm)
		p.RelVolS1 = getEnvFloat(prefix+"REL_VOL_S1", p.RelVolS1)
		p.RelVolS2 = getEnvFloat(prefix+"REL_VOL_S2", p.RelVolS2)
		p.WatchRelVol = getEnvFloat(prefix+"WATCH_REL_VOL", p.WatchRelVol)
		p.WatchPct = getEnvFloat(prefix+"WATCH_PCT", p.WatchPct)
		defaults[session] = p
	}
	return defaults
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
