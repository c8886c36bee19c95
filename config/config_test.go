package config

import (
	"os"
	"testing"

	"momentumsentry/clock"
	"momentumsentry/detector"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	if cfg.DatabasePort != 5432 {
		t.Errorf("expected default DB port 5432, got %d", cfg.DatabasePort)
	}
	if cfg.DetectorProfile() != detector.ProfileBalanced {
		t.Errorf("expected default profile balanced, got %v", cfg.DetectorProfile())
	}
	if cfg.Flags.TickerFile != "tickers.csv" {
		t.Errorf("expected default ticker file tickers.csv, got %q", cfg.Flags.TickerFile)
	}
}

func TestSessionParamsFromEnvOverride(t *testing.T) {
	os.Setenv("REGULAR_VOL_BASE", "123456")
	defer os.Unsetenv("REGULAR_VOL_BASE")

	sessions := sessionParamsFromEnv()
	if sessions[clock.Regular].VolBase != 123456 {
		t.Errorf("expected REGULAR_VOL_BASE override to apply, got %v", sessions[clock.Regular].VolBase)
	}
	if sessions[clock.Premarket].VolBase != detector.DefaultSessionParams()[clock.Premarket].VolBase {
		t.Errorf("expected premarket thresholds untouched by a regular-session override")
	}
}

func TestDetectorProfileUnknownFallsBackToBalanced(t *testing.T) {
	cfg := &Config{Detector: DetectorConfig{Profile: "nonsense"}}
	if cfg.DetectorProfile() != detector.ProfileBalanced {
		t.Errorf("expected unknown profile to fall back to balanced")
	}
}
