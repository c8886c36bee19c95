package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"momentumsentry/bar"
	"momentumsentry/detector"
)

// Store holds the GORM connection and the repository methods the engine's
// audit hooks call into.
type Store struct {
	db *gorm.DB
}

// Connect opens a Postgres connection and wraps it in a Store.
func Connect(host string, port int, dbname, user, password string) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// InitSchema creates the audit tables if they don't already exist.
func (s *Store) InitSchema() error {
	return s.db.AutoMigrate(&AlertRecord{}, &BarRecord{}, &FlagRecord{})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveAlert persists one detector alert. Callers treat a write failure as
// non-fatal — the notification already went out via the sink regardless.
func (s *Store) SaveAlert(profile string, a detector.Alert) error {
	rec := AlertRecord{
		Symbol:     a.Symbol,
		Stage:      string(a.Stage),
		Path:       string(a.Path),
		DetectedAt: a.Ts,
		Session:    string(a.Session),
		Price:      a.EntryPrice,
		PctChange:  a.PctChange,
		Volume:     a.Volume,
		RelVolume:  a.RelVol,
		Quality:    a.Quality,
		Profile:    profile,
	}
	if a.SetupPrice != nil {
		rec.SetupPrice = a.SetupPrice
	}
	if a.ExpansionPct != nil {
		rec.ExpansionPct = a.ExpansionPct
	}
	return s.db.Create(&rec).Error
}

// SaveBars inserts one minute bar for a symbol as a single row.
func (s *Store) SaveBars(symbol string, minuteTS time.Time, b bar.Bar) error {
	rec := BarRecord{
		Symbol: symbol, MinuteTS: minuteTS,
		Open: b.Open, High: b.High, Low: b.Low, Close: b.Close,
		Volume: b.Volume, TradeCount: b.TradeCount, VWAP: b.VWAP(),
	}
	return s.db.Create(&rec).Error
}

// SaveFlag records a flag's terminal outcome for later review of the
// detector's precision/recall by symbol.
func (s *Store) SaveFlag(symbol string, flagMinute time.Time, flagPrice float64, outcome string) error {
	now := time.Now()
	rec := FlagRecord{
		Symbol: symbol, FlagMinute: flagMinute, FlagPrice: flagPrice,
		Outcome: outcome, ResolvedAt: &now,
	}
	return s.db.Create(&rec).Error
}

// RecentAlerts returns the most recent alerts for a symbol, newest first.
func (s *Store) RecentAlerts(symbol string, limit int) ([]AlertRecord, error) {
	var records []AlertRecord
	err := s.db.Where("symbol = ?", symbol).
		Order("detected_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// AlertsBetween returns every alert detected within [start, end), across
// all symbols, for a backtest-vs-live comparison pass.
func (s *Store) AlertsBetween(start, end time.Time) ([]AlertRecord, error) {
	var records []AlertRecord
	err := s.db.Where("detected_at >= ? AND detected_at < ?", start, end).
		Order("detected_at ASC").
		Find(&records).Error
	return records, err
}
