// Package storage persists the audit trail a running engine produces —
// alerts, minute bars, and flag lifecycle transitions — to Postgres via
// GORM, for later backtesting and after-the-fact review. None of it sits
// on the hot path: every write here happens after the detector has
// already decided, never before.
package storage

import "time"

// AlertRecord is the durable form of a detector.Alert.
type AlertRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol      string    `gorm:"size:10;index;not null" json:"symbol"`
	Stage       string    `gorm:"size:20;index;not null" json:"stage"`
	Path        string    `gorm:"size:20" json:"path,omitempty"`
	DetectedAt  time.Time `gorm:"index;not null" json:"detected_at"`
	Session     string    `gorm:"size:20" json:"session"`
	Price       float64   `gorm:"type:decimal(15,4);not null" json:"price"`
	PctChange   float64   `gorm:"type:decimal(10,4)" json:"pct_change"`
	Volume      int64     `json:"volume"`
	RelVolume   float64   `gorm:"type:decimal(10,4)" json:"rel_volume"`
	Quality     float64   `gorm:"type:decimal(6,2);not null" json:"quality"`
	SetupPrice  *float64  `gorm:"type:decimal(15,4)" json:"setup_price,omitempty"`
	ExpansionPct *float64 `gorm:"type:decimal(10,4)" json:"expansion_pct,omitempty"`
	Profile     string    `gorm:"size:20;index" json:"profile"`
}

// TableName pins the table name regardless of struct name changes.
func (AlertRecord) TableName() string { return "momentum_alerts" }

// BarRecord is a closed minute bar, one row per symbol per minute.
type BarRecord struct {
	Symbol     string    `gorm:"size:10;not null;primaryKey" json:"symbol"`
	MinuteTS   time.Time `gorm:"not null;primaryKey" json:"minute_ts"`
	Open       float64   `gorm:"type:decimal(15,4);not null" json:"open"`
	High       float64   `gorm:"type:decimal(15,4);not null" json:"high"`
	Low        float64   `gorm:"type:decimal(15,4);not null" json:"low"`
	Close      float64   `gorm:"type:decimal(15,4);not null" json:"close"`
	Volume     int64     `json:"volume"`
	TradeCount int64     `json:"trade_count"`
	VWAP       float64   `gorm:"type:decimal(15,4)" json:"vwap"`
}

// TableName pins the table name for BarRecord.
func (BarRecord) TableName() string { return "minute_bars" }

// FlagRecord tracks a Watch/Stage-1 flag from creation through its
// terminal outcome (expired, upgraded, or superseded).
type FlagRecord struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol      string     `gorm:"size:10;index;not null" json:"symbol"`
	FlagMinute  time.Time  `gorm:"index;not null" json:"flag_minute"`
	FlagPrice   float64    `gorm:"type:decimal(15,4);not null" json:"flag_price"`
	Outcome     string     `gorm:"size:20;not null" json:"outcome"` // expired, upgraded, superseded
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// TableName pins the table name for FlagRecord.
func (FlagRecord) TableName() string { return "momentum_flags" }
