// Package detector implements the staged momentum detector: the
// session-adaptive thresholds, the Watch/Stage-1/Stage-2/Stage-3 state
// machine, and two alternate detector profiles (persistence, likelihood)
// alongside the default balanced one. All three profiles share the
// cooldown/alert plumbing in cooldown.go and are selected behind the
// Detector interface so the engine can swap profiles by configuration
// without touching the rest of the pipeline.
package detector

import (
	"time"

	"momentumsentry/bar"
	"momentumsentry/clock"
	"momentumsentry/quote"
)

// Stage identifies which tier of the state machine produced an alert.
type Stage string

const (
	StageWatch          Stage = "WATCH"
	StageOneSetup       Stage = "STAGE1_SETUP"
	StageTwoConfirmed   Stage = "STAGE2_CONFIRMED"
	StageThreeFastBreak Stage = "STAGE3_FAST_BREAK"
)

// Path distinguishes the Stage-2 confirmation route.
type Path string

const (
	PathPrimary Path = "primary"
	PathAlt     Path = "alt"
	PathNone    Path = ""
)

// Profile selects which of the three documented detector variants is
// active. All three share C1–C4 and the cooldown/alert contract.
type Profile string

const (
	ProfileBalanced    Profile = "balanced"    // balanced-quality + staged flag (default)
	ProfilePersistence Profile = "persistence" // multi-bar persistence counter
	ProfileLikelihood  Profile = "likelihood"  // probabilistic early-momentum + auto-cancel
)

// SessionParams is the per-session threshold set the detector evaluates
// against. All fields are configurable.
type SessionParams struct {
	VolBase     float64
	SpreadLimit float64
	PctEarly    float64
	PctConfirm  float64
	RelVolS1    float64
	RelVolS2    float64
	WatchRelVol float64
	WatchPct    float64
}

// DefaultSessionParams returns the shipped default threshold table.
func DefaultSessionParams() map[clock.Session]SessionParams {
	return map[clock.Session]SessionParams{
		clock.Premarket: {
			VolBase: 30_000, SpreadLimit: 0.030, PctEarly: 3.8, PctConfirm: 7.8,
			RelVolS1: 2.4, RelVolS2: 4.1, WatchRelVol: 1.8, WatchPct: 2.5,
		},
		clock.Regular: {
			VolBase: 90_000, SpreadLimit: 0.020, PctEarly: 4.5, PctConfirm: 7.8,
			RelVolS1: 2.5, RelVolS2: 4.3, WatchRelVol: 2.0, WatchPct: 3.0,
		},
		clock.Postmarket: {
			VolBase: 24_000, SpreadLimit: 0.038, PctEarly: 3.8, PctConfirm: 7.0,
			RelVolS1: 2.3, RelVolS2: 4.0, WatchRelVol: 1.7, WatchPct: 2.5,
		},
	}
}

// histVolumeMultiplier is the m in max(vol_base, avg_volume_20d*m).
func histVolumeMultiplier(s clock.Session) float64 {
	switch s {
	case clock.Premarket:
		return 0.015
	case clock.Regular:
		return 0.10
	case clock.Postmarket:
		return 0.02
	default:
		return 0
	}
}

// HistoricalStats is the read-only per-symbol 20-day rollup input. A nil
// pointer means the symbol is absent from the cache; the engine degrades
// to base thresholds and liquidity 0.5.
type HistoricalStats struct {
	AvgVolume20d float64
	AvgRange20d  float64
}

// Config bundles the tunables every detector profile reads. Every
// session-threshold value is configurable; the BacktestMode flag is read
// only by the persistence profile, where it lowers the required
// persistence to 1 and scales pct_early by 0.65.
type Config struct {
	Sessions     map[clock.Session]SessionParams
	Profile      Profile
	BacktestMode bool
	Debug        bool // loaded from STAGE2_DEBUG; no detector profile reads it, so it changes no logging
}

// DefaultConfig returns the shipped defaults for the balanced profile.
func DefaultConfig() Config {
	return Config{Sessions: DefaultSessionParams(), Profile: ProfileBalanced}
}

// Flag is the Stage-1 setup context awaiting Stage-2 confirmation or
// expiry. At most one exists per symbol at any moment.
type Flag struct {
	FlagMinute         time.Time
	SetupPrice         float64
	SetupVolume        int64
	Session            clock.Session
	PreliminaryQuality float64
	IntradayHigh       float64
	FailCounters       map[string]int
}

// Alert is the structured record emitted on every Watch/Stage-1/Stage-2/
// Stage-3 event. The sink formats it for display; the engine guarantees
// the shape.
type Alert struct {
	Symbol      string
	Stage       Stage
	Ts          time.Time
	Session     clock.Session
	EntryPrice  float64
	PctChange   float64
	RelVol      float64
	Volume      int64
	TradeCount  int64
	VWAP        float64
	SpreadRatio *float64
	Quality     float64

	// Stage-2 only.
	SetupPrice        *float64
	ExpansionPct      *float64
	CumVolumeSinceFlag *int64
	Path              Path
}

// Sink is the narrow write-only interface the detector emits alerts
// through. Detectors call Send synchronously on the goroutine evaluating
// the trade and ignore its result: a failed send does not stop detection,
// but a slow one delays it until Send returns.
type Sink interface {
	Send(Alert) bool
}

// Event bundles everything a detector profile needs to evaluate one
// OnTrade result. The engine constructs it from bar.Aggregator and
// quote.Book output so the detector package stays free of ownership of
// per-symbol bar/quote state — it only reasons about the snapshot handed
// to it, with no back-reference into the engine or aggregator.
type Event struct {
	Symbol        string
	Ts            time.Time // the triggering trade's exact timestamp
	MinuteTS      time.Time
	Session       clock.Session
	Bar           bar.Bar
	PctChange     float64
	Volume        int64
	TradeCount    int64
	VWAP          float64
	RollingAvgVol float64
	PrevMinuteVol int64
	Spread        quote.Spread
	Hist          *HistoricalStats

	// History of recently completed bars (oldest first), used for VWAP
	// bias; the engine passes up to the last 8 completed minutes.
	History []bar.Bar

	// CumVolumeSince returns cumulative volume across bars from the given
	// minute (inclusive) through the current in-progress minute.
	CumVolumeSince func(from time.Time) int64
	// CumTradeCountSince returns the cumulative trade count over the same
	// window, used by Stage-2's trade gate.
	CumTradeCountSince func(from time.Time) int64
}

// Detector is the shared capability exposed by every profile.
type Detector interface {
	// Evaluate consumes one bar.Aggregator.OnTrade result and returns zero
	// or more alerts (a single bar can emit both a Stage-3 Fast-Break and
	// a Stage-1/Stage-2 event, since Stage-3 is evaluated independently).
	Evaluate(ev Event) []Alert
	// Reset discards all per-symbol state (flags, counters, cooldowns).
	Reset()
}
