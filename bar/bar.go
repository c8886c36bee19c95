// Package bar implements the per-symbol minute-bar aggregator (C2): it
// folds trade events into OHLCV+VWAP records, maintains the rolling
// 3-minute volume window used for relative-volume, and retains a short
// close/VWAP history for bias calculations.
package bar

import (
	"sync"
	"time"

	"momentumsentry/clock"
)

// Bar is the invariant unit of aggregation: one symbol, one minute.
type Bar struct {
	Symbol     string
	MinuteTS   time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	Value      float64 // Σ price*size
	TradeCount int64
}

// VWAP returns Value/Volume, falling back to Close when volume is zero.
func (b Bar) VWAP() float64 {
	if b.Volume > 0 {
		return b.Value / float64(b.Volume)
	}
	return b.Close
}

// PctChange returns (close-open)/open * 100, or 0 when open is unset.
func (b Bar) PctChange() float64 {
	if b.Open > 0 {
		return (b.Close - b.Open) / b.Open * 100
	}
	return 0
}

const (
	historyDepth = 8 // enough to satisfy lookbacks ≤5 minutes with margin
	rollingWin   = 3
)

type symbolState struct {
	mu sync.Mutex

	hasOpen    bool
	current    Bar
	lastSeenTS time.Time

	rolling [rollingWin]int64 // most recent first: rolling[0] = last completed minute; zero-padded until 3 minutes have completed, per the fixed-length-3 invariant

	history []Bar // completed bars, chronological, cap historyDepth
}

func newSymbolState(symbol string) *symbolState {
	return &symbolState{
		history: make([]Bar, 0, historyDepth),
		current: Bar{Symbol: symbol},
	}
}

// shiftMinute pushes the completed bar's volume into the rolling window and
// its snapshot into history, then resets current for the new minute.
func (s *symbolState) shiftMinute(symbol string, minuteTS time.Time) {
	if s.hasOpen {
		completedVol := s.current.Volume
		copy(s.rolling[1:], s.rolling[:rollingWin-1])
		s.rolling[0] = completedVol

		s.history = append(s.history, s.current)
		if len(s.history) > historyDepth {
			s.history = s.history[len(s.history)-historyDepth:]
		}
	}
	s.current = Bar{Symbol: symbol, MinuteTS: minuteTS}
	s.hasOpen = false
}

// rollingAvgPrev3 returns the average of the fixed-length-3 rolling window
// (always length 3, zero-padded until three minutes have completed for
// the symbol).
func (s *symbolState) rollingAvgPrev3() float64 {
	var sum int64
	for _, v := range s.rolling {
		sum += v
	}
	return float64(sum) / float64(rollingWin)
}

// Aggregator owns per-symbol bar state. Safe for concurrent use; callers
// must still serialize OnTrade calls for a single symbol.
type Aggregator struct {
	mu    sync.RWMutex
	syms  map[string]*symbolState
}

// NewAggregator creates an empty bar aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{syms: make(map[string]*symbolState)}
}

func (a *Aggregator) getOrCreate(symbol string) *symbolState {
	a.mu.RLock()
	s, ok := a.syms[symbol]
	a.mu.RUnlock()
	if ok {
		return s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.syms[symbol]; ok {
		return s
	}
	s = newSymbolState(symbol)
	a.syms[symbol] = s
	return s
}

// Result is the snapshot returned by OnTrade.
type Result struct {
	MinuteTS       time.Time
	Bar            Bar
	PctChange      float64
	TradeCount     int64
	VWAP           float64
	RollingAvgVol  float64 // average of completed prior-3-minute volumes
	PrevMinuteVol  int64   // volume of the immediately preceding completed minute (0 if none)
}

// OutOfOrder is returned when a trade timestamp precedes the last seen
// timestamp for the same symbol; the caller should skip the bar update for
// that tick, but the event is not otherwise fatal.
type OutOfOrder struct {
	Symbol string
	Ts     time.Time
	LastTs time.Time
}

func (e *OutOfOrder) Error() string {
	return "out-of-order trade for " + e.Symbol
}

// OnTrade folds a single trade into the aggregator and returns the minute
// snapshot. size must be > 0; price must be > 0 — callers should treat
// violations as malformed events and never call OnTrade with them.
func (a *Aggregator) OnTrade(symbol string, price float64, size int64, ts time.Time) (Result, error) {
	minuteTS, session := clock.Classify(ts)
	if session == clock.Closed {
		return Result{}, nil
	}

	s := a.getOrCreate(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastSeenTS.IsZero() && ts.Before(s.lastSeenTS) {
		return Result{}, &OutOfOrder{Symbol: symbol, Ts: ts, LastTs: s.lastSeenTS}
	}
	s.lastSeenTS = ts

	if s.hasOpen && minuteTS.After(s.current.MinuteTS) {
		s.shiftMinute(symbol, minuteTS)
	} else if !s.hasOpen {
		s.current = Bar{Symbol: symbol, MinuteTS: minuteTS}
	}

	if !s.hasOpen {
		s.current.Open = price
		s.hasOpen = true
	}
	s.current.Close = price
	if price > s.current.High || s.current.High == 0 {
		s.current.High = price
	}
	if price < s.current.Low || s.current.Low == 0 {
		s.current.Low = price
	}
	s.current.Volume += size
	s.current.Value += price * float64(size)
	s.current.TradeCount++

	prevVol := s.rolling[0]

	return Result{
		MinuteTS:      s.current.MinuteTS,
		Bar:           s.current,
		PctChange:     s.current.PctChange(),
		TradeCount:    s.current.TradeCount,
		VWAP:          s.current.VWAP(),
		RollingAvgVol: s.rollingAvgPrev3(),
		PrevMinuteVol: prevVol,
	}, nil
}

// RelativeVolume computes rel_vol = current_minute_volume / max(avg_prev3, 1).
func RelativeVolume(currentVol int64, avgPrev3 float64) float64 {
	denom := avgPrev3
	if denom < 1 {
		denom = 1
	}
	return float64(currentVol) / denom
}

// History returns the last n completed bars' closes and VWAPs in
// chronological order (oldest first). Used by the VWAP-bias calculation.
func (a *Aggregator) History(symbol string, n int) []Bar {
	s := a.getOrCreate(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.history) {
		n = len(s.history)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Bar, n)
	copy(out, s.history[len(s.history)-n:])
	return out
}

// SumVolumeSince returns the cumulative volume across all bars from
// fromMinute (inclusive) through the current in-progress minute
// (inclusive) — used by Stage-2's cum_volume calculation.
func (a *Aggregator) SumVolumeSince(symbol string, fromMinute time.Time) int64 {
	s := a.getOrCreate(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, b := range s.history {
		if !b.MinuteTS.Before(fromMinute) {
			total += b.Volume
		}
	}
	if s.hasOpen && !s.current.MinuteTS.Before(fromMinute) {
		total += s.current.Volume
	}
	return total
}

// SumTradeCountSince returns the cumulative trade count across all bars
// from fromMinute (inclusive) through the current in-progress minute —
// used by Stage-2's trade-gate calculation.
func (a *Aggregator) SumTradeCountSince(symbol string, fromMinute time.Time) int64 {
	s := a.getOrCreate(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, b := range s.history {
		if !b.MinuteTS.Before(fromMinute) {
			total += b.TradeCount
		}
	}
	if s.hasOpen && !s.current.MinuteTS.Before(fromMinute) {
		total += s.current.TradeCount
	}
	return total
}

// VolumeDeclining reports whether the current minute's volume is below 40%
// of the previous completed minute's volume, when a previous minute is
// known. An unknown previous minute is treated as "not declining".
func VolumeDeclining(currentVol, prevVol int64) bool {
	if prevVol <= 0 {
		return false
	}
	return float64(currentVol) < 0.4*float64(prevVol)
}

// Restore seeds a symbol's in-progress bar directly, bypassing the usual
// trade-by-trade accumulation — used to resume a partially-built minute
// after a restart from a session snapshot. The rolling volume window and
// history are left empty: only the current minute is resumable, and the
// next few minutes' relative-volume readings simply start from zero
// history like a fresh symbol would.
func (a *Aggregator) Restore(symbol string, b Bar) {
	s := a.getOrCreate(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = b
	s.hasOpen = true
	if b.MinuteTS.After(s.lastSeenTS) {
		s.lastSeenTS = b.MinuteTS
	}
}

// Reset discards all per-symbol state — used at session start and between
// replay days.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syms = make(map[string]*symbolState)
}

// Snapshot is the externally persistable view of one symbol's current bar,
// used by the optional end-of-session persistence hook.
type Snapshot struct {
	Symbol string
	Bar    Bar
}

// SnapshotAll returns the in-progress bar for every symbol with state, for
// the end-of-session persistence hook. The engine never reads this back
// mid-session.
func (a *Aggregator) SnapshotAll() []Snapshot {
	a.mu.RLock()
	symbols := make([]string, 0, len(a.syms))
	states := make([]*symbolState, 0, len(a.syms))
	for sym, s := range a.syms {
		symbols = append(symbols, sym)
		states = append(states, s)
	}
	a.mu.RUnlock()

	out := make([]Snapshot, 0, len(symbols))
	for i, s := range states {
		s.mu.Lock()
		if s.hasOpen {
			out = append(out, Snapshot{Symbol: symbols[i], Bar: s.current})
		}
		s.mu.Unlock()
	}
	return out
}
