// Package engine wires the clock classifier, bar aggregator, quote
// book, and staged detector into the single runtime value the ingest
// and session-monitor workers share, fronted by two entrypoints:
// OnTrade and OnQuote.
package engine

import (
	"sync"
	"time"

	"momentumsentry/bar"
	"momentumsentry/clock"
	"momentumsentry/detector"
	"momentumsentry/quote"
	"momentumsentry/snapshot"
)

// Engine owns the per-symbol state maps and exposes the two entrypoints
// the ingest worker drives. bar.Aggregator and quote.Book already hold
// their own internal locks (a per-symbol data lock and an independent
// quote lock); Engine additionally guards the historical-stats map,
// which changes rarely (startup, periodic refresh) and is read on every
// trade.
type Engine struct {
	bars   *bar.Aggregator
	quotes *quote.Book
	det    detector.Detector

	histMu sync.RWMutex
	hist   map[string]detector.HistoricalStats
}

// New constructs an engine for the given detector profile/config.
func New(cfg detector.Config, sink detector.Sink) *Engine {
	return &Engine{
		bars:   bar.NewAggregator(),
		quotes: quote.NewBook(),
		det:    detector.New(cfg, sink),
		hist:   make(map[string]detector.HistoricalStats),
	}
}

// SetHistoricalStats replaces the historical-stats map wholesale, used at
// startup and on periodic refresh. A symbol absent from the map degrades
// to base thresholds and liquidity 0.5.
func (e *Engine) SetHistoricalStats(stats map[string]detector.HistoricalStats) {
	e.histMu.Lock()
	e.hist = stats
	e.histMu.Unlock()
}

func (e *Engine) histFor(symbol string) *detector.HistoricalStats {
	e.histMu.RLock()
	defer e.histMu.RUnlock()
	if h, ok := e.hist[symbol]; ok {
		return &h
	}
	return nil
}

// OnTrade folds a trade into the bar aggregator and evaluates the
// detector. Out-of-order trades are logged by the caller (via the
// returned error) and otherwise skipped — they are never fatal.
func (e *Engine) OnTrade(symbol string, price float64, size int64, ts time.Time) ([]detector.Alert, error) {
	res, err := e.bars.OnTrade(symbol, price, size, ts)
	if err != nil {
		return nil, err
	}
	if res.MinuteTS.IsZero() {
		return nil, nil // CLOSED session: short-circuit, no state changes
	}

	_, session := clock.Classify(ts)
	spread := e.quotes.SpreadRatio(symbol, res.Bar.Close)

	ev := detector.Event{
		Symbol: symbol, Ts: ts, MinuteTS: res.MinuteTS, Session: session,
		Bar: res.Bar, PctChange: res.PctChange, Volume: res.Bar.Volume,
		TradeCount: res.TradeCount, VWAP: res.VWAP, RollingAvgVol: res.RollingAvgVol,
		PrevMinuteVol: res.PrevMinuteVol, Spread: spread, Hist: e.histFor(symbol),
		History: e.bars.History(symbol, 8),
		CumVolumeSince: func(from time.Time) int64 {
			return e.bars.SumVolumeSince(symbol, from)
		},
		CumTradeCountSince: func(from time.Time) int64 {
			return e.bars.SumTradeCountSince(symbol, from)
		},
	}

	return e.det.Evaluate(ev), nil
}

// OnQuote updates the latest bid/ask for a symbol.
func (e *Engine) OnQuote(symbol string, bid, ask float64, bidSize, askSize int64, ts time.Time) error {
	e.quotes.OnQuote(symbol, bid, ask, bidSize, askSize, ts)
	return nil
}

// Reset discards all per-symbol state: bars, quotes, flags, cooldowns.
// Used at session start and between replay days.
func (e *Engine) Reset() {
	e.bars.Reset()
	e.quotes.Reset()
	e.det.Reset()
}

// Snapshot returns the current in-progress bars for every tracked symbol,
// for the optional end-of-session persistence hook.
func (e *Engine) Snapshot() []bar.Snapshot {
	return e.bars.SnapshotAll()
}

// Restore seeds the bar aggregator from a previously written session
// snapshot, resuming each symbol's in-progress minute instead of starting
// cold after a restart. Only the most recent minute present in state is
// applied — a restart that lands mid-minute should resume that minute,
// not replay every minute ever snapshotted. The next trade for a
// restored symbol folds into the resumed bar like any other tick,
// producing no alert on its own (a no-op minute).
func (e *Engine) Restore(state snapshot.State) {
	var latest time.Time
	var latestKey string
	for key := range state {
		ts, err := time.Parse(time.RFC3339, key)
		if err != nil {
			continue
		}
		if latestKey == "" || ts.After(latest) {
			latest = ts
			latestKey = key
		}
	}
	if latestKey == "" {
		return
	}
	for symbol, b := range state[latestKey] {
		e.bars.Restore(symbol, b)
	}
}
