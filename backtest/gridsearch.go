package backtest

import (
	"context"
	"fmt"
	"time"

	"momentumsentry/clock"
	"momentumsentry/detector"
	"momentumsentry/engine"
	"momentumsentry/flatfiles"
	"momentumsentry/replay"
)

// Variant is one point in a threshold grid search: a human-readable
// label plus the multiplier applied to every session's volume and
// relative-volume thresholds (VolBase, RelVolS1, RelVolS2). A multiplier
// above 1 tightens the gates; below 1 loosens them.
type Variant struct {
	Label      string
	Multiplier float64
}

// Metrics summarizes one variant's run: alert counts by stage, the
// simulated win rate, and gain distribution.
type Metrics struct {
	Variant     Variant
	TotalAlerts int
	Stage1Count int
	Stage2Count int
	Stage3Count int
	Wins        int
	Stops       int
	Targets     int
	Timeouts    int
	AvgGainPct  float64
	MaxGainPct  float64
	MaxLossPct  float64
	AvgHoldMins float64
}

// scaledConfig returns cfg with every session's VolBase/RelVolS1/RelVolS2
// multiplied by m, leaving the percent-change and spread gates untouched
// — those are normalized already and don't scale with liquidity the way
// volume gates do.
func scaledConfig(cfg detector.Config, m float64) detector.Config {
	scaled := detector.Config{Sessions: make(map[clock.Session]detector.SessionParams, len(cfg.Sessions)), Profile: cfg.Profile, BacktestMode: cfg.BacktestMode, Debug: cfg.Debug}
	for session, p := range cfg.Sessions {
		p.VolBase *= m
		p.RelVolS1 *= m
		p.RelVolS2 *= m
		scaled.Sessions[session] = p
	}
	return scaled
}

// Run replays bars under each variant's scaled thresholds, simulates the
// outcome of every alert against the same bar history, and returns one
// Metrics row per variant in the order given.
func Run(ctx context.Context, baseCfg detector.Config, bars []flatfiles.Bar, variants []Variant, exit ExitParams) []Metrics {
	bySymbol := groupBySymbol(bars)
	results := make([]Metrics, 0, len(variants))

	for _, v := range variants {
		cfg := scaledConfig(baseCfg, v.Multiplier)
		sink := &collectingSink{}
		eng := engine.New(cfg, sink)

		replay.Run(ctx, eng, bars)

		results = append(results, summarize(v, sink.alerts, bySymbol, exit))
	}
	return results
}

type collectingSink struct {
	alerts []detector.Alert
}

func (c *collectingSink) Send(a detector.Alert) bool {
	c.alerts = append(c.alerts, a)
	return true
}

func groupBySymbol(bars []flatfiles.Bar) map[string][]flatfiles.Bar {
	out := make(map[string][]flatfiles.Bar)
	for _, b := range bars {
		out[b.Symbol] = append(out[b.Symbol], b)
	}
	for sym, bb := range out {
		bb := bb
		sortBarsByTime(bb)
		out[sym] = bb
	}
	return out
}

func sortBarsByTime(bb []flatfiles.Bar) {
	for i := 1; i < len(bb); i++ {
		for j := i; j > 0 && bb[j].Ts.Before(bb[j-1].Ts); j-- {
			bb[j], bb[j-1] = bb[j-1], bb[j]
		}
	}
}

func summarize(v Variant, alerts []detector.Alert, bySymbol map[string][]flatfiles.Bar, exit ExitParams) Metrics {
	m := Metrics{Variant: v, TotalAlerts: len(alerts)}
	if len(alerts) == 0 {
		return m
	}

	var gainSum, holdSum float64
	m.MaxLossPct = 0
	for _, a := range alerts {
		switch a.Stage {
		case detector.StageOneSetup:
			m.Stage1Count++
		case detector.StageTwoConfirmed:
			m.Stage2Count++
		case detector.StageThreeFastBreak:
			m.Stage3Count++
		}

		future := barsAfter(bySymbol[a.Symbol], a.Ts)
		outcome := SimulateOutcome(a, future, exit)

		switch outcome.Result {
		case OutcomeStop:
			m.Stops++
		case OutcomeTarget:
			m.Targets++
		default:
			m.Timeouts++
		}
		if outcome.GainPct > 0 {
			m.Wins++
		}
		if outcome.GainPct > m.MaxGainPct {
			m.MaxGainPct = outcome.GainPct
		}
		if outcome.GainPct < m.MaxLossPct {
			m.MaxLossPct = outcome.GainPct
		}
		gainSum += outcome.GainPct
		holdSum += float64(outcome.MinutesHeld)
	}

	n := float64(len(alerts))
	m.AvgGainPct = gainSum / n
	m.AvgHoldMins = holdSum / n
	return m
}

func barsAfter(bars []flatfiles.Bar, ts time.Time) []flatfiles.Bar {
	idx := len(bars)
	for i, b := range bars {
		if b.Ts.After(ts) {
			idx = i
			break
		}
	}
	return bars[idx:]
}

// String renders one metrics row as a single summary line, for
// quick comparison across a grid search's console output.
func (m Metrics) String() string {
	winRate := 0.0
	if m.TotalAlerts > 0 {
		winRate = float64(m.Wins) / float64(m.TotalAlerts) * 100
	}
	return fmt.Sprintf("%s: alerts=%d (s1=%d s2=%d s3=%d) win_rate=%.1f%% avg_gain=%.2f%% avg_hold=%.1fm",
		m.Variant.Label, m.TotalAlerts, m.Stage1Count, m.Stage2Count, m.Stage3Count, winRate, m.AvgGainPct, m.AvgHoldMins)
}
