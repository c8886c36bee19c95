package detector

import (
	"sync"
	"time"

	"momentumsentry/bar"
	"momentumsentry/clock"
	"momentumsentry/scoring"
)

// pendingMomentum is the "EARLY MOMENTUM" profile's lighter-weight stand-in
// for a Flag: a Stage-1 likelihood trigger awaiting follow-through.
type pendingMomentum struct {
	setMinute  time.Time
	setupPrice float64
}

type likelihoodSymState struct {
	mu             sync.Mutex
	prevLikelihood float64
	pending        *pendingMomentum
}

// Likelihood is the probabilistic early-momentum detector profile: it
// tracks a continuous [0,1] momentum likelihood instead of a hard
// threshold crossing, and auto-cancels a Stage-1 call that fails to
// follow through.
type Likelihood struct {
	cfg      Config
	sink     Sink
	cooldown *cooldownTracker

	mu   sync.Mutex
	syms map[string]*likelihoodSymState
}

func NewLikelihood(cfg Config, sink Sink) *Likelihood {
	return &Likelihood{
		cfg:      cfg,
		sink:     sink,
		cooldown: newCooldownTracker(),
		syms:     make(map[string]*likelihoodSymState),
	}
}

func (d *Likelihood) getOrCreate(symbol string) *likelihoodSymState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.syms[symbol]
	if !ok {
		s = &likelihoodSymState{}
		d.syms[symbol] = s
	}
	return s
}

func (d *Likelihood) Reset() {
	d.mu.Lock()
	d.syms = make(map[string]*likelihoodSymState)
	d.mu.Unlock()
	d.cooldown.reset()
}

func (d *Likelihood) emit(a Alert) {
	if d.sink != nil {
		d.sink.Send(a)
	}
}

func vwapComponent(bias Bias) float64 {
	switch bias {
	case Bullish:
		return 1.0
	case Neutral:
		return 0.5
	default:
		return 0.0
	}
}

func spreadTightness(spread float64, known bool, limit float64) float64 {
	if !known {
		return 0.5
	}
	t := (limit - spread) / limit
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func (d *Likelihood) Evaluate(ev Event) []Alert {
	if ev.Session == clock.Closed {
		return nil
	}
	base, ok := d.cfg.Sessions[ev.Session]
	if !ok {
		return nil
	}
	eff := resolveEffective(base, ev.Session, ev.Hist, ev.Bar.Open)
	if eff.Liquidity < 0.10 {
		return nil
	}

	relVol := bar.RelativeVolume(ev.Volume, ev.RollingAvgVol)
	bias3 := vwapBias(ev.History, 3)

	likelihood := 0.40*minOf(relVol/3, 1) +
		0.30*minOf(ev.PctChange/eff.PctEarly, 1) +
		0.15*vwapComponent(bias3) +
		0.10*spreadTightness(ev.Spread.Ratio, ev.Spread.Known, eff.SpreadLimit) +
		0.05*eff.Liquidity

	s := d.getOrCreate(ev.Symbol)
	s.mu.Lock()
	acceleration := likelihood-s.prevLikelihood > 0
	s.prevLikelihood = likelihood
	pending := s.pending
	s.mu.Unlock()

	cd := d.cooldown.get(ev.Symbol)

	if pending != nil {
		followThrough := (ev.Bar.Close - pending.setupPrice) / pending.setupPrice * 100
		minutesElapsed := ev.Ts.Sub(pending.setMinute).Minutes()

		if followThrough < -1 || likelihood < 0.4 || minutesElapsed > 5 {
			d.clearPending(ev.Symbol)
			return nil
		}

		if minutesElapsed < 2 {
			return nil // still waiting out the follow-through window
		}

		volumeSustained := !bar.VolumeDeclining(ev.Volume, ev.PrevMinuteVol)
		aboveVWAP := ev.Bar.Close > ev.VWAP
		if followThrough < 2 || !volumeSustained || !aboveVWAP || bias3 == Bearish {
			return nil // flag remains pending until follow-through or cancellation
		}

		quality := scoring.Score(scoring.Inputs{
			RelVol: relVol, PctChange: ev.PctChange, Volume: ev.Volume, VolThresh: eff.VolBase,
			TradeCount: ev.TradeCount, MinTrades: stage1MinTrades,
			SpreadRatio: ev.Spread.Ratio, SpreadKnown: ev.Spread.Known, SpreadLimit: eff.SpreadLimit,
			PriceExpansionPct: followThrough, Acceleration: true, VolumeSustained: true,
		})
		if quality < 50 {
			return nil
		}

		d.clearPending(ev.Symbol)
		if !cd.allowMain(ev.Ts, StageTwoConfirmed) {
			return nil
		}
		cd.recordMain(ev.Ts, StageTwoConfirmed)
		alert := buildAlert(StageTwoConfirmed, ev, relVol, quality)
		alert.SetupPrice = f64ptr(pending.setupPrice)
		alert.ExpansionPct = f64ptr(followThrough)
		d.emit(alert)
		return []Alert{alert}
	}

	if likelihood >= 0.75 && acceleration {
		s.mu.Lock()
		s.pending = &pendingMomentum{setMinute: ev.MinuteTS, setupPrice: ev.Bar.Close}
		s.mu.Unlock()

		if !cd.allowMain(ev.Ts, StageOneSetup) {
			return nil
		}
		cd.recordMain(ev.Ts, StageOneSetup)
		quality := scoring.Score(scoring.Inputs{
			RelVol: relVol, PctChange: ev.PctChange, Volume: ev.Volume, VolThresh: eff.VolBase,
			TradeCount: ev.TradeCount, MinTrades: stage1MinTrades,
			SpreadRatio: ev.Spread.Ratio, SpreadKnown: ev.Spread.Known, SpreadLimit: eff.SpreadLimit,
		})
		alert := buildAlert(StageOneSetup, ev, relVol, quality)
		d.emit(alert)
		return []Alert{alert}
	}

	return nil
}

func (d *Likelihood) clearPending(symbol string) {
	s := d.getOrCreate(symbol)
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}
