package detector

import (
	"math"
	"sync"

	"momentumsentry/bar"
	"momentumsentry/clock"
	"momentumsentry/scoring"
)

const (
	stage1MinTrades  = 3
	watchMinTrades   = 2
	flagExpiryMins   = 4.0
	stage1QualityGate = 50.0
	primaryQualityGate = 60.0
	altQualityGate     = 58.0
	watchQualityGate   = 45.0
)

// Balanced is the default detector profile: balanced-quality scoring with
// a staged flag state machine (Watch → Stage-1 Setup → Stage-2 Confirmed,
// plus the independent Stage-3 Fast-Break path).
type Balanced struct {
	cfg      Config
	sink     Sink
	cooldown *cooldownTracker

	mu        sync.Mutex
	flags     map[string]*Flag
	watchList []Alert // in-memory, consumed by backtest tooling
}

// NewBalanced constructs the default detector profile.
func NewBalanced(cfg Config, sink Sink) *Balanced {
	return &Balanced{
		cfg:      cfg,
		sink:     sink,
		cooldown: newCooldownTracker(),
		flags:    make(map[string]*Flag),
	}
}

// WatchList returns a snapshot of all Watch candidates recorded so far —
// used by offline backtest tooling, not by the live alert path.
func (d *Balanced) WatchList() []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Alert, len(d.watchList))
	copy(out, d.watchList)
	return out
}

func (d *Balanced) Reset() {
	d.mu.Lock()
	d.flags = make(map[string]*Flag)
	d.watchList = nil
	d.mu.Unlock()
	d.cooldown.reset()
}

func (d *Balanced) emit(a Alert) {
	if d.sink != nil {
		d.sink.Send(a)
	}
}

// Evaluate runs the Watch check, the Stage-1/Stage-2 flag state machine,
// and the independent Stage-3 Fast-Break check against one trade event.
func (d *Balanced) Evaluate(ev Event) []Alert {
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
	declining := bar.VolumeDeclining(ev.Volume, ev.PrevMinuteVol)
	cd := d.cooldown.get(ev.Symbol)

	var alerts []Alert

	if a := d.evaluateWatch(ev, eff, relVol, declining, cd); a != nil {
		alerts = append(alerts, *a)
	}

	d.mu.Lock()
	flag := d.flags[ev.Symbol]
	d.mu.Unlock()

	if flag == nil {
		if a := d.evaluateStage1(ev, eff, relVol, declining, cd); a != nil {
			alerts = append(alerts, *a)
		}
	} else {
		if a := d.evaluateStage2(ev, eff, relVol, flag, cd); a != nil {
			alerts = append(alerts, *a)
		}
	}

	if a := d.evaluateStage3(ev, eff, relVol, cd); a != nil {
		alerts = append(alerts, *a)
	}

	return alerts
}

func (d *Balanced) evaluateWatch(ev Event, eff effective, relVol float64, declining bool, cd *cooldownState) *Alert {
	if relVol < eff.WatchRelVol {
		return nil
	}
	if ev.PctChange < eff.WatchPct {
		return nil
	}
	if ev.TradeCount < watchMinTrades {
		return nil
	}
	if ev.Spread.Known && ev.Spread.Ratio >= eff.SpreadLimit*1.4 {
		return nil
	}
	if declining {
		return nil
	}

	quality := scoring.Score(scoring.Inputs{
		RelVol: relVol, PctChange: ev.PctChange, Volume: ev.Volume, VolThresh: eff.VolBase,
		TradeCount: ev.TradeCount, MinTrades: stage1MinTrades,
		SpreadRatio: ev.Spread.Ratio, SpreadKnown: ev.Spread.Known, SpreadLimit: eff.SpreadLimit,
	})

	candidate := buildAlert(StageWatch, ev, relVol, quality)

	d.mu.Lock()
	d.watchList = append(d.watchList, candidate)
	d.mu.Unlock()

	if quality >= watchQualityGate && cd.allowWatch(ev.Ts) {
		cd.recordWatch(ev.Ts)
		d.emit(candidate)
	}
	return &candidate
}

func (d *Balanced) evaluateStage1(ev Event, eff effective, relVol float64, declining bool, cd *cooldownState) *Alert {
	if relVol < eff.RelVolS1 {
		return nil
	}
	if ev.PctChange < eff.PctEarly {
		return nil
	}
	if ev.Spread.Known && ev.Spread.Ratio >= eff.SpreadLimit {
		return nil
	}
	if ev.TradeCount < stage1MinTrades {
		return nil
	}
	if declining {
		return nil
	}

	quality := scoring.Score(scoring.Inputs{
		RelVol: relVol, PctChange: ev.PctChange, Volume: ev.Volume, VolThresh: eff.VolBase,
		TradeCount: ev.TradeCount, MinTrades: stage1MinTrades,
		SpreadRatio: ev.Spread.Ratio, SpreadKnown: ev.Spread.Known, SpreadLimit: eff.SpreadLimit,
	})
	if quality < stage1QualityGate {
		return nil
	}

	flag := &Flag{
		FlagMinute:         ev.MinuteTS,
		SetupPrice:         ev.Bar.Close,
		SetupVolume:        ev.Volume,
		Session:            ev.Session,
		PreliminaryQuality: quality,
		IntradayHigh:       ev.Bar.High,
		FailCounters:       map[string]int{},
	}
	d.mu.Lock()
	d.flags[ev.Symbol] = flag
	d.mu.Unlock()

	alert := buildAlert(StageOneSetup, ev, relVol, quality)
	if cd.allowMain(ev.Ts, StageOneSetup) {
		cd.recordMain(ev.Ts, StageOneSetup)
		d.emit(alert)
	}
	return &alert
}

func (d *Balanced) evaluateStage2(ev Event, eff effective, relVol float64, flag *Flag, cd *cooldownState) *Alert {
	minutesSinceFlag := ev.Ts.Sub(flag.FlagMinute).Minutes()
	expansionPct := 0.0
	if flag.SetupPrice > 0 {
		expansionPct = (ev.Bar.Close - flag.SetupPrice) / flag.SetupPrice * 100
	}
	cumVolume := ev.Volume
	if ev.CumVolumeSince != nil {
		cumVolume = ev.CumVolumeSince(flag.FlagMinute)
	}
	cumTradeCount := ev.TradeCount
	if ev.CumTradeCountSince != nil {
		cumTradeCount = ev.CumTradeCountSince(flag.FlagMinute)
	}

	requiredExpansion := math.Max(0.6, eff.PctConfirm-eff.PctEarly+1.0)

	// Expiry check first: a stale flag that never expanded is dropped
	// silently, with no confirmation attempt this bar.
	if minutesSinceFlag > flagExpiryMins && expansionPct < requiredExpansion/2 {
		d.clearFlag(ev.Symbol)
		return nil
	}

	primaryExpansionOK := false
	if minutesSinceFlag < 1.1 {
		primaryExpansionOK = expansionPct >= 0.6 || ev.PctChange >= eff.PctConfirm
	} else {
		primaryExpansionOK = expansionPct >= requiredExpansion
	}

	volumeSustained := float64(cumVolume) >= 1.25*float64(flag.SetupVolume) ||
		float64(ev.Volume) >= 0.55*float64(flag.SetupVolume) ||
		float64(cumVolume) >= 0.5*eff.VolBase

	acceleration := relVol >= (eff.RelVolS2-0.4) || float64(cumVolume)/eff.VolBase >= 0.55

	tradeGateThreshold := int64(math.Max(5, math.Ceil(float64(stage1MinTrades)*1.6)))
	tradeGateOK := cumTradeCount >= tradeGateThreshold

	spreadGateOK := !ev.Spread.Known || ev.Spread.Ratio < eff.SpreadLimit

	path := PathNone
	if primaryExpansionOK && volumeSustained && acceleration && tradeGateOK && spreadGateOK {
		path = PathPrimary
	} else {
		altOK := minutesSinceFlag >= 2 && minutesSinceFlag <= 3 &&
			expansionPct >= 0.4 &&
			expansionPct >= eff.PctEarly+1.0 &&
			ev.Bar.Close >= flag.SetupPrice*0.985 &&
			float64(ev.Volume) >= 0.5*float64(flag.SetupVolume) &&
			float64(ev.PrevMinuteVol) >= 0.5*float64(flag.SetupVolume) &&
			relVol >= eff.RelVolS1+0.3 &&
			spreadGateOK
		if altOK {
			path = PathAlt
		}
	}

	if path == PathNone {
		return nil // flag remains for re-evaluation until expiry
	}

	quality := scoring.Score(scoring.Inputs{
		RelVol: relVol, PctChange: ev.PctChange, Volume: ev.Volume, VolThresh: eff.VolBase,
		TradeCount: ev.TradeCount, MinTrades: stage1MinTrades,
		SpreadRatio: ev.Spread.Ratio, SpreadKnown: ev.Spread.Known, SpreadLimit: eff.SpreadLimit,
		PriceExpansionPct: expansionPct, Acceleration: acceleration, VolumeSustained: volumeSustained,
	})

	gate := primaryQualityGate
	if path == PathAlt {
		gate = altQualityGate
	}
	if quality < gate {
		return nil // flag remains; re-evaluated on next bar
	}

	alert := buildAlert(StageTwoConfirmed, ev, relVol, quality)
	alert.SetupPrice = f64ptr(flag.SetupPrice)
	alert.ExpansionPct = f64ptr(expansionPct)
	alert.CumVolumeSinceFlag = i64ptr(cumVolume)
	alert.Path = path

	cd.recordMain(ev.Ts, StageTwoConfirmed)
	d.emit(alert)
	d.clearFlag(ev.Symbol)
	return &alert
}

func (d *Balanced) evaluateStage3(ev Event, eff effective, relVol float64, cd *cooldownState) *Alert {
	if ev.RollingAvgVol <= 0 {
		return nil
	}
	if float64(ev.Volume) < 6*ev.RollingAvgVol {
		return nil
	}
	if ev.PctChange < 9 {
		return nil
	}
	if ev.Spread.Known && ev.Spread.Ratio >= eff.SpreadLimit*1.6 {
		return nil
	}

	quality := scoring.Score(scoring.Inputs{
		RelVol: relVol, PctChange: ev.PctChange, Volume: ev.Volume, VolThresh: eff.VolBase,
		TradeCount: ev.TradeCount, MinTrades: stage1MinTrades,
		SpreadRatio: ev.Spread.Ratio, SpreadKnown: ev.Spread.Known, SpreadLimit: eff.SpreadLimit,
		Acceleration: true, VolumeSustained: true,
	})

	alert := buildAlert(StageThreeFastBreak, ev, relVol, quality)
	cd.recordMain(ev.Ts, StageThreeFastBreak) // bypasses cooldown but still updates the tracker
	d.emit(alert)
	return &alert
}

func (d *Balanced) clearFlag(symbol string) {
	d.mu.Lock()
	delete(d.flags, symbol)
	d.mu.Unlock()
}

func buildAlert(stage Stage, ev Event, relVol, quality float64) Alert {
	a := Alert{
		Symbol: ev.Symbol, Stage: stage, Ts: ev.Ts, Session: ev.Session,
		EntryPrice: ev.Bar.Close, PctChange: ev.PctChange, RelVol: relVol,
		Volume: ev.Volume, TradeCount: ev.TradeCount, VWAP: ev.VWAP,
		Quality: quality,
	}
	if ev.Spread.Known {
		a.SpreadRatio = f64ptr(ev.Spread.Ratio)
	}
	return a
}

func f64ptr(v float64) *float64 { return &v }
func i64ptr(v int64) *int64     { return &v }
