package detector

import (
	"sync"

	"momentumsentry/bar"
	"momentumsentry/clock"
	"momentumsentry/scoring"
)

const (
	persistenceRelVolFloor = 2.0
	persistenceStage1Quality = 50.0
	persistenceStage2Quality = 65.0
)

// persistenceSymState holds the per-symbol momentum counter: incremented
// on a qualifying bar, decremented (floored at 0) otherwise.
type persistenceSymState struct {
	mu      sync.Mutex
	counter int
}

// Persistence is the alternate "multi-bar persistence" detector profile:
// it replaces the flag state machine with a counter that must stay
// elevated across several bars before an alert fires, trading
// Stage-1/Stage-2's single-bar triggers for resistance to one-bar noise.
type Persistence struct {
	cfg      Config
	sink     Sink
	cooldown *cooldownTracker

	mu   sync.Mutex
	syms map[string]*persistenceSymState
}

func NewPersistence(cfg Config, sink Sink) *Persistence {
	return &Persistence{
		cfg:      cfg,
		sink:     sink,
		cooldown: newCooldownTracker(),
		syms:     make(map[string]*persistenceSymState),
	}
}

func (d *Persistence) getOrCreate(symbol string) *persistenceSymState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.syms[symbol]
	if !ok {
		s = &persistenceSymState{}
		d.syms[symbol] = s
	}
	return s
}

func (d *Persistence) Reset() {
	d.mu.Lock()
	d.syms = make(map[string]*persistenceSymState)
	d.mu.Unlock()
	d.cooldown.reset()
}

// minPersistence is adaptive on liquidity: illiquid symbols need three
// consecutive qualifying bars, liquid symbols need only one. BACKTEST_MODE
// overrides this to 1 across the board.
func minPersistence(liquidity float64, backtest bool) int {
	if backtest {
		return 1
	}
	switch {
	case liquidity >= 0.7:
		return 1
	case liquidity >= 0.3:
		return 2
	default:
		return 3
	}
}

func (d *Persistence) Evaluate(ev Event) []Alert {
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

	dynamicPctEarly := eff.PctEarly
	if d.cfg.BacktestMode {
		dynamicPctEarly *= 0.65
	}

	relVol := bar.RelativeVolume(ev.Volume, ev.RollingAvgVol)

	s := d.getOrCreate(ev.Symbol)
	s.mu.Lock()
	if relVol >= persistenceRelVolFloor && ev.PctChange >= dynamicPctEarly {
		s.counter++
	} else if s.counter > 0 {
		s.counter--
	}
	counter := s.counter
	s.mu.Unlock()

	minP := minPersistence(eff.Liquidity, d.cfg.BacktestMode)
	if counter < minP {
		return nil
	}

	bias2 := vwapBias(ev.History, 2)
	bias3 := vwapBias(ev.History, 3)
	if bias2 == Bearish && bias3 == Bearish {
		return nil
	}
	if float64(ev.Volume) < eff.VolBase {
		return nil
	}
	if ev.Spread.Known && ev.Spread.Ratio >= eff.SpreadLimit {
		return nil
	}

	quality := scoring.Score(scoring.Inputs{
		RelVol: relVol, PctChange: ev.PctChange, Volume: ev.Volume, VolThresh: eff.VolBase,
		TradeCount: ev.TradeCount, MinTrades: stage1MinTrades,
		SpreadRatio: ev.Spread.Ratio, SpreadKnown: ev.Spread.Known, SpreadLimit: eff.SpreadLimit,
		Acceleration: counter >= 3, VolumeSustained: true,
	})

	var stage Stage
	switch {
	case counter >= 3 && quality >= persistenceStage2Quality:
		stage = StageTwoConfirmed
	case counter >= 2 && quality >= persistenceStage1Quality:
		stage = StageOneSetup
	default:
		return nil
	}

	cd := d.cooldown.get(ev.Symbol)
	if !cd.allowMain(ev.Ts, stage) {
		return nil
	}
	cd.recordMain(ev.Ts, stage)

	alert := buildAlert(stage, ev, relVol, quality)
	d.emit(alert)
	return []Alert{alert}
}

func (d *Persistence) emit(a Alert) {
	if d.sink != nil {
		d.sink.Send(a)
	}
}
