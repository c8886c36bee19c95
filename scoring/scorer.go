// Package scoring implements the quality scorer (C4): a pure function
// mapping candidate metrics to a bounded [0,100] score. It has no side
// effects and no dependency on engine state — every input it needs is
// passed in by the caller.
package scoring

import "math"

// Inputs bundles every metric the scorer needs. SpreadRatio/SpreadKnown
// model the nullable spread from quote.Spread without importing the quote
// package — the scorer stays free of engine dependencies.
type Inputs struct {
	RelVol            float64
	PctChange         float64
	Volume            int64
	VolThresh         float64
	TradeCount        int64
	MinTrades         int
	SpreadRatio       float64
	SpreadKnown       bool
	SpreadLimit       float64
	PriceExpansionPct float64
	Acceleration      bool
	VolumeSustained   bool
}

// Score computes the weighted composite quality score in [0,100], rounded
// to one decimal place.
func Score(in Inputs) float64 {
	score := 0.0

	// Relative volume: weight 28.
	relVolComponent := clamp(in.RelVol, 0, 8) / 8 * 28
	score += relVolComponent

	// Percent change (capped): weight 18.
	pctComponent := clamp(math.Abs(in.PctChange), 0, 14) / 14 * 18
	score += pctComponent

	// Volume vs threshold: weight 14 (only when threshold > 0).
	if in.VolThresh > 0 {
		volRatio := clamp(float64(in.Volume)/in.VolThresh, 0, 2)
		score += volRatio / 2 * 14
	}

	// Trade density: weight 12.
	minTrades := in.MinTrades
	if minTrades < 1 {
		minTrades = 1
	}
	density := clamp(float64(in.TradeCount)/float64(minTrades), 0, 3)
	score += density / 3 * 12

	// Spread tightness: weight 10.
	if in.SpreadKnown && in.SpreadLimit > 0 {
		tightness := math.Max(0, (in.SpreadLimit-in.SpreadRatio)/in.SpreadLimit)
		score += tightness * 10
	} else if !in.SpreadKnown {
		score += 5
	}

	// Expansion & follow-through: weight 18, components capped at 1.0.
	expansionComponent := 0.0
	if in.PriceExpansionPct >= 0.6 {
		expansionComponent += math.Min(in.PriceExpansionPct/6, 0.6)
	}
	if in.Acceleration {
		expansionComponent += 0.3
	}
	if in.VolumeSustained {
		expansionComponent += 0.3
	}
	expansionComponent = math.Min(expansionComponent, 1.0)
	score += expansionComponent * 18

	// Parabolic penalty.
	if in.PctChange >= 11 && !in.VolumeSustained {
		score -= (math.Min(in.PctChange-11, 6) / 6) * 6
	}

	// Retail-churn penalty.
	if in.TradeCount > 0 {
		avgTradeSize := float64(in.Volume) / float64(in.TradeCount)
		switch {
		case avgTradeSize < 120:
			score -= 4
		case avgTradeSize < 200:
			score -= 2
		}
	}

	return math.Round(clamp(score, 0, 100)*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
