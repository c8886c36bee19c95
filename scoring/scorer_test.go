package scoring

import "testing"

func TestScoreBoundedToRange(t *testing.T) {
	in := Inputs{
		RelVol: 50, PctChange: 200, Volume: 1_000_000, VolThresh: 1,
		TradeCount: 10000, MinTrades: 1, SpreadKnown: false, SpreadLimit: 0.02,
		PriceExpansionPct: 50, Acceleration: true, VolumeSustained: true,
	}
	s := Score(in)
	if s < 0 || s > 100 {
		t.Fatalf("score out of range: %v", s)
	}

	in2 := Inputs{RelVol: 0, PctChange: 0, Volume: 0, VolThresh: 1, TradeCount: 0, MinTrades: 1}
	s2 := Score(in2)
	if s2 < 0 || s2 > 100 {
		t.Fatalf("score out of range: %v", s2)
	}
}

// Scenario 5: parabolic penalty clamp — same inputs, differing only in
// volume_sustained, must differ by exactly the parabolic penalty formula.
func TestParabolicPenaltyClamp(t *testing.T) {
	base := Inputs{
		RelVol: 3, PctChange: 14, Volume: 200_000, VolThresh: 100_000,
		TradeCount: 30, MinTrades: 10, SpreadKnown: true, SpreadRatio: 0.002, SpreadLimit: 0.02,
		PriceExpansionPct: 0, Acceleration: false,
	}

	sustained := base
	sustained.VolumeSustained = true
	notSustained := base
	notSustained.VolumeSustained = false

	gotSustained := Score(sustained)
	gotNotSustained := Score(notSustained)

	wantPenalty := (min(14-11, 6) / 6) * 6
	gotDiff := gotSustained - gotNotSustained

	if diff := gotDiff - wantPenalty; diff > 0.05 || diff < -0.05 {
		t.Fatalf("expected penalty diff ~%v, got %v (sustained=%v notSustained=%v)", wantPenalty, gotDiff, gotSustained, gotNotSustained)
	}
	if gotNotSustained >= gotSustained {
		t.Fatalf("non-sustained score should be strictly lower: sustained=%v notSustained=%v", gotSustained, gotNotSustained)
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func TestRetailChurnPenalty(t *testing.T) {
	base := Inputs{RelVol: 2, PctChange: 5, Volume: 10_000, VolThresh: 10_000, MinTrades: 5, SpreadKnown: false, SpreadLimit: 0.02}

	dense := base
	dense.TradeCount = 10_000 / 50 // avg size 50 -> penalty 4
	sparse := base
	sparse.TradeCount = 10_000 / 300 // avg size 300 -> no penalty

	if Score(dense) >= Score(sparse) {
		t.Fatalf("dense small-ticket trading should score lower than large-ticket trading")
	}
}

func TestScoreRoundedToOneDecimal(t *testing.T) {
	s := Score(Inputs{RelVol: 1.3333, PctChange: 3.777, Volume: 5000, VolThresh: 9000, TradeCount: 7, MinTrades: 3, SpreadKnown: true, SpreadRatio: 0.01, SpreadLimit: 0.02})
	scaled := s * 10
	if scaled != float64(int64(scaled)) {
		t.Fatalf("expected score rounded to one decimal, got %v", s)
	}
}
