package backtest

import (
	"context"
	"testing"
	"time"

	"momentumsentry/detector"
	"momentumsentry/flatfiles"
)

func TestScaledConfigMultipliesVolumeThresholdsOnly(t *testing.T) {
	base := detector.DefaultConfig()
	scaled := scaledConfig(base, 2.0)

	for session, p := range base.Sessions {
		sp := scaled.Sessions[session]
		if sp.VolBase != p.VolBase*2 {
			t.Errorf("%s: expected VolBase doubled, got %v vs %v", session, sp.VolBase, p.VolBase)
		}
		if sp.PctEarly != p.PctEarly {
			t.Errorf("%s: expected PctEarly untouched, got %v vs %v", session, sp.PctEarly, p.PctEarly)
		}
	}
}

func TestRunProducesOneMetricsRowPerVariant(t *testing.T) {
	base := time.Date(2024, 6, 10, 9, 30, 0, 0, clockLocation(t))
	bars := []flatfiles.Bar{
		{Symbol: "AAPL", Ts: base, Open: 10.00, Close: 10.05, High: 10.10, Low: 9.95, Volume: 5000, Transactions: 10},
	}
	variants := []Variant{{Label: "baseline", Multiplier: 1.0}, {Label: "tight", Multiplier: 1.5}}

	results := Run(context.Background(), detector.DefaultConfig(), bars, variants, DefaultExitParams())
	if len(results) != 2 {
		t.Fatalf("expected 2 metrics rows, got %d", len(results))
	}
	for i, r := range results {
		if r.Variant.Label != variants[i].Label {
			t.Errorf("result %d: expected label %s, got %s", i, variants[i].Label, r.Variant.Label)
		}
	}
}

func clockLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}
