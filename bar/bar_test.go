package bar

import (
	"testing"
	"time"
)

func premarketTime(t *testing.T, hh, mm, ss int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return time.Date(2024, 6, 10, hh, mm, ss, 0, loc)
}

func TestOnTradeBarInvariants(t *testing.T) {
	a := NewAggregator()
	ts := premarketTime(t, 8, 30, 0)

	res, err := a.OnTrade("AAPL", 10.00, 100, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Bar.Open != 10.00 || res.Bar.Close != 10.00 {
		t.Fatalf("expected open=close=10.00, got %+v", res.Bar)
	}

	res, err = a.OnTrade("AAPL", 10.40, 200, ts.Add(5*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Bar.Open != 10.00 {
		t.Fatalf("open must not be overwritten, got %v", res.Bar.Open)
	}
	if res.Bar.Close != 10.40 {
		t.Fatalf("close should track latest trade, got %v", res.Bar.Close)
	}
	if res.Bar.High < res.Bar.Close || res.Bar.Low > res.Bar.Open {
		t.Fatalf("high/low invariant violated: %+v", res.Bar)
	}
	if res.Bar.Volume != 300 {
		t.Fatalf("expected volume 300, got %d", res.Bar.Volume)
	}
	if res.Bar.TradeCount != 2 {
		t.Fatalf("expected trade_count 2, got %d", res.Bar.TradeCount)
	}
	wantVWAP := (10.00*100 + 10.40*200) / 300
	if diff := res.VWAP - wantVWAP; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("vwap mismatch: got %v want %v", res.VWAP, wantVWAP)
	}
}

func TestRollingVolumeShiftsOncePerMinuteBoundary(t *testing.T) {
	a := NewAggregator()
	base := premarketTime(t, 8, 0, 0)

	// Three prior minutes of 10,000 volume each, per scenario 1.
	for m := 0; m < 3; m++ {
		minuteStart := base.Add(time.Duration(m) * time.Minute)
		if _, err := a.OnTrade("AAPL", 10.00, 10000, minuteStart); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Mid-minute re-delivery must not shift the window. Only minutes 0 and 1
	// have completed so far; the third slot is still zero-padded.
	res, err := a.OnTrade("AAPL", 10.05, 500, base.Add(2*time.Minute+time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RollingAvgVol != float64(10000+10000)/3 {
		t.Fatalf("mid-minute trade shifted the window: avg=%v", res.RollingAvgVol)
	}

	// Crossing into minute 3 shifts minute 2's final volume (10500) in.
	res, err = a.OnTrade("AAPL", 10.10, 100, base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantAvg := float64(10000+10000+10500) / 3
	if res.RollingAvgVol != wantAvg {
		t.Fatalf("expected avg %v after shift, got %v", wantAvg, res.RollingAvgVol)
	}
}

func TestOutOfOrderTradeSkipped(t *testing.T) {
	a := NewAggregator()
	ts := premarketTime(t, 8, 30, 0)

	if _, err := a.OnTrade("AAPL", 10.00, 100, ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := a.OnTrade("AAPL", 9.00, 50, ts.Add(-time.Second))
	if err == nil {
		t.Fatalf("expected out-of-order error")
	}
	var ooErr *OutOfOrder
	if _, ok := err.(*OutOfOrder); !ok {
		_ = ooErr
		t.Fatalf("expected *OutOfOrder, got %T", err)
	}
}

func TestClosedSessionShortCircuits(t *testing.T) {
	a := NewAggregator()
	ts := premarketTime(t, 2, 0, 0) // 02:00 ET is CLOSED
	res, err := a.OnTrade("AAPL", 10.00, 100, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.MinuteTS.IsZero() {
		t.Fatalf("expected no-op result during CLOSED session, got %+v", res)
	}
}

func TestRelativeVolumeFloorsAtOne(t *testing.T) {
	if got := RelativeVolume(500, 0); got != 500 {
		t.Fatalf("expected rel_vol=500 with floor denom 1, got %v", got)
	}
}

func TestRestoreSeedsInProgressBarForNextTrade(t *testing.T) {
	a := NewAggregator()
	minuteTS := premarketTime(t, 8, 30, 0)

	seed := Bar{
		Symbol: "AAPL", MinuteTS: minuteTS,
		Open: 10.00, High: 10.50, Low: 9.90, Close: 10.30,
		Volume: 1000, Value: 10300, TradeCount: 12,
	}
	a.Restore("AAPL", seed)

	res, err := a.OnTrade("AAPL", 10.40, 50, minuteTS.Add(30*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Bar.Open != 10.00 {
		t.Fatalf("restored open should carry forward, got %v", res.Bar.Open)
	}
	if res.Bar.Volume != 1050 {
		t.Fatalf("expected restored volume + new trade = 1050, got %d", res.Bar.Volume)
	}
	if res.Bar.TradeCount != 13 {
		t.Fatalf("expected restored trade count + 1 = 13, got %d", res.Bar.TradeCount)
	}
}

func TestVolumeDecliningUnknownPrevIsFalse(t *testing.T) {
	if VolumeDeclining(10, 0) {
		t.Fatalf("unknown previous minute must not count as declining")
	}
	if !VolumeDeclining(39, 100) {
		t.Fatalf("39%% of prior volume should count as declining")
	}
	if VolumeDeclining(40, 100) {
		t.Fatalf("exactly 40%% should not count as declining")
	}
}
