package replay

import (
	"context"
	"testing"
	"time"

	"momentumsentry/detector"
	"momentumsentry/flatfiles"
)

type recordingTarget struct {
	trades []struct {
		symbol string
		price  float64
		size   int64
		ts     time.Time
	}
	resets int
}

func (r *recordingTarget) OnTrade(symbol string, price float64, size int64, ts time.Time) ([]detector.Alert, error) {
	r.trades = append(r.trades, struct {
		symbol string
		price  float64
		size   int64
		ts     time.Time
	}{symbol, price, size, ts})
	return nil, nil
}

func (r *recordingTarget) OnQuote(symbol string, bid, ask float64, bidSize, askSize int64, ts time.Time) error {
	return nil
}

func (r *recordingTarget) Reset() { r.resets++ }

func TestRunOrdersByTimestampAndSplitsVolume(t *testing.T) {
	base := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	bars := []flatfiles.Bar{
		{Symbol: "AAPL", Ts: base.Add(time.Minute), Open: 10, Close: 10.2, Volume: 2000, Transactions: 2},
		{Symbol: "AAPL", Ts: base, Open: 9.9, Close: 10, Volume: 1000, Transactions: 1},
	}
	target := &recordingTarget{}
	res := Run(context.Background(), target, bars)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(target.trades) != 3 {
		t.Fatalf("expected 3 synthetic trades, got %d", len(target.trades))
	}
	if !target.trades[0].ts.Equal(base) {
		t.Fatalf("expected replay to order by timestamp, first trade at %v", target.trades[0].ts)
	}
	var total int64
	for _, tr := range target.trades {
		total += tr.size
	}
	if total != 3000 {
		t.Fatalf("expected synthesized volume to sum to bar volume, got %d", total)
	}
}

func TestRunResetsBetweenCalendarDays(t *testing.T) {
	day1 := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 11, 9, 30, 0, 0, time.UTC)
	bars := []flatfiles.Bar{
		{Symbol: "AAPL", Ts: day1, Open: 10, Close: 10, Volume: 100, Transactions: 1},
		{Symbol: "AAPL", Ts: day2, Open: 10, Close: 10, Volume: 100, Transactions: 1},
	}
	target := &recordingTarget{}
	Run(context.Background(), target, bars)
	if target.resets != 1 {
		t.Fatalf("expected exactly 1 reset between two days, got %d", target.resets)
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	base := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	bars := []flatfiles.Bar{
		{Symbol: "AAPL", Ts: base, Open: 10, Close: 10, Volume: 100, Transactions: 1},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	target := &recordingTarget{}
	Run(ctx, target, bars)
	if len(target.trades) != 0 {
		t.Fatalf("expected no trades after cancellation, got %d", len(target.trades))
	}
}
