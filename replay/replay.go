// Package replay drives an engine.Engine through historical minute bars
// in chronological order, synthesizing per-trade ticks from each bar's
// OHLCV the same way the harness scenarios split a minute's volume into a
// uniform sequence of trades walking a linear price path from open to
// close. It is a stand-in for the live WebSocket feed: symbol state
// resets between trading days so one day's close never leaks into the
// next day's opening range.
package replay

import (
	"context"
	"sort"
	"time"

	"momentumsentry/detector"
	"momentumsentry/flatfiles"
)

// Target is the narrow surface replay needs from the engine — satisfied
// by *engine.Engine.
type Target interface {
	OnTrade(symbol string, price float64, size int64, ts time.Time) ([]detector.Alert, error)
	OnQuote(symbol string, bid, ask float64, bidSize, askSize int64, ts time.Time) error
	Reset()
}

// Result collects every alert a replay run produced, in emission order.
type Result struct {
	Alerts []detector.Alert
	Errors []error
}

// Run feeds bars through target in timestamp order, grouping by calendar
// day (in the bar timestamps' own location) and calling target.Reset
// between days. bars need not be pre-sorted.
func Run(ctx context.Context, target Target, bars []flatfiles.Bar) Result {
	sorted := make([]flatfiles.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ts.Before(sorted[j].Ts) })

	var result Result
	var currentDay time.Time
	first := true

	for _, b := range sorted {
		select {
		case <-ctx.Done():
			return result
		default:
		}

		year, month, date := b.Ts.Date()
		day := time.Date(year, month, date, 0, 0, 0, 0, b.Ts.Location())
		if first {
			currentDay = day
			first = false
		} else if !day.Equal(currentDay) {
			target.Reset()
			currentDay = day
		}

		for _, tick := range syntheticTrades(b) {
			alerts, err := target.OnTrade(b.Symbol, tick.price, tick.size, tick.ts)
			if err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			result.Alerts = append(result.Alerts, alerts...)
		}
	}
	return result
}

type tick struct {
	price float64
	size  int64
	ts    time.Time
}

// syntheticTrades splits a bar's volume across its recorded transaction
// count into evenly sized trades, walking a straight line from open to
// close. The re-aggregated bar keeps the file's close and volume, and its
// open when the bar has two or more transactions; its high and low are
// those of the open-to-close line, not the file's high and low. A
// one-transaction bar becomes a single trade at the close.
func syntheticTrades(b flatfiles.Bar) []tick {
	n := b.Transactions
	if n <= 0 {
		n = 1
	}
	ticks := make([]tick, 0, n)

	remaining := b.Volume
	baseSize := b.Volume / n
	if baseSize < 1 {
		baseSize = 1
	}
	step := 0.0
	if n > 1 {
		step = (b.Close - b.Open) / float64(n-1)
	}

	for i := int64(0); i < n; i++ {
		size := baseSize
		if i == n-1 {
			size = remaining
		}
		if size <= 0 {
			size = 1
		}
		remaining -= size

		price := b.Open + step*float64(i)
		if i == n-1 {
			price = b.Close
		}
		ticks = append(ticks, tick{price: price, size: size, ts: b.Ts})
	}
	return ticks
}
