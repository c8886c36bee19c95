package detector

import "momentumsentry/bar"

// Bias is the qualitative VWAP-bias direction used by bias-gated profiles.
type Bias string

const (
	Bullish Bias = "bullish"
	Bearish Bias = "bearish"
	Neutral Bias = "neutral"
)

// vwapBias compares close-vs-VWAP over the last n bars of history (oldest
// first). All closes above their bar's VWAP is bullish, all below is
// bearish, anything mixed is neutral. Fewer than n bars of history is
// neutral — there isn't enough signal to call a direction.
func vwapBias(history []bar.Bar, n int) Bias {
	if len(history) < n || n <= 0 {
		return Neutral
	}
	recent := history[len(history)-n:]

	allAbove, allBelow := true, true
	for _, b := range recent {
		vwap := b.VWAP()
		if b.Close <= vwap {
			allAbove = false
		}
		if b.Close >= vwap {
			allBelow = false
		}
	}

	switch {
	case allAbove:
		return Bullish
	case allBelow:
		return Bearish
	default:
		return Neutral
	}
}
