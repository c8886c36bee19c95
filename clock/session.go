// Package clock maps event timestamps to Eastern-Time trading minutes and
// session labels. All session boundaries are defined in America/New_York
// wall-clock time so premarket/regular/postmarket windows stay correct
// across DST transitions.
package clock

import (
	"log"
	"sync"
	"time"
)

// Session labels a trading window.
type Session string

const (
	Premarket  Session = "PREMARKET"
	Regular    Session = "REGULAR"
	Postmarket Session = "POSTMARKET"
	Closed     Session = "CLOSED"
)

const zoneName = "America/New_York"

var (
	loc     *time.Location
	locOnce sync.Once
	locErr  error
)

// eastern returns the America/New_York location, loading it once. If the
// tzdata database isn't available in the runtime image, we fall back to a
// fixed -5 offset and log it loudly — tests must run against the
// DST-aware path, never the fallback, so they skip when tzdata is absent.
func eastern() *time.Location {
	locOnce.Do(func() {
		loc, locErr = time.LoadLocation(zoneName)
		if locErr != nil {
			log.Printf("⚠️  could not load %s tzdata, falling back to fixed UTC-5 offset: %v", zoneName, locErr)
			loc = time.FixedZone("ET-fallback", -5*60*60)
		}
	})
	return loc
}

// Classify normalizes an absolute timestamp to its Eastern-Time minute and
// session label. ts may be ns/ms/s epoch already converted by the caller
// into a time.Time — callers holding raw epoch integers should use
// NormalizeEpoch first.
func Classify(ts time.Time) (minuteTS time.Time, session Session) {
	et := ts.In(eastern())
	minuteTS = time.Date(et.Year(), et.Month(), et.Day(), et.Hour(), et.Minute(), 0, 0, eastern())

	h, m := et.Hour(), et.Minute()
	wall := h*60 + m

	switch {
	case wall >= 4*60 && wall < 9*60+30:
		session = Premarket
	case wall >= 9*60+30 && wall < 16*60:
		session = Regular
	case wall >= 16*60 && wall < 20*60:
		session = Postmarket
	default:
		session = Closed
	}
	return minuteTS, session
}

// NormalizeEpoch converts a raw integer timestamp of unknown epoch
// resolution (seconds, milliseconds, or nanoseconds) into a time.Time. The
// ingest layer may hand the engine any of the three; we disambiguate by
// magnitude the same way the original Python ingest did (timestamps below
// 10^12 are seconds, below 10^15 are milliseconds, otherwise nanoseconds).
func NormalizeEpoch(raw int64) time.Time {
	switch {
	case raw < 1_000_000_000_000:
		return time.Unix(raw, 0)
	case raw < 1_000_000_000_000_000:
		return time.UnixMilli(raw)
	default:
		return time.Unix(0, raw)
	}
}
