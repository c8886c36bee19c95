package clock

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T) *time.Location {
	t.Helper()
	l, err := time.LoadLocation(zoneName)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return l
}

func TestClassifySessions(t *testing.T) {
	loc := mustLoc(t)

	cases := []struct {
		name string
		hm   [2]int
		want Session
	}{
		{"premarket-open", [2]int{4, 0}, Premarket},
		{"premarket-late", [2]int{9, 29}, Premarket},
		{"regular-open", [2]int{9, 30}, Regular},
		{"regular-close-edge", [2]int{15, 59}, Regular},
		{"postmarket-open", [2]int{16, 0}, Postmarket},
		{"postmarket-late", [2]int{19, 59}, Postmarket},
		{"closed-midnight", [2]int{0, 0}, Closed},
		{"closed-after-hours", [2]int{20, 0}, Closed},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ts := time.Date(2024, 6, 10, c.hm[0], c.hm[1], 15, 0, loc)
			_, session := Classify(ts)
			if session != c.want {
				t.Fatalf("got %s, want %s", session, c.want)
			}
		})
	}
}

func TestClassifyTruncatesToMinute(t *testing.T) {
	loc := mustLoc(t)
	ts := time.Date(2024, 6, 10, 9, 31, 47, 123, loc)
	minuteTS, _ := Classify(ts)
	if minuteTS.Second() != 0 || minuteTS.Nanosecond() != 0 {
		t.Fatalf("expected truncation to minute, got %v", minuteTS)
	}
	if minuteTS.Minute() != 31 {
		t.Fatalf("expected minute 31, got %d", minuteTS.Minute())
	}
}

func TestClassifyDSTBoundary(t *testing.T) {
	loc := mustLoc(t)
	// Second Sunday in March 2024 is DST start (2024-03-10); 09:30 ET should
	// still classify as Regular across the transition.
	ts := time.Date(2024, 3, 10, 9, 30, 0, 0, loc)
	_, session := Classify(ts)
	if session != Regular {
		t.Fatalf("expected Regular across DST boundary, got %s", session)
	}
}

func TestNormalizeEpoch(t *testing.T) {
	sec := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	if got := NormalizeEpoch(sec.Unix()); !got.Equal(sec) {
		t.Fatalf("seconds: got %v want %v", got, sec)
	}
	if got := NormalizeEpoch(sec.UnixMilli()); !got.Equal(sec) {
		t.Fatalf("millis: got %v want %v", got, sec)
	}
	if got := NormalizeEpoch(sec.UnixNano()); !got.Equal(sec) {
		t.Fatalf("nanos: got %v want %v", got, sec)
	}
}
