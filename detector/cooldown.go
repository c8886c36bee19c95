package detector

import (
	"sync"
	"time"
)

const cooldownWindow = 5 * time.Minute

// cooldownState tracks the last emitted alert for one symbol. It is the
// common base shared by all three detector profiles.
type cooldownState struct {
	lastMainTs    time.Time
	lastMainStage Stage
	lastWatchTs   time.Time
}

// allowMain reports whether a Stage-1/Stage-2/Stage-3 alert may be emitted
// now. Stage-2 may upgrade a Stage-1 alert within the cooldown window, and
// Stage-3 Fast-Break always bypasses the cooldown.
func (c *cooldownState) allowMain(now time.Time, stage Stage) bool {
	if c.lastMainTs.IsZero() {
		return true
	}
	if stage == StageThreeFastBreak {
		return true
	}
	if now.Sub(c.lastMainTs) >= cooldownWindow {
		return true
	}
	if stage == StageTwoConfirmed && c.lastMainStage == StageOneSetup {
		return true
	}
	return false
}

func (c *cooldownState) recordMain(now time.Time, stage Stage) {
	c.lastMainTs = now
	c.lastMainStage = stage
}

// allowWatch applies the same 5-minute cooldown to Watch alerts, tracked
// independently of the main tracker — a Watch emission never blocks or
// resets the Stage-1/2/3 cooldown.
func (c *cooldownState) allowWatch(now time.Time) bool {
	return c.lastWatchTs.IsZero() || now.Sub(c.lastWatchTs) >= cooldownWindow
}

func (c *cooldownState) recordWatch(now time.Time) {
	c.lastWatchTs = now
}

// cooldownTracker owns one cooldownState per symbol, safe for concurrent
// use under the engine's data lock.
type cooldownTracker struct {
	mu    sync.Mutex
	syms  map[string]*cooldownState
}

func newCooldownTracker() *cooldownTracker {
	return &cooldownTracker{syms: make(map[string]*cooldownState)}
}

func (t *cooldownTracker) get(symbol string) *cooldownState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.syms[symbol]
	if !ok {
		s = &cooldownState{}
		t.syms[symbol] = s
	}
	return s
}

func (t *cooldownTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syms = make(map[string]*cooldownState)
}
