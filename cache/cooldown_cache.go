package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"momentumsentry/detector"
)

// AlertCooldownTTL mirrors the detector's in-process 5-minute cooldown
// window, so a process restart mid-session doesn't immediately re-fire
// an alert Redis already remembers sending.
const AlertCooldownTTL = 5 * time.Minute

// SetAlertCooldown records that an alert at the given stage was just sent
// for a symbol, so a second process (or a restarted one) can honor the
// same cooldown window.
func SetAlertCooldown(redis *RedisClient, symbol, stage string) error {
	if redis == nil {
		return fmt.Errorf("redis client not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := fmt.Sprintf("momentumsentry:cooldown:%s:%s", symbol, stage)
	return redis.Set(ctx, key, time.Now().Unix(), AlertCooldownTTL)
}

// InAlertCooldown reports whether a cooldown is still active for the
// symbol/stage pair. A nil or unreachable Redis client is treated as "not
// in cooldown" — the in-process tracker remains authoritative either way.
func InAlertCooldown(redis *RedisClient, symbol, stage string) bool {
	if redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := fmt.Sprintf("momentumsentry:cooldown:%s:%s", symbol, stage)
	var ts int64
	if err := redis.Get(ctx, key, &ts); err != nil {
		return false
	}
	return ts > 0
}

// CooldownSink wraps another Sink with the Redis-backed cross-process
// cooldown check: a symbol/stage pair already recorded by any process
// within AlertCooldownTTL is swallowed here instead of reaching the
// wrapped sink again. This lets a restarted process honor a cooldown
// window another (or the same, pre-restart) process already started,
// on top of the detector's own in-process cooldown tracker.
type CooldownSink struct {
	redis *RedisClient
	next  detector.Sink
}

// NewCooldownSink builds a cooldown-gated sink around next. A nil redis
// client makes every check a pass-through, matching the rest of the
// package's "degrade gracefully without Redis" posture.
func NewCooldownSink(redis *RedisClient, next detector.Sink) *CooldownSink {
	return &CooldownSink{redis: redis, next: next}
}

// Send checks the shared cooldown before forwarding to the wrapped sink,
// and records a fresh cooldown after a successful send. A swallowed
// alert reports true — it was handled (deliberately suppressed), not
// lost.
func (s *CooldownSink) Send(a detector.Alert) bool {
	stage := string(a.Stage)
	if InAlertCooldown(s.redis, a.Symbol, stage) {
		return true
	}
	sent := s.next.Send(a)
	if sent {
		if err := SetAlertCooldown(s.redis, a.Symbol, stage); err != nil {
			log.Printf("⚠️  failed to record alert cooldown for %s: %v", a.Symbol, err)
		}
	}
	return sent
}
