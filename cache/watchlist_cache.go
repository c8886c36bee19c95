package cache

import (
	"context"
	"log"
	"time"
)

const watchlistCacheKey = "momentumsentry:watchlist"
const watchlistCacheTTL = 24 * time.Hour

// SaveWatchlist persists the active ticker set to Redis so a later start
// can fall back to it when the ticker file cannot be read. A nil
// client (Redis unreachable at startup) is a no-op, matching the rest of
// the engine's "degrade gracefully without Redis" posture.
func SaveWatchlist(redis *RedisClient, symbols []string) {
	if redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redis.Set(ctx, watchlistCacheKey, symbols, watchlistCacheTTL); err != nil {
		log.Printf("⚠️  failed to cache watchlist: %v", err)
	}
}

// LoadWatchlist returns the last cached watchlist, or nil if unavailable.
func LoadWatchlist(redis *RedisClient) []string {
	if redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var symbols []string
	if err := redis.Get(ctx, watchlistCacheKey, &symbols); err != nil {
		return nil
	}
	return symbols
}
