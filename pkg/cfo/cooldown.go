package cfo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// cooldownKeyPrefix namespaces cooldown keys in the shared Redis keyspace.
const cooldownKeyPrefix = "nova:cooldown:"

// cooldownRedisTTL bounds how long a cooldown mark lingers in Redis. It is
// set well above the largest configured cooldown window (diversity rotation
// defaults to 72h) so the cache entry never expires before the window it's
// backing has actually elapsed.
const cooldownRedisTTL = 7 * 24 * time.Hour

// cooldowns tracks the last-fired time per decision cooldown key. Live
// and dry-run fires share the same key but are checked against different
// durations, so a dry-run cycle doesn't block a live decision once the
// real (longer) cooldown has actually elapsed, and vice versa a live
// fire always also satisfies the shorter dry-run window.
//
// Redis is the hot path: mark stores the fire time, and ready parses it
// back and compares against the caller's window, so cooldown state
// survives a CFO restart and stays consistent across any future second
// CFO process. Redis is a rate limit, not a ledger, so losing it is
// tolerable; a nil client or a Redis error just falls back to the
// in-process map for as long as this process runs.
type cooldowns struct {
	rdb    *redis.Client
	logger *slog.Logger

	mu    sync.Mutex
	local map[string]time.Time
}

func newCooldowns(rdb *redis.Client, logger *slog.Logger) *cooldowns {
	return &cooldowns{rdb: rdb, logger: logger, local: make(map[string]time.Time)}
}

func cooldownRedisKey(key string) string {
	return cooldownKeyPrefix + key
}

// ready reports whether key is outside its cooldown window, given the
// duration appropriate to the current mode (live vs. dry-run).
func (c *cooldowns) ready(ctx context.Context, key string, window time.Duration) bool {
	if c.rdb != nil {
		val, err := c.rdb.Get(ctx, cooldownRedisKey(key)).Result()
		switch {
		case err == redis.Nil:
			return true
		case err != nil:
			c.logger.Warn("redis cooldown lookup failed, falling back to local map", "key", key, "error", err)
		default:
			last, parseErr := time.Parse(time.RFC3339, val)
			if parseErr != nil {
				c.logger.Warn("invalid cooldown timestamp in redis", "key", key, "value", val)
				break
			}
			return time.Since(last) >= window
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.local[key]
	if !ok {
		return true
	}
	return time.Since(last) >= window
}

// mark records key as having just fired.
func (c *cooldowns) mark(ctx context.Context, key string) {
	now := time.Now()

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, cooldownRedisKey(key), now.Format(time.RFC3339), cooldownRedisTTL).Err(); err != nil {
			c.logger.Warn("redis cooldown mark failed, falling back to local map", "key", key, "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = now
}
