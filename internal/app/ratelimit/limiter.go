// Package ratelimit implements sliding-window-log rate limiting keyed by an
// arbitrary string (client IP, email, ...).
package ratelimit

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"hackathon_portal/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Err returns a *common.RateLimitError for a rejected result, nil otherwise.
func (r Result) Err() error {
	if r.Allowed {
		return nil
	}
	return &common.RateLimitError{Limit: r.Limit, Remaining: r.Remaining, ResetAt: r.ResetAt}
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// slidingWindowScript prunes hits older than the window, records the current
// hit if there is room and returns {allowed, count, resetAtMs}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", ARGV[5])
local count = redis.call("ZCARD", key)
local allowed = 0
if count < limit then
    redis.call("ZADD", key, ARGV[1], ARGV[4])
    count = count + 1
    allowed = 1
end
redis.call("PEXPIRE", key, ARGV[2])
local reset = tonumber(ARGV[1]) + window
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
if oldest[2] then
    reset = tonumber(oldest[2]) + window
end
return {allowed, count, reset}
`)

type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: "ratelimit:", now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := l.now().UnixMilli()
	windowMs := window.Milliseconds()
	raw, err := slidingWindowScript.Run(ctx, l.rdb, []string{l.prefix + key},
		strconv.FormatInt(now, 10), strconv.FormatInt(windowMs, 10), limit,
		uuid.NewString(), strconv.FormatInt(now-windowMs, 10)).Int64Slice()
	if err != nil {
		return Result{}, common.Errorf("rate limit script for %s: %w", key, err)
	}
	if len(raw) != 3 {
		return Result{}, common.Errorf("rate limit script for %s returned %d values", key, len(raw))
	}
	return result(raw[0] == 1, limit, int(raw[1]), time.UnixMilli(raw[2])), nil
}

// MemoryLimiter is the in-process equivalent of RedisLimiter.
type MemoryLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{hits: make(map[string][]time.Time), now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := l.now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hits[key]
	kept := hits[:0]
	for _, h := range hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	allowed := len(kept) < limit
	if allowed {
		kept = append(kept, now)
	}
	if len(kept) == 0 {
		delete(l.hits, key)
	} else {
		l.hits[key] = kept
	}

	resetAt := now.Add(window)
	if len(kept) > 0 {
		resetAt = kept[0].Add(window)
	}
	return result(allowed, limit, len(kept), resetAt), nil
}

// FallbackLimiter asks primary first and the memory limiter when primary
// errors, so a Redis outage never turns into failed requests.
type FallbackLimiter struct {
	primary  Limiter
	fallback *MemoryLimiter
}

func NewFallbackLimiter(primary Limiter, fallback *MemoryLimiter) *FallbackLimiter {
	if fallback == nil {
		fallback = NewMemoryLimiter()
	}
	return &FallbackLimiter{primary: primary, fallback: fallback}
}

func (l *FallbackLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if l.primary != nil {
		res, err := l.primary.Allow(ctx, key, limit, window)
		if err == nil {
			return res, nil
		}
		log.Printf("WARN: rate limiter primary failed, using memory: %v", err)
	}
	return l.fallback.Allow(ctx, key, limit, window)
}

// New returns a Redis backed limiter with memory fallback, or a memory-only
// one when rdb is nil.
func New(rdb *redis.Client) *FallbackLimiter {
	if rdb == nil {
		return NewFallbackLimiter(nil, nil)
	}
	return NewFallbackLimiter(NewRedisLimiter(rdb), nil)
}

func result(allowed bool, limit, count int, resetAt time.Time) Result {
	remaining := limit - count
	if remaining < 0 || !allowed {
		remaining = 0
	}
	return Result{Allowed: allowed, Limit: limit, Remaining: remaining, ResetAt: resetAt}
}
