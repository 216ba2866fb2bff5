package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"hackathon_portal/internal/common"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func limiters(t *testing.T) (map[string]Limiter, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	rl := NewRedisLimiter(rdb)
	rl.now = clk.now

	ml := NewMemoryLimiter()
	ml.now = clk.now

	return map[string]Limiter{"redis": rl, "memory": ml}, clk
}

func TestSlidingWindow(t *testing.T) {
	all, clk := limiters(t)
	for name, l := range all {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "admin-login:10.0.0.1:" + name
			start := clk.t

			for i := 0; i < 5; i++ {
				res, err := l.Allow(ctx, key, 5, 15*time.Minute)
				require.NoError(t, err)
				assert.True(t, res.Allowed, "attempt %d", i+1)
				assert.Equal(t, 4-i, res.Remaining)
				clk.advance(time.Minute)
			}

			res, err := l.Allow(ctx, key, 5, 15*time.Minute)
			require.NoError(t, err)
			assert.False(t, res.Allowed)
			assert.Equal(t, 0, res.Remaining)
			assert.Equal(t, 5, res.Limit)
			assert.True(t, res.ResetAt.Equal(start.Add(15*time.Minute)), "reset at %s", res.ResetAt)

			var rlErr *common.RateLimitError
			require.True(t, errors.As(res.Err(), &rlErr))
			assert.ErrorIs(t, res.Err(), common.ErrRateLimited)

			// the first hit leaves the window, one slot opens up
			clk.t = start.Add(15*time.Minute + time.Second)
			res, err = l.Allow(ctx, key, 5, 15*time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.NoError(t, res.Err())
		})
	}
}

func TestKeysAreIndependent(t *testing.T) {
	all, _ := limiters(t)
	for name, l := range all {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			res, err := l.Allow(ctx, "otp:email:a@example.com", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed)

			res, err = l.Allow(ctx, "otp:email:a@example.com", 1, time.Minute)
			require.NoError(t, err)
			assert.False(t, res.Allowed)

			res, err = l.Allow(ctx, "otp:email:b@example.com", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		})
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis down")
}

func TestFallbackLimiter(t *testing.T) {
	l := NewFallbackLimiter(brokenLimiter{}, nil)
	ctx := context.Background()

	res, err := l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}
