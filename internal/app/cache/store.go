// Package cache is the read-through cache in front of expensive aggregate
// queries. Redis is the primary store; an in-process map with the same TTL
// semantics takes over when Redis is missing or failing.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes every key matching a glob pattern (`*`, `?`,
	// `[...]`) and returns how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)
}
