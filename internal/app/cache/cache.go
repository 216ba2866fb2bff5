package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultNamespace = "hackathon:"

// Cache namespaces keys, JSON encodes values and hides backing store failures
// from callers: a failing primary is logged and the memory store answers in
// its place.
type Cache struct {
	primary    Store
	memory     *MemoryStore
	namespace  string
	defaultTTL time.Duration
}

// New builds a cache over primary, which may be nil for a memory-only cache.
func New(primary Store, memory *MemoryStore, defaultTTL time.Duration) *Cache {
	if memory == nil {
		memory = NewMemoryStore()
	}
	return &Cache{primary: primary, memory: memory, namespace: DefaultNamespace, defaultTTL: defaultTTL}
}

// Connect uses Redis when it answers PING, otherwise falls back to memory for
// the life of the process.
func Connect(ctx context.Context, rdb *redis.Client, memory *MemoryStore, defaultTTL time.Duration) *Cache {
	if rdb == nil {
		log.Println("WARN: Redis not configured, cache uses in-memory store")
		return New(nil, memory, defaultTTL)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("WARN: Redis unavailable (%v), cache uses in-memory store", err)
		return New(nil, memory, defaultTTL)
	}
	return New(NewRedisStore(rdb), memory, defaultTTL)
}

func (c *Cache) Backend() string {
	if c.primary == nil {
		return "memory"
	}
	return "redis"
}

func (c *Cache) key(k string) string { return c.namespace + k }

// Get decodes the cached value into dest and reports whether there was one.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	raw, err := c.getRaw(ctx, c.key(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		log.Printf("WARN: cache entry %s is not decodable, dropping it: %v", key, err)
		c.Delete(ctx, key)
		return false
	}
	return true
}

func (c *Cache) getRaw(ctx context.Context, key string) ([]byte, error) {
	if c.primary != nil {
		raw, err := c.primary.Get(ctx, key)
		if err == nil || errors.Is(err, ErrMiss) {
			return raw, err
		}
		log.Printf("WARN: cache primary get failed, using memory: %v", err)
	}
	return c.memory.Get(ctx, key)
}

// Set stores value for ttl; ttl <= 0 uses the cache default.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("WARN: cache value for %s not encodable: %v", key, err)
		return
	}
	k := c.key(key)
	if c.primary != nil {
		err := c.primary.Set(ctx, k, raw, ttl)
		if err == nil {
			return
		}
		log.Printf("WARN: cache primary set failed, using memory: %v", err)
	}
	_ = c.memory.Set(ctx, k, raw, ttl)
}

// Delete removes key from both stores; the memory store may hold values
// written while the primary was failing.
func (c *Cache) Delete(ctx context.Context, key string) {
	k := c.key(key)
	if c.primary != nil {
		if err := c.primary.Delete(ctx, k); err != nil {
			log.Printf("WARN: cache primary delete failed: %v", err)
		}
	}
	_ = c.memory.Delete(ctx, k)
}

func (c *Cache) DeletePattern(ctx context.Context, pattern string) int {
	p := c.key(pattern)
	removed := 0
	if c.primary != nil {
		n, err := c.primary.DeletePattern(ctx, p)
		if err != nil {
			log.Printf("WARN: cache primary delete pattern failed: %v", err)
		}
		removed += n
	}
	n, err := c.memory.DeletePattern(ctx, p)
	if err != nil {
		log.Printf("WARN: cache memory delete pattern failed: %v", err)
	}
	return removed + n
}

// GetOrLoad returns the cached value for key or calls load, caching its
// result. Load errors are returned and nothing is cached.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}
	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(ctx, key, value, ttl)
	return value, nil
}
