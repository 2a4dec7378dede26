// Package redisad holds the Redis-backed adapters: the shared read cache
// and the per-session annotation store.
package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"thyrd_spaces/internal/adapters/observability"
)

const (
	storeCache       = "cache"
	storeAnnotations = "annotations"
)

// NewClient is shared by the cache and the annotation store.
func NewClient(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// getJSON reads key into dst. A missing key is (false, nil).
func getJSON(ctx context.Context, c *redis.Client, store, key string, dst any) (bool, error) {
	v, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveStore(store, "miss")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	observability.ObserveStore(store, "hit")
	if err := json.Unmarshal(v, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Cache is the read-through cache for spaces and review pages.
type Cache struct{ c *redis.Client }

func New(c *redis.Client) *Cache { return &Cache{c: c} }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	return getJSON(ctx, r.c, storeCache, key, dst)
}

// Set stores v for ttlSec seconds; ttlSec <= 0 keeps it until deleted.
func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveStore(storeCache, "set")
	return r.c.Set(ctx, key, b, time.Duration(max(ttlSec, 0))*time.Second).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveStore(storeCache, "del")
	return r.c.Del(ctx, key).Err()
}
