package redisad

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"thyrd_spaces/internal/adapters/observability"
)

// Annotations stores JSON values under annot:{session}:{key}. Every write
// pushes the whole session's expiry forward by ttl; ttl <= 0 never expires.
type Annotations struct {
	c   *redis.Client
	ttl time.Duration
}

func NewAnnotations(c *redis.Client, ttl time.Duration) *Annotations {
	return &Annotations{c: c, ttl: ttl}
}

func annotKey(session, key string) string { return fmt.Sprintf("annot:%s:%s", session, key) }

func (a *Annotations) Get(ctx context.Context, session, key string, dst any) (bool, error) {
	return getJSON(ctx, a.c, storeAnnotations, annotKey(session, key), dst)
}

func (a *Annotations) Set(ctx context.Context, session, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveStore(storeAnnotations, "set")

	_, err = a.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, annotKey(session, key), b, a.ttl)
		if a.ttl <= 0 {
			return nil
		}
		for _, k := range []string{keyUser, keyFavorites, keyReviews, keyReflections} {
			if k != key {
				p.Expire(ctx, annotKey(session, k), a.ttl)
			}
		}
		return nil
	})
	return err
}

func (a *Annotations) Remove(ctx context.Context, session string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = annotKey(session, k)
	}
	observability.ObserveStore(storeAnnotations, "del")
	return a.c.Del(ctx, full...).Err()
}

// session keys refreshed together on write
const (
	keyUser        = "user"
	keyFavorites   = "favorites"
	keyReviews     = "reviews"
	keyReflections = "reflections"
)
