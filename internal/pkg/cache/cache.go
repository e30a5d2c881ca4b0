// Package cache provides a short-lived response cache used to avoid
// redundant upstream calls. It is never a source of truth.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores opaque values with a TTL.
type Cache interface {
	// Get returns the value and true on hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New returns a Redis backed cache when rdb is non-nil, otherwise an
// in-process one.
func New(rdb *redis.Client, prefix string) Cache {
	if rdb != nil {
		return NewRedis(rdb, prefix)
	}
	return NewMemory()
}

// GetJSON decodes a cached JSON value into dst. Decode failures count as a miss.
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) bool {
	if c == nil {
		return false
	}
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// SetJSON encodes v and stores it.
func SetJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, ttl)
}
