package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// purgeInterval is how often expired entries are swept in the background.
const purgeInterval = 5 * time.Minute

// Memory is a process-local TTL cache used when Redis is not configured.
type Memory struct {
	items *gocache.Cache
}

func NewMemory() *Memory {
	return &Memory{items: gocache.New(gocache.NoExpiration, purgeInterval)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	stored, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.items.Set(key, stored, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Purge removes every expired entry and returns how many were dropped.
func (m *Memory) Purge() int {
	before := m.items.ItemCount()
	m.items.DeleteExpired()
	return before - m.items.ItemCount()
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	return m.items.ItemCount()
}
