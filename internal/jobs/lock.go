package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker keeps a job from running on two instances at once.
type Locker interface {
	// Acquire returns acquired=false when another holder has key. release
	// is non-nil only when acquired.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

type redisLocker struct {
	rdb *redis.Client
}

// NewLocker returns a Redis SETNX lock when rdb is non-nil, otherwise an
// in-process one that only guards a single instance.
func NewLocker(rdb *redis.Client) Locker {
	if rdb != nil {
		return &redisLocker{rdb: rdb}
	}
	return newLocalLocker()
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	ok, err := l.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		_ = l.rdb.Del(context.Background(), key).Err()
	}, true, nil
}

type localLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func newLocalLocker() *localLocker {
	return &localLocker{held: map[string]time.Time{}}
}

func (l *localLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, false, nil
	}
	l.held[key] = now.Add(ttl)
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}
