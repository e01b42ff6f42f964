package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations remembers signed-out tokens until they would have expired.
type Revocations interface {
	Revoke(ctx context.Context, key string, until time.Time) error
	IsRevoked(ctx context.Context, key string) (bool, error)
}

type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, key string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, expiry := range m.entries {
		if !expiry.After(now) {
			delete(m.entries, k)
		}
	}
	if until.After(now) {
		m.entries[key] = until
	}
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if !expiry.After(m.now()) {
		delete(m.entries, key)
		return false, nil
	}
	return true, nil
}

const redisRevocationPrefix = "catalog:auth:revoked:"

type RedisRevocations struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisRevocations(client redis.Cmdable) *RedisRevocations {
	return &RedisRevocations{client: client, now: time.Now}
}

func (r *RedisRevocations) Revoke(ctx context.Context, key string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, redisRevocationPrefix+key, "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, key string) (bool, error) {
	err := r.client.Get(ctx, redisRevocationPrefix+key).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, err
}
