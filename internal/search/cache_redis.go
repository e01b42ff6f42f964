package search

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

const (
	redisCachePrefix = "catalog:results:"
	redisScanCount   = 200
)

// Rotator is implemented by backends that can drop every shared entry at once.
type Rotator interface {
	Rotate(ctx context.Context) error
}

// RedisCacheBackend shares result lists across the sessions of one process.
// Keys live under a generation namespace taken at process start, so entries
// written by earlier processes are never read back. Rotate moves to a fresh
// generation after a catalog write and deletes the previous one.
type RedisCacheBackend struct {
	client redis.Cmdable
	prefix string
	stamp  string
	seq    atomic.Uint64

	mu         sync.RWMutex
	generation string
}

func NewRedisCacheBackend(client redis.Cmdable) *RedisCacheBackend {
	r := &RedisCacheBackend{
		client: client,
		prefix: redisCachePrefix,
		stamp:  strconv.FormatInt(time.Now().UnixNano(), 36),
	}
	r.generation = r.nextGeneration()
	return r
}

func (r *RedisCacheBackend) Get(ctx context.Context, key string) ([]domain.Item, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var items []domain.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

func (r *RedisCacheBackend) Set(ctx context.Context, key string, items []domain.Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, 0).Err()
}

func (r *RedisCacheBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisCacheBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Generation is the namespace new entries are written under.
func (r *RedisCacheBackend) Generation() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Rotate switches to a new generation and deletes the keys of the old one.
func (r *RedisCacheBackend) Rotate(ctx context.Context) error {
	r.mu.Lock()
	previous := r.generation
	r.generation = r.nextGeneration()
	r.mu.Unlock()

	_, err := r.deleteMatching(ctx, r.prefix+previous+":*", func(string) bool { return true })
	return err
}

// PurgeStale deletes every cached result outside the current generation and
// reports how many keys were removed.
func (r *RedisCacheBackend) PurgeStale(ctx context.Context) (int, error) {
	current := r.prefix + r.Generation() + ":"
	return r.deleteMatching(ctx, r.prefix+"*", func(key string) bool {
		return !strings.HasPrefix(key, current)
	})
}

func (r *RedisCacheBackend) deleteMatching(ctx context.Context, pattern string, match func(string) bool) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, redisScanCount).Result()
		if err != nil {
			return removed, err
		}
		stale := make([]string, 0, len(keys))
		for _, key := range keys {
			if match(key) {
				stale = append(stale, key)
			}
		}
		if len(stale) > 0 {
			n, err := r.client.Del(ctx, stale...).Result()
			removed += int(n)
			if err != nil {
				return removed, err
			}
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (r *RedisCacheBackend) key(key string) string {
	return r.prefix + r.Generation() + ":" + key
}

func (r *RedisCacheBackend) nextGeneration() string {
	return r.stamp + "." + strconv.FormatUint(r.seq.Add(1), 36)
}
