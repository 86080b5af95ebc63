package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// sweepEvery is how many claims pass between sweeps of expired keys
const sweepEvery = 256

// MemoryIdempotencyStore keeps claimed keys in a map. Expired keys are
// ignored on read and swept on write; there is no background goroutine.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	prefix  string
	expires map[string]time.Time
	writes  int
	now     func() time.Time
}

func NewMemoryIdempotencyStore(prefix string) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		prefix:  prefix,
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	k := s.prefix + key
	if exp, ok := s.expires[k]; ok && now.Before(exp) {
		return false, nil
	}
	s.expires[k] = now.Add(ttl)

	s.writes++
	if s.writes%sweepEvery == 0 {
		for k, exp := range s.expires {
			if !now.Before(exp) {
				delete(s.expires, k)
			}
		}
	}
	return true, nil
}

func (s *MemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[s.prefix+key]
	return ok && s.now().Before(exp), nil
}

// Len counts keys still held, expired or not
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

func (s *MemoryIdempotencyStore) Close() error { return nil }

// RedisIdempotencyStore claims keys with SET NX so every instance sees the
// same claims
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: "idem:" + prefix}
}

func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency claim %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency lookup %s: %w", key, err)
	}
	return n == 1, nil
}

// Close leaves the shared client open; its owner closes it
func (s *RedisIdempotencyStore) Close() error { return nil }

var (
	_ shared.IdempotencyStore = (*MemoryIdempotencyStore)(nil)
	_ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
)
