package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes JWTs before they expire. Logout revokes a single
// token by its ID; deactivating an account revokes everything the user was
// issued up to that moment.
type TokenBlacklist interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	// RevokeUser revokes every token issued to userID at or before now.
	// ttl should cover the longest token lifetime.
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

const (
	revokedTokenPrefix = "auth:revoked:jti:"
	revokedUserPrefix  = "auth:revoked:user:"
)

// RedisTokenBlacklist shares revocations across instances
type RedisTokenBlacklist struct {
	client redis.UniversalClient
}

func NewRedisTokenBlacklist(client redis.UniversalClient) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func (b *RedisTokenBlacklist) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, revokedTokenPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := b.client.Set(ctx, revokedUserPrefix+userID, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke tokens of user %s: %w", userID, err)
	}
	return nil
}

// IsRevoked checks both keys in one round trip
func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	var (
		byID   *redis.IntCmd
		byUser *redis.StringCmd
	)
	_, err := b.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		if claims.ID != "" {
			byID = p.Exists(ctx, revokedTokenPrefix+claims.ID)
		}
		byUser = p.Get(ctx, revokedUserPrefix+claims.UserID)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check revocation: %w", err)
	}

	if byID != nil && byID.Val() > 0 {
		return true, nil
	}
	raw, err := byUser.Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	revokedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("revocation timestamp %q: %w", raw, err)
	}
	return claims.IssuedAtTime().Unix() <= revokedAt, nil
}

// InMemoryTokenBlacklist keeps revocations in process memory. Other
// instances do not see them.
type InMemoryTokenBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time // jti -> entry expiry
	users  map[string]time.Time // user id -> revoked at
}

func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		tokens: make(map[string]time.Time),
		users:  make(map[string]time.Time),
	}
}

func (b *InMemoryTokenBlacklist) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[jti] = time.Now().Add(ttl)
	return nil
}

func (b *InMemoryTokenBlacklist) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = time.Now()
	return nil
}

func (b *InMemoryTokenBlacklist) IsRevoked(_ context.Context, claims *Claims) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if exp, ok := b.tokens[claims.ID]; ok {
		if time.Now().Before(exp) {
			return true, nil
		}
		delete(b.tokens, claims.ID)
	}
	revokedAt, ok := b.users[claims.UserID]
	return ok && !claims.IssuedAtTime().After(revokedAt), nil
}

var (
	_ TokenBlacklist = (*RedisTokenBlacklist)(nil)
	_ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
)
