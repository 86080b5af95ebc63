package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// StoreFactory builds the Redis backed stores, or their in-memory
// counterparts when no Redis client is available
type StoreFactory struct {
	client *redis.Client
	logger *zap.Logger
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// NewStoreFactory creates a new factory. client may be nil.
func NewStoreFactory(client *redis.Client, opts ...FactoryOption) *StoreFactory {
	f := &StoreFactory{
		client: client,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IdempotencyStore returns the store shared by event handlers and checkout keys.
// WARNING: the in-memory store does not share state across instances.
func (f *StoreFactory) IdempotencyStore(keyPrefix string) shared.IdempotencyStore {
	if f.client != nil {
		f.logger.Info("using Redis idempotency store", zap.String("prefix", keyPrefix))
		return NewRedisIdempotencyStore(f.client, keyPrefix)
	}
	f.logger.Warn("Redis disabled, using in-memory idempotency store",
		zap.String("prefix", keyPrefix))
	return NewMemoryIdempotencyStore(keyPrefix)
}

// ProductCache returns the product read cache
func (f *StoreFactory) ProductCache(ttl time.Duration) catalog.ProductCache {
	if f.client != nil {
		return NewRedisProductCache(f.client, WithProductCacheTTL(ttl), WithCacheLogger(f.logger))
	}
	f.logger.Warn("Redis disabled, caching products in process memory")
	return NewInMemoryProductCache(WithInMemoryTTL(ttl), WithInMemoryLogger(f.logger))
}
