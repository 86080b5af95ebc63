package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisProductCache implements catalog.ProductCache on Redis
type RedisProductCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *zap.Logger
}

// RedisProductCacheOption is a functional option for configuring the cache
type RedisProductCacheOption func(*RedisProductCache)

// WithProductCacheTTL sets the entry TTL
func WithProductCacheTTL(ttl time.Duration) RedisProductCacheOption {
	return func(c *RedisProductCache) {
		c.ttl = ttl
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisProductCacheOption {
	return func(c *RedisProductCache) {
		c.logger = logger
	}
}

// NewRedisProductCache creates a product cache on a shared Redis client
func NewRedisProductCache(client *redis.Client, opts ...RedisProductCacheOption) *RedisProductCache {
	c := &RedisProductCache{
		client:    client,
		ttl:       catalog.DefaultProductCacheTTL,
		keyPrefix: "product:",
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisProductCache) key(id uuid.UUID) string {
	return c.keyPrefix + id.String()
}

// Get retrieves a product from cache
func (c *RedisProductCache) Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	cacheKey := c.key(id)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss for product", zap.String("product_id", id.String()))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product from cache: %w", err)
	}

	var product catalog.Product
	if err := json.Unmarshal(data, &product); err != nil {
		c.logger.Error("Failed to unmarshal cached product",
			zap.String("product_id", id.String()),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, cacheKey)
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}

	return &product, nil
}

// Set stores a product in cache
func (c *RedisProductCache) Set(ctx context.Context, product *catalog.Product) error {
	if product == nil {
		return nil
	}

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	if err := c.client.Set(ctx, c.key(product.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set product in cache: %w", err)
	}
	return nil
}

// Invalidate removes products from cache
func (c *RedisProductCache) Invalidate(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate products: %w", err)
	}

	c.logger.Debug("Invalidated cached products", zap.Int("count", len(ids)))
	return nil
}

var _ catalog.ProductCache = (*RedisProductCache)(nil)
