package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// InMemoryProductCache implements catalog.ProductCache in process memory.
// It serves single-instance deployments that run without Redis.
type InMemoryProductCache struct {
	products sync.Map // map[uuid.UUID]*cacheEntry[catalog.Product]
	ttl      time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopped  int32

	hits   int64
	misses int64
}

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryProductCacheOption is a functional option for configuring the cache
type InMemoryProductCacheOption func(*InMemoryProductCache)

// WithInMemoryTTL sets how long entries stay fresh
func WithInMemoryTTL(ttl time.Duration) InMemoryProductCacheOption {
	return func(c *InMemoryProductCache) {
		c.ttl = ttl
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryProductCacheOption {
	return func(c *InMemoryProductCache) {
		c.logger = logger
	}
}

// NewInMemoryProductCache creates the cache and starts its cleanup loop.
// Call Close to stop the loop.
func NewInMemoryProductCache(opts ...InMemoryProductCacheOption) *InMemoryProductCache {
	c := &InMemoryProductCache{
		ttl:    catalog.DefaultProductCacheTTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired(defaultCleanupInterval)

	return c
}

// Get returns a copy of the cached product, or nil on a miss
func (c *InMemoryProductCache) Get(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if value, ok := c.products.Load(id); ok {
		entry := value.(*cacheEntry[catalog.Product])
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			product := entry.value
			return &product, nil
		}
		c.products.Delete(id)
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set stores a copy of the product
func (c *InMemoryProductCache) Set(_ context.Context, product *catalog.Product) error {
	if product == nil {
		return nil
	}
	value := *product
	value.ClearEvents()
	c.products.Store(product.ID, &cacheEntry[catalog.Product]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
	return nil
}

// Invalidate drops the given products
func (c *InMemoryProductCache) Invalidate(_ context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		c.products.Delete(id)
	}
	c.logger.Debug("Invalidated cached products", zap.Int("count", len(ids)))
	return nil
}

// Close stops the cleanup loop
func (c *InMemoryProductCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryProductCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

func (c *InMemoryProductCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

func (c *InMemoryProductCache) doCleanup() {
	removed := 0
	c.products.Range(func(key, value any) bool {
		if value.(*cacheEntry[catalog.Product]).isExpired() {
			c.products.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("Cleaned up expired product cache entries", zap.Int("removed", removed))
	}
}

var _ catalog.ProductCache = (*InMemoryProductCache)(nil)
