package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a processed key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers processed keys for a while. Checkout request
// keys and event handler de-duplication share it under different prefixes.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when the key was
	// already claimed and has not expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}
