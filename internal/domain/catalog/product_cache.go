package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultProductCacheTTL is how long a cached product stays fresh
const DefaultProductCacheTTL = 5 * time.Minute

// ProductCache is a read-through cache for single product reads.
// Get returns (nil, nil) on a miss.
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	Set(ctx context.Context, product *Product) error
	Invalidate(ctx context.Context, ids ...uuid.UUID) error
}
