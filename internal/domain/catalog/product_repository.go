package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// Filter keys understood by FindPublished and CountPublished
const (
	FilterMinPrice = "min_price"
	FilterMaxPrice = "max_price"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by ID regardless of status, seller joined
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindPurchasableByID finds an active product of an active seller
	FindPurchasableByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForSeller finds a product owned by the seller
	FindByIDForSeller(ctx context.Context, sellerID, id uuid.UUID) (*Product, error)

	// FindByIDs finds products by ID regardless of status
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindForCheckout reads the products with their sellers under a shared row
	// lock so price and availability cannot change until the transaction ends
	FindForCheckout(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindPublished lists active products of active sellers, newest first.
	// filter.Search matches name or description case-insensitively.
	FindPublished(ctx context.Context, filter shared.Filter) ([]Product, error)

	// CountPublished counts the products FindPublished would return without paging
	CountPublished(ctx context.Context, filter shared.Filter) (int64, error)

	// FindBySeller lists all products of the seller, newest first
	FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// SaveBatch inserts multiple products in one statement
	SaveBatch(ctx context.Context, products []*Product) error

	// DeactivateBySeller marks all products of the seller inactive
	DeactivateBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)

	// CountActiveBySeller counts the seller's active products
	CountActiveBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
}
