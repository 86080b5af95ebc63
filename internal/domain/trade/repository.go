package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Save inserts the order together with its items
	Save(ctx context.Context, order *Order) error

	// FindByIDForUser finds an order owned by the given user, items included
	FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*Order, error)

	// FindByUser returns one page of the user's orders, newest first, items included
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Order, error)

	// CountByUser counts all orders of the user
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
