package cart

import (
	"context"

	"github.com/google/uuid"
)

// CartRepository defines the interface for cart line persistence
type CartRepository interface {
	// FindByUser returns all lines of the user's cart, oldest first
	FindByUser(ctx context.Context, userID uuid.UUID) ([]CartItem, error)

	// AddQuantity inserts the line or increments an existing one in a single
	// statement. created reports whether a new line was inserted.
	AddQuantity(ctx context.Context, item *CartItem) (saved *CartItem, created bool, err error)

	// SetQuantity overwrites the quantity of an existing line and returns the affected row count
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (int64, error)

	// Delete removes the line for (userID, productID) and returns the affected row count
	Delete(ctx context.Context, userID, productID uuid.UUID) (int64, error)

	// LockByUser reads the user's lines with a row lock held until the transaction ends
	LockByUser(ctx context.Context, userID uuid.UUID) ([]CartItem, error)

	// DeleteByIDs deletes the given lines of the user and returns the affected row count
	DeleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}
