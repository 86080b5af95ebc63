package cart

import (
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

const (
	// DefaultAddQuantity is used when an add request omits the quantity
	DefaultAddQuantity = 1
	// MaxQuantity caps a single cart line, including the result of repeated adds
	MaxQuantity = 9999
)

var (
	// ErrInvalidQuantity is returned for quantities outside the allowed range
	ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be a positive integer")
	// ErrQuantityLimit is returned when a line would exceed MaxQuantity
	ErrQuantityLimit = ErrInvalidQuantity.WithMessage("Quantity cannot exceed 9999 units per product")
)

// CartItem is one line of a client's cart.
// There is at most one line per (UserID, ProductID).
type CartItem struct {
	shared.BaseEntity
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

// NewCartItem creates a cart line with a positive quantity
func NewCartItem(userID, productID uuid.UUID, quantity int) (*CartItem, error) {
	if err := ValidateAddQuantity(quantity); err != nil {
		return nil, err
	}
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("User and product are required")
	}
	return &CartItem{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		ProductID:  productID,
		Quantity:   quantity,
	}, nil
}

// ValidateAddQuantity requires 1 ≤ quantity ≤ MaxQuantity
func ValidateAddQuantity(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity > MaxQuantity {
		return ErrQuantityLimit
	}
	return nil
}

// ValidateSetQuantity allows zero, which removes the line
func ValidateSetQuantity(quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity.WithMessage("Quantity cannot be negative")
	}
	if quantity > MaxQuantity {
		return ErrQuantityLimit
	}
	return nil
}
