package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled:
		return false // Terminal states
	}
	return false
}

// Domain errors raised by checkout
var (
	ErrEmptyCart     = shared.NewDomainError("EMPTY_CART", "Cart is empty")
	ErrStaleCartItem = shared.NewDomainError("STALE_CART_ITEM", "Cart contains a product that is no longer available")
	ErrOrderNotFound = shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")

	// ErrOrderTotalLimit is returned when the cart total does not fit an order amount
	ErrOrderTotalLimit = shared.NewDomainError("INVALID_QUANTITY", "Order total exceeds the maximum amount of a single order")
)

// CheckoutLine is a cart line joined with the product price read under lock
type CheckoutLine struct {
	CartItemID uuid.UUID
	ProductID  uuid.UUID
	Quantity   int
	UnitPrice  decimal.Decimal
}

// OrderItem is an immutable order line holding the price paid at purchase.
// Position keeps the cart order of the line within its order.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Position  int
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

// Subtotal returns quantity × unit price without rounding
func (i OrderItem) Subtotal() valueobject.Money {
	return valueobject.NewMoneyBRL(i.UnitPrice).Times(i.Quantity)
}

// Order is the aggregate root produced by checkout
type Order struct {
	shared.BaseAggregateRoot
	UserID      uuid.UUID
	Items       []OrderItem
	TotalAmount decimal.Decimal
	Status      OrderStatus
	ConfirmedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

// PlaceOrder builds a PENDING order from checkout lines, keeping their order.
// The total is the exact sum of line subtotals rounded once to cents and must
// not exceed valueobject.MaxAmount.
func PlaceOrder(userID uuid.UUID, lines []CheckoutLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "User ID cannot be empty")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Status:            OrderStatusPending,
		Items:             make([]OrderItem, 0, len(lines)),
	}

	subtotals := make([]valueobject.Money, 0, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
		}
		item := OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Position:  i,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			CreatedAt: order.CreatedAt,
		}
		order.Items = append(order.Items, item)
		subtotals = append(subtotals, item.Subtotal())
	}
	total := valueobject.Sum(subtotals...)
	if !total.WithinLimit() {
		return nil, ErrOrderTotalLimit
	}
	order.TotalAmount = total.Amount()

	order.RecordEvent(NewOrderPlacedEvent(order))

	return order, nil
}

// ItemCount returns the number of order lines
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// ProductIDs returns the distinct product ids referenced by the order
func (o *Order) ProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
