package trade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func line(price string, qty int) CheckoutLine {
	return CheckoutLine{
		CartItemID: uuid.New(),
		ProductID:  uuid.New(),
		Quantity:   qty,
		UnitPrice:  decimal.RequireFromString(price),
	}
}

func createTestOrder(t *testing.T) *Order {
	order, err := PlaceOrder(uuid.New(), []CheckoutLine{line("10.00", 2), line("5.50", 1)})
	require.NoError(t, err)
	return order
}

// ============================================
// OrderStatus Tests
// ============================================

func TestOrderStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  OrderStatus
		isValid bool
	}{
		{OrderStatusPending, true},
		{OrderStatusConfirmed, true},
		{OrderStatusShipped, true},
		{OrderStatusDelivered, true},
		{OrderStatusCancelled, true},
		{OrderStatus("DRAFT"), false},
		{OrderStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     OrderStatus
		to       OrderStatus
		canTrans bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// PlaceOrder Tests
// ============================================

func TestPlaceOrder(t *testing.T) {
	t.Run("builds pending order with price snapshot", func(t *testing.T) {
		userID := uuid.New()
		lines := []CheckoutLine{line("10.00", 2), line("5.50", 1)}

		order, err := PlaceOrder(userID, lines)
		require.NoError(t, err)

		assert.Equal(t, userID, order.UserID)
		assert.Equal(t, OrderStatusPending, order.Status)
		assert.Equal(t, "25.50", order.TotalAmount.StringFixed(2))
		require.Len(t, order.Items, 2)
		for i, item := range order.Items {
			assert.Equal(t, order.ID, item.OrderID)
			assert.Equal(t, i, item.Position)
			assert.Equal(t, lines[i].ProductID, item.ProductID)
			assert.Equal(t, lines[i].Quantity, item.Quantity)
			assert.True(t, lines[i].UnitPrice.Equal(item.UnitPrice))
		}
	})

	t.Run("empty cart", func(t *testing.T) {
		order, err := PlaceOrder(uuid.New(), nil)
		assert.Nil(t, order)
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("nil user", func(t *testing.T) {
		_, err := PlaceOrder(uuid.Nil, []CheckoutLine{line("1.00", 1)})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := PlaceOrder(uuid.New(), []CheckoutLine{line("1.00", 0)})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_QUANTITY", domainErr.Code)
	})

	t.Run("total at the maximum amount is accepted", func(t *testing.T) {
		order, err := PlaceOrder(uuid.New(), []CheckoutLine{line("9999999999.99", 1)})
		require.NoError(t, err)
		assert.Equal(t, "9999999999.99", order.TotalAmount.StringFixed(2))
	})

	t.Run("total above the maximum amount is rejected", func(t *testing.T) {
		order, err := PlaceOrder(uuid.New(), []CheckoutLine{line("9999999999.99", 9999)})
		assert.Nil(t, order)
		assert.ErrorIs(t, err, ErrOrderTotalLimit)

		_, err = PlaceOrder(uuid.New(), []CheckoutLine{line("5000000000.00", 1), line("5000000000.00", 1)})
		assert.ErrorIs(t, err, ErrOrderTotalLimit)
	})

	t.Run("rounds half up once on the total", func(t *testing.T) {
		order, err := PlaceOrder(uuid.New(), []CheckoutLine{line("0.335", 1), line("0.0025", 2)})
		require.NoError(t, err)
		assert.Equal(t, "0.34", order.TotalAmount.StringFixed(2))
		assert.Equal(t, "0.34", order.TotalAmount.String())
	})

	t.Run("raises OrderPlaced event", func(t *testing.T) {
		order := createTestOrder(t)
		events := order.PendingEvents()
		require.Len(t, events, 1)

		placed, ok := events[0].(*OrderPlacedEvent)
		require.True(t, ok)
		assert.Equal(t, EventTypeOrderPlaced, placed.EventType())
		assert.Equal(t, order.ID, placed.AggregateID())
		assert.Equal(t, order.UserID, placed.UserID)
		assert.Equal(t, 2, placed.ItemCount)
		assert.Len(t, placed.Lines, 2)
		assert.True(t, order.TotalAmount.Equal(placed.TotalAmount))
	})
}

func TestPlaceOrder_TotalMatchesItems(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(t, "lines")
		lines := make([]CheckoutLine, n)
		var wantCents int64
		for i := range lines {
			cents := rapid.Int64Range(1, 1_000_000).Draw(t, "cents")
			qty := rapid.IntRange(1, 99).Draw(t, "qty")
			wantCents += cents * int64(qty)
			lines[i] = CheckoutLine{ProductID: uuid.New(), Quantity: qty, UnitPrice: decimal.New(cents, -2)}
		}

		order, err := PlaceOrder(uuid.New(), lines)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !order.TotalAmount.Equal(decimal.New(wantCents, -2)) {
			t.Fatalf("total %s, want %s", order.TotalAmount, decimal.New(wantCents, -2))
		}
		subtotals := make([]valueobject.Money, len(order.Items))
		for i, item := range order.Items {
			subtotals[i] = item.Subtotal()
		}
		if recomputed := valueobject.Sum(subtotals...).Amount(); !order.TotalAmount.Equal(recomputed) {
			t.Fatalf("stored total %s differs from recomputed %s", order.TotalAmount, recomputed)
		}
	})
}

func TestOrder_ProductIDs(t *testing.T) {
	productID := uuid.New()
	order, err := PlaceOrder(uuid.New(), []CheckoutLine{
		{ProductID: productID, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
		{ProductID: productID, Quantity: 2, UnitPrice: decimal.NewFromInt(1)},
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	assert.Len(t, order.ProductIDs(), 2)
}
