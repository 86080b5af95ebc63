package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/application/apptest"
	"github.com/marketplace/backend/internal/domain/cart"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type checkoutFixture struct {
	cartRepo    *apptest.Carts
	productRepo *apptest.Products
	orderRepo   *apptest.Orders
	scope       *NoOpTransactionScope
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		cartRepo:    new(apptest.Carts),
		productRepo: new(apptest.Products),
		orderRepo:   new(apptest.Orders),
	}
	f.scope = NewNoOpTransactionScope(f.cartRepo, f.productRepo, f.orderRepo)
	return f
}

func (f *checkoutFixture) assertExpectations(t *testing.T) {
	f.cartRepo.AssertExpectations(t)
	f.productRepo.AssertExpectations(t)
	f.orderRepo.AssertExpectations(t)
}

func TestCheckoutService_PlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending order and clears the cart", func(t *testing.T) {
		f := newCheckoutFixture()
		userID := uuid.New()
		mug := newActiveProduct("19.90")
		shirt := newActiveProduct("59.95")
		lines := []cart.CartItem{newCartLine(userID, mug, 3), newCartLine(userID, shirt, 1)}

		f.cartRepo.On("LockByUser", mock.Anything, userID).Return(lines, nil)
		f.productRepo.On("FindForCheckout", mock.Anything, []uuid.UUID{mug.ID, shirt.ID}).
			Return([]catalog.Product{*mug, *shirt}, nil)
		f.orderRepo.On("Save", mock.Anything, mock.AnythingOfType("*trade.Order")).Return(nil)
		f.cartRepo.On("DeleteByIDs", mock.Anything, userID, []uuid.UUID{lines[0].ID, lines[1].ID}).
			Return(int64(2), nil)

		svc := NewCheckoutService(f.scope)
		resp, err := svc.PlaceOrder(ctx, userID, "")
		require.NoError(t, err)

		assert.Equal(t, string(trade.OrderStatusPending), resp.Order.Status)
		assert.Equal(t, userID, resp.Order.UserID)
		assert.True(t, decimal.RequireFromString("119.65").Equal(resp.Order.TotalAmount))
		require.Len(t, resp.Items, 2)
		assert.Equal(t, 3, resp.Items[0].Quantity)
		assert.True(t, decimal.RequireFromString("19.90").Equal(resp.Items[0].UnitPrice))
		require.NotNil(t, resp.Items[0].Product)
		assert.Equal(t, "Caneca", resp.Items[0].Product.Name)

		require.Len(t, f.scope.Saved, 1)
		placed, ok := f.scope.Saved[0].(*trade.OrderPlacedEvent)
		require.True(t, ok)
		assert.Equal(t, resp.Order.ID, placed.OrderID)
		assert.Equal(t, 2, placed.ItemCount)
		f.assertExpectations(t)
	})

	t.Run("empty cart fails without writes", func(t *testing.T) {
		f := newCheckoutFixture()
		userID := uuid.New()
		f.cartRepo.On("LockByUser", mock.Anything, userID).Return([]cart.CartItem{}, nil)

		svc := NewCheckoutService(f.scope)
		resp, err := svc.PlaceOrder(ctx, userID, "")

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, trade.ErrEmptyCart)
		f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.cartRepo.AssertNotCalled(t, "DeleteByIDs", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.scope.Saved)
	})

	stale := []struct {
		name    string
		mutate  func(p *catalog.Product)
		missing bool
	}{
		{name: "inactive product", mutate: func(p *catalog.Product) { p.Active = false }},
		{name: "inactive seller", mutate: func(p *catalog.Product) { p.Seller.Active = false }},
		{name: "deleted product", missing: true},
	}
	for _, tc := range stale {
		t.Run("stale line fails the whole checkout: "+tc.name, func(t *testing.T) {
			f := newCheckoutFixture()
			userID := uuid.New()
			good := newActiveProduct("10.00")
			bad := newActiveProduct("5.00")
			lines := []cart.CartItem{newCartLine(userID, good, 1), newCartLine(userID, bad, 2)}

			found := []catalog.Product{*good}
			if !tc.missing {
				tc.mutate(bad)
				found = append(found, *bad)
			}
			f.cartRepo.On("LockByUser", mock.Anything, userID).Return(lines, nil)
			f.productRepo.On("FindForCheckout", mock.Anything, mock.Anything).Return(found, nil)

			svc := NewCheckoutService(f.scope)
			_, err := svc.PlaceOrder(ctx, userID, "")

			assert.ErrorIs(t, err, trade.ErrStaleCartItem)
			f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			f.cartRepo.AssertNotCalled(t, "DeleteByIDs", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("deleted row count mismatch is a concurrency conflict", func(t *testing.T) {
		f := newCheckoutFixture()
		userID := uuid.New()
		p := newActiveProduct("10.00")
		lines := []cart.CartItem{newCartLine(userID, p, 1)}

		f.cartRepo.On("LockByUser", mock.Anything, userID).Return(lines, nil)
		f.productRepo.On("FindForCheckout", mock.Anything, mock.Anything).Return([]catalog.Product{*p}, nil)
		f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.cartRepo.On("DeleteByIDs", mock.Anything, userID, mock.Anything).Return(int64(0), nil)

		svc := NewCheckoutService(f.scope)
		_, err := svc.PlaceOrder(ctx, userID, "")

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Empty(t, f.scope.Saved)
	})

	t.Run("repository error aborts checkout", func(t *testing.T) {
		f := newCheckoutFixture()
		userID := uuid.New()
		p := newActiveProduct("10.00")
		f.cartRepo.On("LockByUser", mock.Anything, userID).Return([]cart.CartItem{newCartLine(userID, p, 1)}, nil)
		f.productRepo.On("FindForCheckout", mock.Anything, mock.Anything).Return([]catalog.Product{*p}, nil)
		f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

		svc := NewCheckoutService(f.scope)
		_, err := svc.PlaceOrder(ctx, userID, "")

		assert.EqualError(t, err, "connection reset")
		f.cartRepo.AssertNotCalled(t, "DeleteByIDs", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled request context does not abort the transaction", func(t *testing.T) {
		f := newCheckoutFixture()
		userID := uuid.New()
		p := newActiveProduct("10.00")
		lines := []cart.CartItem{newCartLine(userID, p, 1)}

		notCancelled := mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil })
		f.cartRepo.On("LockByUser", notCancelled, userID).Return(lines, nil)
		f.productRepo.On("FindForCheckout", notCancelled, mock.Anything).Return([]catalog.Product{*p}, nil)
		f.orderRepo.On("Save", notCancelled, mock.Anything).Return(nil)
		f.cartRepo.On("DeleteByIDs", notCancelled, userID, mock.Anything).Return(int64(1), nil)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		svc := NewCheckoutService(f.scope)
		resp, err := svc.PlaceOrder(cancelled, userID, "")
		require.NoError(t, err)
		assert.NotNil(t, resp)
		f.assertExpectations(t)
	})
}

func TestCheckoutService_PlaceOrder_Idempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("reused key is rejected before touching the cart", func(t *testing.T) {
		f := newCheckoutFixture()
		store := new(apptest.Idempotency)
		userID := uuid.New()
		store.On("IsProcessed", mock.Anything, CheckoutIdempotencyKey(userID, "abc")).Return(true, nil)

		svc := NewCheckoutService(f.scope, WithIdempotencyStore(store, time.Hour))
		_, err := svc.PlaceOrder(ctx, userID, "abc")

		assert.ErrorIs(t, err, shared.ErrDuplicateRequest)
		f.cartRepo.AssertNotCalled(t, "LockByUser", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("key is marked after a successful checkout", func(t *testing.T) {
		f := newCheckoutFixture()
		store := new(apptest.Idempotency)
		userID := uuid.New()
		p := newActiveProduct("42.00")
		key := CheckoutIdempotencyKey(userID, "abc")

		store.On("IsProcessed", mock.Anything, key).Return(false, nil)
		store.On("MarkProcessed", mock.Anything, key, time.Hour).Return(true, nil)
		f.cartRepo.On("LockByUser", mock.Anything, userID).Return([]cart.CartItem{newCartLine(userID, p, 1)}, nil)
		f.productRepo.On("FindForCheckout", mock.Anything, mock.Anything).Return([]catalog.Product{*p}, nil)
		f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.cartRepo.On("DeleteByIDs", mock.Anything, userID, mock.Anything).Return(int64(1), nil)

		svc := NewCheckoutService(f.scope, WithIdempotencyStore(store, time.Hour))
		_, err := svc.PlaceOrder(ctx, userID, "abc")

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("key is not marked when checkout fails", func(t *testing.T) {
		f := newCheckoutFixture()
		store := new(apptest.Idempotency)
		userID := uuid.New()

		store.On("IsProcessed", mock.Anything, mock.Anything).Return(false, nil)
		f.cartRepo.On("LockByUser", mock.Anything, userID).Return([]cart.CartItem{}, nil)

		svc := NewCheckoutService(f.scope, WithIdempotencyStore(store, time.Hour))
		_, err := svc.PlaceOrder(ctx, userID, "abc")

		assert.ErrorIs(t, err, trade.ErrEmptyCart)
		store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store outage falls back to plain checkout", func(t *testing.T) {
		f := newCheckoutFixture()
		store := new(apptest.Idempotency)
		userID := uuid.New()
		p := newActiveProduct("42.00")

		store.On("IsProcessed", mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		f.cartRepo.On("LockByUser", mock.Anything, userID).Return([]cart.CartItem{newCartLine(userID, p, 1)}, nil)
		f.productRepo.On("FindForCheckout", mock.Anything, mock.Anything).Return([]catalog.Product{*p}, nil)
		f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.cartRepo.On("DeleteByIDs", mock.Anything, userID, mock.Anything).Return(int64(1), nil)

		svc := NewCheckoutService(f.scope, WithIdempotencyStore(store, time.Hour))
		resp, err := svc.PlaceOrder(ctx, userID, "abc")

		require.NoError(t, err)
		assert.NotNil(t, resp)
	})

	t.Run("keys are scoped per user", func(t *testing.T) {
		a, b := uuid.New(), uuid.New()
		assert.NotEqual(t, CheckoutIdempotencyKey(a, "k"), CheckoutIdempotencyKey(b, "k"))
		assert.Equal(t, a.String()+":k", CheckoutIdempotencyKey(a, "k"), "the store owns the namespace prefix")
	})
}

func TestCheckoutService_PlaceOrder_TotalMatchesLines(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newCheckoutFixture()
		userID := uuid.New()

		n := rapid.IntRange(1, 8).Draw(rt, "lines")
		lines := make([]cart.CartItem, n)
		products := make([]catalog.Product, n)
		expected := decimal.Zero
		for i := 0; i < n; i++ {
			cents := rapid.Int64Range(1, 1_000_000).Draw(rt, "cents")
			qty := rapid.IntRange(1, 50).Draw(rt, "qty")
			p := newActiveProduct(decimal.New(cents, -2).String())
			products[i] = *p
			lines[i] = newCartLine(userID, p, qty)
			expected = expected.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
		}

		f.cartRepo.On("LockByUser", mock.Anything, userID).Return(lines, nil)
		f.productRepo.On("FindForCheckout", mock.Anything, mock.Anything).Return(products, nil)
		f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.cartRepo.On("DeleteByIDs", mock.Anything, userID, mock.Anything).Return(int64(n), nil)

		resp, err := NewCheckoutService(f.scope).PlaceOrder(context.Background(), userID, "")
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		if !resp.Order.TotalAmount.Equal(expected) {
			rt.Fatalf("total %s != expected %s", resp.Order.TotalAmount, expected)
		}
		sum := decimal.Zero
		for _, item := range resp.Items {
			sum = sum.Add(item.Subtotal)
		}
		if !sum.Equal(resp.Order.TotalAmount) {
			rt.Fatalf("items sum %s != total %s", sum, resp.Order.TotalAmount)
		}
		if len(resp.Items) != n {
			rt.Fatalf("expected %d items, got %d", n, len(resp.Items))
		}
	})
}
