package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	cartapp "github.com/marketplace/backend/internal/application/cart"
	tradeapp "github.com/marketplace/backend/internal/application/trade"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/marketplace/backend/internal/infrastructure/event"
	"github.com/marketplace/backend/internal/infrastructure/persistence"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	db       *TestDB
	cart     *cartapp.CartService
	checkout *tradeapp.CheckoutService
	orders   *tradeapp.OrderService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	tdb := NewTestDB(t)
	products := persistence.NewGormProductRepository(tdb.DB)
	outbox := event.NewOutboxPublisher(event.NewMarketplaceCodec())
	return &checkoutFixture{
		db:       tdb,
		cart:     cartapp.NewCartService(persistence.NewGormCartRepository(tdb.DB), products),
		checkout: tradeapp.NewCheckoutService(persistence.NewGormCheckoutTransactionScope(tdb.DB, outbox)),
		orders:   tradeapp.NewOrderService(persistence.NewGormOrderRepository(tdb.DB), products),
	}
}

func (f *checkoutFixture) add(t *testing.T, userID, productID uuid.UUID, qty int) {
	t.Helper()
	_, err := f.cart.AddItem(context.Background(), userID, cartapp.AddItemRequest{ProductID: productID, Quantity: &qty})
	require.NoError(t, err)
}

func TestCheckout_Integration(t *testing.T) {
	skipIfShort(t)

	f := newCheckoutFixture(t)
	ctx := context.Background()
	seller := f.db.CreateUser(identity.RoleSeller)

	t.Run("places order, empties cart and writes the outbox in one commit", func(t *testing.T) {
		client := f.db.CreateUser(identity.RoleClient)
		mug := f.db.CreateProduct(seller.ID, "mug", "19.90")
		tea := f.db.CreateProduct(seller.ID, "tea", "7.35")
		f.add(t, client.ID, mug.ID, 2)
		f.add(t, client.ID, tea.ID, 3)

		resp, err := f.checkout.PlaceOrder(ctx, client.ID, "")
		require.NoError(t, err)

		assert.True(t, decimal.RequireFromString("61.85").Equal(resp.Order.TotalAmount), resp.Order.TotalAmount.String())
		assert.Equal(t, string(trade.OrderStatusPending), resp.Order.Status)
		assert.Len(t, resp.Items, 2)

		cartView, err := f.cart.GetCart(ctx, client.ID)
		require.NoError(t, err)
		assert.Empty(t, cartView.Items)

		var entries []models.OutboxEntryModel
		require.NoError(t, f.db.DB.Where("aggregate_id = ?", resp.Order.ID).Find(&entries).Error)
		require.Len(t, entries, 1)
		assert.Equal(t, trade.EventTypeOrderPlaced, entries[0].EventType)
		assert.Equal(t, shared.OutboxPending, entries[0].Status)
	})

	t.Run("price snapshot survives later price changes", func(t *testing.T) {
		client := f.db.CreateUser(identity.RoleClient)
		lamp := f.db.CreateProduct(seller.ID, "lamp", "100.00")
		f.add(t, client.ID, lamp.ID, 1)

		resp, err := f.checkout.PlaceOrder(ctx, client.ID, "")
		require.NoError(t, err)

		require.NoError(t, f.db.DB.Model(&models.ProductModel{}).
			Where("id = ?", lamp.ID).Update("price", "250.00").Error)

		order, err := f.orders.GetByID(ctx, client.ID, resp.Order.ID)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("100.00").Equal(order.Items[0].UnitPrice))
	})

	t.Run("inactive product rolls the whole checkout back", func(t *testing.T) {
		client := f.db.CreateUser(identity.RoleClient)
		ok := f.db.CreateProduct(seller.ID, "ok", "5.00")
		gone := f.db.CreateProduct(seller.ID, "gone", "5.00")
		f.add(t, client.ID, ok.ID, 1)
		f.add(t, client.ID, gone.ID, 1)
		require.NoError(t, f.db.DB.Model(&models.ProductModel{}).
			Where("id = ?", gone.ID).Update("active", false).Error)

		_, err := f.checkout.PlaceOrder(ctx, client.ID, "")
		require.Error(t, err)

		cartView, err := f.cart.GetCart(ctx, client.ID)
		require.NoError(t, err)
		assert.Len(t, cartView.Items, 2, "cart must be untouched")

		var orders int64
		require.NoError(t, f.db.DB.Model(&models.OrderModel{}).Where("user_id = ?", client.ID).Count(&orders).Error)
		assert.Zero(t, orders)
	})

	t.Run("concurrent checkouts of one cart produce a single order", func(t *testing.T) {
		client := f.db.CreateUser(identity.RoleClient)
		p := f.db.CreateProduct(seller.ID, "race", "3.00")
		f.add(t, client.ID, p.ID, 4)

		const attempts = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			failures  []error
		)
		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.checkout.PlaceOrder(ctx, client.ID, "")
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures = append(failures, err)
					return
				}
				successes++
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		for _, err := range failures {
			assert.True(t,
				errors.Is(err, trade.ErrEmptyCart) || errors.Is(err, shared.ErrConcurrencyConflict),
				"unexpected error: %v", err)
		}

		page, err := f.orders.List(ctx, client.ID, tradeapp.OrderListFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, page.Total)
	})
}

func TestCartUpsert_Integration(t *testing.T) {
	skipIfShort(t)

	f := newCheckoutFixture(t)
	ctx := context.Background()
	seller := f.db.CreateUser(identity.RoleSeller)
	client := f.db.CreateUser(identity.RoleClient)
	p := f.db.CreateProduct(seller.ID, "pen", "1.50")

	const writers = 10
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qty := 2
			_, err := f.cart.AddItem(ctx, client.ID, cartapp.AddItemRequest{ProductID: p.ID, Quantity: &qty})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cartView, err := f.cart.GetCart(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, cartView.Items, 1, "one line per product")
	assert.Equal(t, 2*writers, cartView.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("30.00").Equal(cartView.Total))
}

func TestOrderHistory_Integration(t *testing.T) {
	skipIfShort(t)

	f := newCheckoutFixture(t)
	ctx := context.Background()
	seller := f.db.CreateUser(identity.RoleSeller)
	client := f.db.CreateUser(identity.RoleClient)
	other := f.db.CreateUser(identity.RoleClient)
	p := f.db.CreateProduct(seller.ID, "book", "12.00")

	var placed []uuid.UUID
	for range 5 {
		f.add(t, client.ID, p.ID, 1)
		resp, err := f.checkout.PlaceOrder(ctx, client.ID, "")
		require.NoError(t, err)
		placed = append(placed, resp.Order.ID)
	}
	f.add(t, other.ID, p.ID, 1)
	_, err := f.checkout.PlaceOrder(ctx, other.ID, "")
	require.NoError(t, err)

	first, err := f.orders.List(ctx, client.ID, tradeapp.OrderListFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, first.Total)
	assert.Equal(t, 3, first.TotalPages)
	require.Len(t, first.Items, 2)
	assert.Equal(t, placed[4], first.Items[0].ID, "newest first")

	last, err := f.orders.List(ctx, client.ID, tradeapp.OrderListFilter{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, placed[0], last.Items[0].ID)

	_, err = f.orders.GetByID(ctx, other.ID, placed[0])
	assert.ErrorIs(t, err, trade.ErrOrderNotFound, "orders of other users are hidden")
}
