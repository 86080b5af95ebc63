// Package apptest provides testify mocks of the ports the application
// services depend on.
package apptest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/cart"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/marketplace/backend/internal/infrastructure/printing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// at returns argument i as T, or T's zero value when the expectation
// returned nil.
func at[T any](args mock.Arguments, i int) T {
	v, _ := args.Get(i).(T)
	return v
}

type Users struct{ mock.Mock }

var _ identity.UserRepository = (*Users)(nil)

func (m *Users) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	return at[*identity.User](args, 0), args.Error(1)
}

func (m *Users) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	return at[*identity.User](args, 0), args.Error(1)
}

func (m *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *Users) Save(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

type Products struct{ mock.Mock }

var _ catalog.ProductRepository = (*Products)(nil)

func (m *Products) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	return at[*catalog.Product](args, 0), args.Error(1)
}

func (m *Products) FindPurchasableByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	return at[*catalog.Product](args, 0), args.Error(1)
}

func (m *Products) FindByIDForSeller(ctx context.Context, sellerID, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, sellerID, id)
	return at[*catalog.Product](args, 0), args.Error(1)
}

func (m *Products) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return at[[]catalog.Product](args, 0), args.Error(1)
}

func (m *Products) FindForCheckout(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return at[[]catalog.Product](args, 0), args.Error(1)
}

func (m *Products) FindPublished(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	return at[[]catalog.Product](args, 0), args.Error(1)
}

func (m *Products) CountPublished(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return at[int64](args, 0), args.Error(1)
}

func (m *Products) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, sellerID)
	return at[[]catalog.Product](args, 0), args.Error(1)
}

func (m *Products) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *Products) SaveBatch(ctx context.Context, products []*catalog.Product) error {
	return m.Called(ctx, products).Error(0)
}

func (m *Products) DeactivateBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, sellerID)
	return at[int64](args, 0), args.Error(1)
}

func (m *Products) CountActiveBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, sellerID)
	return at[int64](args, 0), args.Error(1)
}

type ProductCache struct{ mock.Mock }

var _ catalog.ProductCache = (*ProductCache)(nil)

func (m *ProductCache) Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	return at[*catalog.Product](args, 0), args.Error(1)
}

func (m *ProductCache) Set(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

// Invalidate records ids as a single slice argument
func (m *ProductCache) Invalidate(ctx context.Context, ids ...uuid.UUID) error {
	return m.Called(ctx, ids).Error(0)
}

type Images struct{ mock.Mock }

func (m *Images) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	return m.Called(ctx, storageKey, data, contentType).Error(0)
}

func (m *Images) DeleteObject(ctx context.Context, storageKey string) error {
	return m.Called(ctx, storageKey).Error(0)
}

func (m *Images) PublicURL(storageKey string) string {
	return m.Called(storageKey).String(0)
}

type Carts struct{ mock.Mock }

var _ cart.CartRepository = (*Carts)(nil)

func (m *Carts) FindByUser(ctx context.Context, userID uuid.UUID) ([]cart.CartItem, error) {
	args := m.Called(ctx, userID)
	return at[[]cart.CartItem](args, 0), args.Error(1)
}

func (m *Carts) AddQuantity(ctx context.Context, item *cart.CartItem) (*cart.CartItem, bool, error) {
	args := m.Called(ctx, item)
	return at[*cart.CartItem](args, 0), at[bool](args, 1), args.Error(2)
}

func (m *Carts) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (int64, error) {
	args := m.Called(ctx, userID, productID, quantity)
	return at[int64](args, 0), args.Error(1)
}

func (m *Carts) Delete(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, productID)
	return at[int64](args, 0), args.Error(1)
}

func (m *Carts) LockByUser(ctx context.Context, userID uuid.UUID) ([]cart.CartItem, error) {
	args := m.Called(ctx, userID)
	return at[[]cart.CartItem](args, 0), args.Error(1)
}

func (m *Carts) DeleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, ids)
	return at[int64](args, 0), args.Error(1)
}

type Orders struct{ mock.Mock }

var _ trade.OrderRepository = (*Orders)(nil)

func (m *Orders) Save(ctx context.Context, order *trade.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *Orders) FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, userID, id)
	return at[*trade.Order](args, 0), args.Error(1)
}

func (m *Orders) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]trade.Order, error) {
	args := m.Called(ctx, userID, filter)
	return at[[]trade.Order](args, 0), args.Error(1)
}

func (m *Orders) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return at[int64](args, 0), args.Error(1)
}

// Publisher records each Publish call with its events as one slice
type Publisher struct{ mock.Mock }

var _ shared.EventPublisher = (*Publisher)(nil)

func (m *Publisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

type Idempotency struct{ mock.Mock }

var _ shared.IdempotencyStore = (*Idempotency)(nil)

func (m *Idempotency) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *Idempotency) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *Idempotency) Close() error {
	return m.Called().Error(0)
}

type Receipts struct{ mock.Mock }

func (m *Receipts) RenderHTML(ctx context.Context, data *printing.ReceiptData) ([]byte, error) {
	args := m.Called(ctx, data)
	return at[[]byte](args, 0), args.Error(1)
}

func (m *Receipts) RenderPDF(ctx context.Context, data *printing.ReceiptData) ([]byte, error) {
	args := m.Called(ctx, data)
	return at[[]byte](args, 0), args.Error(1)
}

type OrderMetrics struct{ mock.Mock }

func (m *OrderMetrics) RecordOrderPlaced(ctx context.Context, totalAmount decimal.Decimal, itemCount, units int) {
	m.Called(ctx, totalAmount, itemCount, units)
}
