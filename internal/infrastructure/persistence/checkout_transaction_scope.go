package persistence

import (
	"context"

	apptrade "github.com/marketplace/backend/internal/application/trade"
	"github.com/marketplace/backend/internal/domain/cart"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormCheckoutTransactionScope implements the checkout TransactionScope using
// GORM transactions. Cart, product, order and outbox writes commit together.
type GormCheckoutTransactionScope struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormCheckoutTransactionScope creates a new GormCheckoutTransactionScope.
// outbox may be nil, in which case SaveEvents is a no-op.
func NewGormCheckoutTransactionScope(db *gorm.DB, outbox shared.OutboxEventSaver) *GormCheckoutTransactionScope {
	return &GormCheckoutTransactionScope{db: db, outbox: outbox}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormCheckoutTransactionScope) Execute(ctx context.Context, fn func(repos apptrade.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormCheckoutRepositories{gormTxEvents: gormTxEvents{tx: tx, outbox: s.outbox}})
	})
}

// gormTxEvents writes outbox entries on the enclosing transaction
type gormTxEvents struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

// SaveEvents writes domain events to the outbox within the transaction
func (e gormTxEvents) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if e.outbox == nil || len(events) == 0 {
		return nil
	}
	return e.outbox.SaveEvents(ctx, e.tx, events...)
}

type gormCheckoutRepositories struct {
	gormTxEvents
}

// CartRepo returns the cart repository scoped to the current transaction.
func (r *gormCheckoutRepositories) CartRepo() cart.CartRepository {
	return NewGormCartRepository(r.tx)
}

// ProductRepo returns the product repository scoped to the current transaction.
func (r *gormCheckoutRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// OrderRepo returns the order repository scoped to the current transaction.
func (r *gormCheckoutRepositories) OrderRepo() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

var _ apptrade.TransactionScope = (*GormCheckoutTransactionScope)(nil)
var _ apptrade.TransactionalRepositories = (*gormCheckoutRepositories)(nil)
