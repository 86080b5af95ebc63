package persistence

import (
	"context"

	appidentity "github.com/marketplace/backend/internal/application/identity"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAccountTransactionScope runs account deactivation in one GORM transaction
type GormAccountTransactionScope struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormAccountTransactionScope creates a new GormAccountTransactionScope
func NewGormAccountTransactionScope(db *gorm.DB, outbox shared.OutboxEventSaver) *GormAccountTransactionScope {
	return &GormAccountTransactionScope{db: db, outbox: outbox}
}

// Execute runs fn in a transaction, rolling back on error
func (s *GormAccountTransactionScope) Execute(ctx context.Context, fn func(repos appidentity.AccountRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormAccountRepositories{gormTxEvents: gormTxEvents{tx: tx, outbox: s.outbox}})
	})
}

type gormAccountRepositories struct {
	gormTxEvents
}

func (r *gormAccountRepositories) UserRepo() identity.UserRepository {
	return NewGormUserRepository(r.tx)
}

func (r *gormAccountRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

var _ appidentity.AccountTransactionScope = (*GormAccountTransactionScope)(nil)
var _ appidentity.AccountRepositories = (*gormAccountRepositories)(nil)
