package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AccountTransactionScope runs account lifecycle changes atomically
type AccountTransactionScope interface {
	Execute(ctx context.Context, fn func(repos AccountRepositories) error) error
}

// AccountRepositories are the repositories available inside an account transaction
type AccountRepositories interface {
	UserRepo() identity.UserRepository
	ProductRepo() catalog.ProductRepository
	// SaveEvents writes domain events to the outbox as part of the current transaction
	SaveEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// AccountService deactivates client and seller accounts
type AccountService struct {
	txScope   AccountTransactionScope
	blacklist auth.TokenBlacklist
	revokeTTL time.Duration
	logger    *zap.Logger
}

// NewAccountService creates a new AccountService. Tokens of a deactivated
// account are revoked for revokeTTL, which should cover the refresh token lifetime.
func NewAccountService(
	txScope AccountTransactionScope,
	blacklist auth.TokenBlacklist,
	revokeTTL time.Duration,
	logger *zap.Logger,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		txScope:   txScope,
		blacklist: blacklist,
		revokeTTL: revokeTTL,
		logger:    logger,
	}
}

// DeleteAccount deactivates a CLIENT account. Orders are kept.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos AccountRepositories) error {
		user, err := repos.UserRepo().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.IsClient() {
			return shared.ErrForbidden.WithMessage("Only client accounts can be deleted")
		}
		return s.deactivate(ctx, repos, user)
	})
	if err != nil {
		return err
	}

	s.revokeTokens(ctx, userID)
	s.logger.Info("Client account deactivated", zap.String("user_id", userID.String()))
	return nil
}

// DeactivateSeller deactivates a SELLER account together with all of its
// products in one transaction
func (s *AccountService) DeactivateSeller(ctx context.Context, sellerID uuid.UUID) (*DeactivateSellerResponse, error) {
	var deactivated int64
	err := s.txScope.Execute(ctx, func(repos AccountRepositories) error {
		user, err := repos.UserRepo().FindByID(ctx, sellerID)
		if err != nil {
			return err
		}
		if !user.IsSeller() {
			return shared.ErrForbidden.WithMessage("Only seller accounts can be deactivated")
		}

		deactivated, err = repos.ProductRepo().DeactivateBySeller(ctx, sellerID)
		if err != nil {
			return err
		}
		return s.deactivate(ctx, repos, user)
	})
	if err != nil {
		return nil, err
	}

	s.revokeTokens(ctx, sellerID)
	s.logger.Info("Seller deactivated",
		zap.String("seller_id", sellerID.String()),
		zap.Int64("products_deactivated", deactivated))

	return &DeactivateSellerResponse{ProductsDeactivated: deactivated}, nil
}

func (s *AccountService) deactivate(ctx context.Context, repos AccountRepositories, user *identity.User) error {
	if err := user.Deactivate(); err != nil {
		return err
	}
	if err := repos.UserRepo().Save(ctx, user); err != nil {
		return err
	}
	events := user.PendingEvents()
	user.ClearEvents()
	return repos.SaveEvents(ctx, events...)
}

// revokeTokens is best effort; the auth middleware also rejects inactive principals
func (s *AccountService) revokeTokens(ctx context.Context, userID uuid.UUID) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.RevokeUser(ctx, userID.String(), s.revokeTTL); err != nil {
		s.logger.Warn("Failed to revoke user tokens", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// NoOpAccountTransactionScope runs the function without a transaction
type NoOpAccountTransactionScope struct {
	userRepo    identity.UserRepository
	productRepo catalog.ProductRepository

	// Saved collects the events passed to SaveEvents
	Saved []shared.DomainEvent
}

// NewNoOpAccountTransactionScope creates a NoOpAccountTransactionScope
func NewNoOpAccountTransactionScope(userRepo identity.UserRepository, productRepo catalog.ProductRepository) *NoOpAccountTransactionScope {
	return &NoOpAccountTransactionScope{userRepo: userRepo, productRepo: productRepo}
}

// Execute runs fn directly
func (s *NoOpAccountTransactionScope) Execute(_ context.Context, fn func(repos AccountRepositories) error) error {
	return fn(s)
}

// UserRepo returns the user repository
func (s *NoOpAccountTransactionScope) UserRepo() identity.UserRepository {
	return s.userRepo
}

// ProductRepo returns the product repository
func (s *NoOpAccountTransactionScope) ProductRepo() catalog.ProductRepository {
	return s.productRepo
}

// SaveEvents records the events in memory
func (s *NoOpAccountTransactionScope) SaveEvents(_ context.Context, events ...shared.DomainEvent) error {
	s.Saved = append(s.Saved, events...)
	return nil
}

var _ AccountTransactionScope = (*NoOpAccountTransactionScope)(nil)
var _ AccountRepositories = (*NoOpAccountTransactionScope)(nil)
