package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SellerProductInvalidator drops the cached products of a seller
type SellerProductInvalidator interface {
	InvalidateSeller(ctx context.Context, sellerID uuid.UUID) error
}

// SellerDeactivatedHandler evicts a deactivated seller's products from the
// read cache, so public reads stop serving them before the TTL runs out
type SellerDeactivatedHandler struct {
	invalidator SellerProductInvalidator
	logger      *zap.Logger
}

// NewSellerDeactivatedHandler creates a new SellerDeactivatedHandler
func NewSellerDeactivatedHandler(invalidator SellerProductInvalidator, logger *zap.Logger) *SellerDeactivatedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SellerDeactivatedHandler{invalidator: invalidator, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *SellerDeactivatedHandler) EventTypes() []string {
	return []string{identity.EventTypeUserDeactivated}
}

// Handle processes a UserDeactivatedEvent; client accounts are ignored
func (h *SellerDeactivatedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	deactivated, ok := event.(*identity.UserDeactivatedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", identity.EventTypeUserDeactivated),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			identity.EventTypeUserDeactivated, event.EventType())
	}

	if deactivated.Role != identity.RoleSeller {
		return nil
	}

	if err := h.invalidator.InvalidateSeller(ctx, deactivated.UserID); err != nil {
		h.logger.Error("failed to invalidate seller products",
			zap.String("seller_id", deactivated.UserID.String()),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("seller products evicted from cache",
		zap.String("seller_id", deactivated.UserID.String()),
	)
	return nil
}

var _ shared.EventHandler = (*SellerDeactivatedHandler)(nil)
