package event

import (
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/trade"
)

// NewMarketplaceCodec knows every event the marketplace records. The outbox
// processor cannot deliver a type that is missing here.
func NewMarketplaceCodec() *Codec {
	c := NewCodec()

	Register[trade.OrderPlacedEvent](c, trade.EventTypeOrderPlaced)

	Register[catalog.ProductCreatedEvent](c, catalog.EventTypeProductCreated)
	Register[catalog.ProductUpdatedEvent](c, catalog.EventTypeProductUpdated)
	Register[catalog.ProductDeactivatedEvent](c, catalog.EventTypeProductDeactivated)

	Register[identity.UserRegisteredEvent](c, identity.EventTypeUserRegistered)
	Register[identity.UserDeactivatedEvent](c, identity.EventTypeUserDeactivated)

	return c
}
