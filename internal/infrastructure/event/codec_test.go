package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	c := pingCodec()
	original := newPing("Ping", "hello")

	data, err := c.Encode(original)
	require.NoError(t, err)

	decoded, err := c.Decode("Ping", data)
	require.NoError(t, err)
	got, ok := decoded.(*pingEvent)
	require.True(t, ok)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.AggID, got.AggID)
	assert.Equal(t, "hello", got.Note)
	assert.True(t, original.Timestamp.Equal(got.Timestamp))
}

func TestCodec_DecodeErrors(t *testing.T) {
	c := pingCodec()

	_, err := c.Decode("Nope", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = c.Decode("Ping", []byte(`{not json`))
	assert.Error(t, err)

	data, err := c.Encode(newPing("Pong", ""))
	require.NoError(t, err)
	_, err = c.Decode("Ping", data)
	assert.ErrorContains(t, err, `payload carries type "Pong"`)
}

func TestNewMarketplaceCodec_Types(t *testing.T) {
	assert.Equal(t, []string{
		trade.EventTypeOrderPlaced,
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductDeactivated,
		catalog.EventTypeProductUpdated,
		identity.EventTypeUserDeactivated,
		identity.EventTypeUserRegistered,
	}, NewMarketplaceCodec().Types())
}

func TestNewMarketplaceCodec_OrderPlaced(t *testing.T) {
	c := NewMarketplaceCodec()
	order, err := trade.PlaceOrder(uuid.New(), []trade.CheckoutLine{
		{CartItemID: uuid.New(), ProductID: uuid.New(), Quantity: 3, UnitPrice: decimal.RequireFromString("19.90")},
	})
	require.NoError(t, err)
	original := order.PendingEvents()[0].(*trade.OrderPlacedEvent)

	data, err := c.Encode(original)
	require.NoError(t, err)
	decoded, err := c.Decode(trade.EventTypeOrderPlaced, data)
	require.NoError(t, err)

	placed, ok := decoded.(*trade.OrderPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), placed.EventID())
	assert.Equal(t, order.ID, placed.OrderID)
	assert.True(t, order.TotalAmount.Equal(placed.TotalAmount))
	require.Len(t, placed.Lines, 1)
	assert.Equal(t, 3, placed.Lines[0].Quantity)
}
