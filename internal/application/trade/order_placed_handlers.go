package trade

import (
	"context"
	"fmt"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderMetricsRecorder records business metrics for placed orders
type OrderMetricsRecorder interface {
	RecordOrderPlaced(ctx context.Context, totalAmount decimal.Decimal, itemCount, units int)
}

// OrderPlacedMetricsHandler feeds OrderPlaced events into business metrics
type OrderPlacedMetricsHandler struct {
	recorder OrderMetricsRecorder
	logger   *zap.Logger
}

// NewOrderPlacedMetricsHandler creates a new OrderPlacedMetricsHandler
func NewOrderPlacedMetricsHandler(recorder OrderMetricsRecorder, logger *zap.Logger) *OrderPlacedMetricsHandler {
	return &OrderPlacedMetricsHandler{
		recorder: recorder,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderPlacedMetricsHandler) EventTypes() []string {
	return []string{trade.EventTypeOrderPlaced}
}

// Handle records the order count, amount and units
func (h *OrderPlacedMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	placed, err := asOrderPlaced(event)
	if err != nil {
		h.logger.Error("unexpected event type",
			zap.String("expected", trade.EventTypeOrderPlaced),
			zap.String("actual", event.EventType()),
		)
		return err
	}

	units := 0
	for _, line := range placed.Lines {
		units += line.Quantity
	}
	h.recorder.RecordOrderPlaced(ctx, placed.TotalAmount, placed.ItemCount, units)
	return nil
}

// OrderPlacedLogHandler writes a structured log line per placed order
type OrderPlacedLogHandler struct {
	logger *zap.Logger
}

// NewOrderPlacedLogHandler creates a new OrderPlacedLogHandler
func NewOrderPlacedLogHandler(logger *zap.Logger) *OrderPlacedLogHandler {
	return &OrderPlacedLogHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderPlacedLogHandler) EventTypes() []string {
	return []string{trade.EventTypeOrderPlaced}
}

// Handle logs the order summary
func (h *OrderPlacedLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	placed, err := asOrderPlaced(event)
	if err != nil {
		return err
	}

	h.logger.Info("order placed event received",
		zap.String("event_id", event.EventID().String()),
		zap.String("order_id", placed.OrderID.String()),
		zap.String("user_id", placed.UserID.String()),
		zap.String("total_amount", placed.TotalAmount.StringFixed(2)),
		zap.Int("item_count", placed.ItemCount),
	)
	return nil
}

func asOrderPlaced(event shared.DomainEvent) (*trade.OrderPlacedEvent, error) {
	placed, ok := event.(*trade.OrderPlacedEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected event type: expected %s, got %s",
			trade.EventTypeOrderPlaced, event.EventType())
	}
	return placed, nil
}

// Ensure handlers implement shared.EventHandler
var (
	_ shared.EventHandler = (*OrderPlacedMetricsHandler)(nil)
	_ shared.EventHandler = (*OrderPlacedLogHandler)(nil)
)
