package event

import (
	"context"
	"fmt"
	"time"

	"github.com/marketplace/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotentHandler skips events its handler already processed.
// The key is recorded after a successful Handle, so a failed delivery is
// retried by the outbox while handlers that succeeded stay quiet.
type IdempotentHandler struct {
	name   string
	inner  shared.EventHandler
	store  shared.IdempotencyStore
	ttl    time.Duration
	logger *zap.Logger
}

type IdempotentHandlerOption func(*IdempotentHandler)

// WithHandlerName overrides the key namespace, which defaults to the
// handler's Go type
func WithHandlerName(name string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.name = name }
}

func WithIdempotencyTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		name:   fmt.Sprintf("%T", inner),
		inner:  inner,
		store:  store,
		ttl:    shared.DefaultIdempotencyTTL,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.inner.EventTypes()
}

// Key is the store key for ev under this handler
func (h *IdempotentHandler) Key(ev shared.DomainEvent) string {
	return "event:" + h.name + ":" + ev.EventID().String()
}

func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	key := h.Key(ev)

	seen, err := h.store.IsProcessed(ctx, key)
	switch {
	case err != nil:
		// an unreachable store must not stall delivery
		h.logger.Warn("Idempotency check failed, handling anyway",
			zap.String("key", key), zap.Error(err))
	case seen:
		h.logger.Debug("Duplicate event skipped", zap.String("key", key))
		return nil
	}

	if err := h.inner.Handle(ctx, ev); err != nil {
		return err
	}

	if _, err := h.store.MarkProcessed(ctx, key, h.ttl); err != nil {
		h.logger.Warn("Failed to record processed event", zap.String("key", key), zap.Error(err))
	}
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

// WrapHandlersWithIdempotency wraps each handler with the same store and options
func WrapHandlersWithIdempotency(handlers []shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) []shared.EventHandler {
	out := make([]shared.EventHandler, len(handlers))
	for i, h := range handlers {
		out[i] = NewIdempotentHandler(h, store, logger, opts...)
	}
	return out
}
