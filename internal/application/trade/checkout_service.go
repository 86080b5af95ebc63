package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/cart"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CheckoutService turns a client's cart into an order in one transaction
type CheckoutService struct {
	txScope        TransactionScope
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
}

// CheckoutServiceOption configures a CheckoutService
type CheckoutServiceOption func(*CheckoutService)

// WithIdempotencyStore enables Idempotency-Key handling with the given TTL
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.idempotency = store
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(txScope TransactionScope, opts ...CheckoutServiceOption) *CheckoutService {
	s := &CheckoutService{
		txScope:        txScope,
		idempotencyTTL: shared.DefaultIdempotencyTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder converts every line of the user's cart into a PENDING order.
//
// The cart lines are locked, priced against the products read under a shared
// lock, written as an order with its items, and deleted, all in a single
// transaction together with the OrderPlaced outbox entry. The transaction runs
// on a context detached from the caller's cancellation so it always ends in a
// commit or a rollback.
//
// idempotencyKey is optional; a key already used by the same user yields
// DUPLICATE_REQUEST.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID uuid.UUID, idempotencyKey string) (resp *PlaceOrderResponse, err error) {
	ctx, span := telemetry.Start(ctx, "checkout.place_order",
		telemetry.KeyUserID.String(userID.String()),
		telemetry.KeyIdempotent.Bool(idempotencyKey != ""),
	)
	defer func() { telemetry.End(span, err) }()

	telemetry.Tagged(ctx, func(ctx context.Context) {
		resp, err = s.placeOrder(ctx, userID, idempotencyKey)
	}, telemetry.LabelOperation, "checkout")
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		telemetry.KeyOrderID.String(resp.Order.ID.String()),
		telemetry.KeyItemCount.Int(resp.Order.ItemCount),
		telemetry.KeyAmount.String(resp.Order.TotalAmount.StringFixed(2)),
	)
	return resp, nil
}

func (s *CheckoutService) placeOrder(ctx context.Context, userID uuid.UUID, idempotencyKey string) (*PlaceOrderResponse, error) {
	key := ""
	if idempotencyKey != "" && s.idempotency != nil {
		key = CheckoutIdempotencyKey(userID, idempotencyKey)
		done, err := s.idempotency.IsProcessed(ctx, key)
		if err != nil {
			// Store outages degrade to non-idempotent checkout
			logger.L(ctx).Warn("Idempotency lookup failed", zap.Error(err))
		} else if done {
			return nil, shared.ErrDuplicateRequest
		}
	}

	txCtx := context.WithoutCancel(ctx)

	var (
		order    *trade.Order
		products map[uuid.UUID]*catalog.Product
	)
	err := s.txScope.Execute(txCtx, func(repos TransactionalRepositories) error {
		lines, err := repos.CartRepo().LockByUser(txCtx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return trade.ErrEmptyCart
		}

		found, err := repos.ProductRepo().FindForCheckout(txCtx, cartProductIDs(lines))
		if err != nil {
			return err
		}
		products = indexProducts(found)

		checkoutLines, err := buildCheckoutLines(lines, products)
		if err != nil {
			return err
		}

		order, err = trade.PlaceOrder(userID, checkoutLines)
		if err != nil {
			return err
		}
		if err := repos.OrderRepo().Save(txCtx, order); err != nil {
			return err
		}

		deleted, err := repos.CartRepo().DeleteByIDs(txCtx, userID, cartLineIDs(lines))
		if err != nil {
			return err
		}
		if deleted != int64(len(lines)) {
			return shared.ErrConcurrencyConflict.WithMessage("Cart changed during checkout")
		}

		return repos.SaveEvents(txCtx, order.PendingEvents()...)
	})
	if err != nil {
		return nil, err
	}
	order.ClearEvents()

	if key != "" {
		if _, err := s.idempotency.MarkProcessed(txCtx, key, s.idempotencyTTL); err != nil {
			logger.L(ctx).Warn("Failed to record idempotency key",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		}
	}

	logger.L(ctx).Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("item_count", order.ItemCount()),
	)

	resp := ToPlaceOrderResponse(order, products)
	return &resp, nil
}

// CheckoutIdempotencyKey scopes a client-supplied key to its user. The store
// adds its own namespace prefix.
func CheckoutIdempotencyKey(userID uuid.UUID, key string) string {
	return userID.String() + ":" + key
}

// buildCheckoutLines prices each cart line with the locked product snapshot.
// Missing, inactive or seller-deactivated products fail the whole checkout.
func buildCheckoutLines(lines []cart.CartItem, products map[uuid.UUID]*catalog.Product) ([]trade.CheckoutLine, error) {
	checkoutLines := make([]trade.CheckoutLine, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok || !product.IsPurchasable() {
			return nil, trade.ErrStaleCartItem
		}
		checkoutLines = append(checkoutLines, trade.CheckoutLine{
			CartItemID: line.ID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  product.Price,
		})
	}
	return checkoutLines, nil
}

func cartProductIDs(lines []cart.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}
	return ids
}

func cartLineIDs(lines []cart.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = line.ID
	}
	return ids
}
