package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tradeapp "github.com/marketplace/backend/internal/application/trade"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderMocks struct {
	checkout *mockCheckoutService
	orders   *mockOrderService
	receipts *mockReceiptService
}

func newOrderEngine(userID uuid.UUID) (*gin.Engine, orderMocks) {
	m := orderMocks{
		checkout: new(mockCheckoutService),
		orders:   new(mockOrderService),
		receipts: new(mockReceiptService),
	}
	h := NewOrderHandler(m.checkout, m.orders, m.receipts)
	engine := newTestEngine(asUser(userID, "CLIENT"))
	engine.POST("/orders", h.PlaceOrder)
	engine.GET("/orders", h.List)
	engine.GET("/orders/:id", h.GetByID)
	engine.GET("/orders/:id/receipt", h.Receipt)
	return engine, m
}

func TestOrderHandler_PlaceOrder(t *testing.T) {
	userID, orderID := uuid.New(), uuid.New()

	t.Run("created", func(t *testing.T) {
		engine, m := newOrderEngine(userID)
		m.checkout.On("PlaceOrder", mock.Anything, userID, "").Return(&tradeapp.PlaceOrderResponse{
			Order: tradeapp.OrderResponse{ID: orderID, TotalAmount: decimal.RequireFromString("35.00"), Status: "CONFIRMED"},
			Items: []tradeapp.OrderItemResponse{{ProductID: uuid.New(), Quantity: 1}},
		}, nil)

		w := doRequest(engine, http.MethodPost, "/orders", "")

		require.Equal(t, http.StatusCreated, w.Code)
		resp := decode[tradeapp.PlaceOrderResponse](t, w).Data
		assert.Equal(t, orderID, resp.Order.ID)
		assert.Len(t, resp.Items, 1)
	})

	t.Run("idempotency key forwarded", func(t *testing.T) {
		engine, m := newOrderEngine(userID)
		m.checkout.On("PlaceOrder", mock.Anything, userID, "key-1").
			Return(nil, shared.ErrDuplicateRequest.WithMessage("Order already placed for this key"))

		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(IdempotencyKeyHeader, " key-1 ")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeDuplicateRequest, errorCode(t, w))
	})

	t.Run("oversized key", func(t *testing.T) {
		engine, m := newOrderEngine(userID)

		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(IdempotencyKeyHeader, strings.Repeat("k", 300))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		m.checkout.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	errorCases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"empty cart", shared.NewDomainError("EMPTY_CART", "Cart is empty"), http.StatusBadRequest, dto.ErrCodeEmptyCart},
		{"product gone", shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found"), http.StatusNotFound, dto.ErrCodeProductNotFound},
		{"stale line", shared.NewDomainError("STALE_CART_ITEM", "Product is no longer available"), http.StatusConflict, dto.ErrCodeStaleCartItem},
		{"write conflict", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			engine, m := newOrderEngine(userID)
			m.checkout.On("PlaceOrder", mock.Anything, userID, "").Return(nil, tc.err)

			w := doRequest(engine, http.MethodPost, "/orders", "")

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantErr, errorCode(t, w))
		})
	}
}

func TestOrderHandler_List(t *testing.T) {
	userID := uuid.New()
	engine, m := newOrderEngine(userID)
	orders := []tradeapp.OrderResponse{{ID: uuid.New()}, {ID: uuid.New()}}
	m.orders.On("List", mock.Anything, userID, tradeapp.OrderListFilter{Page: 1, Limit: 2}).
		Return(shared.NewPaginated(orders, 5, 1, 2), nil)

	w := doRequest(engine, http.MethodGet, "/orders?page=1&limit=2", "")

	require.Equal(t, http.StatusOK, w.Code)
	env := decode[[]tradeapp.OrderResponse](t, w)
	assert.Len(t, env.Data, 2)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(5), env.Meta.Total)
	assert.Equal(t, 3, env.Meta.TotalPages)
}

func TestOrderHandler_GetByID(t *testing.T) {
	userID, orderID := uuid.New(), uuid.New()
	engine, m := newOrderEngine(userID)
	m.orders.On("GetByID", mock.Anything, userID, orderID).Return(&tradeapp.OrderResponse{ID: orderID}, nil)
	m.orders.On("GetByID", mock.Anything, userID, mock.Anything).Return(nil, trade.ErrOrderNotFound)

	w := doRequest(engine, http.MethodGet, "/orders/"+orderID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(engine, http.MethodGet, "/orders/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeOrderNotFound, errorCode(t, w))

	w = doRequest(engine, http.MethodGet, "/orders/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_Receipt(t *testing.T) {
	userID, orderID := uuid.New(), uuid.New()
	path := "/orders/" + orderID.String() + "/receipt"

	t.Run("pdf", func(t *testing.T) {
		engine, m := newOrderEngine(userID)
		m.receipts.On("Generate", mock.Anything, userID, orderID, "pdf").Return(&tradeapp.ReceiptDocument{
			Content: []byte("%PDF-1.4"), ContentType: "application/pdf", Filename: "receipt-0001.pdf",
		}, nil)

		w := doRequest(engine, http.MethodGet, path, "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="receipt-0001.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "%PDF-1.4", w.Body.String())
	})

	t.Run("html", func(t *testing.T) {
		engine, m := newOrderEngine(userID)
		m.receipts.On("Generate", mock.Anything, userID, orderID, "html").Return(&tradeapp.ReceiptDocument{
			Content: []byte("<html></html>"), ContentType: "text/html; charset=utf-8", Filename: "receipt-0001.html",
		}, nil)

		w := doRequest(engine, http.MethodGet, path+"?format=HTML", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "inline"))
	})

	t.Run("renderer unavailable", func(t *testing.T) {
		engine, m := newOrderEngine(userID)
		m.receipts.On("Generate", mock.Anything, userID, orderID, "pdf").Return(nil, tradeapp.ErrReceiptUnavailable)

		w := doRequest(engine, http.MethodGet, path, "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeServiceUnavailable, errorCode(t, w))
	})
}
