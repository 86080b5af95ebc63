package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tradeapp "github.com/marketplace/backend/internal/application/trade"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
)

// IdempotencyKeyHeader carries the client-chosen checkout key
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 255

// CheckoutService turns the cart into an order
type CheckoutService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, idempotencyKey string) (*tradeapp.PlaceOrderResponse, error)
}

// OrderService reads the order history
type OrderService interface {
	List(ctx context.Context, userID uuid.UUID, filter tradeapp.OrderListFilter) (shared.Paginated[tradeapp.OrderResponse], error)
	GetByID(ctx context.Context, userID, orderID uuid.UUID) (*tradeapp.OrderResponse, error)
}

// ReceiptService renders order receipts
type ReceiptService interface {
	Generate(ctx context.Context, userID, orderID uuid.UUID, format string) (*tradeapp.ReceiptDocument, error)
}

// OrderHandler handles checkout, order history and receipts
type OrderHandler struct {
	BaseHandler
	checkoutService CheckoutService
	orderService    OrderService
	receiptService  ReceiptService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(checkoutService CheckoutService, orderService OrderService, receiptService ReceiptService) *OrderHandler {
	return &OrderHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
		receiptService:  receiptService,
	}
}

// PlaceOrder godoc
// @ID           placeOrder
// @Summary      Check out the cart
// @Description  Atomically converts the cart into an order and empties it
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string false "Client-chosen key; a reused key answers 409"
// @Success      201 {object} APIResponse[tradeapp.PlaceOrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("Idempotency-Key is too long"))
		return
	}

	resp, err := h.checkoutService.PlaceOrder(c.Request.Context(), userID, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List godoc
// @ID           listOrders
// @Summary      Order history, newest first
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Page size (max 100)" default(10)
// @Success      200 {object} APIResponse[[]tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var filter tradeapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.orderService.List(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetByID godoc
// @ID           getOrder
// @Summary      One of the caller's orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id", trade.ErrOrderNotFound)
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Receipt godoc
// @ID           getOrderReceipt
// @Summary      Download the order receipt
// @Description  PDF by default; format=html returns the HTML source
// @Tags         orders
// @Produce      application/pdf
// @Produce      text/html
// @Security     BearerAuth
// @Param        id     path  string true  "Order ID" format(uuid)
// @Param        format query string false "pdf or html" Enums(pdf, html)
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /orders/{id}/receipt [get]
func (h *OrderHandler) Receipt(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id", trade.ErrOrderNotFound)
	if !ok {
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", tradeapp.ReceiptFormatPDF))
	doc, err := h.receiptService.Generate(c.Request.Context(), userID, orderID, format)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	disposition := "attachment"
	if format == tradeapp.ReceiptFormatHTML {
		disposition = "inline"
	}
	c.Header("Content-Disposition", disposition+`; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
