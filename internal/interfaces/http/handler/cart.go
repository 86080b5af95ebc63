package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/marketplace/backend/internal/application/cart"
	"github.com/marketplace/backend/internal/domain/shared"
)

// CartService is the cart use-case surface used by CartHandler
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*cartapp.CartResponse, error)
	AddItem(ctx context.Context, userID uuid.UUID, req cartapp.AddItemRequest) (*cartapp.AddItemResult, error)
	UpdateItem(ctx context.Context, userID uuid.UUID, req cartapp.UpdateItemRequest) (*cartapp.UpdateItemResult, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
}

// CartHandler handles the client cart endpoints
type CartHandler struct {
	BaseHandler
	cartService CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// Get godoc
// @ID           getCart
// @Summary      Current cart with line subtotals and total
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// Add godoc
// @ID           addCartItem
// @Summary      Add a product to the cart
// @Description  Creates the line (201) or increments an existing one (200)
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body cartapp.AddItemRequest true "Product and quantity"
// @Success      200 {object} APIResponse[cartapp.AddItemResult]
// @Success      201 {object} APIResponse[cartapp.AddItemResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cart/add [post]
func (h *CartHandler) Add(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req cartapp.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.cartService.AddItem(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Created {
		h.Created(c, result)
		return
	}
	h.Success(c, result)
}

// Update godoc
// @ID           updateCartItem
// @Summary      Overwrite a line quantity
// @Description  Quantity 0 removes the line
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body cartapp.UpdateItemRequest true "Product and quantity"
// @Success      200 {object} APIResponse[cartapp.UpdateItemResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cart/update [put]
func (h *CartHandler) Update(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req cartapp.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.cartService.UpdateItem(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Remove godoc
// @ID           removeCartItem
// @Summary      Remove a line from the cart
// @Description  The product id is read from the JSON body or the product_id query parameter
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        product_id query string                    false "Product ID" format(uuid)
// @Param        request    body  cartapp.RemoveItemRequest false "Product"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cart/remove [delete]
func (h *CartHandler) Remove(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req cartapp.RemoveItemRequest
	if c.Request.ContentLength > 0 {
		if !h.bindJSON(c, &req) {
			return
		}
	} else {
		productID, err := uuid.Parse(c.Query("product_id"))
		if err != nil {
			h.HandleError(c, shared.ErrInvalidInput.WithMessage("product_id is required"))
			return
		}
		req.ProductID = productID
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), userID, req.ProductID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Item removed from cart"})
}
