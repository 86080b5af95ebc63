package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/cart"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// AddItemRequest represents a request to add a product to the cart.
// Quantity defaults to 1 when omitted.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  *int      `json:"quantity"`
}

// UpdateItemRequest represents a request to overwrite a line quantity.
// Zero removes the line.
type UpdateItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  *int      `json:"quantity" binding:"required"`
}

// RemoveItemRequest represents a request to remove a line
type RemoveItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
}

// CartProductResponse is the product projection embedded in cart lines
type CartProductResponse struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   string          `json:"image_url"`
	SellerName string          `json:"seller_name"`
	Available  bool            `json:"available"`
}

// CartItemResponse represents a cart line in API responses
type CartItemResponse struct {
	ID        uuid.UUID            `json:"id"`
	ProductID uuid.UUID            `json:"product_id"`
	Quantity  int                  `json:"quantity"`
	Subtotal  decimal.Decimal      `json:"subtotal"`
	Product   *CartProductResponse `json:"product,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// CartResponse represents the whole cart
type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

// AddItemResult reports whether the line was created or incremented
type AddItemResult struct {
	Item    CartItemResponse `json:"item"`
	Created bool             `json:"created"`
}

// UpdateItemResult reports the outcome of an update
type UpdateItemResult struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Removed   bool      `json:"removed"`
}

// ToCartItemResponse converts a cart line to CartItemResponse.
// product may be nil when it no longer exists.
func ToCartItemResponse(item *cart.CartItem, product *catalog.Product) CartItemResponse {
	resp := CartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Subtotal:  decimal.Zero,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if product != nil {
		resp.Subtotal = product.PriceMoney().Times(item.Quantity).Amount()
		resp.Product = &CartProductResponse{
			ID:         product.ID,
			Name:       product.Name,
			Price:      product.Price,
			ImageURL:   product.ImageURL,
			SellerName: product.SellerName(),
			Available:  product.IsPurchasable(),
		}
	}
	return resp
}
