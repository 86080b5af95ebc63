package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ==================== Order DTOs ====================

// OrderListFilter represents the query parameters of the order history
type OrderListFilter struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// OrderProductResponse is the product projection embedded in order lines
type OrderProductResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	ImageURL string    `json:"image_url"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID        uuid.UUID             `json:"id"`
	ProductID uuid.UUID             `json:"product_id"`
	Quantity  int                   `json:"quantity"`
	UnitPrice decimal.Decimal       `json:"unit_price"`
	Subtotal  decimal.Decimal       `json:"subtotal"`
	Product   *OrderProductResponse `json:"product,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"user_id"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Status      string              `json:"status"`
	ItemCount   int                 `json:"item_count"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// PlaceOrderResponse is returned by checkout
type PlaceOrderResponse struct {
	Order OrderResponse       `json:"order"`
	Items []OrderItemResponse `json:"items"`
}

// ToOrderResponse converts a domain Order to OrderResponse.
// products may be nil; lines whose product is missing carry no projection.
func ToOrderResponse(order *trade.Order, products map[uuid.UUID]*catalog.Product) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i := range order.Items {
		items[i] = ToOrderItemResponse(order.Items[i], products[order.Items[i].ProductID])
	}
	return OrderResponse{
		ID:          order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		ItemCount:   order.ItemCount(),
		Items:       items,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

// ToOrderItemResponse converts an order line to OrderItemResponse
func ToOrderItemResponse(item trade.OrderItem, product *catalog.Product) OrderItemResponse {
	resp := OrderItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		Subtotal:  item.Subtotal().Amount(),
	}
	if product != nil {
		resp.Product = &OrderProductResponse{
			ID:       product.ID,
			Name:     product.Name,
			ImageURL: product.ImageURL,
		}
	}
	return resp
}

// ToPlaceOrderResponse converts a freshly placed order to PlaceOrderResponse
func ToPlaceOrderResponse(order *trade.Order, products map[uuid.UUID]*catalog.Product) PlaceOrderResponse {
	resp := ToOrderResponse(order, products)
	return PlaceOrderResponse{
		Order: resp,
		Items: resp.Items,
	}
}

func indexProducts(products []catalog.Product) map[uuid.UUID]*catalog.Product {
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID
}
