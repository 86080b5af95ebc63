package trade

import (
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/cart"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

func newActiveProduct(price string) *catalog.Product {
	sellerID := uuid.New()
	p := &catalog.Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SellerID:          sellerID,
		Name:              "Caneca",
		Description:       "Caneca de cerâmica",
		ImageURL:          "https://cdn.example.com/caneca.png",
		Price:             decimal.RequireFromString(price),
		Active:            true,
		Seller:            &catalog.SellerInfo{ID: sellerID, Name: "Loja", Active: true},
	}
	p.PublishedAt = p.CreatedAt
	return p
}

func newCartLine(userID uuid.UUID, product *catalog.Product, quantity int) cart.CartItem {
	return cart.CartItem{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		ProductID:  product.ID,
		Quantity:   quantity,
	}
}
