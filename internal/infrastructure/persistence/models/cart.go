package models

import (
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/cart"
)

// CartItemModel is the persistence model for a cart line.
// (user_id, product_id) is unique so adds can upsert.
type CartItemModel struct {
	Record
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_user_product,priority:1"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_user_product,priority:2"`
	Quantity  int       `gorm:"not null"`
}

func (CartItemModel) TableName() string {
	return "cart_items"
}

func (m *CartItemModel) ToDomain() *cart.CartItem {
	return &cart.CartItem{
		BaseEntity: m.entity(),
		UserID:     m.UserID,
		ProductID:  m.ProductID,
		Quantity:   m.Quantity,
	}
}

func CartItemModelFromDomain(c *cart.CartItem) *CartItemModel {
	return &CartItemModel{
		Record:    recordOf(c.BaseEntity),
		UserID:    c.UserID,
		ProductID: c.ProductID,
		Quantity:  c.Quantity,
	}
}
