package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// OrderModel maps the orders table; Items are written in the same Create
type OrderModel struct {
	VersionedRecord
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_orders_user_created,priority:1"`
	TotalAmount decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	Status      trade.OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	ConfirmedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	Items       []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

func (m *OrderModel) ToDomain() *trade.Order {
	order := &trade.Order{
		BaseAggregateRoot: m.aggregate(),
		UserID:            m.UserID,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		ConfirmedAt:       m.ConfirmedAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
		Items:             make([]trade.OrderItem, len(m.Items)),
	}
	for i := range m.Items {
		order.Items[i] = m.Items[i].ToDomain()
	}
	return order
}

func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{
		VersionedRecord: versionedOf(o.BaseAggregateRoot),
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		ConfirmedAt:     o.ConfirmedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		Items:           make([]OrderItemModel, len(o.Items)),
	}
	for i, item := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:        item.ID,
			OrderID:   item.OrderID,
			ProductID: item.ProductID,
			Position:  item.Position,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			CreatedAt: item.CreatedAt,
		}
	}
	return m
}

// OrderItemModel is one order line with its unit price snapshot
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position  int             `gorm:"not null;default:0"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

func (m *OrderItemModel) ToDomain() trade.OrderItem {
	return trade.OrderItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		Position:  m.Position,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		CreatedAt: m.CreatedAt,
	}
}
