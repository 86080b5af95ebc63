package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save inserts the order header and then its items.
// Orders are immutable after checkout apart from status, so existing rows are updated in place.
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	db := r.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.OrderModel{}).Where("id = ?", order.ID).Count(&exists).Error; err != nil {
		return err
	}
	if exists > 0 {
		return db.Omit("Items").Save(model).Error
	}

	if err := db.Omit("Items").Create(model).Error; err != nil {
		return err
	}
	if len(model.Items) == 0 {
		return nil
	}
	return db.Create(&model.Items).Error
}

// FindByIDForUser finds an order owned by the user, items included
func (r *GormOrderRepository) FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderItemsOrdering).
		Where("user_id = ? AND id = ?", userID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, trade.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser returns one page of the user's orders, created_at DESC then id DESC
func (r *GormOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]trade.Order, error) {
	filter = filter.Normalize()

	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderItemsOrdering).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]trade.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

// CountByUser counts all orders of the user
func (r *GormOrderRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// orderItemsOrdering returns lines in the order they were placed. Every line
// of an order shares created_at, so position is the only stable key.
func orderItemsOrdering(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
