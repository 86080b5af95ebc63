package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/cart"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByUser returns the user's cart lines, oldest first
func (r *GormCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]cart.CartItem, error) {
	var itemModels []models.CartItemModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}
	return toDomainCartItems(itemModels), nil
}

// AddQuantity upserts on (user_id, product_id), adding to the stored quantity on conflict.
// The stored line keeps its original ID, so created is true only when the insert won.
// An increment that would push the line past cart.MaxQuantity changes nothing and
// returns cart.ErrQuantityLimit.
func (r *GormCartRepository) AddQuantity(ctx context.Context, item *cart.CartItem) (*cart.CartItem, bool, error) {
	model := models.CartItemModelFromDomain(item)
	var stored models.CartItemModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				gorm.Expr("cart_items.quantity + excluded.quantity <= ?", cart.MaxQuantity),
			}},
		}).Create(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return cart.ErrQuantityLimit
		}

		return tx.Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).
			First(&stored).Error
	})
	if err != nil {
		return nil, false, err
	}

	return stored.ToDomain(), stored.ID == item.ID, nil
}

// SetQuantity overwrites the quantity of an existing line
func (r *GormCartRepository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CartItemModel{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// Delete removes the (userID, productID) line
func (r *GormCartRepository) Delete(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItemModel{})
	return result.RowsAffected, result.Error
}

// LockByUser reads the user's lines with SELECT ... FOR UPDATE.
// Must run inside a transaction for the lock to be held.
func (r *GormCartRepository) LockByUser(ctx context.Context, userID uuid.UUID) ([]cart.CartItem, error) {
	var itemModels []models.CartItemModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}
	return toDomainCartItems(itemModels), nil
}

// DeleteByIDs deletes the given lines of the user
func (r *GormCartRepository) DeleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&models.CartItemModel{})
	return result.RowsAffected, result.Error
}

func toDomainCartItems(itemModels []models.CartItemModel) []cart.CartItem {
	items := make([]cart.CartItem, len(itemModels))
	for i := range itemModels {
		items[i] = *itemModels[i].ToDomain()
	}
	return items
}

// Ensure GormCartRepository implements CartRepository
var _ cart.CartRepository = (*GormCartRepository)(nil)
