package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// withSeller joins the owning user so the seller projection is populated
func (r *GormProductRepository) withSeller(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ProductModel{}).InnerJoins("Seller")
}

// published restricts a query to active products of active sellers
func published(db *gorm.DB) *gorm.DB {
	return db.Where("products.active = ?", true).Where(`"Seller"."active" = ?`, true)
}

// FindByID finds a product by its ID regardless of status
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withSeller(ctx).Where("products.id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPurchasableByID finds an active product of an active seller
func (r *GormProductRepository) FindPurchasableByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withSeller(ctx).
		Scopes(published).
		Where("products.id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForSeller finds a product owned by the seller
func (r *GormProductRepository) FindByIDForSeller(ctx context.Context, sellerID, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("seller_id = ? AND id = ?", sellerID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds products by ID regardless of status
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var productModels []models.ProductModel
	if err := r.withSeller(ctx).Where("products.id IN ?", ids).Find(&productModels).Error; err != nil {
		return nil, err
	}
	return toDomainProducts(productModels), nil
}

// FindForCheckout reads the products under FOR SHARE OF products.
// Concurrent price edits block until the checkout transaction ends.
func (r *GormProductRepository) FindForCheckout(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var productModels []models.ProductModel
	if err := r.withSeller(ctx).
		Clauses(clause.Locking{
			Strength: "SHARE",
			Table:    clause.Table{Name: clause.CurrentTable},
		}).
		Where("products.id IN ?", ids).
		Find(&productModels).Error; err != nil {
		return nil, err
	}
	return toDomainProducts(productModels), nil
}

// FindPublished lists active products of active sellers.
// Sorted by filter.OrderBy when whitelisted, published_at DESC otherwise.
func (r *GormProductRepository) FindPublished(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	filter = filter.Normalize()

	var productModels []models.ProductModel
	if err := r.applyCatalogFilter(r.withSeller(ctx), filter).
		Clauses(productSort.orderBy(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&productModels).Error; err != nil {
		return nil, err
	}
	return toDomainProducts(productModels), nil
}

// CountPublished counts products matching the filter without paging
func (r *GormProductRepository) CountPublished(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyCatalogFilter(r.withSeller(ctx), filter.Normalize()).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyCatalogFilter applies search and price bounds on top of the published scope
func (r *GormProductRepository) applyCatalogFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = query.Scopes(published)

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", pattern, pattern)
	}
	if minPrice, ok := filter.Filters[catalog.FilterMinPrice].(decimal.Decimal); ok {
		query = query.Where("products.price >= ?", minPrice)
	}
	if maxPrice, ok := filter.Filters[catalog.FilterMaxPrice].(decimal.Decimal); ok {
		query = query.Where("products.price <= ?", maxPrice)
	}
	return query
}

// FindBySeller lists all products of the seller, newest first
func (r *GormProductRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]catalog.Product, error) {
	var productModels []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&productModels).Error; err != nil {
		return nil, err
	}
	return toDomainProducts(productModels), nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	return r.db.WithContext(ctx).Omit("Seller").Save(model).Error
}

// SaveBatch inserts multiple products in one statement
func (r *GormProductRepository) SaveBatch(ctx context.Context, products []*catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	productModels := make([]*models.ProductModel, len(products))
	for i, p := range products {
		productModels[i] = models.ProductModelFromDomain(p)
	}
	return r.db.WithContext(ctx).Omit("Seller").CreateInBatches(productModels, 100).Error
}

// DeactivateBySeller marks all active products of the seller inactive
func (r *GormProductRepository) DeactivateBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("seller_id = ? AND active = ?", sellerID, true).
		Updates(map[string]any{
			"active":     false,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// CountActiveBySeller counts the seller's active products
func (r *GormProductRepository) CountActiveBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("seller_id = ? AND active = ?", sellerID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toDomainProducts(productModels []models.ProductModel) []catalog.Product {
	products := make([]catalog.Product, len(productModels))
	for i := range productModels {
		products[i] = *productModels[i].ToDomain()
	}
	return products
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
