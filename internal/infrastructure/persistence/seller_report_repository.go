package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/report"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSellerReportRepository implements SellerReportRepository using GORM
type GormSellerReportRepository struct {
	db *gorm.DB
}

// NewGormSellerReportRepository creates a new GormSellerReportRepository
func NewGormSellerReportRepository(db *gorm.DB) *GormSellerReportRepository {
	return &GormSellerReportRepository{db: db}
}

// SalesByProduct aggregates units and revenue per product of the seller.
// Revenue is quantity × unit price at purchase; cancelled orders are excluded.
func (r *GormSellerReportRepository) SalesByProduct(ctx context.Context, sellerID uuid.UUID) ([]report.ProductSales, error) {
	type salesResult struct {
		ProductID uuid.UUID
		Name      string
		ImageURL  string
		UnitsSold int64
		Revenue   decimal.Decimal
	}

	var results []salesResult
	err := r.db.WithContext(ctx).
		Table("order_items oi").
		Select(`
			p.id as product_id,
			p.name as name,
			p.image_url as image_url,
			COALESCE(SUM(oi.quantity), 0) as units_sold,
			COALESCE(SUM(oi.quantity * oi.unit_price), 0) as revenue
		`).
		Joins("JOIN products p ON p.id = oi.product_id").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("p.seller_id = ?", sellerID).
		Where("o.status <> ?", trade.OrderStatusCancelled).
		Group("p.id, p.name, p.image_url").
		Order("units_sold DESC").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	sales := make([]report.ProductSales, len(results))
	for i, res := range results {
		sales[i] = report.ProductSales{
			ProductID: res.ProductID,
			Name:      res.Name,
			ImageURL:  res.ImageURL,
			UnitsSold: res.UnitsSold,
			Revenue:   res.Revenue,
		}
	}
	return sales, nil
}

// Ensure GormSellerReportRepository implements SellerReportRepository
var _ report.SellerReportRepository = (*GormSellerReportRepository)(nil)
