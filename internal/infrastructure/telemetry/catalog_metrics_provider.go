package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormCatalogMetricsProvider implements CatalogMetricsProvider with plain
// counts over the users and products tables
type GormCatalogMetricsProvider struct {
	db *gorm.DB
}

// NewGormCatalogMetricsProvider creates a new GormCatalogMetricsProvider
func NewGormCatalogMetricsProvider(db *gorm.DB) *GormCatalogMetricsProvider {
	return &GormCatalogMetricsProvider{db: db}
}

// CountActiveProducts counts active products whose seller is active
func (p *GormCatalogMetricsProvider) CountActiveProducts(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("products").
		Joins("JOIN users ON users.id = products.seller_id").
		Where("products.active = ? AND users.active = ?", true, true).
		Count(&count).Error
	return count, err
}

// CountActiveSellers counts active seller accounts
func (p *GormCatalogMetricsProvider) CountActiveSellers(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("users").
		Where("role = ? AND active = ?", "SELLER", true).
		Count(&count).Error
	return count, err
}

var _ CatalogMetricsProvider = (*GormCatalogMetricsProvider)(nil)
