package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel maps the products table
type ProductModel struct {
	VersionedRecord
	SellerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Description string          `gorm:"type:text;not null"`
	ImageURL    string          `gorm:"type:varchar(1000);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Active      bool            `gorm:"not null;default:true;index"`
	PublishedAt time.Time       `gorm:"not null;index"`

	// Seller is loaded by Joins("Seller") on checkout and catalog reads
	Seller *UserModel `gorm:"foreignKey:SellerID"`
}

func (ProductModel) TableName() string {
	return "products"
}

func (m *ProductModel) ToDomain() *catalog.Product {
	product := &catalog.Product{
		BaseAggregateRoot: m.aggregate(),
		SellerID:          m.SellerID,
		Name:              m.Name,
		Description:       m.Description,
		ImageURL:          m.ImageURL,
		Price:             m.Price,
		Active:            m.Active,
		PublishedAt:       m.PublishedAt,
	}
	if m.Seller != nil && m.Seller.ID != uuid.Nil {
		product.Seller = &catalog.SellerInfo{
			ID:     m.Seller.ID,
			Name:   m.Seller.Name,
			Active: m.Seller.Active,
		}
	}
	return product
}

// ProductModelFromDomain never writes the seller projection back
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	return &ProductModel{
		VersionedRecord: versionedOf(p.BaseAggregateRoot),
		SellerID:        p.SellerID,
		Name:            p.Name,
		Description:     p.Description,
		ImageURL:        p.ImageURL,
		Price:           p.Price,
		Active:          p.Active,
		PublishedAt:     p.PublishedAt,
	}
}
