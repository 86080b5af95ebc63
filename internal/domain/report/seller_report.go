package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SellerStats is a read model for the seller dashboard
type SellerStats struct {
	SellerID      uuid.UUID       `json:"-"`
	TotalSold     int64           `json:"total_sold"`     // Units sold across all orders
	TotalRevenue  decimal.Decimal `json:"total_revenue"`  // Σ quantity × unit price at purchase
	TotalProducts int64           `json:"total_products"` // Active listings
	BestSeller    *BestSeller     `json:"best_seller"`
}

// BestSeller is the seller's product with the highest units sold
type BestSeller struct {
	ProductID uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	UnitsSold int64     `json:"units_sold"`
}

// ProductSales is one product's aggregated sales
type ProductSales struct {
	ProductID uuid.UUID
	Name      string
	ImageURL  string
	UnitsSold int64
	Revenue   decimal.Decimal
}

// NewSellerStats folds per-product sales into dashboard stats.
// Ties on units sold go to the higher revenue, then to the lower product id.
func NewSellerStats(sellerID uuid.UUID, sales []ProductSales, activeProducts int64) *SellerStats {
	stats := &SellerStats{
		SellerID:      sellerID,
		TotalRevenue:  decimal.Zero,
		TotalProducts: activeProducts,
	}

	var best *ProductSales
	for i := range sales {
		s := &sales[i]
		stats.TotalSold += s.UnitsSold
		stats.TotalRevenue = stats.TotalRevenue.Add(s.Revenue)
		if s.UnitsSold <= 0 {
			continue
		}
		if best == nil || betterSeller(s, best) {
			best = s
		}
	}
	stats.TotalRevenue = stats.TotalRevenue.Round(2)

	if best != nil {
		stats.BestSeller = &BestSeller{
			ProductID: best.ProductID,
			Name:      best.Name,
			ImageURL:  best.ImageURL,
			UnitsSold: best.UnitsSold,
		}
	}
	return stats
}

func betterSeller(a, b *ProductSales) bool {
	if a.UnitsSold != b.UnitsSold {
		return a.UnitsSold > b.UnitsSold
	}
	if !a.Revenue.Equal(b.Revenue) {
		return a.Revenue.GreaterThan(b.Revenue)
	}
	return a.ProductID.String() < b.ProductID.String()
}

// SellerReportRepository provides aggregated sales queries for sellers
type SellerReportRepository interface {
	// SalesByProduct aggregates order items per product of the seller
	SalesByProduct(ctx context.Context, sellerID uuid.UUID) ([]ProductSales, error)
}
