package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/report"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BestSellerResponse is the seller's top product on the dashboard
type BestSellerResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	ImageURL string    `json:"image_url"`
}

// DashboardStatsResponse represents the seller dashboard
type DashboardStatsResponse struct {
	TotalSold     int64               `json:"total_sold"`
	TotalRevenue  decimal.Decimal     `json:"total_revenue"`
	TotalProducts int64               `json:"total_products"`
	BestSeller    *BestSellerResponse `json:"best_seller"`
}

// ActiveProductCounter counts a seller's active listings
type ActiveProductCounter interface {
	CountActiveBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
}

// DashboardService builds seller dashboard statistics
type DashboardService struct {
	reportRepo  report.SellerReportRepository
	productRepo ActiveProductCounter
	logger      *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	reportRepo report.SellerReportRepository,
	productRepo ActiveProductCounter,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		reportRepo:  reportRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

// GetStats returns sales totals and the best selling product of a seller
func (s *DashboardService) GetStats(ctx context.Context, sellerID uuid.UUID) (*DashboardStatsResponse, error) {
	sales, err := s.reportRepo.SalesByProduct(ctx, sellerID)
	if err != nil {
		s.logger.Error("failed to aggregate seller sales",
			zap.String("seller_id", sellerID.String()),
			zap.Error(err))
		return nil, err
	}

	activeProducts, err := s.productRepo.CountActiveBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	return ToDashboardStatsResponse(report.NewSellerStats(sellerID, sales, activeProducts)), nil
}

// ToDashboardStatsResponse converts the read model into the API shape
func ToDashboardStatsResponse(stats *report.SellerStats) *DashboardStatsResponse {
	resp := &DashboardStatsResponse{
		TotalSold:     stats.TotalSold,
		TotalRevenue:  stats.TotalRevenue,
		TotalProducts: stats.TotalProducts,
	}
	if stats.BestSeller != nil {
		resp.BestSeller = &BestSellerResponse{
			ID:       stats.BestSeller.ProductID,
			Name:     stats.BestSeller.Name,
			ImageURL: stats.BestSeller.ImageURL,
		}
	}
	return resp
}
