package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	reportapp "github.com/marketplace/backend/internal/application/report"
)

// DashboardService computes seller statistics
type DashboardService interface {
	GetStats(ctx context.Context, sellerID uuid.UUID) (*reportapp.DashboardStatsResponse, error)
}

// DashboardHandler serves the seller dashboard
type DashboardHandler struct {
	BaseHandler
	dashboardService DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Stats godoc
// @ID           getDashboardStats
// @Summary      Seller sales statistics
// @Description  Units sold, revenue, active products and the best seller
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[reportapp.DashboardStatsResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	sellerID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.dashboardService.GetStats(c.Request.Context(), sellerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
