package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/middleware"
)

// DashboardController serves the reporting endpoints
type DashboardController struct {
	dashboardService services.DashboardService
}

// NewDashboardController creates a new DashboardController
func NewDashboardController(dashboardService services.DashboardService) *DashboardController {
	return &DashboardController{
		dashboardService: dashboardService,
	}
}

// GetDashboard returns the dashboard totals
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	d, err := c.dashboardService.GetDashboard(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(d))
}

// GetCapaian returns the response rate per faculty and program
func (c *DashboardController) GetCapaian(ctx *gin.Context) {
	capaian, err := c.dashboardService.GetCapaian(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(capaian))
}

// GetRiwayat returns the achievement history per graduation year
func (c *DashboardController) GetRiwayat(ctx *gin.Context) {
	var q dto.RiwayatQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	riwayat, err := c.dashboardService.GetRiwayat(ctx.Request.Context(), q.Year)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(riwayat))
}
