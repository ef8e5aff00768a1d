package handler

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/gobike-dashboard/internal/models"
	"github.com/jengzang/gobike-dashboard/internal/service"
	"github.com/jengzang/gobike-dashboard/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DashboardHandler handles HTTP requests for the dashboard
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard handles GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	var query models.DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	bundle, err := h.dashboardService.Evaluate(query.FilterState(), query.Top, "http")
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, bundle)
}

// GetOptions handles GET /api/v1/dashboard/options
func (h *DashboardHandler) GetOptions(c *gin.Context) {
	response.Success(c, h.dashboardService.Options())
}

// Export handles GET /api/v1/dashboard/export
func (h *DashboardHandler) Export(c *gin.Context) {
	var query models.DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	// Buffer so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err := h.dashboardService.Export(&buf, query.FilterState(), query.Top); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("gobike-dashboard-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, xlsxContentType, buf.Bytes())
}
