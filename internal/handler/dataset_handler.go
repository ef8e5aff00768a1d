package handler

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/gobike-dashboard/internal/middleware"
	"github.com/jengzang/gobike-dashboard/internal/service"
	"github.com/jengzang/gobike-dashboard/pkg/response"
)

// DatasetHandler exposes the loaded dataset and its reload
type DatasetHandler struct {
	dashboardService *service.DashboardService
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(dashboardService *service.DashboardService) *DatasetHandler {
	return &DatasetHandler{dashboardService: dashboardService}
}

// GetInfo handles GET /api/v1/dataset
func (h *DatasetHandler) GetInfo(c *gin.Context) {
	info, err := h.dashboardService.DatasetInfo()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, info)
}

// Reload handles POST /api/v1/admin/dataset/reload
func (h *DatasetHandler) Reload(c *gin.Context) {
	if claims, ok := middleware.ClaimsFrom(c); ok {
		log.Printf("[Dataset] Reload requested by %s", claims.Subject)
	}

	info, err := h.dashboardService.Reload(c.Request.Context(), "admin")
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, info)
}
