package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/gobike-dashboard/internal/models"
	"github.com/jengzang/gobike-dashboard/internal/service"
	"github.com/jengzang/gobike-dashboard/pkg/response"
)

// maxSearchLimit caps the number of station matches per request
const maxSearchLimit = 100

// StationHandler handles station lookups
type StationHandler struct {
	dashboardService *service.DashboardService
}

// NewStationHandler creates a new station handler
func NewStationHandler(dashboardService *service.DashboardService) *StationHandler {
	return &StationHandler{dashboardService: dashboardService}
}

// Search handles GET /api/v1/stations/search
func (h *StationHandler) Search(c *gin.Context) {
	var query models.StationSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}
	if query.Limit < 0 || query.Limit > maxSearchLimit {
		response.BadRequest(c, "limit must be between 0 and 100", nil)
		return
	}

	matches, err := h.dashboardService.SearchStations(query.Q, query.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"query":   query.Q,
		"matches": matches,
	})
}
