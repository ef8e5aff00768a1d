package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
	"github.com/jengzang/gobike-dashboard/pkg/response"
)

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidFilter):
		response.BadRequest(c, "Invalid filter", err)
	case errors.Is(err, dataset.ErrNoDataset):
		response.ServiceUnavailable(c, "Dataset not loaded", err)
	case errors.Is(err, dataset.ErrMissingColumn):
		response.ServiceUnavailable(c, "Dataset is missing required columns", err)
	default:
		response.InternalError(c, "Internal error", err)
	}
}
