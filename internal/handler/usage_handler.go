package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/snackpdf/pdf-api/internal/dto"
	"github.com/snackpdf/pdf-api/internal/middleware"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
	"github.com/snackpdf/pdf-api/pkg/response"
)

type usageStatsProvider interface {
	Stats(ctx context.Context, userID string) (*dto.UsageStats, error)
}

// UsageHandler serves the quota dashboard endpoint.
type UsageHandler struct {
	stats usageStatsProvider
}

// NewUsageHandler constructs the handler.
func NewUsageHandler(stats usageStatsProvider) *UsageHandler {
	return &UsageHandler{stats: stats}
}

// Usage godoc
// @Summary Current quota position and recent tool activity
// @Tags Users
// @Produce json
// @Success 200 {object} dto.UsageResponse
// @Failure 401 {object} response.ErrorBody
// @Router /users/usage [get]
func (h *UsageHandler) Usage(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.stats.Stats(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.UsageResponse{Usage: *stats})
}
