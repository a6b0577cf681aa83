package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agile-live/internal/analysis"
	"agile-live/internal/api/models"
	"agile-live/internal/chart"
)

func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondAnalysisError maps pipeline errors onto the error envelope.
func respondAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analysis.ErrNoData):
		respondError(c, http.StatusServiceUnavailable, "NO_DATA", "No price data available yet", nil)
	case errors.Is(err, chart.ErrInvalidCanvas):
		respondError(c, http.StatusBadRequest, "INVALID_CANVAS", err.Error(), nil)
	default:
		zap.L().Error("[API] Analysis failed", zap.Error(err))
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "ANALYSIS_ERROR", err.Error(), nil)
	}
}
