package models

import (
	"time"

	"agile-live/internal/model"
)

// AnalyzeRequest is the body of POST /api/v1/analyze. Results uses the same
// shape as the pricing API so a saved response can be posted as-is.
type AnalyzeRequest struct {
	Results []model.PriceRecord `json:"results" binding:"required"`
	// Now defaults to the server time.
	Now *time.Time `json:"now,omitempty"`
	// Timezone overrides the configured analysis timezone.
	Timezone string       `json:"timezone,omitempty"`
	Canvas   *CanvasQuery `json:"canvas,omitempty"`
	// IncludeGeometry adds the chart layout to the response.
	IncludeGeometry bool `json:"include_geometry,omitempty"`
}

// CanvasQuery overrides the configured chart size.
type CanvasQuery struct {
	Width  int `form:"width" json:"width" binding:"omitempty,min=100,max=4000"`
	Height int `form:"height" json:"height" binding:"omitempty,min=80,max=4000"`
}
