package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"agile-live/internal/api/models"
	"agile-live/internal/pipeline"
)

// AnalyzeHandler runs the pipeline over caller-supplied records. It shares
// nothing with the scheduled refresh.
type AnalyzeHandler struct {
	engine *pipeline.Engine
	now    func() time.Time
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(engine *pipeline.Engine) *AnalyzeHandler {
	return &AnalyzeHandler{engine: engine, now: time.Now}
}

// Analyze handles POST /api/v1/analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	eng := h.engine
	if req.Timezone != "" {
		loc, err := time.LoadLocation(req.Timezone)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_TIMEZONE", err.Error(),
				map[string]interface{}{"timezone": req.Timezone})
			return
		}
		opts := eng.Options()
		opts.Location = loc
		if eng, err = pipeline.New(opts); err != nil {
			respondAnalysisError(c, err)
			return
		}
	}
	eng, err := withCanvas(eng, req.Canvas)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	now := h.now()
	if req.Now != nil {
		now = *req.Now
	}
	res, err := eng.Run(req.Results, now)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	resp := models.AnalysisResponse{Analysis: res.Snapshot()}
	if req.IncludeGeometry {
		g := res.Geometry
		resp.Geometry = &g
	}
	c.JSON(http.StatusOK, resp)
}
