package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"agile-live/internal/analysis"
	"agile-live/internal/api/models"
	"agile-live/internal/model"
	"agile-live/internal/pipeline"
	"agile-live/internal/render"
	"agile-live/internal/scheduler"
)

// PriceHandler serves analyses of the latest fetched prices. Every request
// re-runs the engine at request time, so current/next never go stale between
// refreshes.
type PriceHandler struct {
	refresher *scheduler.Refresher
	tariff    model.Tariff
	renderer  *render.Renderer
	now       func() time.Time
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(r *scheduler.Refresher, tariff model.Tariff, renderer *render.Renderer) *PriceHandler {
	return &PriceHandler{
		refresher: r,
		tariff:    tariff,
		renderer:  renderer,
		now:       time.Now,
	}
}

// Health handles GET /health
func (h *PriceHandler) Health(c *gin.Context) {
	resp := models.HealthResponse{
		Status: "ok",
		Time:   h.now(),
		Tariff: h.tariff.Code(),
	}
	if b := h.refresher.Latest(); b != nil {
		at := b.FetchedAt
		resp.HasData = true
		resp.FetchedAt = &at
		resp.Records = len(b.Records)
	}
	c.JSON(http.StatusOK, resp)
}

// GetCurrentPrices handles GET /api/v1/prices/current
func (h *PriceHandler) GetCurrentPrices(c *gin.Context) {
	res, err := h.refresher.Analyze(h.now())
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	snap := res.Snapshot()
	c.JSON(http.StatusOK, models.PricesResponse{
		Tariff:   h.tariff.Code(),
		Current:  snap.Current,
		Next:     snap.Next,
		Fallback: res.Fallback,
	})
}

// GetAnalysis handles GET /api/v1/analysis
func (h *PriceHandler) GetAnalysis(c *gin.Context) {
	res, err := h.refresher.Analyze(h.now())
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	resp := models.AnalysisResponse{
		Tariff:   h.tariff.Code(),
		Analysis: res.Snapshot(),
	}
	if b := h.refresher.Latest(); b != nil {
		at := b.FetchedAt
		resp.FetchedAt = &at
	}
	c.JSON(http.StatusOK, resp)
}

// GetChart handles GET /api/v1/chart
func (h *PriceHandler) GetChart(c *gin.Context) {
	res, ok := h.chartResult(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.ChartResponse{
		Geometry: res.Geometry,
		Commands: res.Geometry.Commands(),
	})
}

// GetChartPNG handles GET /api/v1/chart.png. Without data it still answers
// with an image, carrying a 503 status.
func (h *PriceHandler) GetChartPNG(c *gin.Context) {
	var q models.CanvasQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	eng, err := withCanvas(h.refresher.Engine, &q)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "no-cache")

	res, err := h.analyzeWith(eng)
	if err != nil {
		cv := eng.Options().Canvas
		c.Status(http.StatusServiceUnavailable)
		_ = h.renderer.NoData(c.Writer, int(cv.Width), int(cv.Height), "No data")
		return
	}
	c.Status(http.StatusOK)
	if err := h.renderer.EncodePNG(c.Writer, res.Geometry); err != nil {
		_ = c.Error(err)
	}
}

func (h *PriceHandler) chartResult(c *gin.Context) (*pipeline.Result, bool) {
	var q models.CanvasQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return nil, false
	}
	eng, err := withCanvas(h.refresher.Engine, &q)
	if err != nil {
		respondAnalysisError(c, err)
		return nil, false
	}
	res, err := h.analyzeWith(eng)
	if err != nil {
		respondAnalysisError(c, err)
		return nil, false
	}
	return res, true
}

func (h *PriceHandler) analyzeWith(eng *pipeline.Engine) (*pipeline.Result, error) {
	b := h.refresher.Latest()
	if b == nil {
		return nil, analysis.ErrNoData
	}
	return eng.Run(b.Records, h.now())
}

// withCanvas returns eng itself when q asks for no change.
func withCanvas(eng *pipeline.Engine, q *models.CanvasQuery) (*pipeline.Engine, error) {
	if q == nil || (q.Width == 0 && q.Height == 0) {
		return eng, nil
	}
	cv := eng.Options().Canvas
	if q.Width != 0 {
		cv.Width = float64(q.Width)
	}
	if q.Height != 0 {
		cv.Height = float64(q.Height)
	}
	return eng.WithCanvas(cv)
}
