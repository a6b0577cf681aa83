package models

import (
	"time"

	"agile-live/internal/chart"
	"agile-live/internal/format"
	"agile-live/internal/pipeline"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string     `json:"status"`
	Time      time.Time  `json:"time"`
	Tariff    string     `json:"tariff"`
	HasData   bool       `json:"has_data"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	Records   int        `json:"records"`
}

// PricesResponse is returned by GET /api/v1/prices/current.
type PricesResponse struct {
	Tariff   string             `json:"tariff"`
	Current  *pipeline.SlotView `json:"current"`
	Next     *pipeline.SlotView `json:"next"`
	Fallback bool               `json:"fallback"`
}

// AnalysisResponse is returned by GET /api/v1/analysis and POST /api/v1/analyze.
type AnalysisResponse struct {
	Tariff    string            `json:"tariff,omitempty"`
	FetchedAt *time.Time        `json:"fetched_at,omitempty"`
	Analysis  pipeline.Snapshot `json:"analysis"`
	Geometry  *chart.Geometry   `json:"geometry,omitempty"`
}

// ChartResponse is returned by GET /api/v1/chart.
type ChartResponse struct {
	Geometry chart.Geometry  `json:"geometry"`
	Commands []chart.Command `json:"commands"`
}

// ProductInfo represents one Agile product in the local catalogue
type ProductInfo struct {
	Code          string     `json:"code"`
	DisplayName   string     `json:"display_name"`
	FullName      string     `json:"full_name"`
	AvailableFrom *time.Time `json:"available_from,omitempty"`
	AvailableTo   *time.Time `json:"available_to,omitempty"`
	Available     bool       `json:"available"`
}

// TariffInfo describes one tariff preset file
type TariffInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProductCode string `json:"product_code"`
	Region      string `json:"region"`
	Code        string `json:"code"`
	Active      bool   `json:"active"`
}

// TierInfo is one entry of the price tier legend. Below is the exclusive
// upper bound; AtMost the inclusive one.
type TierInfo struct {
	Name        format.Tier `json:"name"`
	Description string      `json:"description"`
	Below       *float64    `json:"below,omitempty"`
	AtMost      *float64    `json:"at_most,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
