package model

import (
	"strings"
	"time"
)

// Product is one entry of the Octopus product listing.
type Product struct {
	Code          string     `json:"code" yaml:"code"`
	Direction     string     `json:"direction" yaml:"direction"` // IMPORT or EXPORT
	FullName      string     `json:"full_name" yaml:"full_name"`
	DisplayName   string     `json:"display_name" yaml:"display_name"`
	Brand         string     `json:"brand" yaml:"brand"`
	IsVariable    bool       `json:"is_variable" yaml:"is_variable"`
	IsGreen       bool       `json:"is_green" yaml:"is_green"`
	IsTracker     bool       `json:"is_tracker" yaml:"is_tracker"`
	IsBusiness    bool       `json:"is_business" yaml:"is_business"`
	AvailableFrom *time.Time `json:"available_from" yaml:"available_from"`
	AvailableTo   *time.Time `json:"available_to" yaml:"available_to"`
}

// IsAgile reports whether the product is a half-hourly Agile import tariff.
func (p Product) IsAgile() bool {
	return strings.HasPrefix(p.Code, "AGILE-") && p.Direction != "EXPORT"
}

// AvailableAt reports whether the product can be joined at t.
func (p Product) AvailableAt(t time.Time) bool {
	if p.AvailableFrom != nil && t.Before(*p.AvailableFrom) {
		return false
	}
	return p.AvailableTo == nil || t.Before(*p.AvailableTo)
}

// ProductsResponse matches the paginated /v1/products/ listing.
type ProductsResponse struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Product `json:"results"`
}
