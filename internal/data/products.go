package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"agile-live/internal/model"
)

// ProductList is the local Agile product catalogue.
type ProductList struct {
	UpdatedAt string          `json:"updated_at"` // ISO 8601 timestamp
	Products  []model.Product `json:"products"`
}

// NewProductList keeps the Agile import products from a full listing, sorted by code.
func NewProductList(all []model.Product, now time.Time) *ProductList {
	list := &ProductList{UpdatedAt: now.UTC().Format(time.RFC3339)}
	for _, p := range all {
		if p.IsAgile() {
			list.Products = append(list.Products, p)
		}
	}
	sort.Slice(list.Products, func(i, j int) bool { return list.Products[i].Code < list.Products[j].Code })
	return list
}

// Find returns the product with the given code.
func (l *ProductList) Find(code string) (model.Product, bool) {
	for _, p := range l.Products {
		if p.Code == code {
			return p, true
		}
	}
	return model.Product{}, false
}

// LoadProducts loads the catalogue from a JSON file
func LoadProducts(filePath string) (*ProductList, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read products file: %w", err)
	}

	var list ProductList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse products file: %w", err)
	}

	return &list, nil
}

// SaveProducts saves the catalogue to a JSON file
func SaveProducts(list *ProductList, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal products: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write products file: %w", err)
	}

	return nil
}

// GetDefaultProductsPath returns the default path for the products file
func GetDefaultProductsPath() string {
	if path := os.Getenv("AGILE_PRODUCTS_FILE"); path != "" {
		return path
	}
	return "./data/products.json"
}
