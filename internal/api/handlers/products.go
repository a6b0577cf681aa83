package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"agile-live/internal/api/models"
	"agile-live/internal/data"
)

// ProductHandler serves the local Agile product catalogue written by
// cmd/update-products.
type ProductHandler struct {
	path string
	now  func() time.Time
}

// NewProductHandler creates a new product handler
func NewProductHandler(path string) *ProductHandler {
	if path == "" {
		path = data.GetDefaultProductsPath()
	}
	return &ProductHandler{path: path, now: time.Now}
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	list, err := data.LoadProducts(h.path)
	if err != nil {
		// If file doesn't exist, return empty list (not an error)
		if !errors.Is(err, os.ErrNotExist) {
			respondError(c, http.StatusInternalServerError, "PRODUCTS_LOAD_ERROR",
				fmt.Sprintf("Failed to load products: %v", err), nil)
			return
		}
		list = &data.ProductList{}
	}

	now := h.now()
	onlyAvailable := c.Query("available") == "true"
	products := make([]models.ProductInfo, 0, len(list.Products))
	for _, p := range list.Products {
		available := p.AvailableAt(now)
		if onlyAvailable && !available {
			continue
		}
		products = append(products, models.ProductInfo{
			Code:          p.Code,
			DisplayName:   p.DisplayName,
			FullName:      p.FullName,
			AvailableFrom: p.AvailableFrom,
			AvailableTo:   p.AvailableTo,
			Available:     available,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"products":   products,
		"updated_at": list.UpdatedAt,
		"count":      len(products),
	})
}
