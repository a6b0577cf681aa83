package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agile-live/internal/api/models"
	"agile-live/internal/config"
)

// TariffHandler lists the tariff presets under configs/tariffs.
type TariffHandler struct {
	tariffDir string
	active    string
}

// NewTariffHandler creates a new tariff handler. An empty dir falls back to
// AGILE_TARIFF_DIR, then ./configs/tariffs. active is the tariff code the
// server is currently analysing.
func NewTariffHandler(dir, active string) *TariffHandler {
	if dir == "" {
		dir = os.Getenv("AGILE_TARIFF_DIR")
	}
	if dir == "" {
		dir = filepath.Join("configs", "tariffs")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &TariffHandler{tariffDir: dir, active: active}
}

// ListTariffs handles GET /api/v1/tariffs
func (h *TariffHandler) ListTariffs(c *gin.Context) {
	tariffs := []models.TariffInfo{}

	entries, err := os.ReadDir(h.tariffDir)
	if err != nil {
		zap.L().Debug("[API] Tariff directory unreadable", zap.String("dir", h.tariffDir), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"tariffs": tariffs, "active": h.active})
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(h.tariffDir, name)
		tc, err := config.LoadTariffFile(path)
		if err != nil {
			zap.L().Warn("[API] Skipping tariff preset", zap.String("file", path), zap.Error(err))
			continue
		}
		t := tc.ToModel()
		if err := t.Validate(); err != nil {
			zap.L().Warn("[API] Skipping invalid tariff preset", zap.String("file", path), zap.Error(err))
			continue
		}

		id := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		display := tc.Name
		if display == "" {
			display = id
		}
		tariffs = append(tariffs, models.TariffInfo{
			ID:          id,
			Name:        display,
			ProductCode: t.ProductCode,
			Region:      strings.ToUpper(t.Region),
			Code:        t.Code(),
			Active:      t.Code() == h.active,
		})
	}
	sort.Slice(tariffs, func(i, j int) bool { return tariffs[i].ID < tariffs[j].ID })

	c.JSON(http.StatusOK, gin.H{"tariffs": tariffs, "active": h.active})
}
