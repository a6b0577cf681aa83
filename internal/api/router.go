package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agile-live/internal/api/handlers"
	"agile-live/internal/api/middleware"
	"agile-live/internal/metrics"
	"agile-live/internal/model"
	"agile-live/internal/render"
	"agile-live/internal/scheduler"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Refresher    *scheduler.Refresher
	Tariff       model.Tariff
	Renderer     *render.Renderer
	Metrics      *metrics.Metrics
	Hub          http.Handler // optional WebSocket endpoint
	ProductsPath string
	TariffDir    string
	CORSOrigins  []string
	StaticDir    string
}

// NewRouter wires middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(d.Metrics.Middleware())

	prices := handlers.NewPriceHandler(d.Refresher, d.Tariff, d.Renderer)
	analyze := handlers.NewAnalyzeHandler(d.Refresher.Engine)
	products := handlers.NewProductHandler(d.ProductsPath)
	tariffs := handlers.NewTariffHandler(d.TariffDir, d.Tariff.Code())

	router.GET("/health", prices.Health)
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/prices/current", prices.GetCurrentPrices)
		v1.GET("/analysis", prices.GetAnalysis)
		v1.GET("/chart", prices.GetChart)
		v1.GET("/chart.png", prices.GetChartPNG)
		v1.GET("/products", products.ListProducts)
		v1.GET("/tariffs", tariffs.ListTariffs)
		v1.GET("/tiers", handlers.ListTiers)
		v1.POST("/analyze", analyze.Analyze)
		if d.Hub != nil {
			v1.GET("/ws", gin.WrapH(d.Hub))
		}
	}

	notFound := middleware.NotFound()
	if d.StaticDir != "" {
		if _, err := os.Stat(d.StaticDir); err == nil {
			router.Static("/assets", d.StaticDir+"/assets")
			router.StaticFile("/favicon.ico", d.StaticDir+"/favicon.ico")

			// Serve index.html for all non-API routes (SPA routing)
			router.NoRoute(func(c *gin.Context) {
				if strings.HasPrefix(c.Request.URL.Path, "/api") {
					notFound(c)
					return
				}
				c.File(d.StaticDir + "/index.html")
			})
			zap.L().Info("[API] Serving static files", zap.String("dir", d.StaticDir))
			return router
		}
		zap.L().Info("[API] Static directory not found, skipping static file serving", zap.String("dir", d.StaticDir))
	}
	router.NoRoute(notFound)
	return router
}
