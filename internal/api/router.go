package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"spain-energy/internal/api/handlers"
	"spain-energy/internal/api/middleware"
	"spain-energy/internal/data"
	"spain-energy/internal/observability/metrics"
	"spain-energy/internal/pipeline"
)

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Service        *pipeline.Service
	Cache          *data.RunCache
	Defaults       handlers.Defaults
	BatteryDir     string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(middleware.CORS(d.AllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))

	datasetHandler := handlers.NewDatasetHandler(d.Service, logger)
	analysisHandler := handlers.NewAnalysisHandler(d.Service, d.Defaults)
	rankHandler := handlers.NewRankHandler(d.Service, d.Defaults)
	batteryHandler := handlers.NewBatteryHandler(d.BatteryDir, logger)
	strategyHandler := handlers.NewStrategyHandler(d.Defaults)
	backtestHandler := handlers.NewBacktestHandler(d.Service, d.Cache, batteryHandler, d.Defaults, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/markets", datasetHandler.ListMarkets)
		api.GET("/profiles", datasetHandler.ListProfiles)
		api.GET("/profiles/rank", rankHandler.RankProfiles)
		api.GET("/profiles/:name/typical-day", datasetHandler.TypicalDay)

		api.GET("/batteries", batteryHandler.ListBatteries)
		api.GET("/strategies", strategyHandler.ListStrategies)

		api.GET("/prices/summary", analysisHandler.PriceSummary)
		api.GET("/prices/thresholds", analysisHandler.Thresholds)
		api.GET("/captured-prices", analysisHandler.CapturedPrices)
		api.GET("/captured-factors", analysisHandler.CapturedFactors)
		api.POST("/ppa", analysisHandler.PPA)

		api.POST("/bess", backtestHandler.RunBESS)
		api.POST("/bess/compare", backtestHandler.CompareBESS)
		api.GET("/bess/:id/ledger", backtestHandler.GetLedger)
		api.GET("/bess/:id/report.pdf", backtestHandler.GetReport)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return router
}
