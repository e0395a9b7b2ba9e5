package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"spain-energy/internal/api"
	"spain-energy/internal/api/handlers"
	"spain-energy/internal/config"
	"spain-energy/internal/data"
	"spain-energy/internal/observability/metrics"
	"spain-energy/internal/pipeline"
	"spain-energy/internal/store"
)

const runCacheTTL = time.Hour

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("api server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := config.Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := config.LoadUnchecked(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logger.Info("loaded config", "path", path)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	reader, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	cancel()
	if err != nil {
		return err
	}
	defer reader.Close()
	logger.Info("storage ready", "driver", cfg.Storage.Driver)

	defaults, err := handlers.DefaultsFromConfig(cfg)
	if err != nil {
		return err
	}

	metrics.Init()

	svc := pipeline.New(reader, reader,
		pipeline.WithLogger(logger.With("component", "pipeline")),
		pipeline.WithForecastMarkets(cfg.Markets.Forecasts...),
	)
	cache := data.NewRunCache(runCacheTTL)
	defer cache.Close()

	if cfg.Server.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Service:        svc,
		Cache:          cache,
		Defaults:       defaults,
		BatteryDir:     cfg.Server.BatteryDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger.With("component", "api"),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("starting API server", "addr", addr)
	return router.Run(addr)
}
