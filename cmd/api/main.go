package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	httpadapter "todoapi/internal/adapter/http"
	"todoapi/internal/adapter/telemetry"
	"todoapi/pkg/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := config.NewLogger(cfg.Telemetry.ServiceName, cfg.Log)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}

	defer logger.Sync()

	tel, err := telemetry.NewContainer(ctx, cfg.Telemetry, cfg.Environment, logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	tel.AppMetrics.StartSystemMetrics(ctx)

	if err := httpadapter.StartServerWithConfig(ctx, cfg, tel, logger); err != nil {
		logger.Logger.Error("Server stopped with error", zap.Error(err))
		return
	}

	logger.Logger.Info("Shutting down gracefully...")
}
