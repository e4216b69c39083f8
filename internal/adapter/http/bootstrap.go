package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"todoapi/internal/adapter/database"
	"todoapi/internal/adapter/http/routes"
	adaptertelemetry "todoapi/internal/adapter/telemetry"
	"todoapi/pkg/config"
)

// StartServerWithConfig opens the store, serves the API and shuts everything
// down on SIGINT/SIGTERM.
func StartServerWithConfig(ctx context.Context, cfg *config.AppConfig, tel *adaptertelemetry.Container, logger *config.Logger) error {
	db, err := database.Open(ctx, cfg.Database, logger.Logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := tel.RegisterDBStats(db.DB, cfg.Database.Name); err != nil {
		logger.Logger.Warn("Failed to register database pool metrics", zap.Error(err))
	}

	container := NewContainer(db, tel.NewTelemetryProbe(logger), logger, cfg)

	router := routes.SetupRouterWithConfig(routes.HandlersConfig{
		TaskHandler:   container.TaskHandler,
		HealthHandler: container.HealthHandler,
	}, tel.AppMetrics, logger, cfg)

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)

	go func() {
		logger.Logger.Info("Server starting",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("database", db.Dialect.String()),
			zap.Bool("rate_limit_enabled", cfg.RateLimitEnabled),
			zap.Bool("https_enforced", cfg.EnforceHTTPS))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Logger.Error("Server failed to start", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	logger.Logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
