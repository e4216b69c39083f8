package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoapi/internal/adapter/http/handler"
	"todoapi/internal/adapter/http/middleware"
	"todoapi/internal/core/telemetry"
	"todoapi/pkg/config"
)

type HandlersConfig struct {
	TaskHandler   *handler.TaskHandler
	HealthHandler *handler.HealthHandler
}

func SetupRouter(handlers HandlersConfig, metrics *telemetry.AppMetrics, logger *config.Logger) *gin.Engine {
	return SetupRouterWithConfig(handlers, metrics, logger, config.GetDefaultConfig())
}

func SetupRouterWithConfig(handlers HandlersConfig, metrics *telemetry.AppMetrics, logger *config.Logger, cfg *config.AppConfig) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Logger.Warn("Ignoring invalid trusted proxies", zap.Strings("trusted_proxies", cfg.Server.TrustedProxies), zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	middleware.SetupGinMiddleware(router, cfg, metrics, logger)

	if handlers.HealthHandler != nil {
		router.GET("/", handlers.HealthHandler.Root)
		router.GET("/health", handlers.HealthHandler.Health)
	}

	if handlers.TaskHandler != nil {
		setupTaskRoutes(router, handlers.TaskHandler)
	}

	return router
}

func setupTaskRoutes(router *gin.Engine, taskHandler *handler.TaskHandler) {
	todos := router.Group("/todos")
	{
		todos.GET("", taskHandler.List)
		todos.POST("", taskHandler.Create)
		todos.GET("/search", taskHandler.Search)
		todos.GET("/stats", taskHandler.Stats)
		todos.GET("/:id", taskHandler.Get)
		todos.PUT("/:id", taskHandler.Update)
		todos.PATCH("/:id", taskHandler.Update)
		todos.DELETE("/:id", taskHandler.Delete)
	}
}
