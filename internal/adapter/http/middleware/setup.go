package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"todoapi/internal/core/telemetry"
	"todoapi/pkg/config"
)

// SetupGinMiddleware installs the middleware chain in order: HTTPS redirect,
// request id, tracing, access log, CORS, rate limiting, metrics.
func SetupGinMiddleware(router *gin.Engine, cfg *config.AppConfig, metrics *telemetry.AppMetrics, logger *config.Logger) {
	httpsEnforcer := NewHTTPSEnforcer(cfg.EnforceHTTPS, logger.Logger.Logger)
	router.Use(httpsEnforcer.HTTPSMiddleware())

	router.Use(RequestIDMiddleware())

	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))

	router.Use(LoggingMiddleware(logger))

	router.Use(CORSMiddleware(cfg.CORS))

	if cfg.RateLimitEnabled {
		rateLimiter := NewRateLimiter(cfg.RateLimitConfigs, logger.Logger.Logger, metrics)
		router.Use(rateLimiter.RateLimitMiddleware())
	}

	if metrics != nil {
		router.Use(MetricsMiddleware(metrics))
	}
}
