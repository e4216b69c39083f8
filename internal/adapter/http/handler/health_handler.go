package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoapi/internal/core/model/response"
	"todoapi/internal/core/port"
	"todoapi/pkg/config"
	"todoapi/pkg/tracing"
)

type HealthHandler struct {
	svc     port.TaskService
	Logger  *config.Logger
	version string
}

func NewHealthHandler(svc port.TaskService, logger *config.Logger, version string) *HealthHandler {
	return &HealthHandler{
		svc:     svc,
		Logger:  logger,
		version: version,
	}
}

// Health pings the store; 503 tells orchestrators to stop routing here.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	if err := tracing.SpanWrapper(ctx, "HealthHandler.Health", nil, h.svc.Health); err != nil {
		h.Logger.WarnWithTrace(ctx, "Health check failed", zap.Error(err))

		c.JSON(http.StatusServiceUnavailable, response.HealthResponse{
			Status:   "unhealthy",
			Database: "unhealthy",
			Message:  "Database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, response.HealthResponse{
		Status:   "healthy",
		Database: "healthy",
		Message:  "Application is running normally",
	})
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, response.RootResponse{
		Message: "Welcome to Todo API Backend",
		Version: h.version,
		Health:  "/health",
	})
}
