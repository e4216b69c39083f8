package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ct "todoapi/pkg/context"
	"todoapi/pkg/config"
	"todoapi/pkg/tracing"
)

// LoggingMiddleware writes one access log entry per request from the values
// RequestIDMiddleware stored, so it must run after it.
func LoggingMiddleware(logger *config.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		current := GetCurrent(c)

		path, _ := current.GetString(ct.PathKey)
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		method, _ := current.GetString(ct.MethodKey)
		clientIP, _ := current.GetString(ct.ClientIPKey)
		requestID, _ := current.GetString(ct.RequestIDKey)

		ctx := c.Request.Context()

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", clientIP),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", requestID),
		}

		if traceID := tracing.GetTraceID(ctx); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}

		if c.Writer.Status() >= 500 {
			logger.WarnWithTrace(ctx, "HTTP Request", fields...)
			return
		}

		logger.InfoWithTrace(ctx, "HTTP Request", fields...)
	}
}
