package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"todoapi/internal/core/model/response"
	"todoapi/internal/core/telemetry"
	"todoapi/pkg/config"
)

const defaultRateLimitKey = "default"

type RateLimitEndpointConfig struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(*gin.Context) string
}

// RateLimiter counts requests per client in fixed windows. Limits are looked
// up by "METHOD /route", then "/route", then "default".
type RateLimiter struct {
	cache   *cache.Cache
	config  map[string]RateLimitEndpointConfig
	logger  *zap.Logger
	metrics *telemetry.AppMetrics
	mutex   sync.RWMutex
	now     func() time.Time
}

type RateLimitEntry struct {
	Count     int
	ResetTime time.Time
}

func NewRateLimiter(configs map[string]config.RateLimitConfig, logger *zap.Logger, metrics *telemetry.AppMetrics) *RateLimiter {
	rl := &RateLimiter{
		cache:   cache.New(5*time.Minute, 10*time.Minute),
		config:  make(map[string]RateLimitEndpointConfig, len(configs)+1),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}

	for key, cfg := range configs {
		rl.config[key] = RateLimitEndpointConfig{
			Requests: cfg.Requests,
			Window:   cfg.Window,
			KeyFunc:  GetClientIP,
		}
	}

	if _, ok := rl.config[defaultRateLimitKey]; !ok {
		rl.config[defaultRateLimitKey] = RateLimitEndpointConfig{
			Requests: 60,
			Window:   time.Minute,
			KeyFunc:  GetClientIP,
		}
	}

	return rl
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = rl.normalizePath(c.Request.URL.Path)
		}

		methodPath := c.Request.Method + " " + path
		cfg := rl.lookup(methodPath, path)
		key := rl.generateKey(c, methodPath, cfg.KeyFunc)

		allowed, remaining, resetTime := rl.checkRateLimit(key, cfg)

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(c.Request.Context(), path, "ip")
			}

			rl.logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", path),
				zap.Int("limit", cfg.Requests),
				zap.Duration("window", cfg.Window))

			retryAfter := int(resetTime.Sub(rl.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponse{
				Error: response.ResponseError{
					Code: "RATE_LIMIT_EXCEEDED",
					Errors: []response.ValidationError{{
						Field:   "request",
						Message: fmt.Sprintf("Too many requests. Limit: %d per %v", cfg.Requests, cfg.Window),
					}},
					Details: gin.H{"retry_after": retryAfter},
				},
			})
			return
		}

		if rl.metrics != nil {
			rl.metrics.RecordRateLimitAllowed(c.Request.Context(), path, "ip")
		}

		c.Next()
	}
}

func (rl *RateLimiter) lookup(methodPath, path string) RateLimitEndpointConfig {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	if cfg, ok := rl.config[methodPath]; ok {
		return cfg
	}

	if cfg, ok := rl.config[path]; ok {
		return cfg
	}

	return rl.config[defaultRateLimitKey]
}

func (rl *RateLimiter) checkRateLimit(key string, cfg RateLimitEndpointConfig) (bool, int, time.Time) {
	now := rl.now()

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if entry, found := rl.cache.Get(key); found {
		rateLimitEntry := entry.(RateLimitEntry)

		if now.Before(rateLimitEntry.ResetTime) {
			if rateLimitEntry.Count >= cfg.Requests {
				return false, 0, rateLimitEntry.ResetTime
			}

			rateLimitEntry.Count++
			rl.cache.Set(key, rateLimitEntry, rateLimitEntry.ResetTime.Sub(now))

			return true, cfg.Requests - rateLimitEntry.Count, rateLimitEntry.ResetTime
		}
	}

	resetTime := now.Add(cfg.Window)
	rl.cache.Set(key, RateLimitEntry{Count: 1, ResetTime: resetTime}, cfg.Window)

	return true, cfg.Requests - 1, resetTime
}

// normalizePath folds ids so unmatched paths under /todos share a bucket.
func (rl *RateLimiter) normalizePath(path string) string {
	if strings.HasPrefix(path, "/todos/") {
		parts := strings.Split(path, "/")
		if len(parts) >= 3 && parts[2] != "search" && parts[2] != "stats" {
			parts[2] = ":id"
			return strings.Join(parts, "/")
		}
	}
	return path
}

func (rl *RateLimiter) generateKey(c *gin.Context, path string, keyFunc func(*gin.Context) string) string {
	return fmt.Sprintf("rate_limit:%s:%s", path, keyFunc(c))
}

// GetClientIP is the address gin resolves for the request; forwarding
// headers count only when the peer is a trusted proxy.
func GetClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	return "unknown"
}
