package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"todoapi/internal/core/model/response"
	"todoapi/internal/core/telemetry"
	"todoapi/pkg/config"
)

func newTestLimiter(configs map[string]config.RateLimitConfig) *RateLimiter {
	return NewRateLimiter(configs, zap.NewNop(), telemetry.NewAppMetrics(prometheus.NewRegistry()))
}

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	_ = router.SetTrustedProxies(nil)
	router.Use(rl.RateLimitMiddleware())

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	router.GET("/todos", ok)
	router.POST("/todos", ok)
	router.GET("/todos/:id", ok)
	router.GET("/health", ok)

	return router
}

func doRequest(router *gin.Engine, method, path string, headers ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	router.ServeHTTP(w, req)

	return w
}

func TestNewRateLimiter_AddsDefault(t *testing.T) {
	RegisterTestingT(t)

	rl := newTestLimiter(nil)

	Expect(rl.config).To(HaveKey(defaultRateLimitKey))
	Expect(rl.config[defaultRateLimitKey].Requests).To(Equal(60))
}

func TestRateLimitMiddleware_AllowedRequests(t *testing.T) {
	RegisterTestingT(t)

	router := newLimitedRouter(newTestLimiter(config.GetDefaultConfig().RateLimitConfigs))

	for i := 0; i < 5; i++ {
		w := doRequest(router, "GET", "/todos")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal("100"))
		Expect(w.Header().Get("X-RateLimit-Remaining")).ToNot(BeEmpty())
	}
}

func TestRateLimitMiddleware_ExceedLimit(t *testing.T) {
	RegisterTestingT(t)

	router := newLimitedRouter(newTestLimiter(map[string]config.RateLimitConfig{
		"POST /todos": {Requests: 3, Window: time.Minute},
	}))

	for i := 0; i < 3; i++ {
		Expect(doRequest(router, "POST", "/todos").Code).To(Equal(http.StatusOK))
	}

	w := doRequest(router, "POST", "/todos")

	Expect(w.Code).To(Equal(http.StatusTooManyRequests))
	Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal("0"))
	Expect(w.Header().Get("Retry-After")).ToNot(BeEmpty())

	var body response.ErrorResponse
	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	Expect(body.Error.Code).To(Equal("RATE_LIMIT_EXCEEDED"))
}

func TestRateLimitMiddleware_LookupOrder(t *testing.T) {
	RegisterTestingT(t)

	router := newLimitedRouter(newTestLimiter(map[string]config.RateLimitConfig{
		"GET /todos": {Requests: 10, Window: time.Minute},
		"/todos/:id": {Requests: 20, Window: time.Minute},
		"default":    {Requests: 30, Window: time.Minute},
	}))

	Expect(doRequest(router, "GET", "/todos").Header().Get("X-RateLimit-Limit")).To(Equal("10"))
	Expect(doRequest(router, "GET", "/todos/7").Header().Get("X-RateLimit-Limit")).To(Equal("20"))
	Expect(doRequest(router, "GET", "/health").Header().Get("X-RateLimit-Limit")).To(Equal("30"))
}

func doRequestFrom(router *gin.Engine, remoteAddr, path string, headers ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	req.RemoteAddr = remoteAddr

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	router.ServeHTTP(w, req)

	return w
}

func TestRateLimitMiddleware_ClientsAreSeparate(t *testing.T) {
	RegisterTestingT(t)

	router := newLimitedRouter(newTestLimiter(map[string]config.RateLimitConfig{
		"GET /health": {Requests: 1, Window: time.Minute},
	}))

	Expect(doRequestFrom(router, "10.0.0.1:4000", "/health").Code).To(Equal(http.StatusOK))
	Expect(doRequestFrom(router, "10.0.0.1:4001", "/health").Code).To(Equal(http.StatusTooManyRequests))
	Expect(doRequestFrom(router, "10.0.0.2:4000", "/health").Code).To(Equal(http.StatusOK))
}

func TestRateLimitMiddleware_IgnoresForwardedHeaderFromUntrustedPeer(t *testing.T) {
	RegisterTestingT(t)

	router := newLimitedRouter(newTestLimiter(map[string]config.RateLimitConfig{
		"GET /health": {Requests: 1, Window: time.Minute},
	}))

	Expect(doRequestFrom(router, "198.51.100.7:5000", "/health", "X-Forwarded-For", "10.0.0.1").Code).To(Equal(http.StatusOK))
	Expect(doRequestFrom(router, "198.51.100.7:5000", "/health", "X-Forwarded-For", "10.0.0.2").Code).To(Equal(http.StatusTooManyRequests))
	Expect(doRequestFrom(router, "198.51.100.7:5000", "/health", "X-Real-IP", "10.0.0.3").Code).To(Equal(http.StatusTooManyRequests))
}

func TestRateLimitMiddleware_TrustedProxyForwardsClient(t *testing.T) {
	RegisterTestingT(t)

	router := newLimitedRouter(newTestLimiter(map[string]config.RateLimitConfig{
		"GET /health": {Requests: 1, Window: time.Minute},
	}))
	Expect(router.SetTrustedProxies([]string{"192.0.2.10"})).To(Succeed())

	Expect(doRequestFrom(router, "192.0.2.10:80", "/health", "X-Forwarded-For", "203.0.113.1").Code).To(Equal(http.StatusOK))
	Expect(doRequestFrom(router, "192.0.2.10:80", "/health", "X-Forwarded-For", "203.0.113.1").Code).To(Equal(http.StatusTooManyRequests))
	Expect(doRequestFrom(router, "192.0.2.10:80", "/health", "X-Forwarded-For", "203.0.113.2").Code).To(Equal(http.StatusOK))
}

func TestRateLimitMiddleware_WindowResets(t *testing.T) {
	RegisterTestingT(t)

	rl := newTestLimiter(map[string]config.RateLimitConfig{
		"GET /health": {Requests: 1, Window: time.Minute},
	})

	now := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	router := newLimitedRouter(rl)

	Expect(doRequest(router, "GET", "/health").Code).To(Equal(http.StatusOK))
	Expect(doRequest(router, "GET", "/health").Code).To(Equal(http.StatusTooManyRequests))

	now = now.Add(61 * time.Second)

	Expect(doRequest(router, "GET", "/health").Code).To(Equal(http.StatusOK))
}

func TestRateLimitMiddleware_ConcurrentRequests(t *testing.T) {
	RegisterTestingT(t)

	router := newLimitedRouter(newTestLimiter(map[string]config.RateLimitConfig{
		"GET /todos": {Requests: 50, Window: time.Minute},
	}))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)

	for i := 0; i < 80; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if doRequest(router, "GET", "/todos").Code == http.StatusOK {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	Expect(accepted).To(Equal(50))
}

func TestNormalizePath(t *testing.T) {
	RegisterTestingT(t)

	rl := newTestLimiter(nil)

	Expect(rl.normalizePath("/todos/42")).To(Equal("/todos/:id"))
	Expect(rl.normalizePath("/todos/search")).To(Equal("/todos/search"))
	Expect(rl.normalizePath("/health")).To(Equal("/health"))
}

func TestGetClientIP(t *testing.T) {
	RegisterTestingT(t)

	gin.SetMode(gin.TestMode)

	c, engine := gin.CreateTestContext(httptest.NewRecorder())
	Expect(engine.SetTrustedProxies(nil)).To(Succeed())

	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = "198.51.100.4:1234"
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.9")

	Expect(GetClientIP(c)).To(Equal("198.51.100.4"))

	Expect(engine.SetTrustedProxies([]string{"198.51.100.0/24"})).To(Succeed())

	Expect(GetClientIP(c)).To(Equal("203.0.113.9"))

	c.Request.RemoteAddr = ""

	Expect(GetClientIP(c)).To(Equal("unknown"))
}
