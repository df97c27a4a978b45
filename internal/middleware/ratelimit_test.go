package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/config"
)

func TestRateLimitWithoutRedisPassesThrough(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Burst: 1, RefillEvery: time.Second, TTL: time.Minute, Prefix: "rate"}
	e := echo.New()
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, RateLimit(cfg, nil))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
}

func TestBucketKeyScopesClientAndRoute(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkin/confirm", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/checkin/confirm")

	key := bucketKey("rate", c)
	for _, want := range []string{"rate:", "10.0.0.7", "POST /v1/checkin/confirm"} {
		if !strings.Contains(key, want) {
			t.Errorf("key %q missing %q", key, want)
		}
	}
}
