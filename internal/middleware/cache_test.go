package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/config"
	"github.com/iliyamo/boat-boarding/internal/utils"
)

type memStore struct {
	entries map[string][]byte
}

func newMemStore() *memStore { return &memStore{entries: map[string][]byte{}} }

func (s *memStore) Fetch(_ context.Context, key string) ([]byte, error) {
	if b, ok := s.entries[key]; ok {
		return b, nil
	}
	return nil, errors.New("not cached")
}

func (s *memStore) Save(_ context.Context, key string, payload []byte, _ time.Duration) error {
	s.entries[key] = payload
	return nil
}

const testSecret = "test-secret"

// newStatsServer mirrors how the report cache is registered in the
// router: inside the JWT group, per route, never globally.
func newStatsServer(t *testing.T, store CacheStore) (*echo.Echo, *int) {
	t.Helper()
	calls := 0
	e := echo.New()
	g := e.Group("/v1", JWTAuth(testSecret))
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "report", MaxBodyBytes: 1 << 20}
	g.GET("/stats", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"total": 42, "render": calls})
	}, ReportCache(cfg, store))
	return e, &calls
}

func statsGet(t *testing.T, e *echo.Echo, userID uint64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	if userID != 0 {
		tok, err := utils.NewAccessToken(testSecret, userID, "VIEWER", 5)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestReportCacheRequiresAuth(t *testing.T) {
	store := newMemStore()
	e, calls := newStatsServer(t, store)

	if rec := statsGet(t, e, 0); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}
	if *calls != 0 || len(store.entries) != 0 {
		t.Fatalf("handler ran or cache filled without auth: calls=%d entries=%d", *calls, len(store.entries))
	}

	if rec := statsGet(t, e, 1); rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first authenticated request: status=%d cache=%s", rec.Code, rec.Header().Get("X-Cache"))
	}

	// A cached entry must never answer an unauthenticated request.
	if rec := statsGet(t, e, 0); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated after priming = %d, want 401", rec.Code)
	}
}

func TestReportCacheHitIsActorScoped(t *testing.T) {
	store := newMemStore()
	e, calls := newStatsServer(t, store)

	first := statsGet(t, e, 1)
	if first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first = %s, want MISS", first.Header().Get("X-Cache"))
	}
	second := statsGet(t, e, 1)
	if second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("repeat = %s, want HIT", second.Header().Get("X-Cache"))
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("hit body %q differs from original %q", second.Body.String(), first.Body.String())
	}
	if *calls != 1 {
		t.Errorf("handler ran %d times, want 1", *calls)
	}

	// Another user never sees a response rendered for the first one.
	other := statsGet(t, e, 2)
	if other.Header().Get("X-Cache") != "MISS" {
		t.Errorf("other user = %s, want MISS", other.Header().Get("X-Cache"))
	}
	if *calls != 2 {
		t.Errorf("handler ran %d times, want 2", *calls)
	}
}

func TestReportCacheDisabledPassesThrough(t *testing.T) {
	mw := ReportCache(config.CacheConfig{Enabled: false}, newMemStore())
	e := echo.New()
	hits := 0
	e.GET("/x", func(c echo.Context) error {
		hits++
		return c.String(http.StatusOK, fmt.Sprint(hits))
	}, mw)

	for i := 1; i <= 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Body.String() != fmt.Sprint(i) {
			t.Fatalf("request %d body = %q", i, rec.Body.String())
		}
	}
}
