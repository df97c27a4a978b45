package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/boat-boarding/internal/config"
)

// CacheStore is the backing store for cached report responses.
type CacheStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

type redisCacheStore struct {
	rdb *redis.Client
}

func (s *redisCacheStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	return s.rdb.Get(ctx, key).Bytes()
}

func (s *redisCacheStore) Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.rdb.SetEx(ctx, key, payload, ttl).Err()
}

// NewRedisCacheStore wraps a Redis client as a CacheStore.  A nil client
// yields a nil store and ReportCache degrades to a pass-through.
func NewRedisCacheStore(rdb *redis.Client) CacheStore {
	if rdb == nil {
		return nil
	}
	return &redisCacheStore{rdb: rdb}
}

// cachedResponse is the stored envelope for one report response.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// reportRecorder captures the response body while streaming it to the
// client so a successful render can be stored afterwards.
type reportRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *reportRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *reportRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// ReportCache caches GET responses for the reporting endpoints (stats,
// per-boat manifests).  It is registered per route inside the JWT and
// role groups, never globally: the authentication middleware always runs
// first, so an unauthenticated request can never be answered from the
// cache.  The key includes the acting user, so a response rendered for
// one staff member is never replayed to another.
func ReportCache(cfg config.CacheConfig, store CacheStore) echo.MiddlewareFunc {
	if !cfg.Enabled || store == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			ctx := c.Request().Context()
			key := reportCacheKey(cfg.Prefix, c)

			if payload, err := store.Fetch(ctx, key); err == nil {
				var cached cachedResponse
				if json.Unmarshal(payload, &cached) == nil && cached.Status != 0 {
					h := c.Response().Header()
					for k, vals := range cached.Header {
						for _, v := range vals {
							h.Add(k, v)
						}
					}
					h.Set("X-Cache", "HIT")
					c.Response().WriteHeader(cached.Status)
					_, err := c.Response().Write(cached.Body)
					return err
				}
			}

			rec := &reportRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}

			if rec.status != http.StatusOK {
				return nil
			}
			if cfg.MaxBodyBytes > 0 && rec.body.Len() > cfg.MaxBodyBytes {
				return nil
			}
			cached := cachedResponse{
				Status: rec.status,
				Header: c.Response().Header().Clone(),
				Body:   rec.body.Bytes(),
			}
			if payload, err := json.Marshal(cached); err == nil {
				_ = store.Save(context.Background(), key, payload, ttl)
			}
			return nil
		}
	}
}

// reportCacheKey hashes actor, route and query into the storage key.  The
// user id comes from the JWT middleware upstream; it is part of the key
// so cached state is scoped to the requester.
func reportCacheKey(prefix string, c echo.Context) string {
	actor := "anon"
	if v := c.Get("user_id"); v != nil {
		actor = fmt.Sprint(v)
	}
	raw := fmt.Sprintf("user=%s route=%s q=%s", actor, c.Path(), c.Request().URL.RawQuery)
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%x", prefix, sum)
}
