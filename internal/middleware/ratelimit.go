package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/boat-boarding/internal/config"
)

// bucketScript implements a token bucket in Redis.  State is one hash per
// bucket: remaining tokens and the refill timestamp.  It returns
// {allowed, remaining, wait_ms}.
var bucketScript = redis.NewScript(`
local bucket = KEYS[1]
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local refill_ms = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', bucket, 'left', 'at')
local left = tonumber(state[1])
local at = tonumber(state[2])
if left == nil or at == nil then
    left = burst
    at = now
end

if refill_ms > 0 then
    local gained = math.floor((now - at) / refill_ms)
    if gained > 0 then
        left = math.min(burst, left + gained)
        at = at + gained * refill_ms
    end
end

local allowed = 0
local wait = 0
if left > 0 then
    allowed = 1
    left = left - 1
else
    wait = refill_ms - (now - at)
    if wait < 0 then wait = 0 end
end

redis.call('HMSET', bucket, 'left', left, 'at', at)
redis.call('EXPIRE', bucket, ttl)
return {allowed, left, wait}
`)

// RateLimit applies a Redis-backed token bucket per client IP and route.
// Gate traffic is bursty (a queue of passengers checked in back to back),
// so the bucket allows a burst and refills one token per interval.  The
// limiter is keyed before authentication runs, which also throttles
// credential guessing against the auth endpoints.  Redis trouble fails
// open: boarding must not stop because the limiter store is down.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := bucketKey(cfg.Prefix, c)
			args := []interface{}{
				time.Now().UnixMilli(),
				cfg.Burst,
				cfg.RefillEvery.Milliseconds(),
				int64(cfg.TTL / time.Second),
			}

			vals, err := bucketScript.Run(c.Request().Context(), rdb, []string{key}, args...).Int64Slice()
			if err != nil || len(vals) != 3 {
				return next(c)
			}
			allowed, remaining, waitMs := vals[0] == 1, vals[1], vals[2]

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				secs := int(math.Ceil(float64(waitMs) / 1000.0))
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// bucketKey scopes the bucket to one client on one route, so a busy gate
// device cannot starve the booking desk and vice versa.
func bucketKey(prefix string, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return prefix + ":" + ip + ":" + c.Request().Method + " " + c.Path()
}
