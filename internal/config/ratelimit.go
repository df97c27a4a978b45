package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig tunes the per-client token bucket.  Burst is how many
// requests a client may fire before refilling matters; RefillEvery is the
// interval at which one token comes back.
type RateLimitConfig struct {
	Enabled     bool
	Burst       int
	RefillEvery time.Duration
	TTL         time.Duration
	Prefix      string
}

// LoadRateLimitConfig reads RATE_LIMIT_* environment variables.  The
// defaults allow 60 requests up front with one token back per second,
// which comfortably covers a gate device working through a queue.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		Burst:       envInt("RATE_LIMIT_BURST", 60),
		RefillEvery: envDur("RATE_LIMIT_REFILL_EVERY", time.Second),
		TTL:         envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rate"),
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillEvery <= 0 {
		cfg.RefillEvery = time.Second
	}
	// Idle buckets must outlive a full refill cycle or clients get a
	// fresh burst early.
	if min := time.Duration(cfg.Burst) * cfg.RefillEvery; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
