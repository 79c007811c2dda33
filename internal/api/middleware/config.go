// Package middleware provides HTTP middleware components for the read API.
package middleware

import (
	"time"

	"github.com/Lisanis/warehouse-movement-service/internal/config"
)

// Config holds rate limiter configuration.
//
// Rate limits specify requests per second (RPS) for two tiers:
//   - Global: applied to all requests
//   - Per-IP: applied per client IP address
//
// Burst capacity allows temporary bursts above sustained rate. If a burst
// field is 0, it is computed automatically as 2 x rate.
type Config struct {
	GlobalRPS int // Default: 100
	PerIPRPS  int // Default: 10

	GlobalBurst int // Default: 0 (computed as 2 x GlobalRPS)
	PerIPBurst  int // Default: 0 (computed as 2 x PerIPRPS)

	// Memory cleanup configuration for idle per-IP limiters.
	CleanupInterval time.Duration // Default: 5 minutes
	IdleTimeout     time.Duration // Default: 1 hour
	MaxTrackedIPs   int           // Default: 10,000
}

// LoadConfig loads middleware config from environment variables with
// fallback to defaults. It does not read the YAML overlay; callers merge a
// config.RateLimitOverlay afterwards with ApplyOverlay.
func LoadConfig() *Config {
	return &Config{
		GlobalRPS: config.GetEnvInt("WAREHOUSE_GLOBAL_RPS", defaultGlobalRPS),
		PerIPRPS:  config.GetEnvInt("WAREHOUSE_PER_IP_RPS", defaultPerIPRPS),

		GlobalBurst: config.GetEnvInt("WAREHOUSE_GLOBAL_BURST", 0),
		PerIPBurst:  config.GetEnvInt("WAREHOUSE_PER_IP_BURST", 0),

		CleanupInterval: config.GetEnvDuration("WAREHOUSE_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval),
		IdleTimeout:     config.GetEnvDuration("WAREHOUSE_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
		MaxTrackedIPs:   config.GetEnvInt("WAREHOUSE_RATE_LIMIT_MAX_TRACKED_IPS", maxTrackedIPs),
	}
}

// ApplyOverlay merges a config.RateLimitOverlay's nonzero fields over c,
// mirroring the pattern config.KafkaConfig uses for its own overlay.
func (c *Config) ApplyOverlay(overlay *config.RateLimitOverlay) {
	if overlay == nil {
		return
	}

	if overlay.GlobalRPS > 0 {
		c.GlobalRPS = overlay.GlobalRPS
	}

	if overlay.PerIPRPS > 0 {
		c.PerIPRPS = overlay.PerIPRPS
	}

	if overlay.Burst > 0 {
		c.GlobalBurst = overlay.Burst
		c.PerIPBurst = overlay.Burst
	}
}
