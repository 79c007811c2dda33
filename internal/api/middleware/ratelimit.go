// Package middleware provides HTTP middleware components for the read API.
package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	burstCapacityMultiplier    int     = 2
	maxTrackedIPs              int     = 10000
	defaultGlobalRPS           int     = 100
	defaultPerIPRPS            int     = 10
	thresholdMultiplier        float64 = 0.8
	thresholdPercentage        int     = 80
	rateLimiterCleanupInterval         = 5 * time.Minute
	rateLimiterIdleTimeout             = 1 * time.Hour
)

type (
	// RateLimiter provides rate limiting for incoming requests, keyed by the
	// client's address.
	//
	// Implementations may use in-memory token buckets (single-node
	// deployment) or distributed stores like Redis (multi-node deployment).
	// The interface enables swapping one for the other without touching the
	// middleware that calls it.
	RateLimiter interface {
		// Allow checks if a request from clientIP should be allowed. Returns
		// true if allowed, false if rate limited.
		Allow(clientIP string) bool
	}

	// InMemoryRateLimiter implements RateLimiter using golang.org/x/time/rate.
	//
	// Provides two-tier rate limiting:
	//  1. Global limit, applied to all requests
	//  2. Per-client-IP limit
	//
	// Uses token bucket algorithm with configurable burst capacity. Memory
	// cleanup runs periodically so per-IP limiters for clients that have
	// gone idle do not accumulate forever.
	InMemoryRateLimiter struct {
		global        *rate.Limiter
		perIP         map[string]*ipLimiter
		mu            sync.RWMutex
		cleanupTicker *time.Ticker
		done          chan struct{}

		perIPRPS        int
		perIPBurst      int
		cleanupInterval time.Duration
		idleTimeout     time.Duration
		maxTrackedIPs   int
	}

	// ipLimiter tracks rate limit state for a single client IP, with a last
	// access time for idle cleanup.
	ipLimiter struct {
		limiter    *rate.Limiter
		lastAccess time.Time
		mu         sync.Mutex
	}
)

// NewInMemoryRateLimiter creates a new in-memory rate limiter with two-tier
// limits. Burst capacity is computed automatically as 2 x rate unless
// overridden in config. Cleanup runs periodically to prevent unbounded
// memory growth from per-IP limiters.
func NewInMemoryRateLimiter(config *Config) *InMemoryRateLimiter {
	globalBurst := computeBurstCapacity(config.GlobalRPS, config.GlobalBurst)
	perIPBurst := computeBurstCapacity(config.PerIPRPS, config.PerIPBurst)

	rl := &InMemoryRateLimiter{
		global:          rate.NewLimiter(rate.Limit(config.GlobalRPS), globalBurst),
		perIP:           make(map[string]*ipLimiter),
		done:            make(chan struct{}),
		perIPRPS:        config.PerIPRPS,
		perIPBurst:      perIPBurst,
		cleanupInterval: config.CleanupInterval,
		idleTimeout:     config.IdleTimeout,
		maxTrackedIPs:   config.MaxTrackedIPs,
	}

	rl.startCleanup()

	return rl
}

// computeBurstCapacity computes the burst capacity based on the rate and
// optional override. If burstOverride is 0, burst is auto-computed as
// 2 x rate.
func computeBurstCapacity(rate, burstOverride int) int {
	if burstOverride > 0 {
		return burstOverride
	}

	return rate * burstCapacityMultiplier
}

// Allow checks if a request from clientIP should be allowed.
// Implements the RateLimiter interface.
func (rl *InMemoryRateLimiter) Allow(clientIP string) bool {
	if !rl.global.Allow() {
		return false
	}

	rl.mu.RLock()
	ipl, ok := rl.perIP[clientIP]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()

		if ipl, ok = rl.perIP[clientIP]; !ok {
			ipl = &ipLimiter{
				limiter:    rate.NewLimiter(rate.Limit(rl.perIPRPS), rl.perIPBurst),
				lastAccess: time.Now(),
			}

			rl.perIP[clientIP] = ipl

			currentCount := len(rl.perIP)
			threshold := int(float64(rl.maxTrackedIPs) * thresholdMultiplier)

			if currentCount >= threshold {
				slog.Warn("rate limiter approaching max tracked IPs limit",
					"current_ips", currentCount,
					"max_tracked_ips", rl.maxTrackedIPs,
					"threshold_percent", thresholdPercentage)
			}
		}

		rl.mu.Unlock()
	}

	ipl.mu.Lock()
	ipl.lastAccess = time.Now()
	ipl.mu.Unlock()

	return ipl.limiter.Allow()
}

// Close stops the cleanup goroutine and releases resources. Must be called
// when the InMemoryRateLimiter is no longer needed.
func (rl *InMemoryRateLimiter) Close() {
	if rl.cleanupTicker != nil {
		rl.cleanupTicker.Stop()
	}

	close(rl.done)
}

// startCleanup starts a background goroutine that periodically removes
// stale per-IP limiters to prevent memory leaks.
func (rl *InMemoryRateLimiter) startCleanup() {
	cleanupInterval := rl.cleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = rateLimiterCleanupInterval
	}

	rl.cleanupTicker = time.NewTicker(cleanupInterval)

	go func() {
		for {
			select {
			case <-rl.cleanupTicker.C:
				rl.cleanup()
			case <-rl.done:
				return
			}
		}
	}()
}

// cleanup removes per-IP limiters that haven't been accessed recently.
func (rl *InMemoryRateLimiter) cleanup() {
	idleTimeout := rl.idleTimeout
	if idleTimeout == 0 {
		idleTimeout = rateLimiterIdleTimeout
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, ipl := range rl.perIP {
		ipl.mu.Lock()
		lastAccess := ipl.lastAccess
		ipl.mu.Unlock()

		if now.Sub(lastAccess) > idleTimeout {
			delete(rl.perIP, ip)
		}
	}
}

// RateLimit returns a middleware that enforces rate limits on incoming
// requests, in two tiers: a global limit and a per-client-IP limit. When a
// request exceeds either, the middleware returns a 429 (Too Many Requests)
// response in RFC 7807 problem-details format.
func RateLimit(limiter RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				correlationID := GetCorrelationID(r.Context())

				detail := "Rate limit exceeded. Please retry after some time."
				if err := writeRFC7807Error(w, r, http.StatusTooManyRequests, detail, correlationID); err != nil {
					logger.Error("failed to write rate limit error response",
						slog.String("correlation_id", correlationID),
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()))

					http.Error(w, detail, http.StatusTooManyRequests)
				}

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client's address for per-IP rate limiting,
// stripping the port from RemoteAddr. Falls back to the raw RemoteAddr if
// it isn't a host:port pair (e.g. in unit tests using httptest).
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// writeRFC7807Error writes a minimal RFC 7807 problem-details response.
// Separate from api.WriteErrorResponse since this package must not import
// the api package (it would create an import cycle: api imports
// middleware).
func writeRFC7807Error(w http.ResponseWriter, r *http.Request, statusCode int, detail, correlationID string) error {
	title := http.StatusText(statusCode)
	if title == "" {
		title = "Request Failed"
	}

	problem := map[string]any{
		"type":          fmt.Sprintf("https://warehouse-movement.internal/problems/%d", statusCode),
		"title":         title,
		"status":        statusCode,
		"detail":        detail,
		"instance":      r.URL.Path,
		"correlationId": correlationID,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(problem)
}
