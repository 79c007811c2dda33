package config

import (
	"fmt"
	"time"
)

// CacheConfig holds the Redis connection settings for the Cache Invalidator
// (§4.6) and the read API's cache-aside lookups (§12).
type CacheConfig struct {
	Host string
	Port int
	DB   int
	TTL  time.Duration
}

// LoadCacheConfig reads Redis settings from the environment.
func LoadCacheConfig() *CacheConfig {
	return &CacheConfig{
		Host: GetEnvStr("REDIS_HOST", "localhost"),
		Port: GetEnvInt("REDIS_PORT", 6379),
		DB:   GetEnvInt("REDIS_DB", 0),
		TTL:  GetEnvDuration("CACHE_TTL", time.Hour),
	}
}

// URL builds a redis.ParseURL-compatible connection string.
func (c *CacheConfig) URL() string {
	return fmt.Sprintf("redis://%s:%d/%d", c.Host, c.Port, c.DB)
}
