package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by ReadCache.GetStock and ReadCache.GetMovement when
// the key is absent - a normal
// case the read API treats as "query the database", not a failure.
var ErrMiss = errors.New("cache miss")

// ReadCache is the read API's cache-aside companion to Invalidator: it
// holds its own Redis client but uses the same key scheme
// (stock:{warehouse}:{product}, movement:{movement_id}), and serves GET/SET
// instead of DEL, per the
// cache-aside contract (§12).
type ReadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReadCache builds a ReadCache from a parsed Redis URL, reusing the same
// connection parameters the Invalidator uses.
func NewReadCache(redisURL string, ttl time.Duration) (*ReadCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	return &ReadCache{client: redis.NewClient(opt), ttl: ttl}, nil
}

// Ping verifies the Redis connection is reachable.
func (c *ReadCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return c.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (c *ReadCache) Close() error {
	return c.client.Close()
}

// GetStock returns the cached JSON blob for a stock lookup, or ErrMiss if
// absent.
func (c *ReadCache) GetStock(ctx context.Context, warehouseID, productID string) ([]byte, error) {
	return c.get(ctx, stockKey(warehouseID, productID))
}

// SetStock caches the JSON blob for a stock lookup under this service's TTL.
func (c *ReadCache) SetStock(ctx context.Context, warehouseID, productID string, value []byte) error {
	return c.set(ctx, stockKey(warehouseID, productID), value)
}

// GetMovement returns the cached JSON blob for a movement lookup, or
// ErrMiss if absent.
func (c *ReadCache) GetMovement(ctx context.Context, movementID string) ([]byte, error) {
	return c.get(ctx, movementKey(movementID))
}

// SetMovement caches the JSON blob for a movement lookup under this
// service's TTL.
func (c *ReadCache) SetMovement(ctx context.Context, movementID string, value []byte) error {
	return c.set(ctx, movementKey(movementID), value)
}

func (c *ReadCache) get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	value, err := c.client.Get(ctx, key).Bytes()

	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrMiss
	case err != nil:
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return value, nil
}

func (c *ReadCache) set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}
