// Package cache provides the Cache Invalidator (§4.6): best-effort deletion
// of the read-side cache keys staled by a committed event. Failures are
// returned wrapped in domain.ErrCacheFailure so the caller (the Transaction
// Coordinator) can apply the swallow-to-warning policy itself - this
// package's job is just the Redis call, not the logging policy around it.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Lisanis/warehouse-movement-service/internal/domain"
)

const opTimeout = 2 * time.Second

// Invalidator is the Redis-backed domain.CacheInvalidator implementation.
type Invalidator struct {
	client *redis.Client
}

var _ domain.CacheInvalidator = (*Invalidator)(nil)

// New builds an Invalidator from a parsed Redis URL (e.g. "redis://host:6379/0").
func New(redisURL string) (*Invalidator, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	return &Invalidator{client: redis.NewClient(opt)}, nil
}

// Ping verifies the Redis connection is reachable.
func (i *Invalidator) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return i.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (i *Invalidator) Close() error {
	return i.client.Close()
}

// InvalidateStock deletes the stock:{warehouse_id}:{product_id} key (§4.6).
func (i *Invalidator) InvalidateStock(ctx context.Context, warehouseID, productID string) error {
	key := stockKey(warehouseID, productID)

	if err := i.delete(ctx, key); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrCacheFailure, key, err)
	}

	return nil
}

// InvalidateMovement deletes the movement:{movement_id} key (§4.6).
func (i *Invalidator) InvalidateMovement(ctx context.Context, movementID string) error {
	key := movementKey(movementID)

	if err := i.delete(ctx, key); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrCacheFailure, key, err)
	}

	return nil
}

func (i *Invalidator) delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return i.client.Del(ctx, key).Err()
}

func stockKey(warehouseID, productID string) string {
	return fmt.Sprintf("stock:%s:%s", warehouseID, productID)
}

func movementKey(movementID string) string {
	return fmt.Sprintf("movement:%s", movementID)
}
