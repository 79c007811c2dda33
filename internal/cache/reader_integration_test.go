package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Lisanis/warehouse-movement-service/internal/cache"
)

func newTestReadCache(t *testing.T) *cache.ReadCache {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcredis.RunContainer(ctx, tcredis.WithSnapshotting(10, 1))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	readCache, err := cache.NewReadCache(uri, time.Hour)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = readCache.Close()
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, readCache.Ping(pingCtx))

	return readCache
}

func TestReadCache_Stock_MissThenSetThenHit(t *testing.T) {
	rc := newTestReadCache(t)
	ctx := context.Background()

	_, err := rc.GetStock(ctx, "wh-1", "prod-1")
	require.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, rc.SetStock(ctx, "wh-1", "prod-1", []byte(`{"quantity":5}`)))

	value, err := rc.GetStock(ctx, "wh-1", "prod-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"quantity":5}`, string(value))
}

func TestReadCache_Movement_MissThenSetThenHit(t *testing.T) {
	rc := newTestReadCache(t)
	ctx := context.Background()

	_, err := rc.GetMovement(ctx, "mv-1")
	require.True(t, errors.Is(err, cache.ErrMiss))

	require.NoError(t, rc.SetMovement(ctx, "mv-1", []byte(`{"movement_id":"mv-1"}`)))

	value, err := rc.GetMovement(ctx, "mv-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"movement_id":"mv-1"}`, string(value))
}
