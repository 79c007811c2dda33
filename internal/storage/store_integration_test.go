package storage_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	testcontainers "github.com/testcontainers/testcontainers-go"

	"github.com/Lisanis/warehouse-movement-service/internal/domain"
	"github.com/Lisanis/warehouse-movement-service/internal/storage"
	"github.com/Lisanis/warehouse-movement-service/migrations"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := pgcontainer.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("testuser"),
		pgcontainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, migrations.Validate())

	source, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)

	m, err := migrate.NewWithSourceInstance("iofs", source, connStr)
	require.NoError(t, err)

	require.NoError(t, m.Up())

	t.Setenv("DATABASE_URL", connStr)

	conn, err := storage.NewConnection(storage.LoadConfig())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	store, err := storage.NewStore(conn, slog.Default())
	require.NoError(t, err)

	return store
}

func TestStore_ApplyDelta_NonNegativeInvariant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		require.NoError(t, tx.EnsureProductAndWarehouse(ctx, "wh-1", "prod-1"))

		row, err := tx.ApplyDelta(ctx, "wh-1", "prod-1", 10)
		require.NoError(t, err)
		require.Equal(t, 10, row.Quantity)

		row, err = tx.ApplyDelta(ctx, "wh-1", "prod-1", -4)
		require.NoError(t, err)
		require.Equal(t, 6, row.Quantity)

		_, err = tx.ApplyDelta(ctx, "wh-1", "prod-1", -100)
		require.ErrorIs(t, err, domain.ErrNegativeStock)

		return nil
	})
	require.NoError(t, err)
}

func TestStore_ApplyHalf_PairsOutOfOrderEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	departure := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	arrival := departure.Add(2 * time.Hour)

	err := store.WithTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		require.NoError(t, tx.EnsureProductAndWarehouse(ctx, "wh-dst", "prod-1"))

		arrivalEvent := &domain.NormalizedEvent{
			MovementID:     "mv-1",
			WarehouseID:    "wh-dst",
			ProductID:      "prod-1",
			EventKind:      domain.EventKindArrival,
			EventTimestamp: arrival,
			Quantity:       8,
		}

		movement, err := tx.ApplyHalf(ctx, arrivalEvent)
		require.NoError(t, err)
		require.False(t, movement.IsComplete())
		require.Nil(t, movement.TransferTimeSeconds)

		require.NoError(t, tx.EnsureProductAndWarehouse(ctx, "wh-src", "prod-1"))

		departureEvent := &domain.NormalizedEvent{
			MovementID:     "mv-1",
			WarehouseID:    "wh-src",
			ProductID:      "prod-1",
			EventKind:      domain.EventKindDeparture,
			EventTimestamp: departure,
			Quantity:       10,
		}

		movement, err = tx.ApplyHalf(ctx, departureEvent)
		require.NoError(t, err)
		require.True(t, movement.IsComplete())
		require.NotNil(t, movement.TransferTimeSeconds)
		require.Equal(t, 2*time.Hour.Seconds(), *movement.TransferTimeSeconds)
		require.NotNil(t, movement.QuantityDifference)
		require.Equal(t, -2, *movement.QuantityDifference)

		return nil
	})
	require.NoError(t, err)
}

func TestStore_RecordAndIsProcessed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event := &domain.NormalizedEvent{
		MessageID:      "msg-1",
		MessageSource:  "wms",
		MessageTime:    time.Now().UTC(),
		MovementID:     "mv-2",
		WarehouseID:    "wh-1",
		ProductID:      "prod-1",
		EventKind:      domain.EventKindDeparture,
		EventTimestamp: time.Now().UTC(),
		Quantity:       3,
	}

	err := store.WithTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		processed, err := tx.IsProcessed(ctx, event.MessageID)
		require.NoError(t, err)
		require.False(t, processed)

		require.NoError(t, tx.EnsureProductAndWarehouse(ctx, event.WarehouseID, event.ProductID))

		_, err = tx.ApplyHalf(ctx, event)
		require.NoError(t, err)

		return tx.Record(ctx, event)
	})
	require.NoError(t, err)

	processed, err := store.IsProcessed(ctx, event.MessageID)
	require.NoError(t, err)
	require.True(t, processed)
}
