package coordinator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lisanis/warehouse-movement-service/internal/coordinator"
	"github.com/Lisanis/warehouse-movement-service/internal/domain"
)

// fakeStore is an in-memory domain.Store used to exercise the Coordinator's
// protocol without a database. It is intentionally not safe for concurrent
// use - the Coordinator itself is the only caller under test.
type fakeStore struct {
	processed map[string]bool
	stock     map[string]int
	movements map[string]*domain.Movement

	failApplyDelta error
	failWithTx     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		processed: make(map[string]bool),
		stock:     make(map[string]int),
		movements: make(map[string]*domain.Movement),
	}
}

func (f *fakeStore) HealthCheck(context.Context) error { return nil }

func (f *fakeStore) IsProcessed(_ context.Context, messageID string) (bool, error) {
	return f.processed[messageID], nil
}

func (f *fakeStore) EnsureProductAndWarehouse(context.Context, string, string) error {
	return nil
}

func (f *fakeStore) ApplyDelta(_ context.Context, warehouseID, productID string, delta int) (*domain.StockRow, error) {
	if f.failApplyDelta != nil {
		return nil, f.failApplyDelta
	}

	key := warehouseID + "/" + productID
	next := f.stock[key] + delta

	if next < 0 {
		return nil, domain.ErrNegativeStock
	}

	f.stock[key] = next

	return &domain.StockRow{WarehouseID: warehouseID, ProductID: productID, Quantity: next}, nil
}

func (f *fakeStore) ApplyHalf(_ context.Context, event *domain.NormalizedEvent) (*domain.Movement, error) {
	m, ok := f.movements[event.MovementID]
	if !ok {
		m = &domain.Movement{ID: event.MovementID}
		f.movements[event.MovementID] = m
	}

	m.ApplyHalf(event)

	return m, nil
}

func (f *fakeStore) Record(_ context.Context, event *domain.NormalizedEvent) error {
	f.processed[event.MessageID] = true

	return nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	if f.failWithTx != nil {
		return f.failWithTx
	}

	return fn(ctx, f)
}

type fakeInvalidator struct {
	stockCalls    [][2]string
	movementCalls []string
	failStock     error
	failMovement  error
}

func (f *fakeInvalidator) InvalidateStock(_ context.Context, warehouseID, productID string) error {
	f.stockCalls = append(f.stockCalls, [2]string{warehouseID, productID})

	return f.failStock
}

func (f *fakeInvalidator) InvalidateMovement(_ context.Context, movementID string) error {
	f.movementCalls = append(f.movementCalls, movementID)

	return f.failMovement
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseEvent() *domain.NormalizedEvent {
	return &domain.NormalizedEvent{
		MessageID:      "msg-1",
		MessageSource:  "wms",
		MessageTime:    time.Now().UTC(),
		MovementID:     "mv-1",
		WarehouseID:    "wh-1",
		ProductID:      "prod-1",
		EventKind:      domain.EventKindArrival,
		EventTimestamp: time.Now().UTC(),
		Quantity:       5,
	}
}

func TestCoordinator_Apply_CommitsAndInvalidatesAfterCommit(t *testing.T) {
	store := newFakeStore()
	invalidator := &fakeInvalidator{}
	c := coordinator.New(store, invalidator, silentLogger())

	event := baseEvent()

	require.NoError(t, c.Apply(context.Background(), event))

	assert.True(t, store.processed[event.MessageID])
	assert.Equal(t, 5, store.stock["wh-1/prod-1"])
	assert.Len(t, invalidator.stockCalls, 1)
	assert.Equal(t, [2]string{"wh-1", "prod-1"}, invalidator.stockCalls[0])
	assert.Equal(t, []string{"mv-1"}, invalidator.movementCalls)
}

func TestCoordinator_Apply_AlreadyProcessedSkipsInvalidation(t *testing.T) {
	store := newFakeStore()
	store.processed["msg-1"] = true
	invalidator := &fakeInvalidator{}
	c := coordinator.New(store, invalidator, silentLogger())

	err := c.Apply(context.Background(), baseEvent())

	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	assert.Empty(t, invalidator.stockCalls)
	assert.Empty(t, invalidator.movementCalls)
}

func TestCoordinator_Apply_NegativeStockDoesNotInvalidate(t *testing.T) {
	store := newFakeStore()
	invalidator := &fakeInvalidator{}
	c := coordinator.New(store, invalidator, silentLogger())

	event := baseEvent()
	event.EventKind = domain.EventKindDeparture
	event.Quantity = 10

	err := c.Apply(context.Background(), event)

	require.ErrorIs(t, err, domain.ErrNegativeStock)
	assert.Empty(t, invalidator.stockCalls)
}

func TestCoordinator_Apply_TransientDBErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.failWithTx = domain.ErrTransientDB
	invalidator := &fakeInvalidator{}
	c := coordinator.New(store, invalidator, silentLogger())

	err := c.Apply(context.Background(), baseEvent())

	require.ErrorIs(t, err, domain.ErrTransientDB)
	assert.Empty(t, invalidator.stockCalls)
}

func TestCoordinator_Apply_CacheFailureDoesNotFailEvent(t *testing.T) {
	store := newFakeStore()
	invalidator := &fakeInvalidator{
		failStock:    errors.New("redis down"),
		failMovement: errors.New("redis down"),
	}
	c := coordinator.New(store, invalidator, silentLogger())

	err := c.Apply(context.Background(), baseEvent())

	require.NoError(t, err)
	assert.True(t, store.processed["msg-1"])
}
