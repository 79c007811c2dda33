package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lisanis/warehouse-movement-service/internal/cache"
	"github.com/Lisanis/warehouse-movement-service/internal/query"
)

type fakeStore struct {
	movements map[string]*query.Movement
	stocks    map[string]*query.StockRow
	healthErr error
}

func (f *fakeStore) GetMovement(_ context.Context, movementID string) (*query.Movement, error) {
	return f.movements[movementID], nil
}

func (f *fakeStore) GetStock(_ context.Context, warehouseID, productID string) (*query.StockRow, error) {
	return f.stocks[warehouseID+":"+productID], nil
}

func (f *fakeStore) HealthCheck(context.Context) error {
	return f.healthErr
}

type fakeCache struct {
	movements map[string][]byte
	stocks    map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{movements: map[string][]byte{}, stocks: map[string][]byte{}}
}

func (f *fakeCache) GetStock(_ context.Context, warehouseID, productID string) ([]byte, error) {
	if v, ok := f.stocks[warehouseID+":"+productID]; ok {
		return v, nil
	}

	return nil, cache.ErrMiss
}

func (f *fakeCache) SetStock(_ context.Context, warehouseID, productID string, value []byte) error {
	f.stocks[warehouseID+":"+productID] = value

	return nil
}

func (f *fakeCache) GetMovement(_ context.Context, movementID string) ([]byte, error) {
	if v, ok := f.movements[movementID]; ok {
		return v, nil
	}

	return nil, cache.ErrMiss
}

func (f *fakeCache) SetMovement(_ context.Context, movementID string, value []byte) error {
	f.movements[movementID] = value

	return nil
}

func testServer(store *fakeStore, c *fakeCache) *Server {
	return &Server{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		config:    &ServerConfig{},
		startTime: time.Now(),
		store:     store,
		cache:     c,
	}
}

func newMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	s.setupRoutes(mux)

	return mux
}

func TestHandleGetMovement_MissThenFound(t *testing.T) {
	movement := &query.Movement{ID: "mv-1", ProductID: "prod-1"}
	store := &fakeStore{movements: map[string]*query.Movement{"mv-1": movement}}
	c := newFakeCache()
	mux := newMux(testServer(store, c))

	req := httptest.NewRequest(http.MethodGet, "/movements/mv-1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp MovementDetailResponse

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "mv-1", resp.MovementID)
	assert.NotEmpty(t, c.movements["mv-1"])
}

func TestHandleGetMovement_CacheHitSkipsStore(t *testing.T) {
	c := newFakeCache()
	c.movements["mv-1"] = []byte(`{"movement_id":"mv-1","product_id":"prod-1"}`)
	store := &fakeStore{}
	mux := newMux(testServer(store, c))

	req := httptest.NewRequest(http.MethodGet, "/movements/mv-1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"movement_id":"mv-1","product_id":"prod-1"}`, rec.Body.String())
}

func TestHandleGetMovement_NotFound(t *testing.T) {
	store := &fakeStore{movements: map[string]*query.Movement{}}
	mux := newMux(testServer(store, newFakeCache()))

	req := httptest.NewRequest(http.MethodGet, "/movements/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestHandleGetStock_MissThenFound(t *testing.T) {
	row := &query.StockRow{WarehouseID: "wh-1", ProductID: "prod-1", Quantity: 7}
	store := &fakeStore{stocks: map[string]*query.StockRow{"wh-1:prod-1": row}}
	mux := newMux(testServer(store, newFakeCache()))

	req := httptest.NewRequest(http.MethodGet, "/warehouses/wh-1/products/prod-1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp WarehouseStockResponse

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 7, resp.Quantity)
}

func TestHandleGetStock_NotFound(t *testing.T) {
	store := &fakeStore{stocks: map[string]*query.StockRow{}}
	mux := newMux(testServer(store, newFakeCache()))

	req := httptest.NewRequest(http.MethodGet, "/warehouses/wh-1/products/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth_OK(t *testing.T) {
	mux := newMux(testServer(&fakeStore{}, newFakeCache()))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleHealth_StoreUnreachable(t *testing.T) {
	mux := newMux(testServer(&fakeStore{healthErr: errors.New("boom")}, newFakeCache()))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleNotFound(t *testing.T) {
	mux := newMux(testServer(&fakeStore{}, newFakeCache()))

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
