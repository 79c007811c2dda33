package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/Lisanis/warehouse-movement-service/internal/domain"
)

// Sentinel errors for storage-layer failures not already covered by the
// domain package's error taxonomy.
var (
	// ErrNoDatabaseConnection is returned when a nil Connection is passed
	// to NewStore.
	ErrNoDatabaseConnection = errors.New("no database connection provided")
)

// Store is the PostgreSQL-backed implementation of domain.Store. It owns no
// transaction state itself - every write method here is called through the
// *sql.Tx handed to WithTx's callback via tx, which implements domain.Tx.
type Store struct {
	conn   *Connection
	logger *slog.Logger
}

var _ domain.Store = (*Store)(nil)

// NewStore wraps conn as a domain.Store. logger is required; pass
// slog.Default() if none is configured.
func NewStore(conn *Connection, logger *slog.Logger) (*Store, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &Store{conn: conn, logger: logger}, nil
}

// HealthCheck delegates to the underlying connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// IsProcessed implements domain.Store outside of any transaction - used by
// callers that want a best-effort pre-check. Inside a transaction, callers
// should use the *tx view from WithTx instead so the read is part of the
// same snapshot as subsequent writes.
func (s *Store) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	return isProcessed(ctx, s.conn, messageID)
}

// EnsureProductAndWarehouse implements domain.Store outside of a transaction.
func (s *Store) EnsureProductAndWarehouse(ctx context.Context, warehouseID, productID string) error {
	return ensureProductAndWarehouse(ctx, s.conn, warehouseID, productID)
}

// ApplyDelta implements domain.Store outside of a transaction. Provided for
// interface completeness; production callers always go through WithTx so
// the row lock is held for the lifetime of the event's transaction.
func (s *Store) ApplyDelta(ctx context.Context, warehouseID, productID string, delta int) (*domain.StockRow, error) {
	return applyDelta(ctx, s.conn, warehouseID, productID, delta)
}

// ApplyHalf implements domain.Store outside of a transaction.
func (s *Store) ApplyHalf(ctx context.Context, event *domain.NormalizedEvent) (*domain.Movement, error) {
	return applyHalf(ctx, s.conn, event)
}

// Record implements domain.Store outside of a transaction.
func (s *Store) Record(ctx context.Context, event *domain.NormalizedEvent) error {
	return record(ctx, s.conn, event)
}

// WithTx opens a transaction, invokes fn with a Tx view scoped to it, and
// commits on a nil return or rolls back otherwise. The deferred rollback is
// always safe to call - it is a no-op once Commit has succeeded.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	sqlTx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", domain.ErrTransientDB, classify(err))
	}

	defer func() {
		_ = sqlTx.Rollback()
	}()

	tx := &txStore{tx: sqlTx}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrTransientDB, classify(err))
	}

	return nil
}

// txStore is the domain.Tx view handed to WithTx's callback. It shares the
// exact same SQL as Store's methods - querier below abstracts over *sql.DB
// and *sql.Tx so the queries are written once.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	return isProcessed(ctx, t.tx, messageID)
}

func (t *txStore) EnsureProductAndWarehouse(ctx context.Context, warehouseID, productID string) error {
	return ensureProductAndWarehouse(ctx, t.tx, warehouseID, productID)
}

func (t *txStore) ApplyDelta(ctx context.Context, warehouseID, productID string, delta int) (*domain.StockRow, error) {
	return applyDelta(ctx, t.tx, warehouseID, productID, delta)
}

func (t *txStore) ApplyHalf(ctx context.Context, event *domain.NormalizedEvent) (*domain.Movement, error) {
	return applyHalf(ctx, t.tx, event)
}

func (t *txStore) Record(ctx context.Context, event *domain.NormalizedEvent) error {
	return record(ctx, t.tx, event)
}

// querier abstracts over *sql.DB and *sql.Tx so the query bodies below run
// identically whether called standalone or inside WithTx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// classify wraps err with the domain error that should drive offset
// advancement: a PostgreSQL class-08 connection exception or a
// database/sql-level connection failure becomes ErrTransientDB; anything
// else passes through unwrapped so callers can detect domain-specific
// sentinels (e.g. the non-negative stock check constraint).
func classify(err error) error {
	if err == nil {
		return nil
	}

	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransientDB, err)
	}

	return err
}

// isConnectionError reports whether err indicates the database connection
// itself failed (PostgreSQL SQLSTATE class 08, or database/sql's own
// connection-lifecycle errors) as opposed to an ordinary constraint
// violation or row-not-found condition.
func isConnectionError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.HasPrefix(string(pqErr.Code), "08")
	}

	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}
