package domain

import "context"

// Store defines the interface the Transaction Coordinator needs for
// persisting one event's effects. The domain package defines this interface
// to specify what it needs, without depending on a concrete database -
// following the Dependency Inversion Principle already used by this
// codebase's ingestion/storage split: the storage package provides the
// PostgreSQL implementation.
//
// Every method here participates in the single transaction the Coordinator
// drives (§4.5). None of them commits or rolls back on their own - that is
// the Coordinator's responsibility alone.
type Store interface {
	// IsProcessed reports whether a ProcessedEventRecord already exists for
	// messageID (§4.2). Read-only; safe to call before any writes.
	IsProcessed(ctx context.Context, messageID string) (bool, error)

	// EnsureProductAndWarehouse inserts Product and Warehouse rows for the
	// given ids if they do not already exist (§4.5 step 2). Never errors on
	// a pre-existing row.
	EnsureProductAndWarehouse(ctx context.Context, warehouseID, productID string) error

	// ApplyDelta implements the Stock Ledger (§4.3): locks the StockRow for
	// (warehouseID, productID) if present, applies delta, and returns the
	// resulting row. Returns ErrNegativeStock if the result would be
	// negative, without writing anything.
	ApplyDelta(ctx context.Context, warehouseID, productID string, delta int) (*StockRow, error)

	// ApplyHalf implements the Movement Pairing Store (§4.4): upserts the
	// Movement keyed by event.MovementID, folding in the event's half and
	// recomputing derived fields, then returns the resulting row.
	ApplyHalf(ctx context.Context, event *NormalizedEvent) (*Movement, error)

	// Record inserts a ProcessedEventRecord for event (§4.2). The caller
	// must have already confirmed IsProcessed returned false within the
	// same transaction; a concurrent duplicate insert is rejected by the
	// message_id primary key, which the caller surfaces as an error.
	Record(ctx context.Context, event *NormalizedEvent) error

	// WithTx runs fn inside a single database transaction, committing on a
	// nil return and rolling back otherwise. All other Store methods must
	// be called through the *domain.Tx WithTx hands to fn - see Tx.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// HealthCheck verifies the storage backend is reachable.
	HealthCheck(ctx context.Context) error
}

// Tx is the transaction-scoped view of Store handed to the function passed
// to WithTx. It carries the same operations as Store minus WithTx itself -
// nesting transactions is not supported.
type Tx interface {
	IsProcessed(ctx context.Context, messageID string) (bool, error)
	EnsureProductAndWarehouse(ctx context.Context, warehouseID, productID string) error
	ApplyDelta(ctx context.Context, warehouseID, productID string, delta int) (*StockRow, error)
	ApplyHalf(ctx context.Context, event *NormalizedEvent) (*Movement, error)
	Record(ctx context.Context, event *NormalizedEvent) error
}

// CacheInvalidator is the Coordinator's view of the Cache Invalidator
// (§4.6): best-effort deletion of the two keys a committed event may have
// staled. Implementations must never be called before the corresponding
// transaction commits (I6).
type CacheInvalidator interface {
	InvalidateStock(ctx context.Context, warehouseID, productID string) error
	InvalidateMovement(ctx context.Context, movementID string) error
}
