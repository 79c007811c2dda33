// Package coordinator implements the Transaction Coordinator (§4.5): the
// single entry point that applies one NormalizedEvent across the Event
// Journal, Stock Ledger, and Movement Pairing Store as one database
// transaction, then invalidates the affected cache entries strictly after
// that transaction commits (I6).
package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lisanis/warehouse-movement-service/internal/domain"
)

// Coordinator applies NormalizedEvents against a domain.Store and
// domain.CacheInvalidator. It holds no state of its own between calls to
// Apply - every event's transaction is independent.
type Coordinator struct {
	store       domain.Store
	invalidator domain.CacheInvalidator
	logger      *slog.Logger
}

// New builds a Coordinator. logger is required; pass slog.Default() if none
// is configured.
func New(store domain.Store, invalidator domain.CacheInvalidator, logger *slog.Logger) *Coordinator {
	return &Coordinator{store: store, invalidator: invalidator, logger: logger}
}

// Apply runs the §4.5 protocol for one event:
//
//  1. Check the Journal for a prior commit of this message_id; short-circuit
//     with domain.ErrAlreadyProcessed if found (no rollback needed - no
//     writes happened).
//  2. Ensure Product and Warehouse rows exist.
//  3. Apply the signed delta to the Stock Ledger.
//  4. Fold the event's half into the Movement Pairing Store.
//  5. Record the ProcessedEventRecord.
//  6. Commit.
//  7. Invalidate the stock and movement cache entries, only now that the
//     transaction is durable. A cache failure is logged as a warning and
//     never propagated - invalidation is best-effort by design (§4.6).
//
// A non-nil error other than domain.ErrAlreadyProcessed means the
// transaction rolled back; the caller (the Consumer Loop) must not advance
// the offset past this message.
func (c *Coordinator) Apply(ctx context.Context, event *domain.NormalizedEvent) error {
	err := c.store.WithTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return c.applyWithinTx(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	c.invalidate(ctx, event)

	return nil
}

func (c *Coordinator) applyWithinTx(ctx context.Context, tx domain.Tx, event *domain.NormalizedEvent) error {
	processed, err := tx.IsProcessed(ctx, event.MessageID)
	if err != nil {
		return fmt.Errorf("check processed: %w", err)
	}

	if processed {
		return domain.ErrAlreadyProcessed
	}

	if err := tx.EnsureProductAndWarehouse(ctx, event.WarehouseID, event.ProductID); err != nil {
		return fmt.Errorf("ensure product and warehouse: %w", err)
	}

	delta := event.EventKind.Sign(event.Quantity)
	if _, err := tx.ApplyDelta(ctx, event.WarehouseID, event.ProductID, delta); err != nil {
		return err
	}

	if _, err := tx.ApplyHalf(ctx, event); err != nil {
		return fmt.Errorf("apply movement half: %w", err)
	}

	if err := tx.Record(ctx, event); err != nil {
		return fmt.Errorf("record processed event: %w", err)
	}

	return nil
}

// invalidate deletes the stock and movement cache keys this event just
// staled. Both calls run regardless of each other's outcome (§4.6); both
// failures are logged at warning and never surfaced to the caller.
func (c *Coordinator) invalidate(ctx context.Context, event *domain.NormalizedEvent) {
	if err := c.invalidator.InvalidateStock(ctx, event.WarehouseID, event.ProductID); err != nil {
		c.logger.WarnContext(ctx, "stock cache invalidation failed",
			"warehouse_id", event.WarehouseID, "product_id", event.ProductID, "error", err)
	}

	if err := c.invalidator.InvalidateMovement(ctx, event.MovementID); err != nil {
		c.logger.WarnContext(ctx, "movement cache invalidation failed",
			"movement_id", event.MovementID, "error", err)
	}
}
