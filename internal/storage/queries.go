package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Lisanis/warehouse-movement-service/internal/domain"
)

// isProcessed implements the Event Journal's duplicate check (§4.2): a
// message_id present in movement_events means this exact event has already
// been durably applied.
func isProcessed(ctx context.Context, q querier, messageID string) (bool, error) {
	var exists bool

	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM movement_events WHERE message_id = $1)`,
		messageID,
	).Scan(&exists)
	if err != nil {
		return false, classify(fmt.Errorf("check processed: %w", err))
	}

	return exists, nil
}

// ensureProductAndWarehouse implements §4.5 step 2: both referenced entities
// must exist before the stock row and movement half can be written, and
// repeated arrival of the same IDs across many events must not error.
func ensureProductAndWarehouse(ctx context.Context, q querier, warehouseID, productID string) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO warehouses (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		warehouseID,
	); err != nil {
		return classify(fmt.Errorf("ensure warehouse: %w", err))
	}

	if _, err := q.ExecContext(ctx,
		`INSERT INTO products (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		productID,
	); err != nil {
		return classify(fmt.Errorf("ensure product: %w", err))
	}

	return nil
}

// applyDelta implements the Stock Ledger (§4.3): the row is locked with
// SELECT ... FOR UPDATE so concurrent events against the same
// warehouse/product pair serialize, the resulting quantity is checked for
// the non-negative invariant before being persisted, and a missing row is
// implicitly created at zero before the delta is applied.
func applyDelta(ctx context.Context, q querier, warehouseID, productID string, delta int) (*domain.StockRow, error) {
	var current int

	err := q.QueryRowContext(ctx,
		`SELECT quantity FROM warehouse_stocks WHERE warehouse_id = $1 AND product_id = $2 FOR UPDATE`,
		warehouseID, productID,
	).Scan(&current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = 0
	case err != nil:
		return nil, classify(fmt.Errorf("lock stock row: %w", err))
	}

	next := current + delta
	if next < 0 {
		return nil, fmt.Errorf("%w: warehouse=%s product=%s current=%d delta=%d",
			domain.ErrNegativeStock, warehouseID, productID, current, delta)
	}

	if errors.Is(err, sql.ErrNoRows) {
		if _, insertErr := q.ExecContext(ctx,
			`INSERT INTO warehouse_stocks (warehouse_id, product_id, quantity) VALUES ($1, $2, $3)`,
			warehouseID, productID, next,
		); insertErr != nil {
			return nil, classify(fmt.Errorf("insert stock row: %w", insertErr))
		}
	} else {
		if _, updateErr := q.ExecContext(ctx,
			`UPDATE warehouse_stocks SET quantity = $3
			 WHERE warehouse_id = $1 AND product_id = $2`,
			warehouseID, productID, next,
		); updateErr != nil {
			return nil, classify(fmt.Errorf("update stock row: %w", updateErr))
		}
	}

	return &domain.StockRow{WarehouseID: warehouseID, ProductID: productID, Quantity: next}, nil
}

// applyHalf implements the Movement Pairing Store (§4.4): the current row
// for the movement (if any) is loaded, the half is applied in memory via
// domain.Movement.ApplyHalf (which also recomputes the derived fields), and
// the result is upserted back.
func applyHalf(ctx context.Context, q querier, event *domain.NormalizedEvent) (*domain.Movement, error) {
	movement, err := loadMovement(ctx, q, event.MovementID)
	if err != nil {
		return nil, err
	}

	if movement == nil {
		movement = &domain.Movement{ID: event.MovementID}
	}

	movement.ApplyHalf(event)

	if err := upsertMovement(ctx, q, event.MovementID, movement); err != nil {
		return nil, err
	}

	return movement, nil
}

func loadMovement(ctx context.Context, q querier, movementID string) (*domain.Movement, error) {
	var m domain.Movement

	var (
		sourceWarehouseID, destinationWarehouseID sql.NullString
		departureQuantity, arrivalQuantity         sql.NullInt64
		transferTimeSeconds                        sql.NullFloat64
		quantityDifference                         sql.NullInt64
		departureTime, arrivalTime                 sql.NullTime
	)

	err := q.QueryRowContext(ctx,
		`SELECT product_id, source_warehouse_id, departure_time, departure_quantity,
		        destination_warehouse_id, arrival_time, arrival_quantity,
		        transfer_time_seconds, quantity_difference, created_at, updated_at
		 FROM movements WHERE id = $1`,
		movementID,
	).Scan(
		&m.ProductID, &sourceWarehouseID, &departureTime, &departureQuantity,
		&destinationWarehouseID, &arrivalTime, &arrivalQuantity,
		&transferTimeSeconds, &quantityDifference, &m.CreatedAt, &m.UpdatedAt,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, classify(fmt.Errorf("load movement: %w", err))
	}

	m.ID = movementID

	if sourceWarehouseID.Valid {
		m.SourceWarehouseID = &sourceWarehouseID.String
	}

	if departureTime.Valid {
		m.DepartureTime = &departureTime.Time
	}

	if departureQuantity.Valid {
		v := int(departureQuantity.Int64)
		m.DepartureQuantity = &v
	}

	if destinationWarehouseID.Valid {
		m.DestinationWarehouseID = &destinationWarehouseID.String
	}

	if arrivalTime.Valid {
		m.ArrivalTime = &arrivalTime.Time
	}

	if arrivalQuantity.Valid {
		v := int(arrivalQuantity.Int64)
		m.ArrivalQuantity = &v
	}

	if transferTimeSeconds.Valid {
		v := transferTimeSeconds.Float64
		m.TransferTimeSeconds = &v
	}

	if quantityDifference.Valid {
		v := int(quantityDifference.Int64)
		m.QuantityDifference = &v
	}

	return &m, nil
}

func upsertMovement(ctx context.Context, q querier, movementID string, m *domain.Movement) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO movements (
		    id, product_id, source_warehouse_id, departure_time, departure_quantity,
		    destination_warehouse_id, arrival_time, arrival_quantity,
		    transfer_time_seconds, quantity_difference, created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		    source_warehouse_id = COALESCE(EXCLUDED.source_warehouse_id, movements.source_warehouse_id),
		    departure_time = COALESCE(EXCLUDED.departure_time, movements.departure_time),
		    departure_quantity = COALESCE(EXCLUDED.departure_quantity, movements.departure_quantity),
		    destination_warehouse_id = COALESCE(EXCLUDED.destination_warehouse_id, movements.destination_warehouse_id),
		    arrival_time = COALESCE(EXCLUDED.arrival_time, movements.arrival_time),
		    arrival_quantity = COALESCE(EXCLUDED.arrival_quantity, movements.arrival_quantity),
		    transfer_time_seconds = EXCLUDED.transfer_time_seconds,
		    quantity_difference = EXCLUDED.quantity_difference,
		    updated_at = now()`,
		movementID, m.ProductID,
		m.SourceWarehouseID, m.DepartureTime, m.DepartureQuantity,
		m.DestinationWarehouseID, m.ArrivalTime, m.ArrivalQuantity,
		m.TransferTimeSeconds, m.QuantityDifference,
	)
	if err != nil {
		return classify(fmt.Errorf("upsert movement: %w", err))
	}

	return nil
}

// record implements §4.2: the idempotency journal entry is written in the
// same transaction as the stock and movement mutations, so a crash between
// the two is impossible and the unique constraint on message_id is what
// makes ALREADY_PROCESSED detectable on redelivery.
func record(ctx context.Context, q querier, event *domain.NormalizedEvent) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO movement_events (
		    message_id, movement_id, warehouse_id, product_id, event_kind,
		    event_timestamp, quantity, processed_at, message_source, message_time
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), $8, $9)`,
		event.MessageID, event.MovementID, event.WarehouseID, event.ProductID,
		string(event.EventKind), event.EventTimestamp, event.Quantity,
		event.MessageSource, event.MessageTime,
	)
	if err != nil {
		return classify(fmt.Errorf("record processed event: %w", err))
	}

	return nil
}
