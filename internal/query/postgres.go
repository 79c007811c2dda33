package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore is the PostgreSQL-backed implementation of Store. It reads
// the same movements and warehouse_stocks tables the write path populates,
// through its own *sql.DB handle rather than storage.Connection, so the
// read API never links against the write path's package.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps db as a Store. db is expected to already be a
// verified, pooled connection - callers typically open it the same way
// storage.NewConnection does, via the lib/pq driver.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// HealthCheck pings the underlying connection.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetStock implements Store.
func (s *PostgresStore) GetStock(ctx context.Context, warehouseID, productID string) (*StockRow, error) {
	var row StockRow

	err := s.db.QueryRowContext(ctx,
		`SELECT warehouse_id, product_id, quantity
		 FROM warehouse_stocks WHERE warehouse_id = $1 AND product_id = $2`,
		warehouseID, productID,
	).Scan(&row.WarehouseID, &row.ProductID, &row.Quantity)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("query stock: %w", err)
	}

	return &row, nil
}

// GetMovement implements Store.
func (s *PostgresStore) GetMovement(ctx context.Context, movementID string) (*Movement, error) {
	var m Movement

	var (
		sourceWarehouseID, destinationWarehouseID sql.NullString
		departureQuantity, arrivalQuantity         sql.NullInt64
		transferTimeSeconds                        sql.NullFloat64
		quantityDifference                         sql.NullInt64
		departureTime, arrivalTime                 sql.NullTime
	)

	err := s.db.QueryRowContext(ctx,
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
		return nil, fmt.Errorf("query movement: %w", err)
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
