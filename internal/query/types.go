package query

import "time"

// StockRow mirrors domain.StockRow - duplicated here rather than imported so
// the read API's dependency graph never reaches into the write path's
// domain package, keeping the two sides of the CQRS split independent.
type StockRow struct {
	WarehouseID string
	ProductID   string
	Quantity    int
}

// Movement is the read-side projection of a movement's current pairing
// state, assembled from the same movements table the Movement Pairing
// Store writes (§4.4), but decoded without any dependency on the write
// path's domain.NormalizedEvent machinery.
type Movement struct {
	ID        string
	ProductID string

	SourceWarehouseID *string
	DepartureTime     *time.Time
	DepartureQuantity *int

	DestinationWarehouseID *string
	ArrivalTime            *time.Time
	ArrivalQuantity        *int

	TransferTimeSeconds *float64
	QuantityDifference  *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsComplete reports whether both halves of the movement have been recorded.
func (m *Movement) IsComplete() bool {
	return m.DepartureTime != nil && m.ArrivalTime != nil
}
