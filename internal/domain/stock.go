package domain

import "time"

// StockRow is the per-(warehouse, product) quantity. Invariant: quantity is
// never negative at a committed state (enforced by the Stock Ledger, not by
// this struct).
type StockRow struct {
	WarehouseID string
	ProductID   string
	Quantity    int
}

// Movement is the end-to-end record pairing a departure half-event at a
// source warehouse with an arrival half-event at a destination warehouse.
// Either half may be absent until its corresponding event arrives.
type Movement struct {
	ID        string
	ProductID string

	// Departure half - set together by a DEPARTURE event.
	SourceWarehouseID *string
	DepartureTime     *time.Time
	DepartureQuantity *int

	// Arrival half - set together by an ARRIVAL event.
	DestinationWarehouseID *string
	ArrivalTime            *time.Time
	ArrivalQuantity        *int

	// Derived fields - populated only once both halves are present.
	TransferTimeSeconds *float64
	QuantityDifference  *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsComplete reports whether both halves of the movement have been recorded.
func (m *Movement) IsComplete() bool {
	return m.DepartureTime != nil && m.ArrivalTime != nil
}

// ApplyHalf folds one half-event into the movement in place, following the
// last-write-wins rule per half (§4.4): a repeated half for the same kind
// overwrites its own fields without disturbing the other half. Derived
// fields are recomputed whenever both halves are present after the update.
func (m *Movement) ApplyHalf(event *NormalizedEvent) {
	if m.ProductID == "" {
		m.ProductID = event.ProductID
	}

	warehouseID := event.WarehouseID
	quantity := event.Quantity
	timestamp := event.EventTimestamp

	switch event.EventKind {
	case EventKindDeparture:
		m.SourceWarehouseID = &warehouseID
		m.DepartureTime = &timestamp
		m.DepartureQuantity = &quantity
	case EventKindArrival:
		m.DestinationWarehouseID = &warehouseID
		m.ArrivalTime = &timestamp
		m.ArrivalQuantity = &quantity
	}

	m.recomputeDerived()
}

// recomputeDerived fills transfer_time_seconds and quantity_difference once
// both halves are present (§4.4). An arrival that precedes its departure is
// an anomaly preserved as a null transfer time, never rejected.
func (m *Movement) recomputeDerived() {
	if m.DepartureTime == nil || m.ArrivalTime == nil {
		return
	}

	if !m.ArrivalTime.Before(*m.DepartureTime) {
		seconds := m.ArrivalTime.Sub(*m.DepartureTime).Seconds()
		m.TransferTimeSeconds = &seconds
	} else {
		m.TransferTimeSeconds = nil
	}

	if m.DepartureQuantity != nil && m.ArrivalQuantity != nil {
		diff := *m.ArrivalQuantity - *m.DepartureQuantity
		m.QuantityDifference = &diff
	}
}

// ProcessedEventRecord is the idempotency journal's persisted row: a
// denormalized copy of one committed event, keyed by message_id.
type ProcessedEventRecord struct {
	MessageID     string
	MovementID    string
	WarehouseID   string
	ProductID     string
	EventKind     EventKind
	EventTime     time.Time
	Quantity      int
	ProcessedAt   time.Time
	MessageSource string
	MessageTime   time.Time
}
