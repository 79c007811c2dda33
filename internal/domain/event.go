// Package domain provides the warehouse movement domain models used across
// the pipeline: normalized events, stock rows, movements, and the
// processed-event journal. These are pure domain models without JSON tags -
// the normalizer package owns wire decoding and maps into these types.
package domain

import (
	"errors"
	"time"
)

type (
	// EventKind is the half-event discriminator carried by every movement event.
	EventKind string

	// NormalizedEvent is the validated, typed result of decoding one raw
	// message from the log. It is the only shape the Transaction Coordinator
	// operates on - the Normalizer never hands the Coordinator a raw payload.
	NormalizedEvent struct {
		// MessageID is the source message's unique identifier; the journal's
		// idempotency key.
		MessageID string

		// MessageSource identifies the producer tag carried in the envelope.
		MessageSource string

		// MessageTime is the envelope's "time" field (ms since epoch), UTC.
		MessageTime time.Time

		MovementID string
		WarehouseID string
		ProductID   string

		EventKind EventKind

		// EventTimestamp is the half-event's own timestamp (data.timestamp),
		// normalized to UTC.
		EventTimestamp time.Time

		// Quantity is the quantity carried by the event, passed through
		// unchanged by the Normalizer. Sign semantics (arrival = +,
		// departure = -) are applied by the Transaction Coordinator via
		// EventKind.Sign before the Stock Ledger sees the delta.
		Quantity int
	}
)

const (
	// EventKindArrival marks a half-event that increases stock at its warehouse.
	EventKindArrival EventKind = "arrival"
	// EventKindDeparture marks a half-event that decreases stock at its warehouse.
	EventKindDeparture EventKind = "departure"
)

// IsValid reports whether k is one of the two recognized half-event kinds.
func (k EventKind) IsValid() bool {
	return k == EventKindArrival || k == EventKindDeparture
}

// Sign returns the signed delta that this event kind applies to a StockRow:
// +quantity for arrival, -quantity for departure.
func (k EventKind) Sign(quantity int) int {
	if k == EventKindDeparture {
		return -quantity
	}

	return quantity
}

var (
	// ErrAlreadyProcessed is returned when a message's effects are already
	// committed. The Consumer Loop treats this as terminal-success: the
	// offset advances, no side effects run.
	ErrAlreadyProcessed = errors.New("event already processed")

	// ErrNegativeStock is returned when applying an event's delta would
	// drive a StockRow's quantity below zero. The Coordinator rolls back;
	// the Consumer Loop does not advance the offset.
	ErrNegativeStock = errors.New("applying delta would result in negative stock")

	// ErrMalformedMessage is returned by the Normalizer for any message that
	// fails to decode or fails schema validation. Terminal; the offset
	// advances without any database activity.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrTransientDB marks a database failure that should be retried: the
	// Coordinator rolls back and the Consumer Loop does not advance the
	// offset for the failed message.
	ErrTransientDB = errors.New("transient database error")

	// ErrTransientBroker marks a failure originating from the log client
	// itself (fetch or commit failure), distinct from a per-message
	// processing failure.
	ErrTransientBroker = errors.New("transient broker error")

	// ErrCacheFailure marks a cache operation failure. Never propagated as
	// an event failure - callers log it at warning and continue.
	ErrCacheFailure = errors.New("cache operation failed")
)
