// Package normalizer implements the Event Normalizer (spec §4.1): decoding a
// raw log message into a domain.NormalizedEvent, or a terminal rejection.
package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Lisanis/warehouse-movement-service/internal/domain"
)

// envelope is the wire shape of a consumed message (§6). Field names match
// the JSON envelope exactly; this type is never exposed outside the
// normalizer package.
type envelope struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	DataContentType string          `json:"datacontenttype"`
	DataSchema      string          `json:"dataschema"`
	Time            int64           `json:"time"`
	Subject         string          `json:"subject"`
	Destination     string          `json:"destination"`
	Data            envelopeData    `json:"data"`
}

type envelopeData struct {
	MovementID  string `json:"movement_id"`
	WarehouseID string `json:"warehouse_id"`
	Timestamp   string `json:"timestamp"`
	Event       string `json:"event"`
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
}

// Normalizer decodes and validates raw message payloads into
// domain.NormalizedEvent. It holds no mutable state and is safe for
// concurrent use.
type Normalizer struct{}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize decodes payload (§6's JSON envelope) into a NormalizedEvent.
// Any decoding, structural, or schema violation returns
// domain.ErrMalformedMessage wrapped with the specific reason - a terminal
// rejection per §4.1's failure policy: the caller must log it and advance
// the offset, never retry.
func (n *Normalizer) Normalize(payload []byte) (*domain.NormalizedEvent, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", domain.ErrMalformedMessage, err)
	}

	if err := validateEnvelope(&env); err != nil {
		return nil, err
	}

	eventTimestamp, err := parseTimestamp(env.Data.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: data.timestamp: %w", domain.ErrMalformedMessage, err)
	}

	kind := domain.EventKind(strings.ToLower(env.Data.Event))

	return &domain.NormalizedEvent{
		MessageID:      env.ID,
		MessageSource:  env.Source,
		MessageTime:    time.UnixMilli(env.Time).UTC(),
		MovementID:     env.Data.MovementID,
		WarehouseID:    env.Data.WarehouseID,
		ProductID:      env.Data.ProductID,
		EventKind:      kind,
		EventTimestamp: eventTimestamp,
		Quantity:       env.Data.Quantity,
	}, nil
}

// validateEnvelope checks the structural rules of §4.1 that do not require
// parsing (required fields, non-negative time, recognized event kind).
func validateEnvelope(env *envelope) error {
	switch {
	case env.ID == "":
		return fmt.Errorf("%w: id is required", domain.ErrMalformedMessage)
	case env.Source == "":
		return fmt.Errorf("%w: source is required", domain.ErrMalformedMessage)
	case env.Time < 0:
		return fmt.Errorf("%w: time must be >= 0, got %d", domain.ErrMalformedMessage, env.Time)
	case env.Data.MovementID == "":
		return fmt.Errorf("%w: data.movement_id is required", domain.ErrMalformedMessage)
	case env.Data.WarehouseID == "":
		return fmt.Errorf("%w: data.warehouse_id is required", domain.ErrMalformedMessage)
	case env.Data.ProductID == "":
		return fmt.Errorf("%w: data.product_id is required", domain.ErrMalformedMessage)
	case env.Data.Timestamp == "":
		return fmt.Errorf("%w: data.timestamp is required", domain.ErrMalformedMessage)
	}

	kind := domain.EventKind(strings.ToLower(env.Data.Event))
	if !kind.IsValid() {
		return fmt.Errorf("%w: data.event must be arrival or departure, got %q", domain.ErrMalformedMessage, env.Data.Event)
	}

	return nil
}

// parseTimestamp parses an ISO-8601 string per §4.1: a trailing "Z" is
// equivalent to "+00:00"; a timestamp with no timezone offset is
// interpreted as UTC. The result is always normalized to UTC.
func parseTimestamp(value string) (time.Time, error) {
	normalized := value
	if strings.HasSuffix(normalized, "Z") {
		normalized = strings.TrimSuffix(normalized, "Z") + "+00:00"
	}

	if t, err := time.Parse(time.RFC3339Nano, normalized); err == nil {
		return t.UTC(), nil
	}

	if t, err := time.Parse("2006-01-02T15:04:05.999999999", normalized); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("cannot parse %q as ISO-8601", value)
}
