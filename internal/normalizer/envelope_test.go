package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lisanis/warehouse-movement-service/internal/domain"
)

func validPayload() string {
	return `{
		"id": "msg-1",
		"source": "wms",
		"specversion": "1.0",
		"type": "movement",
		"datacontenttype": "application/json",
		"dataschema": "warehouse/v1",
		"time": 1700000000000,
		"subject": "movement-events",
		"destination": "warehouse-service",
		"data": {
			"movement_id": "m1",
			"warehouse_id": "w1",
			"timestamp": "2023-11-14T22:13:20Z",
			"event": "ARRIVAL",
			"product_id": "p1",
			"quantity": 100
		}
	}`
}

func TestNormalize_ValidArrival(t *testing.T) {
	n := New()

	event, err := n.Normalize([]byte(validPayload()))
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, "msg-1", event.MessageID)
	assert.Equal(t, "m1", event.MovementID)
	assert.Equal(t, "w1", event.WarehouseID)
	assert.Equal(t, "p1", event.ProductID)
	assert.Equal(t, domain.EventKindArrival, event.EventKind)
	assert.Equal(t, 100, event.Quantity)
	assert.Equal(t, time.UTC, event.EventTimestamp.Location())
}

func TestNormalize_CaseInsensitiveEventLowercased(t *testing.T) {
	n := New()

	event, err := n.Normalize([]byte(validPayload()))
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindArrival, event.EventKind)
}

func TestNormalize_InvalidJSON(t *testing.T) {
	n := New()

	_, err := n.Normalize([]byte(`{not json`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)
}

func TestNormalize_MissingMovementID(t *testing.T) {
	n := New()

	payload := `{
		"id": "msg-2", "source": "wms", "specversion": "1.0", "type": "movement",
		"datacontenttype": "application/json", "dataschema": "warehouse/v1",
		"time": 1700000000000, "subject": "s", "destination": "d",
		"data": {"warehouse_id": "w1", "timestamp": "2023-11-14T22:13:20Z", "event": "arrival", "product_id": "p1", "quantity": 1}
	}`

	_, err := n.Normalize([]byte(payload))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)
}

func TestNormalize_InvalidEventKind(t *testing.T) {
	n := New()

	payload := `{
		"id": "msg-3", "source": "wms", "specversion": "1.0", "type": "movement",
		"datacontenttype": "application/json", "dataschema": "warehouse/v1",
		"time": 1700000000000, "subject": "s", "destination": "d",
		"data": {"movement_id": "m1", "warehouse_id": "w1", "timestamp": "2023-11-14T22:13:20Z", "event": "sideways", "product_id": "p1", "quantity": 1}
	}`

	_, err := n.Normalize([]byte(payload))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)
}

func TestNormalize_NegativeTime(t *testing.T) {
	n := New()

	payload := `{
		"id": "msg-4", "source": "wms", "specversion": "1.0", "type": "movement",
		"datacontenttype": "application/json", "dataschema": "warehouse/v1",
		"time": -1, "subject": "s", "destination": "d",
		"data": {"movement_id": "m1", "warehouse_id": "w1", "timestamp": "2023-11-14T22:13:20Z", "event": "arrival", "product_id": "p1", "quantity": 1}
	}`

	_, err := n.Normalize([]byte(payload))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)
}

func TestNormalize_TimestampWithoutTimezoneIsUTC(t *testing.T) {
	n := New()

	payload := `{
		"id": "msg-5", "source": "wms", "specversion": "1.0", "type": "movement",
		"datacontenttype": "application/json", "dataschema": "warehouse/v1",
		"time": 1700000000000, "subject": "s", "destination": "d",
		"data": {"movement_id": "m1", "warehouse_id": "w1", "timestamp": "2023-11-14T22:13:20", "event": "departure", "product_id": "p1", "quantity": 1}
	}`

	event, err := n.Normalize([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindDeparture, event.EventKind)
	assert.Equal(t, time.UTC, event.EventTimestamp.Location())
}
