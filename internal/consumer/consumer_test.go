package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lisanis/warehouse-movement-service/internal/config"
	"github.com/Lisanis/warehouse-movement-service/internal/domain"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	fetchPos  int
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fetchPos >= len(f.messages) {
		<-ctx.Done()

		return kafka.Message{}, ctx.Err()
	}

	msg := f.messages[f.fetchPos]
	f.fetchPos++

	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.committed = append(f.committed, msgs...)

	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true

	return nil
}

type fakeApplier struct {
	mu      sync.Mutex
	applied []string
	fail    map[string]error
}

func (f *fakeApplier) Apply(_ context.Context, event *domain.NormalizedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.fail[event.MessageID]; ok {
		return err
	}

	f.applied = append(f.applied, event.MessageID)

	return nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validPayload(id, movementID string) []byte {
	return []byte(`{
		"id": "` + id + `",
		"source": "wms",
		"time": 1,
		"data": {
			"movement_id": "` + movementID + `",
			"warehouse_id": "wh-1",
			"product_id": "prod-1",
			"event": "arrival",
			"timestamp": "2026-01-01T00:00:00Z",
			"quantity": 5
		}
	}`)
}

func testConfig() *config.KafkaConfig {
	return &config.KafkaConfig{MaxPollRecords: 10}
}

func TestConsumer_ProcessBatch_CommitsPastSuccessfulMessages(t *testing.T) {
	reader := &fakeReader{
		messages: []kafka.Message{
			{Partition: 0, Offset: 0, Value: validPayload("msg-1", "mv-1")},
			{Partition: 0, Offset: 1, Value: validPayload("msg-2", "mv-2")},
		},
	}
	applier := &fakeApplier{fail: map[string]error{}}
	c := newWithReader(reader, testConfig(), applier, silentLogger())

	err := c.processBatch(context.Background(), reader.messages)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"msg-1", "msg-2"}, applier.applied)
	require.Len(t, reader.committed, 1)
	assert.Equal(t, int64(1), reader.committed[0].Offset)
}

func TestConsumer_ProcessBatch_StopsPartitionAtTransientFailure(t *testing.T) {
	reader := &fakeReader{}
	applier := &fakeApplier{fail: map[string]error{"msg-2": domain.ErrTransientDB}}
	c := newWithReader(reader, testConfig(), applier, silentLogger())

	batch := []kafka.Message{
		{Partition: 0, Offset: 0, Value: validPayload("msg-1", "mv-1")},
		{Partition: 0, Offset: 1, Value: validPayload("msg-2", "mv-2")},
		{Partition: 0, Offset: 2, Value: validPayload("msg-3", "mv-3")},
	}

	err := c.processBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, []string{"msg-1"}, applier.applied)
	require.Len(t, reader.committed, 1)
	assert.Equal(t, int64(0), reader.committed[0].Offset)
}

func TestConsumer_ProcessBatch_MalformedMessageAdvancesOffset(t *testing.T) {
	reader := &fakeReader{}
	applier := &fakeApplier{}
	c := newWithReader(reader, testConfig(), applier, silentLogger())

	batch := []kafka.Message{
		{Partition: 0, Offset: 0, Value: []byte("not json")},
	}

	err := c.processBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Empty(t, applier.applied)
	require.Len(t, reader.committed, 1)
	assert.Equal(t, int64(0), reader.committed[0].Offset)
}

func TestConsumer_ProcessBatch_AlreadyProcessedAdvancesOffset(t *testing.T) {
	reader := &fakeReader{}
	applier := &fakeApplier{fail: map[string]error{"msg-1": domain.ErrAlreadyProcessed}}
	c := newWithReader(reader, testConfig(), applier, silentLogger())

	batch := []kafka.Message{
		{Partition: 0, Offset: 0, Value: validPayload("msg-1", "mv-1")},
	}

	err := c.processBatch(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, reader.committed, 1)
	assert.Equal(t, int64(0), reader.committed[0].Offset)
}

func TestConsumer_ProcessBatch_IndependentPartitionsCommitIndependently(t *testing.T) {
	reader := &fakeReader{}
	applier := &fakeApplier{fail: map[string]error{"p1-msg-1": domain.ErrNegativeStock}}
	c := newWithReader(reader, testConfig(), applier, silentLogger())

	batch := []kafka.Message{
		{Partition: 0, Offset: 0, Value: validPayload("p0-msg-0", "mv-1")},
		{Partition: 1, Offset: 5, Value: validPayload("p1-msg-1", "mv-2")},
	}

	err := c.processBatch(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, reader.committed, 1)
	assert.Equal(t, 0, reader.committed[0].Partition)
	assert.Equal(t, int64(0), reader.committed[0].Offset)
}

func TestConsumer_Run_StopsOnContextCancellation(t *testing.T) {
	reader := &fakeReader{}
	applier := &fakeApplier{}
	c := newWithReader(reader, testConfig(), applier, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestConsumer_FetchBatch_PropagatesNonCancellationError(t *testing.T) {
	boom := errors.New("boom")
	reader := &erroringReader{err: boom}
	applier := &fakeApplier{}
	c := newWithReader(reader, testConfig(), applier, silentLogger())

	_, err := c.fetchBatch(context.Background())
	require.ErrorIs(t, err, boom)
}

type erroringReader struct {
	err error
}

func (e *erroringReader) FetchMessage(context.Context) (kafka.Message, error) {
	return kafka.Message{}, e.err
}

func (e *erroringReader) CommitMessages(context.Context, ...kafka.Message) error {
	return nil
}

func (e *erroringReader) Close() error {
	return nil
}
