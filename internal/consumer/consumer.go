// Package consumer implements the Consumer Loop (§4.7): it pulls batches
// from the log grouped by partition, dispatches each message through the
// Event Normalizer and Transaction Coordinator, and advances each
// partition's committed offset only past messages whose transaction
// committed or whose rejection was terminal.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"github.com/Lisanis/warehouse-movement-service/internal/config"
	"github.com/Lisanis/warehouse-movement-service/internal/domain"
	"github.com/Lisanis/warehouse-movement-service/internal/normalizer"
)

// pollTimeout bounds each individual fetch so the loop stays responsive to
// cancellation between messages, per §5's "poll uses a 1-second timeout".
const pollTimeout = 1 * time.Second

// brokerRetryDelay is how long the loop sleeps after a broker-level error
// before retrying the outer poll loop (§4.7 step 5).
const brokerRetryDelay = 5 * time.Second

// startRetryDelay is how long the loop sleeps between reader-creation
// retries during Start (§4.7 step 1).
const startRetryDelay = 10 * time.Second

// Applier is the subset of the Transaction Coordinator the Consumer Loop
// depends on.
type Applier interface {
	Apply(ctx context.Context, event *domain.NormalizedEvent) error
}

// Reader is the subset of *kafka.Reader the loop uses, narrowed so tests
// can substitute a fake.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs the Consumer Loop against one topic.
type Consumer struct {
	reader     Reader
	normalizer *normalizer.Normalizer
	applier    Applier
	logger     *slog.Logger
	batchSize  int
}

// New builds a Consumer reading from cfg.Topic with manual offset commit
// (enable_auto_commit = false per §4.7's configuration). batchSize caps how
// many messages one poll iteration collects before committing progress.
func New(cfg *config.KafkaConfig, applier Applier, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		StartOffset:       kafka.FirstOffset,
		CommitInterval:    0, // manual commit only
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxWait:           cfg.FetchMaxWait,
	})

	return newWithReader(reader, cfg, applier, logger)
}

func newWithReader(reader Reader, cfg *config.KafkaConfig, applier Applier, logger *slog.Logger) *Consumer {
	batchSize := cfg.MaxPollRecords
	if batchSize <= 0 {
		batchSize = 50
	}

	return &Consumer{
		reader:     reader,
		normalizer: normalizer.New(),
		applier:    applier,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Run blocks until ctx is canceled, repeatedly polling a batch, processing
// it per-partition in offset order, and committing progress (§4.7 steps 2-4).
// Broker-level errors are logged and retried after brokerRetryDelay rather
// than propagated, matching §4.7 step 5's "log, sleep 5s, continue".
func (c *Consumer) Run(ctx context.Context) error {
	connected := false

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		batch, err := c.fetchBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}

			// Before the first successful fetch, treat a failure as the
			// consumer never having connected (§4.7 step 1): retry more
			// patiently than the steady-state broker-error backoff.
			delay := brokerRetryDelay
			if !connected {
				delay = startRetryDelay
			}

			c.logger.ErrorContext(ctx, "kafka fetch failed", "error", err, "connected", connected)

			if !sleep(ctx, delay) {
				return nil
			}

			continue
		}

		connected = true

		if len(batch) == 0 {
			continue
		}

		if err := c.processBatch(ctx, batch); err != nil {
			c.logger.ErrorContext(ctx, "kafka commit failed", "error", err)

			if !sleep(ctx, brokerRetryDelay) {
				return nil
			}
		}
	}
}

// fetchBatch collects up to batchSize messages, or however many arrive
// before pollTimeout elapses - whichever comes first, so a quiet topic does
// not block the loop from observing cancellation.
func (c *Consumer) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	batch := make([]kafka.Message, 0, c.batchSize)

	deadlineCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	for len(batch) < c.batchSize {
		msg, err := c.reader.FetchMessage(deadlineCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}

			if len(batch) > 0 {
				break
			}

			return nil, err
		}

		batch = append(batch, msg)
	}

	return batch, nil
}

// processBatch groups the fetched messages by partition and processes each
// partition's messages in offset order, tracking last_successful_offset
// independently per partition (§4.7 step 3), then commits progress for
// every partition that advanced (§4.7 step 4).
func (c *Consumer) processBatch(ctx context.Context, batch []kafka.Message) error {
	byPartition := make(map[int][]kafka.Message)

	for _, msg := range batch {
		byPartition[msg.Partition] = append(byPartition[msg.Partition], msg)
	}

	toCommit := make([]kafka.Message, 0, len(batch))

	for _, messages := range byPartition {
		lastSuccessful := c.processPartition(ctx, messages)
		if lastSuccessful != nil {
			toCommit = append(toCommit, *lastSuccessful)
		}
	}

	if len(toCommit) == 0 {
		return nil
	}

	return c.reader.CommitMessages(ctx, toCommit...)
}

// processPartition applies messages in order and returns the last message
// whose processing succeeded (committed, terminally rejected, or already
// processed), or nil if none did. kafka-go's CommitMessages commits past
// the given message, so returning it is sufficient to advance the offset.
func (c *Consumer) processPartition(ctx context.Context, messages []kafka.Message) *kafka.Message {
	var lastSuccessful *kafka.Message

	for i := range messages {
		msg := messages[i]

		if !c.processOne(ctx, msg) {
			break
		}

		lastSuccessful = &msg
	}

	return lastSuccessful
}

// processOne runs one message through the Normalizer and Coordinator,
// returning true if the offset should advance past it: a committed
// transaction, a terminal rejection (malformed message), or
// ALREADY_PROCESSED all count as success. NEGATIVE_STOCK and any other
// failure (such as a transient database error) return false so the caller
// stops this partition's batch here, leaving the message for redelivery.
func (c *Consumer) processOne(ctx context.Context, msg kafka.Message) bool {
	logArgs := []any{"partition", msg.Partition, "offset", msg.Offset}

	event, err := c.normalizer.Normalize(msg.Value)
	if err != nil {
		c.logger.WarnContext(ctx, "rejecting malformed message", append(logArgs, "error", err)...)

		return true
	}

	logArgs = append(logArgs, "message_id", event.MessageID, "movement_id", event.MovementID)

	err = c.applier.Apply(ctx, event)

	switch {
	case err == nil:
		c.logger.InfoContext(ctx, "event applied", logArgs...)

		return true
	case errors.Is(err, domain.ErrAlreadyProcessed):
		c.logger.InfoContext(ctx, "event already processed", logArgs...)

		return true
	case errors.Is(err, domain.ErrNegativeStock):
		c.logger.WarnContext(ctx, "negative stock, holding offset for operator review",
			append(logArgs, "error", err)...)

		return false
	default:
		c.logger.ErrorContext(ctx, "transient failure applying event, holding offset",
			append(logArgs, "error", err)...)

		return false
	}
}

// sleep waits for d or until ctx is canceled, returning false in the latter
// case so the caller can stop instead of looping after cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
