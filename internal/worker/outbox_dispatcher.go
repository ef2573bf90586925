package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/kafka"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/logger"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/retry"
)

// producer is the slice of the Kafka producer the dispatcher needs
type producer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
}

// OutboxDispatcherConfig contains configuration for the outbox dispatcher
type OutboxDispatcherConfig struct {
	// PollInterval is the interval between polls of the outbox table
	PollInterval time.Duration
	// BatchSize is the number of messages to publish in each poll
	BatchSize int
	// CleanupInterval is the interval between purges of published rows
	CleanupInterval time.Duration
	// RetainDays is how long published rows are kept before cleanup
	RetainDays int
}

// DefaultOutboxDispatcherConfig returns default configuration
func DefaultOutboxDispatcherConfig() *OutboxDispatcherConfig {
	return &OutboxDispatcherConfig{
		PollInterval:    time.Second,
		BatchSize:       100,
		CleanupInterval: time.Hour,
		RetainDays:      7,
	}
}

// OutboxDispatcher drains the transactional outbox into Kafka. Messages are
// published at-least-once; consumers deduplicate on the message ID header.
type OutboxDispatcher struct {
	outboxRepo repository.OutboxRepository
	producer   producer
	retrier    *retry.Retrier
	config     *OutboxDispatcherConfig
	log        *logger.Logger
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool

	// Stats
	totalPublished int64
	totalFailed    int64
}

// NewOutboxDispatcher creates a new outbox dispatcher
func NewOutboxDispatcher(
	outboxRepo repository.OutboxRepository,
	p producer,
	config *OutboxDispatcherConfig,
) *OutboxDispatcher {
	if config == nil {
		config = DefaultOutboxDispatcherConfig()
	}

	return &OutboxDispatcher{
		outboxRepo: outboxRepo,
		producer:   p,
		retrier: retry.New(&retry.Config{
			MaxRetries:      2,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		}),
		config: config,
		log:    logger.Get(),
		stopCh: make(chan struct{}),
	}
}

// Start starts the dispatcher
func (w *OutboxDispatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox dispatcher already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting outbox dispatcher",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	w.wg.Add(2)
	go w.pollLoop(ctx)
	go w.cleanupLoop(ctx)

	return nil
}

// Stop stops the dispatcher and waits for in-flight publishes
func (w *OutboxDispatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping outbox dispatcher")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Outbox dispatcher stopped")
}

// pollLoop drains the outbox until stopped
func (w *OutboxDispatcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// cleanupLoop purges old published rows until stopped
func (w *OutboxDispatcher) cleanupLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			deleted, err := w.outboxRepo.DeletePublished(ctx, w.config.RetainDays)
			if err != nil {
				w.log.Error("Failed to purge published outbox rows", zap.Error(err))
				continue
			}
			if deleted > 0 {
				w.log.Info("Purged published outbox rows", zap.Int64("count", deleted))
			}
		}
	}
}

// drain publishes one batch of pending messages, then one batch of earlier
// failures that still have retries left
func (w *OutboxDispatcher) drain(ctx context.Context) {
	pending, err := w.outboxRepo.GetPendingMessages(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("Failed to fetch pending outbox messages", zap.Error(err))
		return
	}
	w.publishBatch(ctx, pending)

	failed, err := w.outboxRepo.GetFailedMessages(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("Failed to fetch failed outbox messages", zap.Error(err))
		return
	}
	w.publishBatch(ctx, failed)
}

// publishBatch pushes messages to Kafka one by one, marking each row as it
// resolves
func (w *OutboxDispatcher) publishBatch(ctx context.Context, messages []*domain.OutboxMessage) {
	for _, msg := range messages {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		if err := w.publish(ctx, msg); err != nil {
			w.markFailed(ctx, msg, err)
			continue
		}
		if err := w.outboxRepo.MarkAsPublished(ctx, msg.ID); err != nil {
			// The message is out; the row will be republished next poll and
			// consumers deduplicate on the message ID
			w.log.Warn("Published but failed to mark outbox row",
				zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}

		w.mu.Lock()
		w.totalPublished++
		w.mu.Unlock()
	}
}

// publish sends one outbox message to its topic
func (w *OutboxDispatcher) publish(ctx context.Context, msg *domain.OutboxMessage) error {
	return w.retrier.Do(ctx, func(ctx context.Context) error {
		return w.producer.Produce(ctx, &kafka.Message{
			Topic: msg.Topic,
			Key:   []byte(msg.PartitionKey),
			Value: msg.Payload,
			Headers: map[string]string{
				"message_id":     msg.ID,
				"event_type":     msg.EventType,
				"aggregate_type": msg.AggregateType,
				"aggregate_id":   msg.AggregateID,
			},
			Timestamp: msg.CreatedAt,
		})
	})
}

// markFailed records a publish failure on the outbox row
func (w *OutboxDispatcher) markFailed(ctx context.Context, msg *domain.OutboxMessage, pubErr error) {
	w.log.Error("Failed to publish outbox message",
		zap.String("message_id", msg.ID),
		zap.String("topic", msg.Topic),
		zap.Error(pubErr))

	if err := w.outboxRepo.MarkAsFailed(ctx, msg.ID, pubErr.Error()); err != nil {
		w.log.Error("Failed to mark outbox row as failed",
			zap.String("message_id", msg.ID), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.totalFailed++
	w.mu.Unlock()
}

// Stats returns dispatcher statistics
func (w *OutboxDispatcher) Stats() *OutboxDispatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &OutboxDispatcherStats{
		IsRunning:      w.running,
		TotalPublished: w.totalPublished,
		TotalFailed:    w.totalFailed,
	}
}

// OutboxDispatcherStats contains dispatcher statistics
type OutboxDispatcherStats struct {
	IsRunning      bool  `json:"is_running"`
	TotalPublished int64 `json:"total_published"`
	TotalFailed    int64 `json:"total_failed"`
}
