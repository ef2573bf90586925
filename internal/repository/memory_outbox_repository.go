package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// MemoryOutboxRepository implements OutboxRepository using in-memory
// storage. This is useful for testing and development.
type MemoryOutboxRepository struct {
	messages map[string]*domain.OutboxMessage
	order    []string
	mu       sync.RWMutex
}

// NewMemoryOutboxRepository creates a new in-memory outbox repository
func NewMemoryOutboxRepository() *MemoryOutboxRepository {
	return &MemoryOutboxRepository{messages: make(map[string]*domain.OutboxMessage)}
}

// Create creates a new outbox message
func (r *MemoryOutboxRepository) Create(ctx context.Context, msg *domain.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	m := *msg
	r.messages[msg.ID] = &m
	r.order = append(r.order, msg.ID)
	return nil
}

// GetPendingMessages gets pending messages to be published, oldest first
func (r *MemoryOutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	return r.collect(limit, func(msg *domain.OutboxMessage) bool {
		return msg.Status == domain.OutboxStatusPending
	}), nil
}

// GetFailedMessages gets failed messages that can be retried
func (r *MemoryOutboxRepository) GetFailedMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	return r.collect(limit, func(msg *domain.OutboxMessage) bool {
		return msg.CanRetry()
	}), nil
}

func (r *MemoryOutboxRepository) collect(limit int, keep func(*domain.OutboxMessage) bool) []*domain.OutboxMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.OutboxMessage
	for _, id := range r.order {
		msg := r.messages[id]
		if !keep(msg) {
			continue
		}
		m := *msg
		result = append(result, &m)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}

// MarkAsPublished marks a message as successfully published
func (r *MemoryOutboxRepository) MarkAsPublished(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, exists := r.messages[id]
	if !exists {
		return fmt.Errorf("outbox message %s not found", id)
	}
	msg.MarkAsPublished()
	return nil
}

// MarkAsFailed marks a message as failed
func (r *MemoryOutboxRepository) MarkAsFailed(ctx context.Context, id string, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, exists := r.messages[id]
	if !exists {
		return fmt.Errorf("outbox message %s not found", id)
	}
	msg.MarkAsFailed(errMsg)
	return nil
}

// DeletePublished deletes old published messages for cleanup
func (r *MemoryOutboxRepository) DeletePublished(ctx context.Context, olderThanDays int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	var deleted int64
	var kept []string
	for _, id := range r.order {
		msg := r.messages[id]
		if msg.Status == domain.OutboxStatusPublished && msg.PublishedAt != nil && msg.PublishedAt.Before(cutoff) {
			delete(r.messages, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return deleted, nil
}

// Ensure MemoryOutboxRepository implements OutboxRepository
var _ OutboxRepository = (*MemoryOutboxRepository)(nil)
