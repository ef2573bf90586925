package repository

import (
	"context"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// OutboxRepository defines the interface for outbox data access
type OutboxRepository interface {
	// Create creates a new outbox message
	Create(ctx context.Context, msg *domain.OutboxMessage) error

	// GetPendingMessages gets pending messages to be published
	GetPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)

	// GetFailedMessages gets failed messages that can be retried
	GetFailedMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)

	// MarkAsPublished marks a message as successfully published
	MarkAsPublished(ctx context.Context, id string) error

	// MarkAsFailed marks a message as failed
	MarkAsFailed(ctx context.Context, id string, errMsg string) error

	// DeletePublished deletes published messages older than the given number
	// of days and returns how many were removed
	DeletePublished(ctx context.Context, olderThanDays int) (int64, error)
}
