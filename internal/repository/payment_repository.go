package repository

import (
	"context"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its ID
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByIdempotencyKey retrieves a payment by its idempotency key.
	// Settlement replays resolve through this lookup.
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)

	// GetByReservationID retrieves the payment of a reservation
	GetByReservationID(ctx context.Context, reservationID string) (*domain.Payment, error)
}
