package repository

import (
	"context"
	"sync"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// MemoryPaymentRepository implements PaymentRepository using in-memory
// storage. This is useful for testing and development.
type MemoryPaymentRepository struct {
	payments      map[string]*domain.Payment
	byIdempotency map[string]string // idempotencyKey -> paymentID
	byReservation map[string]string // reservationID -> paymentID
	mu            sync.RWMutex
}

// NewMemoryPaymentRepository creates a new in-memory payment repository
func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		payments:      make(map[string]*domain.Payment),
		byIdempotency: make(map[string]string),
		byReservation: make(map[string]string),
	}
}

// Create creates a new payment record
func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[payment.ID]; exists {
		return domain.ErrPaymentExists
	}
	if _, exists := r.byIdempotency[payment.IdempotencyKey]; exists {
		return domain.ErrPaymentExists
	}
	if _, exists := r.byReservation[payment.ReservationID]; exists {
		return domain.ErrPaymentExists
	}

	p := *payment
	r.payments[payment.ID] = &p
	r.byIdempotency[payment.IdempotencyKey] = payment.ID
	r.byReservation[payment.ReservationID] = payment.ID
	return nil
}

// GetByID retrieves a payment by its ID
func (r *MemoryPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, exists := r.payments[id]
	if !exists {
		return nil, domain.ErrPaymentNotFound
	}
	p := *payment
	return &p, nil
}

// GetByIdempotencyKey retrieves a payment by its idempotency key
func (r *MemoryPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paymentID, exists := r.byIdempotency[key]
	if !exists {
		return nil, domain.ErrPaymentNotFound
	}
	p := *r.payments[paymentID]
	return &p, nil
}

// GetByReservationID retrieves the payment of a reservation
func (r *MemoryPaymentRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paymentID, exists := r.byReservation[reservationID]
	if !exists {
		return nil, domain.ErrPaymentNotFound
	}
	p := *r.payments[paymentID]
	return &p, nil
}

// Ensure MemoryPaymentRepository implements PaymentRepository
var _ PaymentRepository = (*MemoryPaymentRepository)(nil)
