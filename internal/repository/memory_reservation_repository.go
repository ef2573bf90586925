package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// MemoryReservationRepository implements ReservationRepository using
// in-memory storage. It coordinates the seat and outbox stores the way the
// Postgres implementation coordinates its tables.
type MemoryReservationRepository struct {
	reservations map[string]*domain.Reservation
	seatRepo     *MemorySeatRepository
	paymentRepo  *MemoryPaymentRepository
	outboxRepo   *MemoryOutboxRepository
	mu           sync.RWMutex
}

// NewMemoryReservationRepository creates a new in-memory reservation
// repository sharing the given seat, payment and outbox stores
func NewMemoryReservationRepository(seatRepo *MemorySeatRepository, paymentRepo *MemoryPaymentRepository, outboxRepo *MemoryOutboxRepository) *MemoryReservationRepository {
	return &MemoryReservationRepository{
		reservations: make(map[string]*domain.Reservation),
		seatRepo:     seatRepo,
		paymentRepo:  paymentRepo,
		outboxRepo:   outboxRepo,
	}
}

// CreateWithOutbox inserts a HELD reservation, holds its seats and records
// the created event
func (r *MemoryReservationRepository) CreateWithOutbox(ctx context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reservations[reservation.ID]; exists {
		return fmt.Errorf("reservation %s already exists", reservation.ID)
	}

	if err := r.seatRepo.holdSeats(reservation.SeatIDsByDeparture(), reservation.ID); err != nil {
		return err
	}

	stored := cloneReservation(reservation)
	r.reservations[reservation.ID] = stored

	msg, err := domain.ReservationOutboxEvent(domain.EventReservationCreated, reservation)
	if err != nil {
		return err
	}
	return r.outboxRepo.Create(ctx, msg)
}

// GetByID retrieves a reservation by its ID
func (r *MemoryReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reservation, exists := r.reservations[id]
	if !exists {
		return nil, domain.ErrReservationNotFound
	}
	return cloneReservation(reservation), nil
}

// GetByMemberID retrieves the reservations of a member, newest first
func (r *MemoryReservationRepository) GetByMemberID(ctx context.Context, memberID string, limit, offset int) ([]*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Reservation
	for _, reservation := range r.reservations {
		if reservation.BelongsToMember(memberID) {
			result = append(result, cloneReservation(reservation))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetExpired retrieves HELD reservations whose expiry passed before asOf
func (r *MemoryReservationRepository) GetExpired(ctx context.Context, asOf time.Time, limit int) ([]*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Reservation
	for _, reservation := range r.reservations {
		if reservation.Status == domain.ReservationStatusHeld && reservation.IsExpiredAt(asOf) {
			result = append(result, cloneReservation(reservation))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CancelWithOutbox cancels a HELD reservation, frees its seats and records
// the cancelled event
func (r *MemoryReservationRepository) CancelWithOutbox(ctx context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.reservations[reservation.ID]
	if !exists {
		return domain.ErrReservationNotFound
	}

	// The domain transition owns the status check; illegal states come
	// back as their terminal errors
	updated := cloneReservation(stored)
	if err := updated.MarkCancelled(); err != nil {
		return err
	}

	if err := r.seatRepo.freeSeats(stored.SeatIDsByDeparture(), stored.ID); err != nil {
		return err
	}

	msg, err := domain.ReservationOutboxEvent(domain.EventReservationCancelled, updated)
	if err != nil {
		return err
	}
	if err := r.outboxRepo.Create(ctx, msg); err != nil {
		return err
	}
	r.reservations[reservation.ID] = updated
	return nil
}

// ExpireWithOutbox expires a HELD reservation whose window passed, frees its
// seats and records the expired event
func (r *MemoryReservationRepository) ExpireWithOutbox(ctx context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.reservations[reservation.ID]
	if !exists {
		return domain.ErrReservationNotFound
	}

	updated := cloneReservation(stored)
	if err := updated.MarkExpired(); err != nil {
		return err
	}
	if !stored.IsExpired() {
		return domain.ErrNotDue
	}

	if err := r.seatRepo.freeSeats(stored.SeatIDsByDeparture(), stored.ID); err != nil {
		return err
	}

	msg, err := domain.ReservationOutboxEvent(domain.EventReservationExpired, updated)
	if err != nil {
		return err
	}
	if err := r.outboxRepo.Create(ctx, msg); err != nil {
		return err
	}
	r.reservations[reservation.ID] = updated
	return nil
}

// SettleWithOutbox commits a settlement against the in-memory stores
func (r *MemoryReservationRepository) SettleWithOutbox(ctx context.Context, reservation *domain.Reservation, payment *domain.Payment, events ...*domain.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.reservations[reservation.ID]
	if !exists {
		return domain.ErrReservationNotFound
	}

	// MarkPaid rejects terminal states and overdue holds centrally; an
	// expired hold never settles even before the sweeper reaps it
	updated := cloneReservation(stored)
	if err := updated.MarkPaid(); err != nil {
		return err
	}

	if err := r.paymentRepo.Create(ctx, payment); err != nil {
		return err
	}

	if err := r.seatRepo.sellSeats(stored.SeatIDsByDeparture(), stored.ID); err != nil {
		return err
	}

	for _, msg := range events {
		if err := r.outboxRepo.Create(ctx, msg); err != nil {
			return err
		}
	}
	r.reservations[reservation.ID] = updated
	return nil
}

// cloneReservation copies a reservation including its claims
func cloneReservation(reservation *domain.Reservation) *domain.Reservation {
	clone := *reservation
	clone.Claims = append([]domain.SeatClaim(nil), reservation.Claims...)
	return &clone
}

// Ensure MemoryReservationRepository implements ReservationRepository
var _ ReservationRepository = (*MemoryReservationRepository)(nil)
