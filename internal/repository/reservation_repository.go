package repository

import (
	"context"
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// ReservationRepository defines the interface for reservation data access.
// The WithOutbox methods change reservation state, the claimed seats and the
// outbox atomically: either everything commits or nothing does.
type ReservationRepository interface {
	// CreateWithOutbox inserts a HELD reservation, moves every claimed seat
	// FREE -> HELD and records the created event. Returns a
	// *domain.SeatConflictError naming the exact seats when any claimed seat
	// is not free; no seat is held in that case.
	CreateWithOutbox(ctx context.Context, reservation *domain.Reservation) error

	// GetByID retrieves a reservation by its ID
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)

	// GetByMemberID retrieves the reservations of a member, newest first
	GetByMemberID(ctx context.Context, memberID string, limit, offset int) ([]*domain.Reservation, error)

	// GetExpired retrieves HELD reservations whose expiry passed before asOf
	GetExpired(ctx context.Context, asOf time.Time, limit int) ([]*domain.Reservation, error)

	// CancelWithOutbox moves a HELD reservation to CANCELLED, frees its seats
	// and records the cancelled event
	CancelWithOutbox(ctx context.Context, reservation *domain.Reservation) error

	// ExpireWithOutbox moves a HELD reservation to EXPIRED, frees its seats
	// and records the expired event. Returns domain.ErrNotDue when the hold
	// window has not passed yet; a reservation already out of HELD yields its
	// terminal-state error so concurrent sweeps converge.
	ExpireWithOutbox(ctx context.Context, reservation *domain.Reservation) error

	// SettleWithOutbox moves a HELD reservation to PAID, marks its seats
	// SOLD, inserts the payment row and records the given events, all in one
	// atomic commit
	SettleWithOutbox(ctx context.Context, reservation *domain.Reservation, payment *domain.Payment, events ...*domain.OutboxMessage) error
}
