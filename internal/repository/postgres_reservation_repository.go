package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// PostgresReservationRepository implements ReservationRepository using
// PostgreSQL. Every state change runs in one transaction together with the
// claimed seats and the outbox insert.
type PostgresReservationRepository struct {
	pool        *pgxpool.Pool
	seatRepo    *PostgresSeatRepository
	paymentRepo *PostgresPaymentRepository
	outboxRepo  *PostgresOutboxRepository
}

// NewPostgresReservationRepository creates a new PostgresReservationRepository
func NewPostgresReservationRepository(pool *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{
		pool:        pool,
		seatRepo:    NewPostgresSeatRepository(pool),
		paymentRepo: NewPostgresPaymentRepository(pool),
		outboxRepo:  NewPostgresOutboxRepository(pool),
	}
}

// CreateWithOutbox inserts a HELD reservation, holds its seats and records
// the created event in a single transaction
func (r *PostgresReservationRepository) CreateWithOutbox(ctx context.Context, reservation *domain.Reservation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.createReservationTx(ctx, tx, reservation); err != nil {
		return err
	}

	for departureID, seatIDs := range reservation.SeatIDsByDeparture() {
		if err := r.seatRepo.holdSeatsTx(ctx, tx, departureID, seatIDs, reservation.ID); err != nil {
			return err
		}
	}

	msg, err := domain.ReservationOutboxEvent(domain.EventReservationCreated, reservation)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	if err := r.outboxRepo.CreateTx(ctx, tx, msg); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by its ID
func (r *PostgresReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	query := `
		SELECT id, member_id, trip_type, claims, status,
			created_at, expires_at, paid_at, cancelled_at, updated_at
		FROM reservations
		WHERE id = $1
	`

	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return reservation, nil
}

// GetByMemberID retrieves the reservations of a member, newest first
func (r *PostgresReservationRepository) GetByMemberID(ctx context.Context, memberID string, limit, offset int) ([]*domain.Reservation, error) {
	query := `
		SELECT id, member_id, trip_type, claims, status,
			created_at, expires_at, paid_at, cancelled_at, updated_at
		FROM reservations
		WHERE member_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, memberID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations by member: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// GetExpired retrieves HELD reservations whose expiry passed before asOf
func (r *PostgresReservationRepository) GetExpired(ctx context.Context, asOf time.Time, limit int) ([]*domain.Reservation, error) {
	query := `
		SELECT id, member_id, trip_type, claims, status,
			created_at, expires_at, paid_at, cancelled_at, updated_at
		FROM reservations
		WHERE status = 'held' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// CancelWithOutbox cancels a HELD reservation, frees its seats and records
// the cancelled event in a single transaction
func (r *PostgresReservationRepository) CancelWithOutbox(ctx context.Context, reservation *domain.Reservation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE reservations SET
			status = 'cancelled',
			cancelled_at = $2,
			updated_at = $2
		WHERE id = $1 AND status = 'held'
	`

	now := time.Now()
	result, err := tx.Exec(ctx, query, reservation.ID, now)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.statusConflictTx(ctx, tx, reservation.ID)
	}

	for departureID, seatIDs := range reservation.SeatIDsByDeparture() {
		if err := r.seatRepo.freeSeatsTx(ctx, tx, departureID, seatIDs, reservation.ID); err != nil {
			return err
		}
	}

	msg, err := domain.ReservationOutboxEvent(domain.EventReservationCancelled, reservation)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	if err := r.outboxRepo.CreateTx(ctx, tx, msg); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ExpireWithOutbox expires a HELD reservation whose window passed, frees its
// seats and records the expired event. The due check sits in the WHERE
// clause, so racing sweeps and an early call both lose cleanly.
func (r *PostgresReservationRepository) ExpireWithOutbox(ctx context.Context, reservation *domain.Reservation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE reservations SET
			status = 'expired',
			updated_at = $2
		WHERE id = $1 AND status = 'held' AND expires_at < $2
	`

	now := time.Now()
	result, err := tx.Exec(ctx, query, reservation.ID, now)
	if err != nil {
		return fmt.Errorf("failed to expire reservation: %w", err)
	}
	if result.RowsAffected() == 0 {
		var status string
		var expiresAt time.Time
		err := tx.QueryRow(ctx,
			"SELECT status, expires_at FROM reservations WHERE id = $1",
			reservation.ID,
		).Scan(&status, &expiresAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrReservationNotFound
			}
			return fmt.Errorf("failed to check reservation status: %w", err)
		}
		if domain.ReservationStatus(status) == domain.ReservationStatusHeld {
			return domain.ErrNotDue
		}
		return reservationStatusError(domain.ReservationStatus(status))
	}

	for departureID, seatIDs := range reservation.SeatIDsByDeparture() {
		if err := r.seatRepo.freeSeatsTx(ctx, tx, departureID, seatIDs, reservation.ID); err != nil {
			return err
		}
	}

	msg, err := domain.ReservationOutboxEvent(domain.EventReservationExpired, reservation)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	if err := r.outboxRepo.CreateTx(ctx, tx, msg); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SettleWithOutbox commits a settlement: the reservation goes PAID, its seats
// go SOLD, the payment row lands and every event is recorded, all or nothing
func (r *PostgresReservationRepository) SettleWithOutbox(ctx context.Context, reservation *domain.Reservation, payment *domain.Payment, events ...*domain.OutboxMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE reservations SET
			status = 'paid',
			paid_at = $2,
			updated_at = $2
		WHERE id = $1 AND status = 'held'
	`

	now := time.Now()
	result, err := tx.Exec(ctx, query, reservation.ID, now)
	if err != nil {
		return fmt.Errorf("failed to mark reservation paid: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.statusConflictTx(ctx, tx, reservation.ID)
	}

	for departureID, seatIDs := range reservation.SeatIDsByDeparture() {
		if err := r.seatRepo.sellSeatsTx(ctx, tx, departureID, seatIDs, reservation.ID); err != nil {
			return err
		}
	}

	if err := r.paymentRepo.createTx(ctx, tx, payment); err != nil {
		return err
	}

	for _, msg := range events {
		if err := r.outboxRepo.CreateTx(ctx, tx, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// createReservationTx inserts a reservation within a transaction
func (r *PostgresReservationRepository) createReservationTx(ctx context.Context, tx pgx.Tx, reservation *domain.Reservation) error {
	claims, err := json.Marshal(reservation.Claims)
	if err != nil {
		return fmt.Errorf("failed to marshal seat claims: %w", err)
	}

	query := `
		INSERT INTO reservations (
			id, member_id, trip_type, claims, status,
			created_at, expires_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.Exec(ctx, query,
		reservation.ID,
		reservation.MemberID,
		string(reservation.TripType),
		claims,
		reservation.Status.String(),
		reservation.CreatedAt,
		reservation.ExpiresAt,
		reservation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

// statusConflictTx maps a failed conditional update to the reservation's
// actual state
func (r *PostgresReservationRepository) statusConflictTx(ctx context.Context, tx pgx.Tx, id string) error {
	var status string
	err := tx.QueryRow(ctx, "SELECT status FROM reservations WHERE id = $1", id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrReservationNotFound
		}
		return fmt.Errorf("failed to check reservation status: %w", err)
	}
	return reservationStatusError(domain.ReservationStatus(status))
}

// reservationStatusError maps a non-HELD status to its terminal-state error
func reservationStatusError(status domain.ReservationStatus) error {
	switch status {
	case domain.ReservationStatusPaid:
		return domain.ErrAlreadyPaid
	case domain.ReservationStatusCancelled:
		return domain.ErrAlreadyCancelled
	case domain.ReservationStatusExpired:
		return domain.ErrReservationExpired
	default:
		return domain.ErrReservationNotHeld
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanReservation scans a single reservation row
func scanReservation(row rowScanner) (*domain.Reservation, error) {
	reservation := &domain.Reservation{}
	var tripType, status string
	var claims []byte

	err := row.Scan(
		&reservation.ID,
		&reservation.MemberID,
		&tripType,
		&claims,
		&status,
		&reservation.CreatedAt,
		&reservation.ExpiresAt,
		&reservation.PaidAt,
		&reservation.CancelledAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(claims, &reservation.Claims); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seat claims: %w", err)
	}
	reservation.TripType = domain.TripType(tripType)
	reservation.Status = domain.ReservationStatus(status)
	return reservation, nil
}

// scanReservations scans rows into a Reservation slice
func scanReservations(rows pgx.Rows) ([]*domain.Reservation, error) {
	var reservations []*domain.Reservation

	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}
	return reservations, nil
}

// Ensure PostgresReservationRepository implements ReservationRepository
var _ ReservationRepository = (*PostgresReservationRepository)(nil)
