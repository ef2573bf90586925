package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// PostgresSeatRepository implements SeatRepository using PostgreSQL
type PostgresSeatRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSeatRepository creates a new PostgresSeatRepository
func NewPostgresSeatRepository(pool *pgxpool.Pool) *PostgresSeatRepository {
	return &PostgresSeatRepository{pool: pool}
}

// GetSeat retrieves one seat on one departure
func (r *PostgresSeatRepository) GetSeat(ctx context.Context, departureID, seatID string) (*domain.Seat, error) {
	query := `
		SELECT departure_id, seat_id, car_no, class, status, holder_id, updated_at
		FROM seats
		WHERE departure_id = $1 AND seat_id = $2
	`

	seat := &domain.Seat{}
	var status, class string
	err := r.pool.QueryRow(ctx, query, departureID, seatID).Scan(
		&seat.DepartureID,
		&seat.SeatID,
		&seat.CarNo,
		&class,
		&status,
		&seat.HolderID,
		&seat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to get seat: %w", err)
	}

	seat.Class = domain.SeatClass(class)
	seat.Status = domain.SeatStatus(status)
	return seat, nil
}

// ListByDeparture retrieves all seats of a departure ordered by seat ID
func (r *PostgresSeatRepository) ListByDeparture(ctx context.Context, departureID string) ([]*domain.Seat, error) {
	query := `
		SELECT departure_id, seat_id, car_no, class, status, holder_id, updated_at
		FROM seats
		WHERE departure_id = $1
		ORDER BY seat_id ASC
	`

	rows, err := r.pool.Query(ctx, query, departureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	defer rows.Close()

	return scanSeats(rows)
}

// ListFreeByDeparture retrieves the free seats of a departure
func (r *PostgresSeatRepository) ListFreeByDeparture(ctx context.Context, departureID string) ([]*domain.Seat, error) {
	query := `
		SELECT departure_id, seat_id, car_no, class, status, holder_id, updated_at
		FROM seats
		WHERE departure_id = $1 AND status = 'free'
		ORDER BY seat_id ASC
	`

	rows, err := r.pool.Query(ctx, query, departureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list free seats: %w", err)
	}
	defer rows.Close()

	return scanSeats(rows)
}

// CountFree counts the free seats of a departure
func (r *PostgresSeatRepository) CountFree(ctx context.Context, departureID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM seats WHERE departure_id = $1 AND status = 'free'",
		departureID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count free seats: %w", err)
	}
	return count, nil
}

// CreateSeats seeds the seat map of a departure
func (r *PostgresSeatRepository) CreateSeats(ctx context.Context, seats []*domain.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO seats (departure_id, seat_id, car_no, class, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now()
	for _, seat := range seats {
		status := seat.Status
		if status == "" {
			status = domain.SeatStatusFree
		}
		if _, err := tx.Exec(ctx, query,
			seat.DepartureID,
			seat.SeatID,
			seat.CarNo,
			string(seat.Class),
			status.String(),
			now,
		); err != nil {
			return fmt.Errorf("failed to create seat %s/%s: %w", seat.DepartureID, seat.SeatID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// holdSeatsTx moves the given seats FREE -> HELD within a transaction.
// All-or-nothing: when any seat is not free the update touches fewer rows
// than requested, a *domain.SeatConflictError names the blockers and the
// caller rolls the transaction back.
func (r *PostgresSeatRepository) holdSeatsTx(ctx context.Context, tx pgx.Tx, departureID string, seatIDs []string, reservationID string) error {
	query := `
		UPDATE seats SET
			status = 'held',
			holder_id = $3,
			updated_at = $4
		WHERE departure_id = $1 AND seat_id = ANY($2) AND status = 'free'
	`

	result, err := tx.Exec(ctx, query, departureID, seatIDs, reservationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to hold seats: %w", err)
	}

	if int(result.RowsAffected()) != len(seatIDs) {
		return r.seatConflictTx(ctx, tx, departureID, seatIDs, reservationID)
	}
	return nil
}

// seatConflictTx inspects the requested seats to report exactly which ones
// blocked an all-or-nothing hold. Runs inside the failed transaction, so the
// seats the update did move still read as held by this reservation; those are
// not blockers.
func (r *PostgresSeatRepository) seatConflictTx(ctx context.Context, tx pgx.Tx, departureID string, seatIDs []string, reservationID string) error {
	rows, err := tx.Query(ctx,
		"SELECT seat_id, status, holder_id FROM seats WHERE departure_id = $1 AND seat_id = ANY($2)",
		departureID, seatIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to inspect seat conflict: %w", err)
	}
	defer rows.Close()

	type seatState struct {
		status   domain.SeatStatus
		holderID *string
	}
	states := make(map[string]seatState, len(seatIDs))
	for rows.Next() {
		var seatID, status string
		var holderID *string
		if err := rows.Scan(&seatID, &status, &holderID); err != nil {
			return fmt.Errorf("failed to scan seat conflict: %w", err)
		}
		states[seatID] = seatState{status: domain.SeatStatus(status), holderID: holderID}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating seat conflict: %w", err)
	}

	conflict := &domain.SeatConflictError{DepartureID: departureID}
	for _, seatID := range seatIDs {
		state, exists := states[seatID]
		if !exists {
			return domain.ErrSeatNotFound
		}
		heldByUs := state.status == domain.SeatStatusHeld &&
			state.holderID != nil && *state.holderID == reservationID
		if !heldByUs {
			conflict.SeatIDs = append(conflict.SeatIDs, seatID)
		}
	}
	return conflict
}

// freeSeatsTx moves the given seats HELD -> FREE within a transaction,
// verifying they are held by the given reservation
func (r *PostgresSeatRepository) freeSeatsTx(ctx context.Context, tx pgx.Tx, departureID string, seatIDs []string, reservationID string) error {
	query := `
		UPDATE seats SET
			status = 'free',
			holder_id = NULL,
			updated_at = $4
		WHERE departure_id = $1 AND seat_id = ANY($2) AND status = 'held' AND holder_id = $3
	`

	result, err := tx.Exec(ctx, query, departureID, seatIDs, reservationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to free seats: %w", err)
	}
	if int(result.RowsAffected()) != len(seatIDs) {
		return domain.ErrSeatNotHeld
	}
	return nil
}

// sellSeatsTx moves the given seats HELD -> SOLD within a transaction,
// verifying they are held by the given reservation. The holder reference is
// kept so a sold seat points at the reservation that bought it.
func (r *PostgresSeatRepository) sellSeatsTx(ctx context.Context, tx pgx.Tx, departureID string, seatIDs []string, reservationID string) error {
	query := `
		UPDATE seats SET
			status = 'sold',
			updated_at = $4
		WHERE departure_id = $1 AND seat_id = ANY($2) AND status = 'held' AND holder_id = $3
	`

	result, err := tx.Exec(ctx, query, departureID, seatIDs, reservationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to sell seats: %w", err)
	}
	if int(result.RowsAffected()) != len(seatIDs) {
		return domain.ErrSeatNotHeld
	}
	return nil
}

// scanSeats scans rows into a Seat slice
func scanSeats(rows pgx.Rows) ([]*domain.Seat, error) {
	var seats []*domain.Seat

	for rows.Next() {
		seat := &domain.Seat{}
		var status, class string

		err := rows.Scan(
			&seat.DepartureID,
			&seat.SeatID,
			&seat.CarNo,
			&class,
			&status,
			&seat.HolderID,
			&seat.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}

		seat.Class = domain.SeatClass(class)
		seat.Status = domain.SeatStatus(status)
		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seats: %w", err)
	}
	return seats, nil
}

// Ensure PostgresSeatRepository implements SeatRepository
var _ SeatRepository = (*PostgresSeatRepository)(nil)
