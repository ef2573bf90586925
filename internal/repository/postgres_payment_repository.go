package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL
type PostgresPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentRepository creates a new PostgresPaymentRepository
func NewPostgresPaymentRepository(pool *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{pool: pool}
}

// Create creates a new payment record
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	_, err := r.pool.Exec(ctx, paymentInsertQuery, paymentInsertArgs(payment)...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPaymentExists
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// createTx creates a payment record within a transaction
func (r *PostgresPaymentRepository) createTx(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	_, err := tx.Exec(ctx, paymentInsertQuery, paymentInsertArgs(payment)...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPaymentExists
		}
		return fmt.Errorf("failed to create payment in transaction: %w", err)
	}
	return nil
}

const paymentInsertQuery = `
	INSERT INTO payments (
		id, reservation_id, member_id, amount, mileage_used, mileage_earned,
		gateway_tx_ref, idempotency_key, status, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func paymentInsertArgs(payment *domain.Payment) []any {
	return []any{
		payment.ID,
		payment.ReservationID,
		payment.MemberID,
		payment.Amount,
		payment.MileageUsed,
		payment.MileageEarned,
		payment.GatewayTxRef,
		payment.IdempotencyKey,
		payment.Status.String(),
		payment.CreatedAt,
	}
}

// GetByID retrieves a payment by its ID
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.getBy(ctx, "id", id)
}

// GetByIdempotencyKey retrieves a payment by its idempotency key
func (r *PostgresPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	return r.getBy(ctx, "idempotency_key", key)
}

// GetByReservationID retrieves the payment of a reservation
func (r *PostgresPaymentRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.Payment, error) {
	return r.getBy(ctx, "reservation_id", reservationID)
}

func (r *PostgresPaymentRepository) getBy(ctx context.Context, column, value string) (*domain.Payment, error) {
	query := fmt.Sprintf(`
		SELECT id, reservation_id, member_id, amount, mileage_used, mileage_earned,
			gateway_tx_ref, idempotency_key, status, created_at
		FROM payments
		WHERE %s = $1
	`, column)

	payment := &domain.Payment{}
	var status string
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&payment.ID,
		&payment.ReservationID,
		&payment.MemberID,
		&payment.Amount,
		&payment.MileageUsed,
		&payment.MileageEarned,
		&payment.GatewayTxRef,
		&payment.IdempotencyKey,
		&status,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by %s: %w", column, err)
	}

	payment.Status = domain.PaymentStatus(status)
	return payment, nil
}

// isUniqueViolation checks for the PostgreSQL unique-violation error code
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}

// Ensure PostgresPaymentRepository implements PaymentRepository
var _ PaymentRepository = (*PostgresPaymentRepository)(nil)
