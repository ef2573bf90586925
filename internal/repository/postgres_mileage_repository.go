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

// PostgresMileageRepository implements MileageRepository using PostgreSQL.
// The balance guard lives in the UPDATE's WHERE clause, so two concurrent
// deductions can never drive a balance negative.
type PostgresMileageRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMileageRepository creates a new PostgresMileageRepository
func NewPostgresMileageRepository(pool *pgxpool.Pool) *PostgresMileageRepository {
	return &PostgresMileageRepository{pool: pool}
}

// Balance retrieves the current balance of a member
func (r *PostgresMileageRepository) Balance(ctx context.Context, memberID string) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx,
		"SELECT balance FROM mileage_accounts WHERE member_id = $1",
		memberID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrMemberNotFound
		}
		return 0, fmt.Errorf("failed to get mileage balance: %w", err)
	}
	return balance, nil
}

// Deduct subtracts amount from the member's balance if it covers the amount
func (r *PostgresMileageRepository) Deduct(ctx context.Context, memberID string, amount int64) error {
	if amount <= 0 {
		return nil
	}

	query := `
		UPDATE mileage_accounts SET
			balance = balance - $2,
			updated_at = $3
		WHERE member_id = $1 AND balance >= $2
	`

	result, err := r.pool.Exec(ctx, query, memberID, amount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deduct mileage: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM mileage_accounts WHERE member_id = $1)",
			memberID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check mileage account: %w", err)
		}
		if !exists {
			return domain.ErrMemberNotFound
		}
		return domain.ErrInsufficientMileage
	}
	return nil
}

// Credit adds amount to the member's balance, creating the account on first
// credit
func (r *PostgresMileageRepository) Credit(ctx context.Context, memberID string, amount int64) error {
	if amount <= 0 {
		return nil
	}

	query := `
		INSERT INTO mileage_accounts (member_id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (member_id) DO UPDATE SET
			balance = mileage_accounts.balance + $2,
			updated_at = $3
	`

	if _, err := r.pool.Exec(ctx, query, memberID, amount, time.Now()); err != nil {
		return fmt.Errorf("failed to credit mileage: %w", err)
	}
	return nil
}

// Ensure PostgresMileageRepository implements MileageRepository
var _ MileageRepository = (*PostgresMileageRepository)(nil)
