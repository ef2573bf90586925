package repository

import "context"

// MileageRepository defines the interface for the member mileage ledger
type MileageRepository interface {
	// Balance retrieves the current balance of a member
	Balance(ctx context.Context, memberID string) (int64, error)

	// Deduct subtracts amount from the member's balance. Fails with
	// domain.ErrInsufficientMileage without changing the balance when the
	// member holds less than amount.
	Deduct(ctx context.Context, memberID string, amount int64) error

	// Credit adds amount to the member's balance. Also used to hand back a
	// deduction when a settlement fails after the deduct step.
	Credit(ctx context.Context, memberID string, amount int64) error
}
