package repository

import (
	"context"
	"sync"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// MemoryMileageRepository implements MileageRepository using in-memory
// storage. This is useful for testing and development.
type MemoryMileageRepository struct {
	balances map[string]int64
	mu       sync.Mutex
}

// NewMemoryMileageRepository creates a new in-memory mileage repository
func NewMemoryMileageRepository() *MemoryMileageRepository {
	return &MemoryMileageRepository{balances: make(map[string]int64)}
}

// SetBalance seeds a member's balance
func (r *MemoryMileageRepository) SetBalance(memberID string, balance int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[memberID] = balance
}

// Balance retrieves the current balance of a member
func (r *MemoryMileageRepository) Balance(ctx context.Context, memberID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	balance, exists := r.balances[memberID]
	if !exists {
		return 0, domain.ErrMemberNotFound
	}
	return balance, nil
}

// Deduct subtracts amount from the member's balance if it covers the amount
func (r *MemoryMileageRepository) Deduct(ctx context.Context, memberID string, amount int64) error {
	if amount <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	balance, exists := r.balances[memberID]
	if !exists {
		return domain.ErrMemberNotFound
	}
	if balance < amount {
		return domain.ErrInsufficientMileage
	}
	r.balances[memberID] = balance - amount
	return nil
}

// Credit adds amount to the member's balance
func (r *MemoryMileageRepository) Credit(ctx context.Context, memberID string, amount int64) error {
	if amount <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.balances[memberID] += amount
	return nil
}

// Ensure MemoryMileageRepository implements MileageRepository
var _ MileageRepository = (*MemoryMileageRepository)(nil)
