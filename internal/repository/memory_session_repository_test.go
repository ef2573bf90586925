package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

func savedSession(t *testing.T, repo *MemorySessionRepository, ttl time.Duration) *domain.CalcSession {
	t.Helper()
	session, err := domain.NewCalcSession("resv-1", domain.FareSnapshot{
		BaseFare: 59800,
		Payable:  59800,
	}, ttl)
	if err != nil {
		t.Fatalf("Failed to build session: %v", err)
	}
	if err := repo.Save(context.Background(), session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	return session
}

func TestMemorySessionRepository_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()
	session := savedSession(t, repo, 5*time.Minute)

	consumed, err := repo.Consume(ctx, session.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !consumed.Consumed || consumed.ConsumedAt == nil {
		t.Error("Expected the snapshot marked consumed")
	}

	if _, err := repo.Consume(ctx, session.ID); !errors.Is(err, domain.ErrSessionConsumed) {
		t.Errorf("Expected ErrSessionConsumed, got %v", err)
	}
}

func TestMemorySessionRepository_ExpiredSessionsPurged(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()
	session := savedSession(t, repo, -time.Second)

	// The first touch reports the expiry and drops the entry, the way the
	// Redis store loses the key to its TTL
	if _, err := repo.Get(ctx, session.ID); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
	if _, err := repo.Get(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after the purge, got %v", err)
	}

	stale := savedSession(t, repo, -time.Second)
	if _, err := repo.Consume(ctx, stale.ID); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
	if _, err := repo.Consume(ctx, stale.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after the purge, got %v", err)
	}
}
