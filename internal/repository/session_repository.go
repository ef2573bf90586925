package repository

import (
	"context"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// SessionRepository defines the interface for calculation session storage.
// Sessions are short-lived quotes; the store enforces their single-use
// property so replayed confirms cannot consume a quote twice.
type SessionRepository interface {
	// Save stores a session until its expiry
	Save(ctx context.Context, session *domain.CalcSession) error

	// Get retrieves a session by its ID. An expired or unknown session
	// yields domain.ErrSessionNotFound or domain.ErrSessionExpired.
	Get(ctx context.Context, id string) (*domain.CalcSession, error)

	// Consume atomically marks the session used and returns its snapshot.
	// The second Consume of the same session fails with
	// domain.ErrSessionConsumed regardless of timing.
	Consume(ctx context.Context, id string) (*domain.CalcSession, error)

	// Delete removes a session
	Delete(ctx context.Context, id string) error
}
