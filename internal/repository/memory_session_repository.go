package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// MemorySessionRepository implements SessionRepository using in-memory
// storage. This is useful for testing and development.
type MemorySessionRepository struct {
	sessions map[string]*domain.CalcSession
	mu       sync.Mutex
}

// NewMemorySessionRepository creates a new in-memory session repository
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]*domain.CalcSession)}
}

// Save stores a session
func (r *MemorySessionRepository) Save(ctx context.Context, session *domain.CalcSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := *session
	r.sessions[session.ID] = &s
	return nil
}

// Get retrieves a session by its ID
func (r *MemorySessionRepository) Get(ctx context.Context, id string) (*domain.CalcSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	if session.IsExpired() {
		// Where Redis would have dropped the key on TTL, purge here
		delete(r.sessions, id)
		return nil, domain.ErrSessionExpired
	}
	s := *session
	return &s, nil
}

// Consume atomically marks the session used and returns its snapshot.
// The whole check-and-set runs under one lock, so two concurrent consumes
// resolve to exactly one winner.
func (r *MemorySessionRepository) Consume(ctx context.Context, id string) (*domain.CalcSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	if err := session.Consume(); err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			delete(r.sessions, id)
		}
		return nil, err
	}

	s := *session
	return &s, nil
}

// Delete removes a session
func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// Ensure MemorySessionRepository implements SessionRepository
var _ SessionRepository = (*MemorySessionRepository)(nil)
