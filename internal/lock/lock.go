package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lock errors
var (
	// ErrLockUnavailable means another holder owns the lock right now
	ErrLockUnavailable = errors.New("lock unavailable")
	// ErrLockTimeout means the wait window elapsed without acquisition
	ErrLockTimeout = errors.New("lock acquisition timed out")
	// ErrLockNotHeld means the release token did not match the current holder
	ErrLockNotHeld = errors.New("lock not held by this token")
)

// releaseScript deletes the key only if the caller still owns it. Without the
// token compare a slow holder could delete a lock re-acquired by someone else.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// redisClient is the slice of the Redis API the lock needs. Satisfied by
// *redis.Client in production.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Config controls lease length and the acquisition retry cadence
type Config struct {
	// Lease bounds how long a crashed holder can block others
	Lease time.Duration
	// RetryInterval is the poll cadence while waiting for a busy lock
	RetryInterval time.Duration
}

// DefaultConfig returns sane lock defaults
func DefaultConfig() *Config {
	return &Config{
		Lease:         30 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// Manager hands out leased mutual-exclusion locks backed by Redis
type Manager struct {
	client redisClient
	config *Config
}

// NewManager creates a lock manager
func NewManager(client redisClient, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	return &Manager{client: client, config: config}
}

// Handle is one acquired lock. Release it with the handle, not the manager,
// so the ownership token travels with the acquisition.
type Handle struct {
	manager *Manager
	key     string
	token   string
}

// Key returns the Redis key guarding this lock
func (h *Handle) Key() string {
	return h.key
}

// SeatKey names the lock guarding one seat on one departure
func SeatKey(departureID, seatID string) string {
	return fmt.Sprintf("lock:seat:%s:%s", departureID, seatID)
}

// PaymentKey names the lock serializing settlement per idempotency key
func PaymentKey(idempotencyKey string) string {
	return fmt.Sprintf("lock:payment:%s", idempotencyKey)
}

// TryAcquire attempts the lock exactly once. Returns ErrLockUnavailable if
// someone else holds it.
func (m *Manager) TryAcquire(ctx context.Context, key string) (*Handle, error) {
	token := uuid.New().String()

	ok, err := m.client.SetNX(ctx, key, token, m.config.Lease).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockUnavailable
	}
	return &Handle{manager: m, key: key, token: token}, nil
}

// Acquire polls for the lock until waitTimeout elapses. A zero waitTimeout
// degenerates to TryAcquire.
func (m *Manager) Acquire(ctx context.Context, key string, waitTimeout time.Duration) (*Handle, error) {
	handle, err := m.TryAcquire(ctx, key)
	if err == nil {
		return handle, nil
	}
	if !errors.Is(err, ErrLockUnavailable) || waitTimeout <= 0 {
		return nil, err
	}

	deadline := time.NewTimer(waitTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockTimeout
		case <-ticker.C:
			handle, err := m.TryAcquire(ctx, key)
			if err == nil {
				return handle, nil
			}
			if !errors.Is(err, ErrLockUnavailable) {
				return nil, err
			}
		}
	}
}

// Release frees the lock if this handle still owns it
func (h *Handle) Release(ctx context.Context) error {
	deleted, err := h.manager.client.Eval(ctx, releaseScript, []string{h.key}, h.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", h.key, err)
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// IsHeld checks whether this handle still owns the lock
func (h *Handle) IsHeld(ctx context.Context) (bool, error) {
	val, err := h.manager.client.Get(ctx, h.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check lock %s: %w", h.key, err)
	}
	return val == h.token, nil
}

// WithLock runs fn while holding the lock and releases it afterwards even if
// fn panics. The release error is reported only when fn itself succeeded.
func (m *Manager) WithLock(ctx context.Context, key string, waitTimeout time.Duration, fn func(ctx context.Context) error) (err error) {
	handle, acquireErr := m.Acquire(ctx, key, waitTimeout)
	if acquireErr != nil {
		return acquireErr
	}

	defer func() {
		releaseErr := handle.Release(ctx)
		if err == nil && releaseErr != nil && !errors.Is(releaseErr, ErrLockNotHeld) {
			err = releaseErr
		}
	}()
	return fn(ctx)
}
