package repository

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	pkgredis "github.com/goorm-sudo/raillo-backend-sub002/internal/redis"
)

//go:embed scripts/consume_session.lua
var consumeSessionScript string

const scriptConsumeSession = "consume_session"

// sessionGrace keeps an expired session hash around briefly so a late
// confirm gets "expired" instead of "not found"
const sessionGrace = time.Minute

// RedisSessionRepository implements SessionRepository using Redis. The
// single-use property is enforced server-side by a Lua script, so two
// concurrent consumes resolve to exactly one winner.
type RedisSessionRepository struct {
	client *pkgredis.Client
}

// NewRedisSessionRepository creates a new RedisSessionRepository
func NewRedisSessionRepository(client *pkgredis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// LoadScripts loads the Lua scripts into Redis
func (r *RedisSessionRepository) LoadScripts(ctx context.Context) error {
	if _, err := r.client.LoadScript(ctx, scriptConsumeSession, consumeSessionScript); err != nil {
		return fmt.Errorf("failed to load script %s: %w", scriptConsumeSession, err)
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("calc:session:%s", id)
}

// Save stores a session until its expiry plus a short grace window
func (r *RedisSessionRepository) Save(ctx context.Context, session *domain.CalcSession) error {
	key := sessionKey(session.ID)

	consumed := "0"
	if session.Consumed {
		consumed = "1"
	}

	err := r.client.HSet(ctx, key,
		"reservation_id", session.ReservationID,
		"base_fare", session.Fare.BaseFare,
		"mileage_deducted", session.Fare.MileageDeducted,
		"payable", session.Fare.Payable,
		"created_at", session.CreatedAt.UnixMilli(),
		"expires_at", session.ExpiresAt.UnixMilli(),
		"consumed", consumed,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt) + sessionGrace
	if ttl < sessionGrace {
		ttl = sessionGrace
	}
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session ttl: %w", err)
	}
	return nil
}

// Get retrieves a session by its ID
func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*domain.CalcSession, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	session, err := sessionFromFields(id, fields)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Consume atomically marks the session used and returns its snapshot
func (r *RedisSessionRepository) Consume(ctx context.Context, id string) (*domain.CalcSession, error) {
	now := time.Now()
	result := r.client.EvalWithFallback(ctx, scriptConsumeSession, consumeSessionScript,
		[]string{sessionKey(id)}, now.UnixMilli())
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to execute consume_session script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	code, err := toInt64(values[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse script result code: %w", err)
	}
	switch code {
	case 1:
	case -1:
		return nil, domain.ErrSessionNotFound
	case -2:
		return nil, domain.ErrSessionConsumed
	case -3:
		return nil, domain.ErrSessionExpired
	default:
		return nil, fmt.Errorf("unexpected script result code: %d", code)
	}

	if len(values) < 5 {
		return nil, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	reservationID, _ := values[1].(string)
	baseFare, err := toInt64(values[2])
	if err != nil {
		return nil, fmt.Errorf("failed to parse base fare: %w", err)
	}
	mileageDeducted, err := toInt64(values[3])
	if err != nil {
		return nil, fmt.Errorf("failed to parse mileage deduction: %w", err)
	}
	payable, err := toInt64(values[4])
	if err != nil {
		return nil, fmt.Errorf("failed to parse payable amount: %w", err)
	}

	return &domain.CalcSession{
		ID:            id,
		ReservationID: reservationID,
		Fare: domain.FareSnapshot{
			BaseFare:        baseFare,
			MileageDeducted: mileageDeducted,
			Payable:         payable,
		},
		Consumed:   true,
		ConsumedAt: &now,
	}, nil
}

// Delete removes a session
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// sessionFromFields rebuilds a session from its Redis hash
func sessionFromFields(id string, fields map[string]string) (*domain.CalcSession, error) {
	baseFare, err := strconv.ParseInt(fields["base_fare"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base fare: %w", err)
	}
	mileageDeducted, err := strconv.ParseInt(fields["mileage_deducted"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mileage deduction: %w", err)
	}
	payable, err := strconv.ParseInt(fields["payable"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payable amount: %w", err)
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse creation time: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expiry time: %w", err)
	}

	return &domain.CalcSession{
		ID:            id,
		ReservationID: fields["reservation_id"],
		Fare: domain.FareSnapshot{
			BaseFare:        baseFare,
			MileageDeducted: mileageDeducted,
			Payable:         payable,
		},
		CreatedAt: time.UnixMilli(createdAt),
		ExpiresAt: time.UnixMilli(expiresAt),
		Consumed:  fields["consumed"] == "1",
	}, nil
}

// toInt64 converts a Lua script result value to int64
func toInt64(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
}

// Ensure RedisSessionRepository implements SessionRepository
var _ SessionRepository = (*RedisSessionRepository)(nil)
