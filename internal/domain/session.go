package domain

import (
	"time"

	"github.com/google/uuid"
)

// FareSnapshot is the frozen fare computed when checkout begins.
// Amounts are integer KRW. Payable = BaseFare - MileageDeducted.
type FareSnapshot struct {
	BaseFare        int64 `json:"base_fare"`
	MileageDeducted int64 `json:"mileage_deducted"`
	Payable         int64 `json:"payable"`
}

// CalcSession is an immutable, time-boxed price quote tied to one
// reservation. It is single-use: a successful settlement consumes it and a
// replayed confirm request cannot consume it again.
type CalcSession struct {
	ID            string       `json:"id"`
	ReservationID string       `json:"reservation_id"`
	Fare          FareSnapshot `json:"fare"`
	CreatedAt     time.Time    `json:"created_at"`
	ExpiresAt     time.Time    `json:"expires_at"`
	Consumed      bool         `json:"consumed"`
	ConsumedAt    *time.Time   `json:"consumed_at,omitempty"`
}

// NewCalcSession freezes a fare snapshot for a reservation.
// The session window is independent of, and shorter than, the hold window.
func NewCalcSession(reservationID string, fare FareSnapshot, ttl time.Duration) (*CalcSession, error) {
	if reservationID == "" {
		return nil, ErrInvalidReservationID
	}
	if fare.Payable < 0 || fare.BaseFare < 0 || fare.MileageDeducted < 0 {
		return nil, ErrInvalidFare
	}
	if fare.Payable != fare.BaseFare-fare.MileageDeducted {
		return nil, ErrInvalidFare
	}

	now := time.Now()
	return &CalcSession{
		ID:            uuid.New().String(),
		ReservationID: reservationID,
		Fare:          fare,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}, nil
}

// IsExpired checks if the quote window has passed
func (s *CalcSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Consume marks the session used. Strictly one-shot: the second call fails
// no matter how soon it follows the first.
func (s *CalcSession) Consume() error {
	if s.Consumed {
		return ErrSessionConsumed
	}
	if s.IsExpired() {
		return ErrSessionExpired
	}
	now := time.Now()
	s.Consumed = true
	s.ConsumedAt = &now
	return nil
}
