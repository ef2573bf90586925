package domain

import "time"

// Kafka topics for domain events
const (
	TopicBookingEvents = "booking-events"
	TopicPaymentEvents = "payment-events"
)

// Event types
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationExpired   = "reservation.expired"
	EventPaymentSettled       = "payment.settled"
	EventMileageEarningReady  = "mileage.earning_ready"
)

// ReservationEvent is the payload published for reservation lifecycle changes
type ReservationEvent struct {
	ReservationID string      `json:"reservation_id"`
	MemberID      *string     `json:"member_id,omitempty"`
	TripType      TripType    `json:"trip_type"`
	Claims        []SeatClaim `json:"claims"`
	Status        string      `json:"status"`
	ExpiresAt     time.Time   `json:"expires_at"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// PaymentSettledEvent is the payload published when a settlement commits
type PaymentSettledEvent struct {
	PaymentID      string    `json:"payment_id"`
	ReservationID  string    `json:"reservation_id"`
	MemberID       *string   `json:"member_id,omitempty"`
	Amount         int64     `json:"amount"`
	MileageUsed    int64     `json:"mileage_used"`
	GatewayTxRef   string    `json:"gateway_tx_ref"`
	IdempotencyKey string    `json:"idempotency_key"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// MileageEarningEvent asks the mileage consumer to credit earned mileage.
// Earning is credited asynchronously so a slow ledger never blocks settlement.
type MileageEarningEvent struct {
	PaymentID     string    `json:"payment_id"`
	ReservationID string    `json:"reservation_id"`
	MemberID      string    `json:"member_id"`
	Amount        int64     `json:"amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ReservationOutboxEvent builds an outbox message for a reservation lifecycle event
func ReservationOutboxEvent(eventType string, r *Reservation) (*OutboxMessage, error) {
	payload := ReservationEvent{
		ReservationID: r.ID,
		MemberID:      r.MemberID,
		TripType:      r.TripType,
		Claims:        r.Claims,
		Status:        r.Status.String(),
		ExpiresAt:     r.ExpiresAt,
		OccurredAt:    time.Now(),
	}
	return NewOutboxMessage("reservation", r.ID, eventType, TopicBookingEvents, payload)
}

// PaymentSettledOutboxEvent builds an outbox message for a committed settlement
func PaymentSettledOutboxEvent(p *Payment) (*OutboxMessage, error) {
	payload := PaymentSettledEvent{
		PaymentID:      p.ID,
		ReservationID:  p.ReservationID,
		MemberID:       p.MemberID,
		Amount:         p.Amount,
		MileageUsed:    p.MileageUsed,
		GatewayTxRef:   p.GatewayTxRef,
		IdempotencyKey: p.IdempotencyKey,
		OccurredAt:     time.Now(),
	}
	return NewOutboxMessage("payment", p.ID, EventPaymentSettled, TopicPaymentEvents, payload)
}

// MileageEarningOutboxEvent builds an outbox message crediting earned mileage
func MileageEarningOutboxEvent(p *Payment) (*OutboxMessage, error) {
	if p.MemberID == nil || p.MileageEarned <= 0 {
		return nil, ErrNoMileageToEarn
	}
	payload := MileageEarningEvent{
		PaymentID:     p.ID,
		ReservationID: p.ReservationID,
		MemberID:      *p.MemberID,
		Amount:        p.MileageEarned,
		OccurredAt:    time.Now(),
	}
	return NewOutboxMessage("payment", p.ID, EventMileageEarningReady, TopicPaymentEvents, payload)
}
