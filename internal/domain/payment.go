package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the outcome of a settlement
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// Payment is the durable record of a completed charge. The idempotency key
// is unique: two settlement attempts with the same key resolve to this one
// row, never to two charges.
type Payment struct {
	ID            string  `json:"id"`
	ReservationID string  `json:"reservation_id"`
	MemberID      *string `json:"member_id,omitempty"`
	// Amount actually charged through the gateway, integer KRW
	Amount int64 `json:"amount"`
	// MileageUsed was deducted from the member's ledger before the charge
	MileageUsed int64 `json:"mileage_used"`
	// MileageEarned is credited asynchronously after settlement
	MileageEarned  int64         `json:"mileage_earned"`
	GatewayTxRef   string        `json:"gateway_tx_ref"`
	IdempotencyKey string        `json:"idempotency_key"`
	Status         PaymentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewPayment creates a successful payment record
func NewPayment(reservationID string, memberID *string, fare FareSnapshot, mileageEarned int64, gatewayTxRef, idempotencyKey string) (*Payment, error) {
	if reservationID == "" {
		return nil, ErrInvalidReservationID
	}
	if idempotencyKey == "" {
		return nil, ErrInvalidIdempotencyKey
	}
	if gatewayTxRef == "" {
		return nil, ErrInvalidGatewayRef
	}

	return &Payment{
		ID:             uuid.New().String(),
		ReservationID:  reservationID,
		MemberID:       memberID,
		Amount:         fare.Payable,
		MileageUsed:    fare.MileageDeducted,
		MileageEarned:  mileageEarned,
		GatewayTxRef:   gatewayTxRef,
		IdempotencyKey: idempotencyKey,
		Status:         PaymentStatusSuccess,
		CreatedAt:      time.Now(),
	}, nil
}
