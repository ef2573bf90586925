package dto

import (
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// OpenSessionRequest represents a request to open a payment calculation
// session for a held reservation
type OpenSessionRequest struct {
	ReservationID string `json:"reservation_id" binding:"required"`
	// MileageToUse is the mileage the member wants to burn, integer points
	MileageToUse int64 `json:"mileage_to_use" binding:"min=0"`
}

// SessionResponse represents an opened calculation session
type SessionResponse struct {
	SessionID       string    `json:"session_id"`
	ReservationID   string    `json:"reservation_id"`
	BaseFare        int64     `json:"base_fare"`
	MileageDeducted int64     `json:"mileage_deducted"`
	Payable         int64     `json:"payable"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// SessionFromDomain converts a domain session to its API shape
func SessionFromDomain(s *domain.CalcSession) *SessionResponse {
	return &SessionResponse{
		SessionID:       s.ID,
		ReservationID:   s.ReservationID,
		BaseFare:        s.Fare.BaseFare,
		MileageDeducted: s.Fare.MileageDeducted,
		Payable:         s.Fare.Payable,
		ExpiresAt:       s.ExpiresAt,
	}
}

// SettleRequest represents a request to settle a held reservation
type SettleRequest struct {
	ReservationID  string `json:"reservation_id" binding:"required"`
	SessionID      string `json:"session_id" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
	// PaymentProof is the gateway-issued token proving the client paid
	PaymentProof string `json:"payment_proof" binding:"required"`
}

// SettlementResponse represents the result of a settlement
type SettlementResponse struct {
	PaymentID     string    `json:"payment_id"`
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	MileageUsed   int64     `json:"mileage_used"`
	MileageEarned int64     `json:"mileage_earned"`
	GatewayTxRef  string    `json:"gateway_tx_ref"`
	SettledAt     time.Time `json:"settled_at"`
	// Replayed is true when this settlement had already committed and the
	// stored result was returned instead of charging again
	Replayed bool `json:"replayed"`
}

// SettlementFromDomain converts a payment record to a settlement response
func SettlementFromDomain(p *domain.Payment, replayed bool) *SettlementResponse {
	return &SettlementResponse{
		PaymentID:     p.ID,
		ReservationID: p.ReservationID,
		Status:        p.Status.String(),
		Amount:        p.Amount,
		MileageUsed:   p.MileageUsed,
		MileageEarned: p.MileageEarned,
		GatewayTxRef:  p.GatewayTxRef,
		SettledAt:     p.CreatedAt,
		Replayed:      replayed,
	}
}
