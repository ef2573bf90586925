package dto

import (
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// SeatClaimRequest binds one seat on one departure to one passenger
type SeatClaimRequest struct {
	DepartureID   string `json:"departure_id" binding:"required"`
	SeatID        string `json:"seat_id" binding:"required"`
	PassengerType string `json:"passenger_type" binding:"required,oneof=adult child senior"`
}

// CreateReservationRequest represents a request to hold seats
type CreateReservationRequest struct {
	TripType string             `json:"trip_type" binding:"required,oneof=oneway round"`
	Claims   []SeatClaimRequest `json:"claims" binding:"required,min=1,max=9,dive"`
}

// ToClaims converts the request claims to domain seat claims
func (r *CreateReservationRequest) ToClaims() []domain.SeatClaim {
	claims := make([]domain.SeatClaim, 0, len(r.Claims))
	for _, c := range r.Claims {
		claims = append(claims, domain.SeatClaim{
			DepartureID:   c.DepartureID,
			SeatID:        c.SeatID,
			PassengerType: domain.PassengerType(c.PassengerType),
		})
	}
	return claims
}

// SeatClaimResponse represents one claimed seat in API responses
type SeatClaimResponse struct {
	DepartureID   string `json:"departure_id"`
	SeatID        string `json:"seat_id"`
	PassengerType string `json:"passenger_type"`
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID          string              `json:"id"`
	MemberID    *string             `json:"member_id,omitempty"`
	TripType    string              `json:"trip_type"`
	Claims      []SeatClaimResponse `json:"claims"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	ExpiresAt   time.Time           `json:"expires_at"`
	PaidAt      *time.Time          `json:"paid_at,omitempty"`
	CancelledAt *time.Time          `json:"cancelled_at,omitempty"`
}

// ReservationFromDomain converts a domain reservation to its API shape
func ReservationFromDomain(r *domain.Reservation) *ReservationResponse {
	claims := make([]SeatClaimResponse, 0, len(r.Claims))
	for _, c := range r.Claims {
		claims = append(claims, SeatClaimResponse{
			DepartureID:   c.DepartureID,
			SeatID:        c.SeatID,
			PassengerType: string(c.PassengerType),
		})
	}
	return &ReservationResponse{
		ID:          r.ID,
		MemberID:    r.MemberID,
		TripType:    string(r.TripType),
		Claims:      claims,
		Status:      r.Status.String(),
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
		PaidAt:      r.PaidAt,
		CancelledAt: r.CancelledAt,
	}
}

// CancelReservationResponse represents the result of a cancellation
type CancelReservationResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// SeatResponse represents one seat in availability responses
type SeatResponse struct {
	SeatID string `json:"seat_id"`
	CarNo  int    `json:"car_no"`
	Class  string `json:"class"`
	Status string `json:"status"`
}

// AvailabilityResponse represents the seat availability of a departure
type AvailabilityResponse struct {
	DepartureID string         `json:"departure_id"`
	FreeSeats   int            `json:"free_seats"`
	Seats       []SeatResponse `json:"seats,omitempty"`
}
