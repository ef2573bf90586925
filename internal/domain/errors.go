package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	// Validation errors: rejected before any lock is taken
	ErrInvalidTripType         = errors.New("invalid trip type")
	ErrNoSeatsRequested        = errors.New("no seats requested")
	ErrInvalidSeatClaim        = errors.New("invalid seat claim")
	ErrInvalidPassengerType    = errors.New("invalid passenger type")
	ErrDuplicateSeatClaim      = errors.New("duplicate seat claim")
	ErrRoundTripNeedsReturnLeg = errors.New("round trip requires a return leg")
	ErrInvalidReservationID    = errors.New("invalid reservation id")
	ErrInvalidIdempotencyKey   = errors.New("invalid idempotency key")
	ErrInvalidGatewayRef       = errors.New("invalid gateway transaction reference")
	ErrInvalidFare             = errors.New("invalid fare snapshot")

	// Seat errors
	ErrSeatNotFound = errors.New("seat not found")
	ErrSeatNotFree  = errors.New("seat is not free")
	ErrSeatNotHeld  = errors.New("seat is not held")

	// Reservation errors
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationNotHeld  = errors.New("reservation is not held")
	ErrReservationExpired  = errors.New("reservation has expired")
	ErrAlreadyPaid         = errors.New("reservation already paid")
	ErrAlreadyCancelled    = errors.New("reservation already cancelled")
	ErrNotDue              = errors.New("reservation not due for expiry")

	// Calculation session errors
	ErrSessionNotFound = errors.New("calculation session not found")
	ErrSessionExpired  = errors.New("calculation session has expired")
	ErrSessionConsumed = errors.New("calculation session already consumed")

	// Payment errors
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentExists       = errors.New("payment already exists")
	ErrAmountMismatch      = errors.New("gateway amount does not match fare snapshot")
	ErrGatewayRejected     = errors.New("payment gateway rejected the proof")
	ErrInsufficientMileage = errors.New("insufficient mileage balance")
	ErrNoMileageToEarn     = errors.New("no mileage to earn")

	// Member errors
	ErrMemberNotFound = errors.New("member not found")
)

// SeatConflictError reports exactly which requested seats were not free.
// The caller can retry with alternative seats; no partial hold happened.
type SeatConflictError struct {
	DepartureID string
	SeatIDs     []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats unavailable on departure %s: %s",
		e.DepartureID, strings.Join(e.SeatIDs, ", "))
}

// IsSeatConflict checks if the error is a seat conflict and returns it
func IsSeatConflict(err error) (*SeatConflictError, bool) {
	var conflict *SeatConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
