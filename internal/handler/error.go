package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/dto"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/lock"
)

// memberHeader carries the caller's member ID, set by the upstream gateway
// after authentication. Absent for guest bookings.
const memberHeader = "X-Member-ID"

// callerMemberID extracts the optional member identity from the request
func callerMemberID(c *gin.Context) *string {
	id := strings.TrimSpace(c.GetHeader(memberHeader))
	if id == "" {
		return nil
	}
	return &id
}

// handleError converts domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	if conflict, ok := domain.IsSeatConflict(err); ok {
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "SEAT_CONFLICT",
			Message: "Seats already taken: " + strings.Join(conflict.SeatIDs, ", "),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrSeatNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_FOUND",
		})
	case errors.Is(err, domain.ErrInvalidTripType),
		errors.Is(err, domain.ErrNoSeatsRequested),
		errors.Is(err, domain.ErrInvalidSeatClaim),
		errors.Is(err, domain.ErrInvalidPassengerType),
		errors.Is(err, domain.ErrDuplicateSeatClaim),
		errors.Is(err, domain.ErrRoundTripNeedsReturnLeg),
		errors.Is(err, domain.ErrInvalidReservationID),
		errors.Is(err, domain.ErrInvalidIdempotencyKey):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	case errors.Is(err, domain.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ALREADY_PAID",
		})
	case errors.Is(err, domain.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ALREADY_CANCELLED",
		})
	case errors.Is(err, domain.ErrReservationExpired),
		errors.Is(err, domain.ErrSessionExpired):
		c.JSON(http.StatusGone, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EXPIRED",
		})
	case errors.Is(err, domain.ErrSessionConsumed):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "SESSION_CONSUMED",
			Message: "The payment session was already used. Open a new one.",
		})
	case errors.Is(err, domain.ErrInsufficientMileage):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INSUFFICIENT_MILEAGE",
		})
	case errors.Is(err, domain.ErrAmountMismatch):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "AMOUNT_MISMATCH",
		})
	case errors.Is(err, domain.ErrGatewayRejected):
		c.JSON(http.StatusPaymentRequired, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PAYMENT_REJECTED",
		})
	case errors.Is(err, lock.ErrLockTimeout), errors.Is(err, lock.ErrLockUnavailable):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "BUSY",
			Message: "Another request is working on the same resource. Retry shortly.",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
