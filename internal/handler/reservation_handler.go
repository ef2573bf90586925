package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/dto"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/service"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/telemetry"
)

// ReservationHandler handles reservation HTTP requests
type ReservationHandler struct {
	reservationService service.ReservationService
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservationService service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// Create handles POST /reservations
func (h *ReservationHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.reservation.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	memberID := callerMemberID(c)
	span.SetAttributes(
		attribute.String("trip_type", req.TripType),
		attribute.Int("seats", len(req.Claims)),
		attribute.Bool("guest", memberID == nil),
	)

	result, err := h.reservationService.Create(ctx, memberID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("reservation_id", result.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// Get handles GET /reservations/:id
func (h *ReservationHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.reservation.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	if id == "" {
		span.SetStatus(codes.Error, "reservation id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "reservation id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	span.SetAttributes(attribute.String("reservation_id", id))

	result, err := h.reservationService.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// List handles GET /reservations
func (h *ReservationHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.reservation.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	memberID := callerMemberID(c)
	if memberID == nil {
		span.SetStatus(codes.Error, "member id required")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "member id required",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	page := 1
	pageSize := 20
	if p := c.Query("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if n, err := strconv.Atoi(ps); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}

	span.SetAttributes(
		attribute.String("member_id", *memberID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	result, err := h.reservationService.GetByMember(ctx, *memberID, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Success: true,
		Data:    result,
	})
}

// Cancel handles DELETE /reservations/:id
func (h *ReservationHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.reservation.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	if id == "" {
		span.SetStatus(codes.Error, "reservation id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "reservation id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	span.SetAttributes(attribute.String("reservation_id", id))

	result, err := h.reservationService.Cancel(ctx, id, callerMemberID(c))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}
