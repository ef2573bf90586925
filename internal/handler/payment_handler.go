package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/dto"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/service"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/telemetry"
)

// PaymentHandler handles payment session and settlement HTTP requests
type PaymentHandler struct {
	fareService       service.FareService
	settlementService service.SettlementService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(fareService service.FareService, settlementService service.SettlementService) *PaymentHandler {
	return &PaymentHandler{
		fareService:       fareService,
		settlementService: settlementService,
	}
}

// OpenSession handles POST /payments/sessions
func (h *PaymentHandler) OpenSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.open_session")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.OpenSessionRequest
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

	span.SetAttributes(
		attribute.String("reservation_id", req.ReservationID),
		attribute.Int64("mileage_to_use", req.MileageToUse),
	)

	result, err := h.fareService.OpenSession(ctx, callerMemberID(c), &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("session_id", result.SessionID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// GetSession handles GET /payments/sessions/:id
func (h *PaymentHandler) GetSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.get_session")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	if id == "" {
		span.SetStatus(codes.Error, "session id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "session id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	span.SetAttributes(attribute.String("session_id", id))

	result, err := h.fareService.GetSession(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// Settle handles POST /payments/settle
func (h *PaymentHandler) Settle(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.settle")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.SettleRequest
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

	span.SetAttributes(
		attribute.String("reservation_id", req.ReservationID),
		attribute.String("session_id", req.SessionID),
		attribute.String("idempotency_key", req.IdempotencyKey),
	)

	result, err := h.settlementService.Settle(ctx, callerMemberID(c), &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("payment_id", result.PaymentID),
		attribute.Bool("replayed", result.Replayed),
	)
	span.SetStatus(codes.Ok, "")

	// A replay answers with the same body but not 201; the charge happened
	// on an earlier request
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	if id == "" {
		span.SetStatus(codes.Error, "payment id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "payment id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	span.SetAttributes(attribute.String("payment_id", id))

	result, err := h.settlementService.GetPayment(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}
