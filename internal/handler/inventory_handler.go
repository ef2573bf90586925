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

// InventoryHandler handles seat inventory HTTP requests
type InventoryHandler struct {
	inventoryService service.InventoryService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// GetAvailability handles GET /departures/:id/availability
func (h *InventoryHandler) GetAvailability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.inventory.availability")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	departureID := c.Param("id")
	if departureID == "" {
		span.SetStatus(codes.Error, "departure id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "departure id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	includeSeats := c.Query("seats") == "true"
	span.SetAttributes(
		attribute.String("departure_id", departureID),
		attribute.Bool("include_seats", includeSeats),
	)

	result, err := h.inventoryService.GetAvailability(ctx, departureID, includeSeats)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// SeedDeparture handles POST /admin/departures/:id/seats
func (h *InventoryHandler) SeedDeparture(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.inventory.seed")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	departureID := c.Param("id")
	if departureID == "" {
		span.SetStatus(codes.Error, "departure id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "departure id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	cars := 0
	rowsPerCar := 0
	if v := c.Query("cars"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 20 {
			cars = n
		}
	}
	if v := c.Query("rows"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			rowsPerCar = n
		}
	}

	span.SetAttributes(
		attribute.String("departure_id", departureID),
		attribute.Int("cars", cars),
		attribute.Int("rows_per_car", rowsPerCar),
	)

	created, err := h.inventoryService.SeedDeparture(ctx, departureID, cars, rowsPerCar)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("seats_created", created))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, dto.SuccessResponse{
		Success: true,
		Data:    gin.H{"departure_id": departureID, "seats_created": created},
	})
}
