package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/dto"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/telemetry"
)

// seatLetters are the seat positions within one row
var seatLetters = []string{"A", "B", "C", "D"}

// InventoryService defines the interface for seat inventory queries and
// schedule seeding
type InventoryService interface {
	// GetAvailability reports the free seats of a departure
	GetAvailability(ctx context.Context, departureID string, includeSeats bool) (*dto.AvailabilityResponse, error)

	// SeedDeparture creates the seat map of a departure. Car 1 is first
	// class, the rest are standard.
	SeedDeparture(ctx context.Context, departureID string, cars, rowsPerCar int) (int, error)
}

// inventoryService implements InventoryService
type inventoryService struct {
	seatRepo repository.SeatRepository
}

// NewInventoryService creates a new inventory service
func NewInventoryService(seatRepo repository.SeatRepository) InventoryService {
	return &inventoryService{seatRepo: seatRepo}
}

// GetAvailability reports the free seats of a departure
func (s *inventoryService) GetAvailability(ctx context.Context, departureID string, includeSeats bool) (*dto.AvailabilityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.inventory.get_availability")
	defer span.End()

	if departureID == "" {
		span.SetStatus(codes.Error, "invalid departure id")
		return nil, domain.ErrSeatNotFound
	}
	span.SetAttributes(attribute.String("departure_id", departureID))

	resp := &dto.AvailabilityResponse{DepartureID: departureID}

	if includeSeats {
		seats, err := s.seatRepo.ListFreeByDeparture(ctx, departureID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		resp.FreeSeats = len(seats)
		resp.Seats = make([]dto.SeatResponse, 0, len(seats))
		for _, seat := range seats {
			resp.Seats = append(resp.Seats, dto.SeatResponse{
				SeatID: seat.SeatID,
				CarNo:  seat.CarNo,
				Class:  string(seat.Class),
				Status: seat.Status.String(),
			})
		}
		return resp, nil
	}

	free, err := s.seatRepo.CountFree(ctx, departureID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	resp.FreeSeats = free
	return resp, nil
}

// SeedDeparture creates the seat map of a departure
func (s *inventoryService) SeedDeparture(ctx context.Context, departureID string, cars, rowsPerCar int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.inventory.seed_departure")
	defer span.End()

	if cars <= 0 {
		cars = 8
	}
	if rowsPerCar <= 0 {
		rowsPerCar = 15
	}

	seats := make([]*domain.Seat, 0, cars*rowsPerCar*len(seatLetters))
	for car := 1; car <= cars; car++ {
		class := domain.SeatClassStandard
		if car == 1 {
			class = domain.SeatClassFirst
		}
		for row := 1; row <= rowsPerCar; row++ {
			for _, letter := range seatLetters {
				seats = append(seats, &domain.Seat{
					DepartureID: departureID,
					SeatID:      fmt.Sprintf("%02d-%d%s", car, row, letter),
					CarNo:       car,
					Class:       class,
					Status:      domain.SeatStatusFree,
				})
			}
		}
	}

	if err := s.seatRepo.CreateSeats(ctx, seats); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(
		attribute.String("departure_id", departureID),
		attribute.Int("seats", len(seats)),
	)
	return len(seats), nil
}

// Ensure inventoryService implements InventoryService
var _ InventoryService = (*inventoryService)(nil)
