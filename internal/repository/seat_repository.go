package repository

import (
	"context"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// SeatRepository defines the interface for seat inventory data access.
// Status transitions happen through ReservationRepository so that seat and
// reservation state always change together.
type SeatRepository interface {
	// GetSeat retrieves one seat on one departure
	GetSeat(ctx context.Context, departureID, seatID string) (*domain.Seat, error)

	// ListByDeparture retrieves all seats of a departure
	ListByDeparture(ctx context.Context, departureID string) ([]*domain.Seat, error)

	// ListFreeByDeparture retrieves the free seats of a departure
	ListFreeByDeparture(ctx context.Context, departureID string) ([]*domain.Seat, error)

	// CountFree counts the free seats of a departure
	CountFree(ctx context.Context, departureID string) (int, error)

	// CreateSeats seeds the seat map of a departure at schedule-generation time
	CreateSeats(ctx context.Context, seats []*domain.Seat) error
}
