package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// MemorySeatRepository implements SeatRepository using in-memory storage.
// This is useful for testing and development.
type MemorySeatRepository struct {
	seats map[string]*domain.Seat // "departureID/seatID" -> seat
	mu    sync.RWMutex
}

// NewMemorySeatRepository creates a new in-memory seat repository
func NewMemorySeatRepository() *MemorySeatRepository {
	return &MemorySeatRepository{seats: make(map[string]*domain.Seat)}
}

func seatMapKey(departureID, seatID string) string {
	return departureID + "/" + seatID
}

// GetSeat retrieves one seat on one departure
func (r *MemorySeatRepository) GetSeat(ctx context.Context, departureID, seatID string) (*domain.Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seat, exists := r.seats[seatMapKey(departureID, seatID)]
	if !exists {
		return nil, domain.ErrSeatNotFound
	}
	s := *seat
	return &s, nil
}

// ListByDeparture retrieves all seats of a departure ordered by seat ID
func (r *MemorySeatRepository) ListByDeparture(ctx context.Context, departureID string) ([]*domain.Seat, error) {
	return r.list(departureID, false), nil
}

// ListFreeByDeparture retrieves the free seats of a departure
func (r *MemorySeatRepository) ListFreeByDeparture(ctx context.Context, departureID string) ([]*domain.Seat, error) {
	return r.list(departureID, true), nil
}

func (r *MemorySeatRepository) list(departureID string, freeOnly bool) []*domain.Seat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var seats []*domain.Seat
	for _, seat := range r.seats {
		if seat.DepartureID != departureID {
			continue
		}
		if freeOnly && seat.Status != domain.SeatStatusFree {
			continue
		}
		s := *seat
		seats = append(seats, &s)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatID < seats[j].SeatID })
	return seats
}

// CountFree counts the free seats of a departure
func (r *MemorySeatRepository) CountFree(ctx context.Context, departureID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, seat := range r.seats {
		if seat.DepartureID == departureID && seat.Status == domain.SeatStatusFree {
			count++
		}
	}
	return count, nil
}

// CreateSeats seeds the seat map of a departure
func (r *MemorySeatRepository) CreateSeats(ctx context.Context, seats []*domain.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, seat := range seats {
		s := *seat
		if s.Status == "" {
			s.Status = domain.SeatStatusFree
		}
		s.UpdatedAt = now
		r.seats[seatMapKey(s.DepartureID, s.SeatID)] = &s
	}
	return nil
}

// holdSeats moves every requested seat FREE -> HELD under one lock.
// All-or-nothing: a single blocker fails the whole request with a
// *domain.SeatConflictError and nothing changes.
func (r *MemorySeatRepository) holdSeats(byDeparture map[string][]string, reservationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	departures := make([]string, 0, len(byDeparture))
	for departureID := range byDeparture {
		departures = append(departures, departureID)
	}
	sort.Strings(departures)

	for _, departureID := range departures {
		var blocked []string
		for _, seatID := range byDeparture[departureID] {
			seat, exists := r.seats[seatMapKey(departureID, seatID)]
			if !exists {
				return domain.ErrSeatNotFound
			}
			if !seat.IsFree() {
				blocked = append(blocked, seatID)
			}
		}
		if len(blocked) > 0 {
			return &domain.SeatConflictError{DepartureID: departureID, SeatIDs: blocked}
		}
	}

	for departureID, seatIDs := range byDeparture {
		for _, seatID := range seatIDs {
			if err := r.seats[seatMapKey(departureID, seatID)].Hold(reservationID); err != nil {
				return err
			}
		}
	}
	return nil
}

// freeSeats moves every seat held by the reservation back to FREE
func (r *MemorySeatRepository) freeSeats(byDeparture map[string][]string, reservationID string) error {
	return r.transition(byDeparture, reservationID, (*domain.Seat).Free)
}

// sellSeats moves every seat held by the reservation to SOLD
func (r *MemorySeatRepository) sellSeats(byDeparture map[string][]string, reservationID string) error {
	return r.transition(byDeparture, reservationID, (*domain.Seat).Sell)
}

func (r *MemorySeatRepository) transition(byDeparture map[string][]string, reservationID string, apply func(*domain.Seat) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for departureID, seatIDs := range byDeparture {
		for _, seatID := range seatIDs {
			seat, exists := r.seats[seatMapKey(departureID, seatID)]
			if !exists {
				return domain.ErrSeatNotFound
			}
			if !seat.HeldBy(reservationID) {
				return domain.ErrSeatNotHeld
			}
		}
	}

	for departureID, seatIDs := range byDeparture {
		for _, seatID := range seatIDs {
			if err := apply(r.seats[seatMapKey(departureID, seatID)]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Ensure MemorySeatRepository implements SeatRepository
var _ SeatRepository = (*MemorySeatRepository)(nil)
