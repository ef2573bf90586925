package service

import (
	"context"
	"sync"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

// FareLookup resolves the base fare of one seat for one passenger.
// Fares are integer KRW.
type FareLookup interface {
	BaseFare(ctx context.Context, departureID string, class domain.SeatClass, passenger domain.PassengerType) (int64, error)
}

// Passenger discounts in percent off the adult fare
const (
	childDiscountPct  = 50
	seniorDiscountPct = 30
)

// firstClassMarkupPct is the surcharge of a first-class seat over standard
const firstClassMarkupPct = 45

// StaticFareLookup implements FareLookup from an in-process fare table.
// Departures without an entry fall back to the default fare.
type StaticFareLookup struct {
	fares       map[string]int64 // departureID -> standard adult fare
	defaultFare int64
	mu          sync.RWMutex
}

// NewStaticFareLookup creates a static fare lookup with the given default
// standard adult fare
func NewStaticFareLookup(defaultFare int64) *StaticFareLookup {
	return &StaticFareLookup{
		fares:       make(map[string]int64),
		defaultFare: defaultFare,
	}
}

// SetFare sets the standard adult fare of a departure
func (l *StaticFareLookup) SetFare(departureID string, fare int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fares[departureID] = fare
}

// BaseFare resolves the fare of one seat for one passenger
func (l *StaticFareLookup) BaseFare(ctx context.Context, departureID string, class domain.SeatClass, passenger domain.PassengerType) (int64, error) {
	l.mu.RLock()
	fare, exists := l.fares[departureID]
	l.mu.RUnlock()
	if !exists {
		fare = l.defaultFare
	}

	if class == domain.SeatClassFirst {
		fare = fare * (100 + firstClassMarkupPct) / 100
	}

	switch passenger {
	case domain.PassengerTypeChild:
		fare = fare * (100 - childDiscountPct) / 100
	case domain.PassengerTypeSenior:
		fare = fare * (100 - seniorDiscountPct) / 100
	case domain.PassengerTypeAdult:
	default:
		return 0, domain.ErrInvalidPassengerType
	}

	// Fares are quoted in 100 KRW steps
	return fare / 100 * 100, nil
}

// Ensure StaticFareLookup implements FareLookup
var _ FareLookup = (*StaticFareLookup)(nil)
