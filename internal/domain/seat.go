package domain

import "time"

// SeatStatus represents the status of a seat on a departure
type SeatStatus string

const (
	SeatStatusFree SeatStatus = "free"
	SeatStatusHeld SeatStatus = "held"
	SeatStatusSold SeatStatus = "sold"
)

// IsValid checks if the status is a valid SeatStatus
func (s SeatStatus) IsValid() bool {
	switch s {
	case SeatStatusFree, SeatStatusHeld, SeatStatusSold:
		return true
	}
	return false
}

// String returns the string representation of SeatStatus
func (s SeatStatus) String() string {
	return string(s)
}

// SeatClass represents the car class of a seat
type SeatClass string

const (
	SeatClassStandard SeatClass = "standard"
	SeatClassFirst    SeatClass = "first"
)

// Seat represents one physical seat on one scheduled departure.
// Seats are created at schedule-generation time; only their status and
// holder change afterwards.
type Seat struct {
	DepartureID string     `json:"departure_id"`
	SeatID      string     `json:"seat_id"` // e.g. "03-12A" (car-seat)
	CarNo       int        `json:"car_no"`
	Class       SeatClass  `json:"class"`
	Status      SeatStatus `json:"status"`
	// HolderID is the reservation holding or having bought this seat
	HolderID  *string   `json:"holder_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFree checks if the seat can be held
func (s *Seat) IsFree() bool {
	return s.Status == SeatStatusFree
}

// Hold transitions the seat FREE -> HELD for the given reservation
func (s *Seat) Hold(reservationID string) error {
	if s.Status != SeatStatusFree {
		return ErrSeatNotFree
	}
	s.Status = SeatStatusHeld
	s.HolderID = &reservationID
	s.UpdatedAt = time.Now()
	return nil
}

// Free transitions the seat HELD -> FREE, clearing the holder
func (s *Seat) Free() error {
	if s.Status != SeatStatusHeld {
		return ErrSeatNotHeld
	}
	s.Status = SeatStatusFree
	s.HolderID = nil
	s.UpdatedAt = time.Now()
	return nil
}

// Sell transitions the seat HELD -> SOLD. The holder reference is kept:
// a sold seat always points at the reservation that bought it.
func (s *Seat) Sell() error {
	if s.Status != SeatStatusHeld {
		return ErrSeatNotHeld
	}
	s.Status = SeatStatusSold
	s.UpdatedAt = time.Now()
	return nil
}

// HeldBy checks whether the seat is held by the given reservation
func (s *Seat) HeldBy(reservationID string) bool {
	return s.Status == SeatStatusHeld && s.HolderID != nil && *s.HolderID == reservationID
}
