package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus represents the status of a reservation
type ReservationStatus string

const (
	ReservationStatusHeld      ReservationStatus = "held"
	ReservationStatusPaid      ReservationStatus = "paid"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// IsValid checks if the status is a valid ReservationStatus
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusHeld, ReservationStatusPaid, ReservationStatusCancelled, ReservationStatusExpired:
		return true
	}
	return false
}

// String returns the string representation of ReservationStatus
func (s ReservationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed from this status
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusPaid || s == ReservationStatusCancelled || s == ReservationStatusExpired
}

// TripType distinguishes one-way from round trips
type TripType string

const (
	TripTypeOneWay TripType = "oneway"
	TripTypeRound  TripType = "round"
)

// IsValid checks if the trip type is known
func (t TripType) IsValid() bool {
	return t == TripTypeOneWay || t == TripTypeRound
}

// PassengerType is the fare category of a traveller
type PassengerType string

const (
	PassengerTypeAdult  PassengerType = "adult"
	PassengerTypeChild  PassengerType = "child"
	PassengerTypeSenior PassengerType = "senior"
)

// IsValid checks if the passenger type is known
func (p PassengerType) IsValid() bool {
	switch p {
	case PassengerTypeAdult, PassengerTypeChild, PassengerTypeSenior:
		return true
	}
	return false
}

// SeatClaim binds one seat on one departure to one passenger of a reservation
type SeatClaim struct {
	DepartureID   string        `json:"departure_id"`
	SeatID        string        `json:"seat_id"`
	PassengerType PassengerType `json:"passenger_type"`
}

// Reservation is a time-bounded claim over one or more seats. A round trip
// carries claims on two departures (outbound and return legs).
type Reservation struct {
	ID string `json:"id"`
	// MemberID is nil for guest bookings
	MemberID    *string           `json:"member_id,omitempty"`
	TripType    TripType          `json:"trip_type"`
	Claims      []SeatClaim       `json:"claims"`
	Status      ReservationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	PaidAt      *time.Time        `json:"paid_at,omitempty"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewReservation creates a HELD reservation with expiry = now + holdTTL.
// The expiry is set once here and never extended.
func NewReservation(memberID *string, tripType TripType, claims []SeatClaim, holdTTL time.Duration) (*Reservation, error) {
	if !tripType.IsValid() {
		return nil, ErrInvalidTripType
	}
	if len(claims) == 0 {
		return nil, ErrNoSeatsRequested
	}
	seen := make(map[string]struct{}, len(claims))
	for _, c := range claims {
		if c.DepartureID == "" || c.SeatID == "" {
			return nil, ErrInvalidSeatClaim
		}
		if !c.PassengerType.IsValid() {
			return nil, ErrInvalidPassengerType
		}
		key := c.DepartureID + "/" + c.SeatID
		if _, dup := seen[key]; dup {
			return nil, ErrDuplicateSeatClaim
		}
		seen[key] = struct{}{}
	}
	if tripType == TripTypeRound && len(departureIDs(claims)) < 2 {
		return nil, ErrRoundTripNeedsReturnLeg
	}

	now := time.Now()
	return &Reservation{
		ID:        uuid.New().String(),
		MemberID:  memberID,
		TripType:  tripType,
		Claims:    claims,
		Status:    ReservationStatusHeld,
		CreatedAt: now,
		ExpiresAt: now.Add(holdTTL),
		UpdatedAt: now,
	}, nil
}

// IsExpired checks if the hold window has passed
func (r *Reservation) IsExpired() bool {
	return r.IsExpiredAt(time.Now())
}

// IsExpiredAt checks expiry against a specific instant
func (r *Reservation) IsExpiredAt(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// CanPay checks if the reservation may still enter settlement
func (r *Reservation) CanPay() bool {
	return r.Status == ReservationStatusHeld && !r.IsExpired()
}

// CanCancel checks if explicit cancellation is legal
func (r *Reservation) CanCancel() bool {
	return r.Status == ReservationStatusHeld
}

// MarkPaid transitions HELD -> PAID. PAID is terminal.
func (r *Reservation) MarkPaid() error {
	if r.Status != ReservationStatusHeld {
		return terminalError(r.Status)
	}
	if r.IsExpired() {
		return ErrReservationExpired
	}
	now := time.Now()
	r.Status = ReservationStatusPaid
	r.PaidAt = &now
	r.UpdatedAt = now
	return nil
}

// MarkCancelled transitions HELD -> CANCELLED
func (r *Reservation) MarkCancelled() error {
	if !r.CanCancel() {
		return terminalError(r.Status)
	}
	now := time.Now()
	r.Status = ReservationStatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
	return nil
}

// MarkExpired transitions HELD -> EXPIRED
func (r *Reservation) MarkExpired() error {
	if r.Status != ReservationStatusHeld {
		return terminalError(r.Status)
	}
	r.Status = ReservationStatusExpired
	r.UpdatedAt = time.Now()
	return nil
}

// terminalError maps a non-HELD status to its terminal-state error
func terminalError(s ReservationStatus) error {
	switch s {
	case ReservationStatusPaid:
		return ErrAlreadyPaid
	case ReservationStatusCancelled:
		return ErrAlreadyCancelled
	case ReservationStatusExpired:
		return ErrReservationExpired
	default:
		return ErrReservationNotHeld
	}
}

// SeatIDsByDeparture groups the claimed seat IDs per departure,
// each group sorted ascending
func (r *Reservation) SeatIDsByDeparture() map[string][]string {
	grouped := make(map[string][]string)
	for _, c := range r.Claims {
		grouped[c.DepartureID] = append(grouped[c.DepartureID], c.SeatID)
	}
	for dep := range grouped {
		sort.Strings(grouped[dep])
	}
	return grouped
}

// PassengerCount returns the number of travellers on the outbound leg.
// On a round trip each passenger claims one seat per leg.
func (r *Reservation) PassengerCount() int {
	grouped := r.SeatIDsByDeparture()
	max := 0
	for _, seats := range grouped {
		if len(seats) > max {
			max = len(seats)
		}
	}
	return max
}

// BelongsToMember checks reservation ownership; guest reservations have no owner
func (r *Reservation) BelongsToMember(memberID string) bool {
	return r.MemberID != nil && *r.MemberID == memberID
}

func departureIDs(claims []SeatClaim) []string {
	set := make(map[string]struct{})
	for _, c := range claims {
		set[c.DepartureID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
