package domain

import (
	"errors"
	"testing"
	"time"
)

func claims(pairs ...[2]string) []SeatClaim {
	out := make([]SeatClaim, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, SeatClaim{DepartureID: p[0], SeatID: p[1], PassengerType: PassengerTypeAdult})
	}
	return out
}

func TestNewReservation(t *testing.T) {
	tests := []struct {
		name     string
		tripType TripType
		claims   []SeatClaim
		wantErr  error
	}{
		{
			name:     "valid one-way",
			tripType: TripTypeOneWay,
			claims:   claims([2]string{"dep-100", "03-12A"}, [2]string{"dep-100", "03-12B"}),
			wantErr:  nil,
		},
		{
			name:     "valid round trip",
			tripType: TripTypeRound,
			claims:   claims([2]string{"dep-100", "03-12A"}, [2]string{"dep-200", "05-01C"}),
			wantErr:  nil,
		},
		{
			name:     "unknown trip type",
			tripType: TripType("shuttle"),
			claims:   claims([2]string{"dep-100", "03-12A"}),
			wantErr:  ErrInvalidTripType,
		},
		{
			name:     "no claims",
			tripType: TripTypeOneWay,
			claims:   nil,
			wantErr:  ErrNoSeatsRequested,
		},
		{
			name:     "empty seat id",
			tripType: TripTypeOneWay,
			claims:   claims([2]string{"dep-100", ""}),
			wantErr:  ErrInvalidSeatClaim,
		},
		{
			name:     "duplicate seat",
			tripType: TripTypeOneWay,
			claims:   claims([2]string{"dep-100", "03-12A"}, [2]string{"dep-100", "03-12A"}),
			wantErr:  ErrDuplicateSeatClaim,
		},
		{
			name:     "round trip on one departure",
			tripType: TripTypeRound,
			claims:   claims([2]string{"dep-100", "03-12A"}, [2]string{"dep-100", "03-12B"}),
			wantErr:  ErrRoundTripNeedsReturnLeg,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReservation(nil, tt.tripType, tt.claims, 10*time.Minute)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if r.ID == "" {
				t.Error("Expected reservation ID to be set")
			}
			if r.Status != ReservationStatusHeld {
				t.Errorf("Expected status held, got %s", r.Status)
			}
			if !r.ExpiresAt.After(r.CreatedAt) {
				t.Error("Expected expiry after creation time")
			}
		})
	}
}

func TestNewReservation_InvalidPassengerType(t *testing.T) {
	_, err := NewReservation(nil, TripTypeOneWay, []SeatClaim{
		{DepartureID: "dep-100", SeatID: "03-12A", PassengerType: PassengerType("pet")},
	}, 10*time.Minute)
	if !errors.Is(err, ErrInvalidPassengerType) {
		t.Errorf("Expected ErrInvalidPassengerType, got %v", err)
	}
}

func TestReservation_MarkPaid(t *testing.T) {
	r, _ := NewReservation(nil, TripTypeOneWay, claims([2]string{"dep-100", "03-12A"}), 10*time.Minute)

	if err := r.MarkPaid(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if r.Status != ReservationStatusPaid {
		t.Errorf("Expected status paid, got %s", r.Status)
	}
	if r.PaidAt == nil {
		t.Error("Expected paid_at to be set")
	}

	// Second transition must fail with the terminal-state error
	if err := r.MarkPaid(); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("Expected ErrAlreadyPaid, got %v", err)
	}
	if err := r.MarkCancelled(); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("Expected ErrAlreadyPaid, got %v", err)
	}
	if err := r.MarkExpired(); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("Expected ErrAlreadyPaid, got %v", err)
	}
}

func TestReservation_MarkPaid_Expired(t *testing.T) {
	r, _ := NewReservation(nil, TripTypeOneWay, claims([2]string{"dep-100", "03-12A"}), -time.Minute)

	if err := r.MarkPaid(); !errors.Is(err, ErrReservationExpired) {
		t.Errorf("Expected ErrReservationExpired, got %v", err)
	}
	if r.Status != ReservationStatusHeld {
		t.Errorf("Status must not change on a failed transition, got %s", r.Status)
	}
}

func TestReservation_MarkCancelled(t *testing.T) {
	r, _ := NewReservation(nil, TripTypeOneWay, claims([2]string{"dep-100", "03-12A"}), 10*time.Minute)

	if err := r.MarkCancelled(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if r.Status != ReservationStatusCancelled {
		t.Errorf("Expected status cancelled, got %s", r.Status)
	}

	if err := r.MarkCancelled(); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("Expected ErrAlreadyCancelled, got %v", err)
	}
	if err := r.MarkPaid(); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("Expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestReservation_MarkExpired(t *testing.T) {
	r, _ := NewReservation(nil, TripTypeOneWay, claims([2]string{"dep-100", "03-12A"}), -time.Minute)

	if err := r.MarkExpired(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if r.Status != ReservationStatusExpired {
		t.Errorf("Expected status expired, got %s", r.Status)
	}

	if err := r.MarkExpired(); !errors.Is(err, ErrReservationExpired) {
		t.Errorf("Expected ErrReservationExpired, got %v", err)
	}
}

func TestReservation_SeatIDsByDeparture(t *testing.T) {
	r, err := NewReservation(nil, TripTypeRound, claims(
		[2]string{"dep-100", "03-12B"},
		[2]string{"dep-100", "03-12A"},
		[2]string{"dep-200", "05-01C"},
		[2]string{"dep-200", "05-01A"},
	), 10*time.Minute)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	grouped := r.SeatIDsByDeparture()
	if len(grouped) != 2 {
		t.Fatalf("Expected 2 departures, got %d", len(grouped))
	}

	out := grouped["dep-100"]
	if len(out) != 2 || out[0] != "03-12A" || out[1] != "03-12B" {
		t.Errorf("Expected sorted outbound seats, got %v", out)
	}
	ret := grouped["dep-200"]
	if len(ret) != 2 || ret[0] != "05-01A" || ret[1] != "05-01C" {
		t.Errorf("Expected sorted return seats, got %v", ret)
	}

	if r.PassengerCount() != 2 {
		t.Errorf("Expected 2 passengers, got %d", r.PassengerCount())
	}
}

func TestReservation_BelongsToMember(t *testing.T) {
	member := "member-1"
	owned, _ := NewReservation(&member, TripTypeOneWay, claims([2]string{"dep-100", "03-12A"}), 10*time.Minute)
	guest, _ := NewReservation(nil, TripTypeOneWay, claims([2]string{"dep-100", "03-12B"}), 10*time.Minute)

	if !owned.BelongsToMember("member-1") {
		t.Error("Expected reservation to belong to member-1")
	}
	if owned.BelongsToMember("member-2") {
		t.Error("Expected reservation not to belong to member-2")
	}
	if guest.BelongsToMember("member-1") {
		t.Error("Guest reservation must not belong to any member")
	}
}
