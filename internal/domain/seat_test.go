package domain

import (
	"errors"
	"testing"
)

func TestSeat_Hold(t *testing.T) {
	seat := &Seat{DepartureID: "dep-100", SeatID: "03-12A", Status: SeatStatusFree}

	if err := seat.Hold("resv-1"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if seat.Status != SeatStatusHeld {
		t.Errorf("Expected status held, got %s", seat.Status)
	}
	if !seat.HeldBy("resv-1") {
		t.Error("Expected seat held by resv-1")
	}
	if seat.HeldBy("resv-2") {
		t.Error("Seat must not be held by another reservation")
	}

	// Holding a held seat must fail and keep the original holder
	if err := seat.Hold("resv-2"); !errors.Is(err, ErrSeatNotFree) {
		t.Errorf("Expected ErrSeatNotFree, got %v", err)
	}
	if !seat.HeldBy("resv-1") {
		t.Error("Original holder must survive a rejected hold")
	}
}

func TestSeat_Free(t *testing.T) {
	seat := &Seat{DepartureID: "dep-100", SeatID: "03-12A", Status: SeatStatusFree}

	if err := seat.Free(); !errors.Is(err, ErrSeatNotHeld) {
		t.Errorf("Expected ErrSeatNotHeld on a free seat, got %v", err)
	}

	seat.Hold("resv-1")
	if err := seat.Free(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if seat.Status != SeatStatusFree {
		t.Errorf("Expected status free, got %s", seat.Status)
	}
	if seat.HolderID != nil {
		t.Error("Expected holder to be cleared")
	}
}

func TestSeat_Sell(t *testing.T) {
	seat := &Seat{DepartureID: "dep-100", SeatID: "03-12A", Status: SeatStatusFree}

	if err := seat.Sell(); !errors.Is(err, ErrSeatNotHeld) {
		t.Errorf("Expected ErrSeatNotHeld on a free seat, got %v", err)
	}

	seat.Hold("resv-1")
	if err := seat.Sell(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if seat.Status != SeatStatusSold {
		t.Errorf("Expected status sold, got %s", seat.Status)
	}
	if seat.HolderID == nil || *seat.HolderID != "resv-1" {
		t.Error("Sold seat must keep its buying reservation")
	}

	// Sold is terminal
	if err := seat.Hold("resv-2"); !errors.Is(err, ErrSeatNotFree) {
		t.Errorf("Expected ErrSeatNotFree, got %v", err)
	}
	if err := seat.Free(); !errors.Is(err, ErrSeatNotHeld) {
		t.Errorf("Expected ErrSeatNotHeld, got %v", err)
	}
}

func TestIsSeatConflict(t *testing.T) {
	conflict := &SeatConflictError{DepartureID: "dep-100", SeatIDs: []string{"03-12A", "03-12B"}}

	got, ok := IsSeatConflict(conflict)
	if !ok {
		t.Fatal("Expected seat conflict to be detected")
	}
	if got.DepartureID != "dep-100" || len(got.SeatIDs) != 2 {
		t.Errorf("Unexpected conflict detail: %+v", got)
	}

	if _, ok := IsSeatConflict(ErrSeatNotFree); ok {
		t.Error("Plain sentinel must not be a seat conflict")
	}
}
