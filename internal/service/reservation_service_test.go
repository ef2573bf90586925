package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/dto"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
)

func reserveRequest(tripType string, pairs ...[2]string) *dto.CreateReservationRequest {
	req := &dto.CreateReservationRequest{TripType: tripType}
	for _, p := range pairs {
		req.Claims = append(req.Claims, dto.SeatClaimRequest{
			DepartureID:   p[0],
			SeatID:        p[1],
			PassengerType: "adult",
		})
	}
	return req
}

func TestReservationService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A", "03-12B")

	resp, err := f.reservationSvc.Create(ctx, nil, reserveRequest("oneway",
		[2]string{"dep-100", "03-12A"}, [2]string{"dep-100", "03-12B"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Status != "held" {
		t.Errorf("Expected status held, got %s", resp.Status)
	}
	if !resp.ExpiresAt.After(time.Now().Add(9 * time.Minute)) {
		t.Error("Expected roughly a ten minute hold window")
	}

	avail, err := f.inventorySvc.GetAvailability(ctx, "dep-100", false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if avail.FreeSeats != 0 {
		t.Errorf("Expected 0 free seats, got %d", avail.FreeSeats)
	}

	// Seat locks are per-request leases; they must all be released again
	if _, err := f.locks.TryAcquire(ctx, "lock:seat:dep-100:03-12A"); err != nil {
		t.Errorf("Expected seat lock released after create, got %v", err)
	}
}

func TestReservationService_Create_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")
	f.seed(t, "dep-200", "05-01C")

	resp, err := f.reservationSvc.Create(ctx, nil, reserveRequest("round",
		[2]string{"dep-100", "03-12A"}, [2]string{"dep-200", "05-01C"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(resp.Claims) != 2 {
		t.Errorf("Expected claims on both legs, got %d", len(resp.Claims))
	}

	// Both legs are held under one reservation
	for _, dep := range []string{"dep-100", "dep-200"} {
		avail, _ := f.inventorySvc.GetAvailability(ctx, dep, false)
		if avail.FreeSeats != 0 {
			t.Errorf("Expected leg %s fully held, got %d free", dep, avail.FreeSeats)
		}
	}
}

func TestReservationService_Create_Conflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A", "03-12B")

	if _, err := f.reservationSvc.Create(ctx, nil, reserveRequest("oneway",
		[2]string{"dep-100", "03-12A"})); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, err := f.reservationSvc.Create(ctx, nil, reserveRequest("oneway",
		[2]string{"dep-100", "03-12A"}, [2]string{"dep-100", "03-12B"}))
	conflict, ok := domain.IsSeatConflict(err)
	if !ok {
		t.Fatalf("Expected seat conflict, got %v", err)
	}
	if len(conflict.SeatIDs) != 1 || conflict.SeatIDs[0] != "03-12A" {
		t.Errorf("Conflict must name the blocked seat, got %v", conflict.SeatIDs)
	}

	// No partial hold: 03-12B is still bookable
	if _, err := f.reservationSvc.Create(ctx, nil, reserveRequest("oneway",
		[2]string{"dep-100", "03-12B"})); err != nil {
		t.Errorf("Expected 03-12B still free, got %v", err)
	}
}

func TestReservationService_Create_ConcurrentOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A", "03-12B")

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Mixed orderings on purpose; lock ordering must still hold
			req := reserveRequest("oneway",
				[2]string{"dep-100", "03-12A"}, [2]string{"dep-100", "03-12B"})
			if i%2 == 1 {
				req = reserveRequest("oneway",
					[2]string{"dep-100", "03-12B"}, [2]string{"dep-100", "03-12A"})
			}
			_, errs[i] = f.reservationSvc.Create(ctx, nil, req)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		if _, ok := domain.IsSeatConflict(err); !ok {
			t.Errorf("Loser must see a seat conflict, got %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("Expected exactly one winner, got %d", winners)
	}
}

func TestReservationService_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	member := "member-1"
	resp, err := f.reservationSvc.Create(ctx, &member, reserveRequest("oneway",
		[2]string{"dep-100", "03-12A"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// A stranger cannot cancel a member reservation
	stranger := "member-2"
	if _, err := f.reservationSvc.Cancel(ctx, resp.ID, &stranger); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Errorf("Expected ErrReservationNotFound for a stranger, got %v", err)
	}

	cancelled, err := f.reservationSvc.Cancel(ctx, resp.ID, &member)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cancelled.Status != "cancelled" {
		t.Errorf("Expected status cancelled, got %s", cancelled.Status)
	}

	avail, _ := f.inventorySvc.GetAvailability(ctx, "dep-100", false)
	if avail.FreeSeats != 1 {
		t.Errorf("Expected seat freed, got %d free", avail.FreeSeats)
	}

	if _, err := f.reservationSvc.Cancel(ctx, resp.ID, &member); !errors.Is(err, domain.ErrAlreadyCancelled) {
		t.Errorf("Expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestReservationService_ExpireDue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A", "03-12B")

	// An already-due hold sits next to a fresh one
	overdue, err := domain.NewReservation(nil, domain.TripTypeOneWay, []domain.SeatClaim{
		{DepartureID: "dep-100", SeatID: "03-12A", PassengerType: domain.PassengerTypeAdult},
	}, -time.Minute)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.reservations.CreateWithOutbox(ctx, overdue); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fresh, err := f.reservationSvc.Create(ctx, nil, reserveRequest("oneway", [2]string{"dep-100", "03-12B"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expired, err := f.reservationSvc.ExpireDue(ctx, 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if expired != 1 {
		t.Errorf("Expected 1 expired reservation, got %d", expired)
	}

	avail, _ := f.inventorySvc.GetAvailability(ctx, "dep-100", false)
	if avail.FreeSeats != 1 {
		t.Errorf("Expected the overdue seat freed, got %d free", avail.FreeSeats)
	}

	got, err := f.reservationSvc.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Status != "held" {
		t.Errorf("Fresh hold must survive the sweep, got %s", got.Status)
	}

	// Idempotent: a second sweep finds nothing to do
	expired, err = f.reservationSvc.ExpireDue(ctx, 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if expired != 0 {
		t.Errorf("Expected 0 expired on the second sweep, got %d", expired)
	}
}

// Guard against accidental interface drift between stores
var _ repository.ReservationRepository = (*repository.MemoryReservationRepository)(nil)
