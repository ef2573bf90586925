package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

func newMemoryStores() (*MemoryReservationRepository, *MemorySeatRepository, *MemoryPaymentRepository, *MemoryOutboxRepository) {
	seatRepo := NewMemorySeatRepository()
	paymentRepo := NewMemoryPaymentRepository()
	outboxRepo := NewMemoryOutboxRepository()
	return NewMemoryReservationRepository(seatRepo, paymentRepo, outboxRepo), seatRepo, paymentRepo, outboxRepo
}

func seedSeats(t *testing.T, seatRepo *MemorySeatRepository, departureID string, seatIDs ...string) {
	t.Helper()
	seats := make([]*domain.Seat, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		seats = append(seats, &domain.Seat{
			DepartureID: departureID,
			SeatID:      seatID,
			CarNo:       3,
			Class:       domain.SeatClassStandard,
			Status:      domain.SeatStatusFree,
		})
	}
	if err := seatRepo.CreateSeats(context.Background(), seats); err != nil {
		t.Fatalf("Failed to seed seats: %v", err)
	}
}

func heldReservation(t *testing.T, ttl time.Duration, pairs ...[2]string) *domain.Reservation {
	t.Helper()
	claims := make([]domain.SeatClaim, 0, len(pairs))
	for _, p := range pairs {
		claims = append(claims, domain.SeatClaim{
			DepartureID:   p[0],
			SeatID:        p[1],
			PassengerType: domain.PassengerTypeAdult,
		})
	}
	tripType := domain.TripTypeOneWay
	if len(domainDepartures(claims)) > 1 {
		tripType = domain.TripTypeRound
	}
	r, err := domain.NewReservation(nil, tripType, claims, ttl)
	if err != nil {
		t.Fatalf("Failed to build reservation: %v", err)
	}
	return r
}

func domainDepartures(claims []domain.SeatClaim) map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range claims {
		set[c.DepartureID] = struct{}{}
	}
	return set
}

func TestMemoryReservationRepository_CreateWithOutbox(t *testing.T) {
	ctx := context.Background()
	repo, seatRepo, _, outboxRepo := newMemoryStores()
	seedSeats(t, seatRepo, "dep-100", "03-12A", "03-12B", "03-12C")

	reservation := heldReservation(t, 10*time.Minute,
		[2]string{"dep-100", "03-12A"}, [2]string{"dep-100", "03-12B"})

	if err := repo.CreateWithOutbox(ctx, reservation); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	seat, err := seatRepo.GetSeat(ctx, "dep-100", "03-12A")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !seat.HeldBy(reservation.ID) {
		t.Error("Expected seat held by the reservation")
	}

	free, _ := seatRepo.CountFree(ctx, "dep-100")
	if free != 1 {
		t.Errorf("Expected 1 free seat, got %d", free)
	}

	pending, _ := outboxRepo.GetPendingMessages(ctx, 10)
	if len(pending) != 1 || pending[0].EventType != domain.EventReservationCreated {
		t.Errorf("Expected one created event, got %+v", pending)
	}
}

func TestMemoryReservationRepository_CreateWithOutbox_Conflict(t *testing.T) {
	ctx := context.Background()
	repo, seatRepo, _, _ := newMemoryStores()
	seedSeats(t, seatRepo, "dep-100", "03-12A", "03-12B")

	first := heldReservation(t, 10*time.Minute, [2]string{"dep-100", "03-12A"})
	if err := repo.CreateWithOutbox(ctx, first); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Overlapping request: all-or-nothing means 03-12B stays free too
	second := heldReservation(t, 10*time.Minute,
		[2]string{"dep-100", "03-12A"}, [2]string{"dep-100", "03-12B"})
	err := repo.CreateWithOutbox(ctx, second)

	conflict, ok := domain.IsSeatConflict(err)
	if !ok {
		t.Fatalf("Expected seat conflict, got %v", err)
	}
	if len(conflict.SeatIDs) != 1 || conflict.SeatIDs[0] != "03-12A" {
		t.Errorf("Conflict must name exactly the blocked seat, got %v", conflict.SeatIDs)
	}

	seat, _ := seatRepo.GetSeat(ctx, "dep-100", "03-12B")
	if !seat.IsFree() {
		t.Error("Partial holds must not survive a conflict")
	}
}

func TestMemoryReservationRepository_ConcurrentOverlappingHolds(t *testing.T) {
	ctx := context.Background()
	repo, seatRepo, _, _ := newMemoryStores()
	seedSeats(t, seatRepo, "dep-100", "03-12A", "03-12B")

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reservation := heldReservation(t, 10*time.Minute,
				[2]string{"dep-100", "03-12A"}, [2]string{"dep-100", "03-12B"})
			errs[i] = repo.CreateWithOutbox(ctx, reservation)
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

func TestMemoryReservationRepository_CancelWithOutbox(t *testing.T) {
	ctx := context.Background()
	repo, seatRepo, _, _ := newMemoryStores()
	seedSeats(t, seatRepo, "dep-100", "03-12A")

	reservation := heldReservation(t, 10*time.Minute, [2]string{"dep-100", "03-12A"})
	if err := repo.CreateWithOutbox(ctx, reservation); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := repo.CancelWithOutbox(ctx, reservation); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	seat, _ := seatRepo.GetSeat(ctx, "dep-100", "03-12A")
	if !seat.IsFree() {
		t.Error("Expected seat freed after cancel")
	}

	if err := repo.CancelWithOutbox(ctx, reservation); !errors.Is(err, domain.ErrAlreadyCancelled) {
		t.Errorf("Expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestMemoryReservationRepository_ExpireWithOutbox(t *testing.T) {
	ctx := context.Background()
	repo, seatRepo, _, _ := newMemoryStores()
	seedSeats(t, seatRepo, "dep-100", "03-12A", "03-12B")

	due := heldReservation(t, -time.Minute, [2]string{"dep-100", "03-12A"})
	notDue := heldReservation(t, 10*time.Minute, [2]string{"dep-100", "03-12B"})
	if err := repo.CreateWithOutbox(ctx, due); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := repo.CreateWithOutbox(ctx, notDue); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := repo.ExpireWithOutbox(ctx, notDue); !errors.Is(err, domain.ErrNotDue) {
		t.Errorf("Expected ErrNotDue, got %v", err)
	}

	if err := repo.ExpireWithOutbox(ctx, due); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	seat, _ := seatRepo.GetSeat(ctx, "dep-100", "03-12A")
	if !seat.IsFree() {
		t.Error("Expected seat freed after expiry")
	}

	// Idempotent under racing sweeps: the second expiry converges on the
	// terminal-state error
	if err := repo.ExpireWithOutbox(ctx, due); !errors.Is(err, domain.ErrReservationExpired) {
		t.Errorf("Expected ErrReservationExpired, got %v", err)
	}

	expired, _ := repo.GetExpired(ctx, time.Now(), 10)
	if len(expired) != 0 {
		t.Errorf("Expected no remaining due reservations, got %d", len(expired))
	}
}

func TestMemoryReservationRepository_SettleWithOutbox(t *testing.T) {
	ctx := context.Background()
	repo, seatRepo, paymentRepo, outboxRepo := newMemoryStores()
	seedSeats(t, seatRepo, "dep-100", "03-12A")

	reservation := heldReservation(t, 10*time.Minute, [2]string{"dep-100", "03-12A"})
	if err := repo.CreateWithOutbox(ctx, reservation); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	fare := domain.FareSnapshot{BaseFare: 59800, Payable: 59800}
	payment, err := domain.NewPayment(reservation.ID, nil, fare, 0, "gw-tx-1", "idem-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	settled, err := domain.PaymentSettledOutboxEvent(payment)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := repo.SettleWithOutbox(ctx, reservation, payment, settled); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	seat, _ := seatRepo.GetSeat(ctx, "dep-100", "03-12A")
	if seat.Status != domain.SeatStatusSold {
		t.Errorf("Expected seat sold, got %s", seat.Status)
	}

	stored, err := paymentRepo.GetByIdempotencyKey(ctx, "idem-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stored.Amount != 59800 {
		t.Errorf("Expected amount 59800, got %d", stored.Amount)
	}

	pending, _ := outboxRepo.GetPendingMessages(ctx, 10)
	found := false
	for _, msg := range pending {
		if msg.EventType == domain.EventPaymentSettled {
			found = true
		}
	}
	if !found {
		t.Error("Expected a settled event in the outbox")
	}

	if err := repo.SettleWithOutbox(ctx, reservation, payment, settled); !errors.Is(err, domain.ErrAlreadyPaid) {
		t.Errorf("Expected ErrAlreadyPaid, got %v", err)
	}
	if err := repo.CancelWithOutbox(ctx, reservation); !errors.Is(err, domain.ErrAlreadyPaid) {
		t.Errorf("Expected ErrAlreadyPaid, got %v", err)
	}
}

func TestMemoryReservationRepository_SettleWithOutbox_OverdueHold(t *testing.T) {
	ctx := context.Background()
	repo, seatRepo, _, _ := newMemoryStores()
	seedSeats(t, seatRepo, "dep-100", "03-12A")

	reservation := heldReservation(t, -time.Minute, [2]string{"dep-100", "03-12A"})
	if err := repo.CreateWithOutbox(ctx, reservation); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	fare := domain.FareSnapshot{BaseFare: 59800, Payable: 59800}
	payment, err := domain.NewPayment(reservation.ID, nil, fare, 0, "gw-tx-1", "idem-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// An overdue hold is never payable, even before the sweeper reaps it
	if err := repo.SettleWithOutbox(ctx, reservation, payment); !errors.Is(err, domain.ErrReservationExpired) {
		t.Errorf("Expected ErrReservationExpired, got %v", err)
	}

	stored, err := repo.GetByID(ctx, reservation.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stored.Status != domain.ReservationStatusHeld {
		t.Errorf("A refused settlement must not move the reservation, got %s", stored.Status)
	}
	seat, _ := seatRepo.GetSeat(ctx, "dep-100", "03-12A")
	if seat.Status != domain.SeatStatusHeld {
		t.Errorf("A refused settlement must not move the seat, got %s", seat.Status)
	}
}
