package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/dto"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
)

// openCheckout holds a seat, opens a quote and pays it at the mock gateway,
// returning everything Settle needs
func openCheckout(t *testing.T, f *fixture, memberID *string, mileage int64, seatIDs ...string) (*dto.ReservationResponse, *dto.SessionResponse, string) {
	t.Helper()
	ctx := context.Background()

	pairs := make([][2]string, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		pairs = append(pairs, [2]string{"dep-100", seatID})
	}
	resv, err := f.reservationSvc.Create(ctx, memberID, reserveRequest("oneway", pairs...))
	if err != nil {
		t.Fatalf("Failed to create reservation: %v", err)
	}
	session, err := f.fareSvc.OpenSession(ctx, memberID, &dto.OpenSessionRequest{
		ReservationID: resv.ID,
		MileageToUse:  mileage,
	})
	if err != nil {
		t.Fatalf("Failed to open session: %v", err)
	}
	return resv, session, f.gateway.Authorize(session.Payable)
}

func TestSettlementService_Settle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	member := "member-1"
	f.mileage.SetBalance(member, 5000)
	resv, session, proof := openCheckout(t, f, &member, 3000, "03-12A")

	result, err := f.settlementSvc.Settle(ctx, &member, &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   proof,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Replayed {
		t.Error("First settlement must not be a replay")
	}
	if result.Amount != 59800-3000 {
		t.Errorf("Expected amount 56800, got %d", result.Amount)
	}
	if result.MileageUsed != 3000 {
		t.Errorf("Expected 3000 mileage used, got %d", result.MileageUsed)
	}
	if result.MileageEarned != 568 {
		t.Errorf("Expected 568 mileage earned, got %d", result.MileageEarned)
	}
	if result.GatewayTxRef == "" {
		t.Error("Expected a gateway transaction reference")
	}

	// Deducted now; earning arrives later through the outbox
	balance, _ := f.mileage.Balance(ctx, member)
	if balance != 2000 {
		t.Errorf("Expected balance 2000 after deduction, got %d", balance)
	}

	got, err := f.reservationSvc.Get(ctx, resv.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Status != "paid" {
		t.Errorf("Expected reservation paid, got %s", got.Status)
	}

	seat, err := f.seats.GetSeat(ctx, "dep-100", "03-12A")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if seat.Status != domain.SeatStatusSold {
		t.Errorf("Expected seat sold, got %s", seat.Status)
	}

	pending, err := f.outbox.GetPendingMessages(ctx, 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	types := make(map[string]int)
	for _, msg := range pending {
		types[msg.EventType]++
	}
	if types[domain.EventPaymentSettled] != 1 {
		t.Errorf("Expected one settled event, got %d", types[domain.EventPaymentSettled])
	}
	if types[domain.EventMileageEarningReady] != 1 {
		t.Errorf("Expected one earning event, got %d", types[domain.EventMileageEarningReady])
	}
}

func TestSettlementService_Settle_GuestEarnsNoMileage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	resv, session, proof := openCheckout(t, f, nil, 0, "03-12A")
	result, err := f.settlementSvc.Settle(ctx, nil, &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   proof,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.MileageEarned != 0 {
		t.Errorf("Expected no mileage earned for a guest, got %d", result.MileageEarned)
	}

	// The settled event goes out alone; no earning event without a member
	pending, err := f.outbox.GetPendingMessages(ctx, 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, msg := range pending {
		if msg.EventType == domain.EventMileageEarningReady {
			t.Error("Guest settlement must not record an earning event")
		}
	}
}

func TestSettlementService_Settle_Replay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	resv, session, proof := openCheckout(t, f, nil, 0, "03-12A")
	req := &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   proof,
	}

	first, err := f.settlementSvc.Settle(ctx, nil, req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Same key again, even with a long-gone session: the stored result wins
	replay, err := f.settlementSvc.Settle(ctx, nil, req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !replay.Replayed {
		t.Error("Expected the second settlement to be a replay")
	}
	if replay.PaymentID != first.PaymentID {
		t.Errorf("Replay must return the stored payment, got %s and %s", first.PaymentID, replay.PaymentID)
	}
	if replay.Amount != first.Amount {
		t.Errorf("Replay amount drifted: %d vs %d", first.Amount, replay.Amount)
	}
	if calls := f.gateway.VerifyCalls(); calls != 1 {
		t.Errorf("Expected the gateway verified once across the replay, got %d calls", calls)
	}
}

func TestSettlementService_Settle_SessionSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	resv, session, proof := openCheckout(t, f, nil, 0, "03-12A")

	// Burn the session with a rejected proof
	_, err := f.settlementSvc.Settle(ctx, nil, &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   "mock_proof_bogus",
	})
	if !errors.Is(err, domain.ErrGatewayRejected) {
		t.Fatalf("Expected ErrGatewayRejected, got %v", err)
	}

	// A fresh key cannot revive the consumed session
	_, err = f.settlementSvc.Settle(ctx, nil, &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-2",
		PaymentProof:   proof,
	})
	if !errors.Is(err, domain.ErrSessionConsumed) {
		t.Fatalf("Expected ErrSessionConsumed, got %v", err)
	}

	// Reopening a session is the way out
	session2, err := f.fareSvc.OpenSession(ctx, nil, &dto.OpenSessionRequest{ReservationID: resv.ID})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := f.settlementSvc.Settle(ctx, nil, &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session2.SessionID,
		IdempotencyKey: "idem-3",
		PaymentProof:   proof,
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestSettlementService_Settle_AmountMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	resv, session, _ := openCheckout(t, f, nil, 0, "03-12A")
	shortProof := f.gateway.Authorize(session.Payable - 10000)

	_, err := f.settlementSvc.Settle(ctx, nil, &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   shortProof,
	})
	if !errors.Is(err, domain.ErrAmountMismatch) {
		t.Errorf("Expected ErrAmountMismatch, got %v", err)
	}

	got, _ := f.reservationSvc.Get(ctx, resv.ID)
	if got.Status != "held" {
		t.Errorf("Reservation must stay held after a failed settlement, got %s", got.Status)
	}
}

func TestSettlementService_Settle_SessionReservationMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A", "03-12B")

	resvA, _, _ := openCheckout(t, f, nil, 0, "03-12A")
	_, sessionB, proofB := openCheckout(t, f, nil, 0, "03-12B")

	// Session B priced reservation B; it cannot pay reservation A
	_, err := f.settlementSvc.Settle(ctx, nil, &dto.SettleRequest{
		ReservationID:  resvA.ID,
		SessionID:      sessionB.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   proofB,
	})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestSettlementService_Settle_NotPayable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	resv, session, proof := openCheckout(t, f, nil, 0, "03-12A")
	if _, err := f.reservationSvc.Cancel(ctx, resv.ID, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, err := f.settlementSvc.Settle(ctx, nil, &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   proof,
	})
	if !errors.Is(err, domain.ErrAlreadyCancelled) {
		t.Errorf("Expected ErrAlreadyCancelled, got %v", err)
	}
}

// failingSettleRepo makes the final commit fail so compensation paths can
// be observed
type failingSettleRepo struct {
	repository.ReservationRepository
}

func (r *failingSettleRepo) SettleWithOutbox(ctx context.Context, reservation *domain.Reservation, payment *domain.Payment, events ...*domain.OutboxMessage) error {
	return fmt.Errorf("storage unavailable")
}

func TestSettlementService_Settle_RefundsMileageOnCommitFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	member := "member-1"
	f.mileage.SetBalance(member, 5000)
	resv, session, proof := openCheckout(t, f, &member, 3000, "03-12A")

	broken := NewSettlementService(
		&failingSettleRepo{ReservationRepository: f.reservations},
		f.payments, f.sessions, f.mileage, f.gateway, f.locks,
		&SettlementServiceConfig{PaymentLockWait: time.Second},
	)

	_, err := broken.Settle(ctx, &member, &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   proof,
	})
	if err == nil {
		t.Fatal("Expected the settlement to fail")
	}

	balance, _ := f.mileage.Balance(ctx, member)
	if balance != 5000 {
		t.Errorf("Expected the deduction refunded, got balance %d", balance)
	}
}

func TestSettlementService_Settle_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	resv, session, proof := openCheckout(t, f, nil, 0, "03-12A")
	req := &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   proof,
	}

	const rivals = 8
	var wg sync.WaitGroup
	results := make([]*dto.SettlementResponse, rivals)
	errs := make([]error, rivals)
	for i := 0; i < rivals; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.settlementSvc.Settle(ctx, nil, req)
		}(i)
	}
	wg.Wait()

	committed := 0
	var paymentID string
	for i := range results {
		if errs[i] != nil {
			t.Errorf("Rival %d failed: %v", i, errs[i])
			continue
		}
		if !results[i].Replayed {
			committed++
		}
		if paymentID == "" {
			paymentID = results[i].PaymentID
		} else if results[i].PaymentID != paymentID {
			t.Errorf("Rivals disagree on the payment: %s vs %s", paymentID, results[i].PaymentID)
		}
	}
	if committed != 1 {
		t.Errorf("Expected exactly one committed settlement, got %d", committed)
	}
	if calls := f.gateway.VerifyCalls(); calls != 1 {
		t.Errorf("Expected the gateway verified once across %d rivals, got %d calls", rivals, calls)
	}
}

func TestSettlementService_GetPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "dep-100", "03-12A")

	resv, session, proof := openCheckout(t, f, nil, 0, "03-12A")
	settled, err := f.settlementSvc.Settle(ctx, nil, &dto.SettleRequest{
		ReservationID:  resv.ID,
		SessionID:      session.SessionID,
		IdempotencyKey: "idem-1",
		PaymentProof:   proof,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, err := f.settlementSvc.GetPayment(ctx, settled.PaymentID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.ReservationID != resv.ID {
		t.Errorf("Expected reservation %s, got %s", resv.ID, got.ReservationID)
	}

	if _, err := f.settlementSvc.GetPayment(ctx, "nope"); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Errorf("Expected ErrPaymentNotFound, got %v", err)
	}
}
