package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/dto"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/gateway"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/lock"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/logger"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/telemetry"
)

// SettlementService defines the interface for payment settlement
type SettlementService interface {
	// Settle confirms a held reservation into a paid ticket. Replaying the
	// same idempotency key returns the stored result without charging twice.
	Settle(ctx context.Context, memberID *string, req *dto.SettleRequest) (*dto.SettlementResponse, error)

	// GetPayment retrieves a payment by ID
	GetPayment(ctx context.Context, id string) (*dto.SettlementResponse, error)
}

// settlementService implements SettlementService
type settlementService struct {
	reservationRepo repository.ReservationRepository
	paymentRepo     repository.PaymentRepository
	sessionRepo     repository.SessionRepository
	mileageRepo     repository.MileageRepository
	gateway         gateway.PaymentGateway
	locks           *lock.Manager
	paymentLockWait time.Duration
	mileageEarnRate float64
}

// SettlementServiceConfig contains configuration for the settlement service
type SettlementServiceConfig struct {
	// PaymentLockWait bounds how long a settlement waits behind a
	// same-key rival before giving up
	PaymentLockWait time.Duration
	// MileageEarnRate is the fraction of the paid amount credited back as
	// mileage, e.g. 0.01 for one percent
	MileageEarnRate float64
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	reservationRepo repository.ReservationRepository,
	paymentRepo repository.PaymentRepository,
	sessionRepo repository.SessionRepository,
	mileageRepo repository.MileageRepository,
	gw gateway.PaymentGateway,
	locks *lock.Manager,
	cfg *SettlementServiceConfig,
) SettlementService {
	paymentLockWait := 5 * time.Second
	earnRate := 0.01
	if cfg != nil {
		if cfg.PaymentLockWait > 0 {
			paymentLockWait = cfg.PaymentLockWait
		}
		if cfg.MileageEarnRate > 0 {
			earnRate = cfg.MileageEarnRate
		}
	}
	return &settlementService{
		reservationRepo: reservationRepo,
		paymentRepo:     paymentRepo,
		sessionRepo:     sessionRepo,
		mileageRepo:     mileageRepo,
		gateway:         gw,
		locks:           locks,
		paymentLockWait: paymentLockWait,
		mileageEarnRate: earnRate,
	}
}

// Settle confirms a held reservation into a paid ticket
func (s *settlementService) Settle(ctx context.Context, memberID *string, req *dto.SettleRequest) (*dto.SettlementResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.settlement.settle")
	defer span.End()

	if req == nil || req.ReservationID == "" {
		span.SetStatus(codes.Error, "invalid reservation id")
		return nil, domain.ErrInvalidReservationID
	}
	if req.IdempotencyKey == "" {
		span.SetStatus(codes.Error, "invalid idempotency key")
		return nil, domain.ErrInvalidIdempotencyKey
	}
	span.SetAttributes(
		attribute.String("reservation_id", req.ReservationID),
		attribute.String("idempotency_key", req.IdempotencyKey),
	)

	// One settlement per idempotency key at a time; a rival with the same
	// key waits here and then resolves through the replay check
	var result *dto.SettlementResponse
	err := s.locks.WithLock(ctx, lock.PaymentKey(req.IdempotencyKey), s.paymentLockWait, func(ctx context.Context) error {
		var err error
		result, err = s.settleLocked(ctx, memberID, req)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// settleLocked runs the settlement steps while holding the payment lock
func (s *settlementService) settleLocked(ctx context.Context, memberID *string, req *dto.SettleRequest) (*dto.SettlementResponse, error) {
	// Step 1: replay check. A committed settlement with this key is the
	// answer, not an error.
	existing, err := s.paymentRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err == nil {
		return dto.SettlementFromDomain(existing, true), nil
	}
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		return nil, err
	}

	// Step 2: the reservation must still be payable
	reservation, err := s.reservationRepo.GetByID(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if reservation.MemberID != nil && (memberID == nil || !reservation.BelongsToMember(*memberID)) {
		return nil, domain.ErrReservationNotFound
	}
	if !reservation.CanPay() {
		return nil, checkoutStateError(reservation)
	}

	// Step 3: consume the quote. Strictly one-shot; a failed settlement
	// burns the session and the client must reopen one.
	session, err := s.sessionRepo.Consume(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.ReservationID != reservation.ID {
		return nil, domain.ErrSessionNotFound
	}

	// Step 4: verify the payment proof against the frozen payable amount
	verification, err := s.gateway.Verify(ctx, &gateway.VerifyRequest{
		ProofToken:     req.PaymentProof,
		ExpectedAmount: session.Fare.Payable,
		Currency:       "KRW",
	})
	if err != nil {
		return nil, err
	}
	if !verification.Verified {
		return nil, domain.ErrGatewayRejected
	}
	if verification.Amount != session.Fare.Payable {
		return nil, domain.ErrAmountMismatch
	}

	// Step 5: debit the promised mileage before committing
	if session.Fare.MileageDeducted > 0 {
		if reservation.MemberID == nil {
			return nil, domain.ErrMemberNotFound
		}
		if err := s.mileageRepo.Deduct(ctx, *reservation.MemberID, session.Fare.MileageDeducted); err != nil {
			return nil, err
		}
	}

	// Step 6: build the payment record and its events
	earned := s.earnedMileage(reservation, session.Fare.Payable)
	payment, err := domain.NewPayment(reservation.ID, reservation.MemberID, session.Fare, earned, verification.TransactionRef, req.IdempotencyKey)
	if err != nil {
		s.refundDeduction(ctx, reservation, session.Fare.MileageDeducted)
		return nil, err
	}

	events := make([]*domain.OutboxMessage, 0, 2)
	settled, err := domain.PaymentSettledOutboxEvent(payment)
	if err != nil {
		s.refundDeduction(ctx, reservation, session.Fare.MileageDeducted)
		return nil, err
	}
	events = append(events, settled)
	if earning, err := domain.MileageEarningOutboxEvent(payment); err == nil {
		events = append(events, earning)
	} else if !errors.Is(err, domain.ErrNoMileageToEarn) {
		// Settlement still commits; the earning is recoverable from the
		// payment row
		logger.Get().Warn("failed to build mileage earning event",
			zap.String("payment_id", payment.ID),
			zap.Error(err))
	}

	// Step 7: one atomic commit for seats, reservation, payment and events
	if err := s.reservationRepo.SettleWithOutbox(ctx, reservation, payment, events...); err != nil {
		s.refundDeduction(ctx, reservation, session.Fare.MileageDeducted)
		return nil, err
	}

	return dto.SettlementFromDomain(payment, false), nil
}

// refundDeduction hands a mileage deduction back after a failed commit
func (s *settlementService) refundDeduction(ctx context.Context, reservation *domain.Reservation, amount int64) {
	if amount <= 0 || reservation.MemberID == nil {
		return
	}
	if err := s.mileageRepo.Credit(ctx, *reservation.MemberID, amount); err != nil {
		telemetry.SetSpanError(ctx, err)
	}
}

// earnedMileage computes the mileage credited back for a paid fare.
// Guests earn nothing.
func (s *settlementService) earnedMileage(reservation *domain.Reservation, payable int64) int64 {
	if reservation.MemberID == nil {
		return 0
	}
	return int64(float64(payable) * s.mileageEarnRate)
}

// GetPayment retrieves a payment by ID
func (s *settlementService) GetPayment(ctx context.Context, id string) (*dto.SettlementResponse, error) {
	if id == "" {
		return nil, domain.ErrPaymentNotFound
	}

	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.SettlementFromDomain(payment, false), nil
}

// Ensure settlementService implements SettlementService
var _ SettlementService = (*settlementService)(nil)
