package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/dto"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/telemetry"
)

// FareService defines the interface for payment calculation sessions
type FareService interface {
	// OpenSession freezes the fare of a held reservation into a single-use,
	// time-boxed quote
	OpenSession(ctx context.Context, memberID *string, req *dto.OpenSessionRequest) (*dto.SessionResponse, error)

	// GetSession retrieves an open session
	GetSession(ctx context.Context, id string) (*dto.SessionResponse, error)
}

// fareService implements FareService
type fareService struct {
	reservationRepo repository.ReservationRepository
	seatRepo        repository.SeatRepository
	sessionRepo     repository.SessionRepository
	mileageRepo     repository.MileageRepository
	fares           FareLookup
	sessionTTL      time.Duration
}

// FareServiceConfig contains configuration for the fare service
type FareServiceConfig struct {
	// SessionTTL is the quote window; a session never outlives its
	// reservation's hold window
	SessionTTL time.Duration
}

// NewFareService creates a new fare service
func NewFareService(
	reservationRepo repository.ReservationRepository,
	seatRepo repository.SeatRepository,
	sessionRepo repository.SessionRepository,
	mileageRepo repository.MileageRepository,
	fares FareLookup,
	cfg *FareServiceConfig,
) FareService {
	sessionTTL := 5 * time.Minute
	if cfg != nil && cfg.SessionTTL > 0 {
		sessionTTL = cfg.SessionTTL
	}
	return &fareService{
		reservationRepo: reservationRepo,
		seatRepo:        seatRepo,
		sessionRepo:     sessionRepo,
		mileageRepo:     mileageRepo,
		fares:           fares,
		sessionTTL:      sessionTTL,
	}
}

// OpenSession freezes the fare of a held reservation
func (s *fareService) OpenSession(ctx context.Context, memberID *string, req *dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.fare.open_session")
	defer span.End()

	if req == nil || req.ReservationID == "" {
		span.SetStatus(codes.Error, "invalid reservation id")
		return nil, domain.ErrInvalidReservationID
	}
	span.SetAttributes(attribute.String("reservation_id", req.ReservationID))

	reservation, err := s.reservationRepo.GetByID(ctx, req.ReservationID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if reservation.MemberID != nil && (memberID == nil || !reservation.BelongsToMember(*memberID)) {
		span.SetStatus(codes.Error, "reservation not owned by caller")
		return nil, domain.ErrReservationNotFound
	}
	if !reservation.CanPay() {
		err := checkoutStateError(reservation)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	baseFare, err := s.totalFare(ctx, reservation)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// The deduction is only promised here; the ledger is debited at
	// settlement, after the gateway verified the charge
	mileage := req.MileageToUse
	if mileage > baseFare {
		mileage = baseFare
	}
	if mileage > 0 {
		if reservation.MemberID == nil {
			span.SetStatus(codes.Error, "guest cannot use mileage")
			return nil, domain.ErrMemberNotFound
		}
		balance, err := s.mileageRepo.Balance(ctx, *reservation.MemberID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if balance < mileage {
			span.SetStatus(codes.Error, "insufficient mileage")
			return nil, domain.ErrInsufficientMileage
		}
	}

	// The quote must not outlive the hold it prices
	ttl := s.sessionTTL
	if remaining := time.Until(reservation.ExpiresAt); remaining < ttl {
		ttl = remaining
	}

	session, err := domain.NewCalcSession(reservation.ID, domain.FareSnapshot{
		BaseFare:        baseFare,
		MileageDeducted: mileage,
		Payable:         baseFare - mileage,
	}, ttl)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.sessionRepo.Save(ctx, session); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("session_id", session.ID),
		attribute.Int64("payable", session.Fare.Payable),
	)
	return dto.SessionFromDomain(session), nil
}

// GetSession retrieves an open session
func (s *fareService) GetSession(ctx context.Context, id string) (*dto.SessionResponse, error) {
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.sessionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.SessionFromDomain(session), nil
}

// totalFare sums the per-claim fares of a reservation
func (s *fareService) totalFare(ctx context.Context, reservation *domain.Reservation) (int64, error) {
	var total int64
	for _, claim := range reservation.Claims {
		seat, err := s.seatRepo.GetSeat(ctx, claim.DepartureID, claim.SeatID)
		if err != nil {
			return 0, err
		}
		fare, err := s.fares.BaseFare(ctx, claim.DepartureID, seat.Class, claim.PassengerType)
		if err != nil {
			return 0, err
		}
		total += fare
	}
	return total, nil
}

// checkoutStateError maps a non-payable reservation to the error its state
// deserves
func checkoutStateError(reservation *domain.Reservation) error {
	switch reservation.Status {
	case domain.ReservationStatusPaid:
		return domain.ErrAlreadyPaid
	case domain.ReservationStatusCancelled:
		return domain.ErrAlreadyCancelled
	case domain.ReservationStatusExpired:
		return domain.ErrReservationExpired
	case domain.ReservationStatusHeld:
		// Held but past its window: the sweeper just has not reaped it yet
		return domain.ErrReservationExpired
	default:
		return domain.ErrReservationNotHeld
	}
}

// Ensure fareService implements FareService
var _ FareService = (*fareService)(nil)
