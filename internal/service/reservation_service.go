package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/dto"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/lock"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/logger"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/telemetry"
)

// ReservationService defines the interface for reservation business logic
type ReservationService interface {
	// Create holds the requested seats and opens the hold window
	Create(ctx context.Context, memberID *string, req *dto.CreateReservationRequest) (*dto.ReservationResponse, error)

	// Get retrieves a reservation by ID
	Get(ctx context.Context, id string) (*dto.ReservationResponse, error)

	// GetByMember retrieves a member's reservations, newest first
	GetByMember(ctx context.Context, memberID string, page, pageSize int) ([]*dto.ReservationResponse, error)

	// Cancel releases a held reservation and frees its seats
	Cancel(ctx context.Context, id string, memberID *string) (*dto.CancelReservationResponse, error)

	// ExpireDue expires overdue holds and returns how many were reaped
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// reservationService implements ReservationService
type reservationService struct {
	reservationRepo repository.ReservationRepository
	locks           *lock.Manager
	holdTTL         time.Duration
	seatLockWait    time.Duration
}

// ReservationServiceConfig contains configuration for the reservation service
type ReservationServiceConfig struct {
	// HoldTTL is the hold window opened by Create; never extended afterwards
	HoldTTL time.Duration
	// SeatLockWait bounds how long Create waits for one contended seat lock
	SeatLockWait time.Duration
}

// NewReservationService creates a new reservation service
func NewReservationService(
	reservationRepo repository.ReservationRepository,
	locks *lock.Manager,
	cfg *ReservationServiceConfig,
) ReservationService {
	holdTTL := 10 * time.Minute
	seatLockWait := 500 * time.Millisecond
	if cfg != nil {
		if cfg.HoldTTL > 0 {
			holdTTL = cfg.HoldTTL
		}
		if cfg.SeatLockWait > 0 {
			seatLockWait = cfg.SeatLockWait
		}
	}
	return &reservationService{
		reservationRepo: reservationRepo,
		locks:           locks,
		holdTTL:         holdTTL,
		seatLockWait:    seatLockWait,
	}
}

// Create holds the requested seats and opens the hold window
func (s *reservationService) Create(ctx context.Context, memberID *string, req *dto.CreateReservationRequest) (*dto.ReservationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.create")
	defer span.End()

	if req == nil {
		span.SetStatus(codes.Error, "no seats requested")
		return nil, domain.ErrNoSeatsRequested
	}

	reservation, err := domain.NewReservation(memberID, domain.TripType(req.TripType), req.ToClaims(), s.holdTTL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("reservation_id", reservation.ID),
		attribute.String("trip_type", req.TripType),
		attribute.Int("seats", len(reservation.Claims)),
		attribute.Int("passengers", reservation.PassengerCount()),
	)

	// Per-seat locks in one global order so two overlapping requests can
	// never deadlock each other
	handles, err := s.acquireSeatLocks(ctx, reservation.Claims)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer s.releaseSeatLocks(ctx, handles)

	if err := s.reservationRepo.CreateWithOutbox(ctx, reservation); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return dto.ReservationFromDomain(reservation), nil
}

// acquireSeatLocks takes the lock of every claimed seat in ascending key
// order. Failure on any seat releases what was taken and surfaces a seat
// conflict naming the contended seat.
func (s *reservationService) acquireSeatLocks(ctx context.Context, claims []domain.SeatClaim) ([]*lock.Handle, error) {
	sorted := append([]domain.SeatClaim(nil), claims...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DepartureID != sorted[j].DepartureID {
			return sorted[i].DepartureID < sorted[j].DepartureID
		}
		return sorted[i].SeatID < sorted[j].SeatID
	})

	handles := make([]*lock.Handle, 0, len(sorted))
	for _, claim := range sorted {
		handle, err := s.locks.Acquire(ctx, lock.SeatKey(claim.DepartureID, claim.SeatID), s.seatLockWait)
		if err != nil {
			s.releaseSeatLocks(ctx, handles)
			if errors.Is(err, lock.ErrLockTimeout) || errors.Is(err, lock.ErrLockUnavailable) {
				return nil, &domain.SeatConflictError{
					DepartureID: claim.DepartureID,
					SeatIDs:     []string{claim.SeatID},
				}
			}
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

func (s *reservationService) releaseSeatLocks(ctx context.Context, handles []*lock.Handle) {
	for i := len(handles) - 1; i >= 0; i-- {
		if err := handles[i].Release(ctx); err != nil {
			// The lease reclaims the seat either way
			logger.Get().Warn("failed to release seat lock",
				zap.String("key", handles[i].Key()),
				zap.Error(err))
		}
	}
}

// Get retrieves a reservation by ID
func (s *reservationService) Get(ctx context.Context, id string) (*dto.ReservationResponse, error) {
	if id == "" {
		return nil, domain.ErrInvalidReservationID
	}

	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.ReservationFromDomain(reservation), nil
}

// GetByMember retrieves a member's reservations, newest first
func (s *reservationService) GetByMember(ctx context.Context, memberID string, page, pageSize int) ([]*dto.ReservationResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	reservations, err := s.reservationRepo.GetByMemberID(ctx, memberID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ReservationResponse, 0, len(reservations))
	for _, reservation := range reservations {
		result = append(result, dto.ReservationFromDomain(reservation))
	}
	return result, nil
}

// Cancel releases a held reservation and frees its seats
func (s *reservationService) Cancel(ctx context.Context, id string, memberID *string) (*dto.CancelReservationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.cancel")
	defer span.End()

	if id == "" {
		span.SetStatus(codes.Error, "invalid reservation id")
		return nil, domain.ErrInvalidReservationID
	}
	span.SetAttributes(attribute.String("reservation_id", id))

	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Member reservations are only cancellable by their owner; lookups with
	// the wrong owner read as missing
	if reservation.MemberID != nil && (memberID == nil || !reservation.BelongsToMember(*memberID)) {
		span.SetStatus(codes.Error, "reservation not owned by caller")
		return nil, domain.ErrReservationNotFound
	}

	if err := s.reservationRepo.CancelWithOutbox(ctx, reservation); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &dto.CancelReservationResponse{
		ID:          reservation.ID,
		Status:      domain.ReservationStatusCancelled.String(),
		CancelledAt: time.Now(),
	}, nil
}

// ExpireDue expires overdue holds in one sweep batch
func (s *reservationService) ExpireDue(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.expire_due")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	due, err := s.reservationRepo.GetExpired(ctx, time.Now(), limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	expired := 0
	for _, reservation := range due {
		err := s.reservationRepo.ExpireWithOutbox(ctx, reservation)
		if err == nil {
			expired++
			continue
		}
		// A racing sweep, a payment or a cancel got there first; both are
		// fine outcomes for this reservation
		if errors.Is(err, domain.ErrNotDue) ||
			errors.Is(err, domain.ErrAlreadyPaid) ||
			errors.Is(err, domain.ErrAlreadyCancelled) ||
			errors.Is(err, domain.ErrReservationExpired) {
			continue
		}
		span.SetStatus(codes.Error, err.Error())
		return expired, err
	}

	span.SetAttributes(attribute.Int("expired", expired))
	return expired, nil
}

// Ensure reservationService implements ReservationService
var _ ReservationService = (*reservationService)(nil)
