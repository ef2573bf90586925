package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/gateway"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/lock"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
)

// fakeLockRedis emulates the SET NX / compare-and-delete subset of Redis
// that the lock manager needs
type fakeLockRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeLockRedis() *fakeLockRedis {
	return &fakeLockRedis{data: make(map[string]string)}
}

func (f *fakeLockRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeLockRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[keys[0]] == fmt.Sprint(args[0]) {
		delete(f.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeLockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if val, exists := f.data[key]; exists {
		return redis.NewStringResult(val, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

// fixture wires every service over the in-memory stores
type fixture struct {
	seats        *repository.MemorySeatRepository
	reservations *repository.MemoryReservationRepository
	payments     *repository.MemoryPaymentRepository
	outbox       *repository.MemoryOutboxRepository
	sessions     *repository.MemorySessionRepository
	mileage      *repository.MemoryMileageRepository
	gateway      *gateway.MockGateway
	locks        *lock.Manager
	fares        *StaticFareLookup

	reservationSvc ReservationService
	fareSvc        FareService
	settlementSvc  SettlementService
	inventorySvc   InventoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		seats:    repository.NewMemorySeatRepository(),
		payments: repository.NewMemoryPaymentRepository(),
		outbox:   repository.NewMemoryOutboxRepository(),
		sessions: repository.NewMemorySessionRepository(),
		mileage:  repository.NewMemoryMileageRepository(),
		gateway:  gateway.NewMockGateway(nil),
		fares:    NewStaticFareLookup(59800),
	}
	f.reservations = repository.NewMemoryReservationRepository(f.seats, f.payments, f.outbox)
	f.locks = lock.NewManager(newFakeLockRedis(), &lock.Config{
		Lease:         30 * time.Second,
		RetryInterval: 2 * time.Millisecond,
	})

	f.reservationSvc = NewReservationService(f.reservations, f.locks, &ReservationServiceConfig{
		HoldTTL:      10 * time.Minute,
		SeatLockWait: 50 * time.Millisecond,
	})
	f.fareSvc = NewFareService(f.reservations, f.seats, f.sessions, f.mileage, f.fares, &FareServiceConfig{
		SessionTTL: 5 * time.Minute,
	})
	f.settlementSvc = NewSettlementService(f.reservations, f.payments, f.sessions, f.mileage, f.gateway, f.locks, &SettlementServiceConfig{
		PaymentLockWait: time.Second,
		MileageEarnRate: 0.01,
	})
	f.inventorySvc = NewInventoryService(f.seats)
	return f
}

func (f *fixture) seed(t *testing.T, departureID string, seatIDs ...string) {
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
	if err := f.seats.CreateSeats(context.Background(), seats); err != nil {
		t.Fatalf("Failed to seed seats: %v", err)
	}
}
