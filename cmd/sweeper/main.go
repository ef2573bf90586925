package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/config"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/database"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/lock"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/logger"
	pkgredis "github.com/goorm-sudo/raillo-backend-sub002/internal/redis"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/service"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       "info",
		ServiceName: "raillo-sweeper",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting expiry sweeper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      10,
		MinConns:      2,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
	})
	if err != nil {
		appLog.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	reservationRepo := repository.NewPostgresReservationRepository(db.Pool())
	locks := lock.NewManager(redisClient.Client(), &lock.Config{
		Lease: cfg.Booking.LockLease,
	})
	reservationSvc := service.NewReservationService(reservationRepo, locks, &service.ReservationServiceConfig{
		HoldTTL:      cfg.Booking.HoldTTL,
		SeatLockWait: cfg.Booking.SeatLockWait,
	})

	sweeper := worker.NewSweeper(reservationSvc, &worker.SweeperConfig{
		ScanInterval: cfg.Booking.SweepInterval,
		BatchSize:    100,
	})
	if err := sweeper.Start(ctx); err != nil {
		appLog.Fatal("Failed to start sweeper", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down sweeper...")

	sweeper.Stop()
	appLog.Info("Sweeper exited gracefully")
}
