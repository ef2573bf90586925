package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/config"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/database"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/gateway"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/handler"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/lock"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/logger"
	pkgredis "github.com/goorm-sudo/raillo-backend-sub002/internal/redis"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/service"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/telemetry"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: "raillo-booking",
		Development: cfg.IsDevelopment(),
	}
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting booking service", zap.String("version", cfg.App.Version))

	ctx := context.Background()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
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
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		MaxRetries:   3,
	})
	if err != nil {
		appLog.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Repositories
	seatRepo := repository.NewPostgresSeatRepository(db.Pool())
	reservationRepo := repository.NewPostgresReservationRepository(db.Pool())
	paymentRepo := repository.NewPostgresPaymentRepository(db.Pool())
	mileageRepo := repository.NewPostgresMileageRepository(db.Pool())
	sessionRepo := repository.NewRedisSessionRepository(redisClient)

	if err := sessionRepo.LoadScripts(ctx); err != nil {
		appLog.Warn("Failed to pre-load Lua scripts", zap.Error(err))
	}

	locks := lock.NewManager(redisClient.Client(), &lock.Config{
		Lease: cfg.Booking.LockLease,
	})

	// Services
	reservationSvc := service.NewReservationService(reservationRepo, locks, &service.ReservationServiceConfig{
		HoldTTL:      cfg.Booking.HoldTTL,
		SeatLockWait: cfg.Booking.SeatLockWait,
	})
	fareSvc := service.NewFareService(reservationRepo, seatRepo, sessionRepo, mileageRepo,
		service.NewStaticFareLookup(59800), &service.FareServiceConfig{
			SessionTTL: cfg.Booking.SessionTTL,
		})
	settlementSvc := service.NewSettlementService(reservationRepo, paymentRepo, sessionRepo,
		mileageRepo, gateway.NewMockGateway(nil), locks, &service.SettlementServiceConfig{
			PaymentLockWait: cfg.Booking.PaymentLockWait,
			MileageEarnRate: cfg.Booking.MileageEarnRate,
		})
	inventorySvc := service.NewInventoryService(seatRepo)

	// In-process sweeper as a safety net; the dedicated sweeper binary does
	// the same work in deployments that run one
	sweeper := worker.NewSweeper(reservationSvc, &worker.SweeperConfig{
		ScanInterval: cfg.Booking.SweepInterval,
		BatchSize:    100,
	})
	if err := sweeper.Start(ctx); err != nil {
		appLog.Fatal("Failed to start expiry sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(&handler.Handlers{
		Health:      handler.NewHealthHandler(db, redisClient),
		Reservation: handler.NewReservationHandler(reservationSvc),
		Payment:     handler.NewPaymentHandler(fareSvc, settlementSvc),
		Inventory:   handler.NewInventoryHandler(inventorySvc),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("Booking service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
