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
	"github.com/goorm-sudo/raillo-backend-sub002/internal/kafka"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/logger"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/repository"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       "info",
		ServiceName: "raillo-outbox-dispatcher",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting outbox dispatcher")

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

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Fatal("Kafka connection failed", zap.Error(err))
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected")

	dispatcher := worker.NewOutboxDispatcher(
		repository.NewPostgresOutboxRepository(db.Pool()),
		producer,
		worker.DefaultOutboxDispatcherConfig(),
	)
	if err := dispatcher.Start(ctx); err != nil {
		appLog.Fatal("Failed to start dispatcher", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down dispatcher...")

	dispatcher.Stop()
	appLog.Info("Dispatcher exited gracefully")
}
