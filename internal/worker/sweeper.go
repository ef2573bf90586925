package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/logger"
	"github.com/goorm-sudo/raillo-backend-sub002/internal/service"
)

// SweeperConfig contains configuration for the expiry sweeper
type SweeperConfig struct {
	// ScanInterval is the interval between scans for overdue holds
	ScanInterval time.Duration
	// BatchSize is the number of reservations to expire in each scan
	BatchSize int
}

// DefaultSweeperConfig returns default configuration
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		ScanInterval: 5 * time.Second,
		BatchSize:    100,
	}
}

// Sweeper reaps reservations whose hold window has passed, freeing their
// seats and emitting expiry events. Sweeps are idempotent; two instances
// racing over the same hold converge on one expiry.
type Sweeper struct {
	reservationSvc service.ReservationService
	config         *SweeperConfig
	log            *logger.Logger
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool

	// Stats
	totalExpired int64
	lastScanTime time.Time
}

// NewSweeper creates a new expiry sweeper
func NewSweeper(reservationSvc service.ReservationService, config *SweeperConfig) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}

	return &Sweeper{
		reservationSvc: reservationSvc,
		config:         config,
		log:            logger.Get(),
		stopCh:         make(chan struct{}),
	}
}

// Start starts the sweeper
func (w *Sweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting expiry sweeper",
		zap.Duration("scan_interval", w.config.ScanInterval),
		zap.Int("batch_size", w.config.BatchSize))

	w.wg.Add(1)
	go w.scanLoop(ctx)

	return nil
}

// Stop stops the sweeper and waits for the current scan to finish
func (w *Sweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping expiry sweeper")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Expiry sweeper stopped")
}

// scanLoop runs sweeps until stopped
func (w *Sweeper) scanLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep expires one batch of overdue holds
func (w *Sweeper) sweep(ctx context.Context) {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	expired, err := w.reservationSvc.ExpireDue(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("Failed to expire overdue holds", zap.Error(err))
		return
	}
	if expired == 0 {
		return
	}

	w.mu.Lock()
	w.totalExpired += int64(expired)
	w.mu.Unlock()

	w.log.Info("Expired overdue holds", zap.Int("count", expired))
}

// Stats returns sweeper statistics
func (w *Sweeper) Stats() *SweeperStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &SweeperStats{
		IsRunning:    w.running,
		TotalExpired: w.totalExpired,
		LastScanTime: w.lastScanTime,
	}
}

// SweeperStats contains sweeper statistics
type SweeperStats struct {
	IsRunning    bool      `json:"is_running"`
	TotalExpired int64     `json:"total_expired"`
	LastScanTime time.Time `json:"last_scan_time"`
}
