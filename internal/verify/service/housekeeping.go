package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/trusteelab/vpass/internal/verify/metrics"
	"github.com/trusteelab/vpass/internal/verify/store"
)

// DefaultSweepInterval is how often the sweeper wakes up. The sweep
// granularity means a session can outlive its deadline by up to one
// interval; reads compensate by checking the deadline themselves.
const DefaultSweepInterval = 60 * time.Second

// HousekeepingService periodically deletes verification sessions past
// their retention deadline, regardless of status. COMPLETED sessions are
// swept just like PENDING ones.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration
	TTL      time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new sweeper. Zero interval or TTL fall
// back to DefaultSweepInterval and DefaultSessionTTL.
func NewHousekeepingService(st store.Store, logger *slog.Logger, m *metrics.Metrics, interval, ttl time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Metrics:  m,
		Interval: interval,
		TTL:      ttl,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut
// down gracefully.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "ttl", s.TTL)
}

// Stop shuts down the background worker. Blocks until any in-progress
// sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup to clear leftovers from a restart.
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep deletes every session created before now minus TTL. Exported so
// operators and tests can force a pass without waiting for the ticker.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	start := time.Now()
	cutoff := start.UTC().Add(-s.TTL)

	deleted, err := s.Store.Sessions().DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to sweep expired sessions", "error", err)
		return
	}

	s.Metrics.AddSessionsSwept(deleted)
	s.Metrics.ObserveSweepLatency(time.Since(start))

	if deleted > 0 {
		s.Logger.Info("swept expired sessions", "deleted", deleted)
	} else {
		s.Logger.Debug("sweep found nothing to delete")
	}
}
