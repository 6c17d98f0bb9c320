package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aradsms/greeting_services/internal/greeting_service/domain"
)

// DateBatchRunner runs the recurring-date batch.
type DateBatchRunner interface {
	RunByDate(ctx context.Context) (*domain.BatchSummary, error)
}

// SchedulerConfig holds configuration specific to the DailyScheduler.
type SchedulerConfig struct {
	PollingInterval time.Duration
	RunHour         int // local hour of day after which the daily batch may start
}

// DailyScheduler runs the recurring-date batch once per calendar day.
type DailyScheduler struct {
	runner DateBatchRunner
	logger *slog.Logger
	config SchedulerConfig
	now    func() time.Time

	mu      sync.Mutex
	lastRun string // YYYY-MM-DD of the last successful run
}

// NewDailyScheduler creates a new DailyScheduler instance.
func NewDailyScheduler(runner DateBatchRunner, logger *slog.Logger, cfg SchedulerConfig, now func() time.Time) *DailyScheduler {
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &DailyScheduler{
		runner: runner,
		logger: logger.With("component", "daily_scheduler"),
		config: cfg,
		now:    now,
	}
}

// Tick runs the batch if it is due. It reports whether a batch ran.
// A failed selection leaves the day unmarked so the next tick retries.
func (s *DailyScheduler) Tick(ctx context.Context) (bool, error) {
	now := s.now()
	day := now.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRun == day || now.Hour() < s.config.RunHour {
		return false, nil
	}

	s.logger.InfoContext(ctx, "Starting daily recurring-date batch", "day", day)
	summary, err := s.runner.RunByDate(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Daily recurring-date batch failed", "error", err, "day", day)
		return false, err
	}
	s.lastRun = day
	s.logger.InfoContext(ctx, "Daily recurring-date batch finished", "day", day, "batch_id", summary.ID,
		"sent", summary.Sent, "skipped", summary.Skipped, "failed", summary.Failed)
	return true, nil
}

// Start polls until ctx is cancelled.
func (s *DailyScheduler) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Daily scheduler starting", "polling_interval", s.config.PollingInterval, "run_hour", s.config.RunHour)
	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.WarnContext(ctx, "Daily scheduler tick failed; retrying next interval", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Daily scheduler stopping")
			return nil
		case <-ticker.C:
		}
	}
}
