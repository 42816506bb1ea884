package triage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Phases is the work a Scheduler runs each cycle.
type Phases interface {
	Ingest(ctx context.Context) (Report, error)
	Resolve(ctx context.Context) (Report, error)
}

// Scheduler runs ingest then resolve once per interval. A cycle always
// finishes before the next wait begins, so cycles never overlap.
type Scheduler struct {
	phases   Phases
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler for phases.
func NewScheduler(phases Phases, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		phases:   phases,
		interval: interval,
		logger:   logger.With("system", "scheduler"),
	}
}

// Run executes cycles until ctx is cancelled. Phase errors are logged and
// never stop the loop. Run returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scheduler started", "interval", s.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopped")
			return nil
		case <-timer.C:
		}

		if ctx.Err() != nil {
			s.logger.InfoContext(ctx, "scheduler stopped")
			return nil
		}

		s.RunOnce(ctx)
		timer.Reset(s.interval)
	}
}

// RunOnce executes a single ingest and resolve cycle.
func (s *Scheduler) RunOnce(ctx context.Context) {
	logger := s.logger.With("cycle_id", uuid.New().String())
	start := time.Now()

	logger.InfoContext(ctx, "cycle started")

	ingest, err := s.phases.Ingest(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "ingest failed", "error", err)
	}
	logger.InfoContext(ctx, "ingest complete", "report", ingest)

	if ctx.Err() != nil {
		return
	}

	resolve, err := s.phases.Resolve(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "resolve failed", "error", err)
	}
	logger.InfoContext(ctx, "resolve complete", "report", resolve)

	logger.InfoContext(ctx, "cycle finished", "duration", time.Since(start))
}
