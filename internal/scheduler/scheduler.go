// Package scheduler triggers the reply batch on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/autoreply/internal/engine"
)

// BatchRunner is the engine surface the scheduler drives.
type BatchRunner interface {
	RunBatch(ctx context.Context) (*engine.BatchResult, error)
}

// Scheduler runs one batch per tick. A batch that outlasts the interval
// swallows the ticks it overlaps, so runs never stack up.
type Scheduler struct {
	runner   BatchRunner
	interval time.Duration
}

// New creates a Scheduler. An interval of zero or less disables it.
func New(runner BatchRunner, interval time.Duration) *Scheduler {
	return &Scheduler{runner: runner, interval: interval}
}

// Enabled reports whether Start will do anything.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0
}

// Start blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.Enabled() {
		slog.Info("batch scheduler disabled")
		return
	}
	slog.Info("batch scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("batch scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	res, err := s.runner.RunBatch(ctx)
	if errors.Is(err, engine.ErrBatchBusy) {
		slog.Info("scheduled batch skipped, another batch is running")
		return
	}
	if err != nil {
		slog.Error("scheduled batch failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	slog.Info("scheduled batch finished",
		"eligible", res.Eligible,
		"errors", res.Errors,
		"duration_ms", time.Since(start).Milliseconds())
}
