package engine

import (
	"context"
	"time"
)

// Pacer waits out the fixed delays between publish calls and between jobs.
type Pacer interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SleepPacer blocks for the full delay. It returns early only when ctx is done.
type SleepPacer struct{}

func (SleepPacer) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
