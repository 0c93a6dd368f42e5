package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/autoreply/internal/store"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// JobFunc runs one job and reports its result.
type JobFunc func(ctx context.Context, job *models.ReplyJob) (*JobResult, error)

// BatchRunner processes every eligible job once, in order, pausing between
// jobs. A failing job never stops the batch.
type BatchRunner struct {
	store    store.Store
	execute  JobFunc
	pacer    Pacer
	jobDelay time.Duration
}

func NewBatchRunner(st store.Store, execute JobFunc, pacer Pacer, jobDelay time.Duration) *BatchRunner {
	if pacer == nil {
		pacer = SleepPacer{}
	}
	return &BatchRunner{store: st, execute: execute, pacer: pacer, jobDelay: jobDelay}
}

// Run returns an error only when the job list cannot be read or ctx ends.
func (b *BatchRunner) Run(ctx context.Context) (*BatchResult, error) {
	res := &BatchResult{StartedAt: time.Now().UTC()}

	active, err := b.store.ListActiveJobs(ctx)
	if err != nil {
		res.FinishedAt = time.Now().UTC()
		return res, fmt.Errorf("list active jobs: %w", err)
	}
	res.Active = len(active)

	jobs := make([]*models.ReplyJob, 0, len(active))
	for _, job := range active {
		if job.Eligible() {
			jobs = append(jobs, job)
		}
	}
	res.Eligible = len(jobs)

	for i, job := range jobs {
		jr, err := b.execute(ctx, job)
		if jr != nil {
			res.Jobs = append(res.Jobs, jr)
		}
		if err != nil {
			res.Errors++
			slog.Error("batch job failed", "job_id", job.ID, "error", err)
			if ctx.Err() != nil {
				res.FinishedAt = time.Now().UTC()
				return res, ctx.Err()
			}
		}

		if i < len(jobs)-1 {
			if err := b.pacer.Wait(ctx, b.jobDelay); err != nil {
				res.FinishedAt = time.Now().UTC()
				return res, err
			}
		}
	}

	res.FinishedAt = time.Now().UTC()
	slog.Info("batch processed", "active", res.Active, "eligible", res.Eligible, "errors", res.Errors)
	return res, nil
}
