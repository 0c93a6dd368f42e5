package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoreply/internal/cache"
	"github.com/kiranshivaraju/autoreply/internal/platform"
	"github.com/kiranshivaraju/autoreply/internal/store"
	"github.com/kiranshivaraju/autoreply/pkg/models"
	"github.com/oklog/ulid/v2"
)

const runSummaryTTL = 30 * time.Minute

// ErrRunNotFound is returned by GetRun for unknown or expired run ids.
var ErrRunNotFound = errors.New("run not found")

// Service is the single logical worker. Every job and batch run in the
// process goes through it and is serialized; a per-job cache lock also keeps
// other processes off a job that is being run here.
type Service struct {
	store   store.Store
	cache   cache.Cache
	clients platform.Factory
	runner  *JobRunner
	batch   *BatchRunner
	lockTTL time.Duration

	mu sync.Mutex
	wg sync.WaitGroup

	// bg parents triggered runs so Shutdown can stop them.
	bg     context.Context
	cancel context.CancelFunc
}

// ServiceOptions tunes pacing and locking.
type ServiceOptions struct {
	ReplyDelay time.Duration
	JobDelay   time.Duration
	LockTTL    time.Duration
	Pacer      Pacer
}

// NewService wires a JobRunner and a BatchRunner behind one worker.
func NewService(st store.Store, ca cache.Cache, clients platform.Factory, resolver *Resolver, generator *Generator, opts ServiceOptions) *Service {
	bg, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:   st,
		cache:   ca,
		clients: clients,
		runner:  NewJobRunner(st, resolver, generator, opts.Pacer, opts.ReplyDelay),
		lockTTL: opts.LockTTL,
		bg:      bg,
		cancel:  cancel,
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 30 * time.Minute
	}
	s.batch = NewBatchRunner(st, s.runLoaded, opts.Pacer, opts.JobDelay)
	return s
}

// RunJob processes one job now. It fails with ErrJobIneligible when the job
// is stopped or out of quota and with ErrJobBusy when the job is locked.
func (s *Service) RunJob(ctx context.Context, jobID uuid.UUID) (*JobResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if !job.Eligible() {
		return nil, ErrJobIneligible
	}
	return s.runLoaded(ctx, job)
}

// RunBatch processes every eligible job once. It fails with ErrBatchBusy
// when another process holds the batch lock.
func (s *Service) RunBatch(ctx context.Context) (*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cache.BatchLockKey()
	token := ulid.Make().String()
	ok, err := s.cache.AcquireLock(ctx, key, token, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !ok {
		return nil, ErrBatchBusy
	}
	defer func() {
		if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			slog.Warn("release batch lock failed", "error", err)
		}
	}()

	return s.batch.Run(ctx)
}

// runLoaded runs a job under its cache lock. The caller holds s.mu.
func (s *Service) runLoaded(ctx context.Context, job *models.ReplyJob) (*JobResult, error) {
	account, err := s.store.GetAccount(ctx, job.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", job.AccountID, err)
	}

	key := cache.JobLockKey(job.ID)
	token := ulid.Make().String()
	ok, err := s.cache.AcquireLock(ctx, key, token, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire job lock: %w", err)
	}
	if !ok {
		return nil, ErrJobBusy
	}
	defer func() {
		// ctx may already be done here; the lock must still be released.
		if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			slog.Warn("release job lock failed", "job_id", job.ID, "error", err)
		}
	}()

	// Re-read under the lock so the quota view is current.
	fresh, err := s.store.GetJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("reload job %s: %w", job.ID, err)
	}

	return s.runner.Run(ctx, fresh, account, s.clients(account.Credentials))
}

// TriggerJob starts RunJob in the background and returns a run id to poll.
func (s *Service) TriggerJob(ctx context.Context, jobID uuid.UUID) (*RunSummary, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if !job.Eligible() {
		return nil, ErrJobIneligible
	}

	run := s.newRun(ctx, "job", &jobID)
	snapshot := *run
	s.spawn(run, func(ctx context.Context, run *RunSummary) error {
		res, err := s.RunJob(ctx, jobID)
		run.Job = res
		return err
	})
	return &snapshot, nil
}

// TriggerBatch starts RunBatch in the background and returns a run id to poll.
func (s *Service) TriggerBatch(ctx context.Context) (*RunSummary, error) {
	run := s.newRun(ctx, "batch", nil)
	snapshot := *run
	s.spawn(run, func(ctx context.Context, run *RunSummary) error {
		res, err := s.RunBatch(ctx)
		run.Batch = res
		return err
	})
	return &snapshot, nil
}

// GetRun returns the stored summary of a triggered run.
func (s *Service) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	raw, ok, err := s.cache.GetRunSummary(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if !ok {
		return nil, ErrRunNotFound
	}
	var run RunSummary
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

// Shutdown cancels triggered runs and waits for them until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) newRun(ctx context.Context, kind string, jobID *uuid.UUID) *RunSummary {
	run := &RunSummary{
		RunID:     ulid.Make().String(),
		Kind:      kind,
		JobID:     jobID,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.saveRun(ctx, run)
	return run
}

func (s *Service) spawn(run *RunSummary, fn func(context.Context, *RunSummary) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log := slog.With("run_id", run.RunID, "kind", run.Kind)

		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in triggered run", "error", r)
				s.finishRun(run, fmt.Errorf("panic: %v", r))
			}
		}()

		err := fn(s.bg, run)
		if err != nil {
			log.Error("triggered run failed", "error", err)
		} else {
			log.Info("triggered run completed")
		}
		s.finishRun(run, err)
	}()
}

func (s *Service) finishRun(run *RunSummary, err error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = RunStatusCompleted
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err.Error()
	}
	s.saveRun(context.Background(), run)
}

func (s *Service) saveRun(ctx context.Context, run *RunSummary) {
	raw, err := json.Marshal(run)
	if err != nil {
		slog.Warn("encode run summary failed", "run_id", run.RunID, "error", err)
		return
	}
	if err := s.cache.SetRunSummary(ctx, run.RunID, raw, runSummaryTTL); err != nil {
		slog.Warn("store run summary failed", "run_id", run.RunID, "error", err)
	}
}
