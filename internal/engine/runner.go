package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/autoreply/internal/platform"
	"github.com/kiranshivaraju/autoreply/internal/store"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// JobRunner processes a single job: resolve, deduplicate, gate by quota, then
// generate, publish, record and pace for each candidate in order.
type JobRunner struct {
	store      store.Store
	resolver   *Resolver
	generator  *Generator
	pacer      Pacer
	replyDelay time.Duration
}

func NewJobRunner(st store.Store, resolver *Resolver, generator *Generator, pacer Pacer, replyDelay time.Duration) *JobRunner {
	if pacer == nil {
		pacer = SleepPacer{}
	}
	return &JobRunner{
		store:      st,
		resolver:   resolver,
		generator:  generator,
		pacer:      pacer,
		replyDelay: replyDelay,
	}
}

// Run processes job on behalf of account through client, which must carry
// that account's credentials. Candidate-local failures are recorded and never
// returned. The returned error is non-nil only when the job was aborted by
// rejected credentials, a storage failure, or ctx ending.
func (r *JobRunner) Run(ctx context.Context, job *models.ReplyJob, account *models.Account, client platform.Client) (*JobResult, error) {
	res := newJobResult(job.ID)
	log := slog.With("job_id", job.ID)

	if !job.Eligible() {
		log.Info("job skipped", "active", job.Active, "current_replies", job.CurrentReplies, "max_replies", job.MaxReplies)
		res.finish(OutcomeSkipped, nil)
		return res, nil
	}

	candidates := r.resolver.Resolve(ctx, client, job)
	res.Resolved = len(candidates)

	fresh, err := Deduplicate(ctx, r.store, job.ID, candidates)
	if err != nil {
		return r.abort(res, log, err)
	}
	res.Fresh = len(fresh)

	selected := Gate(fresh, job.Remaining())
	res.Selected = len(selected)

	for i, post := range selected {
		if err := ctx.Err(); err != nil {
			return r.interrupt(res, log, err)
		}

		published, err := r.process(ctx, job, account, client, post, res)
		if err != nil {
			if errors.Is(err, errInterrupted) {
				return r.interrupt(res, log, ctx.Err())
			}
			if errors.Is(err, ErrCredentialsRejected) {
				r.touch(ctx, job, log)
			}
			return r.abort(res, log, err)
		}

		if published && i < len(selected)-1 {
			if err := r.pacer.Wait(ctx, r.replyDelay); err != nil {
				return r.interrupt(res, log, err)
			}
		}
	}

	if err := r.store.TouchJob(ctx, job.ID); err != nil {
		return r.abort(res, log, fmt.Errorf("touch job: %w", err))
	}

	res.finish(OutcomeCompleted, nil)
	log.Info("job processed",
		"resolved", res.Resolved, "fresh", res.Fresh, "selected", res.Selected,
		"succeeded", res.Succeeded, "failed", res.Failed)
	return res, nil
}

// errInterrupted reports that a candidate failed only because ctx ended. No
// attempt is recorded for it, so a later run picks it up again.
var errInterrupted = errors.New("candidate interrupted")

// process handles one candidate. published reports whether a publish call was
// made, which is what the reply delay paces. A non-nil error aborts the job.
func (r *JobRunner) process(ctx context.Context, job *models.ReplyJob, account *models.Account, client platform.Client, post models.Post, res *JobResult) (published bool, err error) {
	log := slog.With("job_id", job.ID, "post_id", post.ID)
	// A reply that went out must be recorded even if shutdown starts meanwhile.
	recCtx := context.WithoutCancel(ctx)

	text, genErr := r.generator.Generate(ctx, job, account, post)
	if genErr != nil {
		if ctx.Err() != nil {
			return false, errInterrupted
		}
		log.Warn("reply generation failed", "error", genErr)
		res.Attempted++
		res.Failed++
		return false, Record(recCtx, r.store, models.NewFailedAttempt(job.ID, post.ID, job.Content.StaticText, genErr))
	}

	replyID, pubErr := Publish(ctx, client, post.ID, text)
	if pubErr != nil && ctx.Err() != nil {
		return true, errInterrupted
	}
	res.Attempted++
	if pubErr != nil {
		log.Warn("reply publish failed", "error", pubErr)
		res.Failed++
		if err := Record(recCtx, r.store, models.NewFailedAttempt(job.ID, post.ID, text, pubErr)); err != nil {
			return true, err
		}
		if errors.Is(pubErr, ErrCredentialsRejected) {
			return true, pubErr
		}
		return true, nil
	}

	if err := Record(recCtx, r.store, models.NewSuccessfulAttempt(job.ID, post.ID, text, replyID)); err != nil {
		return true, err
	}
	res.Succeeded++
	log.Info("reply published", "reply_id", replyID)
	return true, nil
}

func (r *JobRunner) interrupt(res *JobResult, log *slog.Logger, err error) (*JobResult, error) {
	res.finish(OutcomeInterrupted, err)
	log.Warn("job interrupted", "error", err, "attempted", res.Attempted)
	return res, err
}

func (r *JobRunner) abort(res *JobResult, log *slog.Logger, err error) (*JobResult, error) {
	res.finish(OutcomeAborted, err)
	log.Error("job aborted", "error", err, "attempted", res.Attempted, "succeeded", res.Succeeded)
	return res, err
}

// touch records the processing time on a job that stopped early. Failure is
// logged only since the job is already being aborted.
func (r *JobRunner) touch(ctx context.Context, job *models.ReplyJob, log *slog.Logger) {
	if err := r.store.TouchJob(ctx, job.ID); err != nil {
		log.Warn("touch job failed", "error", err)
	}
}
