package engine

import (
	"time"

	"github.com/google/uuid"
)

// Job run outcomes.
const (
	OutcomeCompleted   = "completed"
	OutcomeSkipped     = "skipped"
	OutcomeAborted     = "aborted"
	OutcomeInterrupted = "interrupted"
)

// JobResult summarizes one JobRunner pass over a job.
type JobResult struct {
	JobID       uuid.UUID `json:"job_id"`
	Outcome     string    `json:"outcome"`
	Resolved    int       `json:"resolved"`
	Fresh       int       `json:"fresh"`
	Selected    int       `json:"selected"`
	Attempted   int       `json:"attempted"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	AbortReason string    `json:"abort_reason,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func newJobResult(jobID uuid.UUID) *JobResult {
	return &JobResult{JobID: jobID, StartedAt: time.Now().UTC()}
}

func (r *JobResult) finish(outcome string, cause error) {
	r.Outcome = outcome
	if cause != nil {
		r.AbortReason = cause.Error()
	}
	r.FinishedAt = time.Now().UTC()
}

// BatchResult summarizes one BatchRunner pass.
type BatchResult struct {
	Active     int          `json:"active"`
	Eligible   int          `json:"eligible"`
	Jobs       []*JobResult `json:"jobs"`
	Errors     int          `json:"errors"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Run statuses stored for triggered runs.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunSummary is the pollable record of a triggered run.
type RunSummary struct {
	RunID      string       `json:"run_id"`
	Kind       string       `json:"kind"` // "job" or "batch"
	JobID      *uuid.UUID   `json:"job_id,omitempty"`
	Status     string       `json:"status"`
	Job        *JobResult   `json:"job,omitempty"`
	Batch      *BatchResult `json:"batch,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}
