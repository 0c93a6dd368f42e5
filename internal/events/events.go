// Package events carries resolved reply candidates to downstream analysis
// consumers. Delivery is best effort: a failed publish never affects the
// reply run that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// CandidateObserved is emitted once per resolved candidate.
type CandidateObserved struct {
	JobID      uuid.UUID         `json:"job_id"`
	TargetKind models.TargetKind `json:"target_kind"`
	PostID     string            `json:"post_id"`
	Text       string            `json:"text"`
	AuthorID   string            `json:"author_id,omitempty"`
	PostedAt   *time.Time        `json:"posted_at,omitempty"`
	ObservedAt time.Time         `json:"observed_at"`
}

// NewCandidateObserved builds the event for post resolved by job.
func NewCandidateObserved(jobID uuid.UUID, kind models.TargetKind, post models.Post) CandidateObserved {
	ev := CandidateObserved{
		JobID:      jobID,
		TargetKind: kind,
		PostID:     post.ID,
		Text:       post.Text,
		AuthorID:   post.AuthorID,
		ObservedAt: time.Now().UTC(),
	}
	if !post.CreatedAt.IsZero() {
		t := post.CreatedAt.UTC()
		ev.PostedAt = &t
	}
	return ev
}

func (e CandidateObserved) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Sink receives candidate events.
type Sink interface {
	CandidateObserved(ctx context.Context, ev CandidateObserved) error
	Close() error
}

// NopSink discards every event. Used when no broker is configured.
type NopSink struct{}

func (NopSink) CandidateObserved(context.Context, CandidateObserved) error { return nil }
func (NopSink) Close() error                                               { return nil }

var _ Sink = NopSink{}
