package models

import (
	"time"

	"github.com/google/uuid"
)

// ReplyAttempt records the outcome of processing one candidate post. It is
// written exactly once and never updated.
type ReplyAttempt struct {
	ID           uuid.UUID `db:"id"             json:"id"`
	JobID        uuid.UUID `db:"job_id"         json:"job_id"`
	TargetPostID string    `db:"target_post_id" json:"target_post_id"`
	ReplyID      string    `db:"reply_id"       json:"reply_id,omitempty"`
	Content      string    `db:"content"        json:"content"`
	Successful   bool      `db:"successful"     json:"successful"`
	ErrorMessage *string   `db:"error_message"  json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at"     json:"created_at"`
}

// NewSuccessfulAttempt builds the record for a published reply.
func NewSuccessfulAttempt(jobID uuid.UUID, postID, content, replyID string) *ReplyAttempt {
	return &ReplyAttempt{
		ID:           uuid.New(),
		JobID:        jobID,
		TargetPostID: postID,
		ReplyID:      replyID,
		Content:      content,
		Successful:   true,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewFailedAttempt builds the record for a candidate that could not be replied to.
func NewFailedAttempt(jobID uuid.UUID, postID, content string, cause error) *ReplyAttempt {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &ReplyAttempt{
		ID:           uuid.New(),
		JobID:        jobID,
		TargetPostID: postID,
		Content:      content,
		Successful:   false,
		ErrorMessage: &msg,
		CreatedAt:    time.Now().UTC(),
	}
}
