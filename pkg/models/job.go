package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxReplyLength is the platform's hard limit on reply text, in characters.
const MaxReplyLength = 280

// Tone controls the register of AI-generated replies.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneFriendly     Tone = "friendly"
	ToneHumorous     Tone = "humorous"
	ToneEnthusiastic Tone = "enthusiastic"
	ToneInformative  Tone = "informative"
)

var validTones = map[Tone]bool{
	ToneProfessional: true,
	ToneCasual:       true,
	ToneFriendly:     true,
	ToneHumorous:     true,
	ToneEnthusiastic: true,
	ToneInformative:  true,
}

// ParseTone validates a tone name. An empty name yields ToneFriendly.
func ParseTone(s string) (Tone, error) {
	if s == "" {
		return ToneFriendly, nil
	}
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	if !validTones[t] {
		return "", fmt.Errorf("unknown tone %q", s)
	}
	return t, nil
}

// AISettings configures AI generation for a job.
type AISettings struct {
	Tone               Tone   `json:"tone"`
	IncludeHashtags    bool   `json:"include_hashtags"`
	IncludeEmojis      bool   `json:"include_emojis"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
	Model              string `json:"model,omitempty"`
}

// ContentSpec describes how reply text is produced. StaticText is always set:
// it is the reply when AI is off and the recorded intent when generation fails.
type ContentSpec struct {
	StaticText string      `json:"static_text"`
	UseAI      bool        `json:"use_ai"`
	AI         *AISettings `json:"ai,omitempty"`
}

// ReplyJob is a unit of ongoing reply automation owned by one account.
// CurrentReplies only ever grows and never exceeds MaxReplies.
type ReplyJob struct {
	ID              uuid.UUID   `db:"id"                json:"id"`
	AccountID       uuid.UUID   `db:"account_id"        json:"account_id"`
	Target          Target      `db:"-"                 json:"target"`
	Content         ContentSpec `db:"-"                 json:"content"`
	MaxReplies      int         `db:"max_replies"       json:"max_replies"`
	CurrentReplies  int         `db:"current_replies"   json:"current_replies"`
	Active          bool        `db:"active"            json:"active"`
	LastProcessedAt *time.Time  `db:"last_processed_at" json:"last_processed_at,omitempty"`
	CreatedAt       time.Time   `db:"created_at"        json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"        json:"updated_at"`
}

// Remaining returns how many more replies the job may publish; never negative.
func (j *ReplyJob) Remaining() int {
	if r := j.MaxReplies - j.CurrentReplies; r > 0 {
		return r
	}
	return 0
}

// Eligible reports whether the job may be processed: active and under quota.
func (j *ReplyJob) Eligible() bool {
	return j.Active && j.CurrentReplies < j.MaxReplies
}

var (
	ErrInvalidQuota      = errors.New("max_replies must be positive")
	ErrStaticTextMissing = errors.New("static reply text is required")
	ErrStaticTextTooLong = fmt.Errorf("static reply text exceeds %d characters", MaxReplyLength)
)

// Validate checks the rules a job must satisfy before it is stored.
func (j *ReplyJob) Validate() error {
	if j.AccountID == uuid.Nil {
		return errors.New("account_id is required")
	}
	if !j.Target.Valid() {
		return ErrNoTarget
	}
	if j.MaxReplies <= 0 {
		return ErrInvalidQuota
	}
	if j.CurrentReplies < 0 || j.CurrentReplies > j.MaxReplies {
		return fmt.Errorf("current_replies %d out of range [0, %d]", j.CurrentReplies, j.MaxReplies)
	}
	if strings.TrimSpace(j.Content.StaticText) == "" {
		return ErrStaticTextMissing
	}
	if utf8.RuneCountInString(j.Content.StaticText) > MaxReplyLength {
		return ErrStaticTextTooLong
	}
	if j.Content.UseAI {
		if j.Content.AI == nil {
			return errors.New("ai settings are required when use_ai is set")
		}
		if !validTones[j.Content.AI.Tone] {
			return fmt.Errorf("unknown tone %q", j.Content.AI.Tone)
		}
	}
	return nil
}
