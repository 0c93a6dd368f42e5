package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrQuotaExhausted is returned by RecordAttempt when a successful attempt
// would push current_replies past max_replies. Nothing is written.
var ErrQuotaExhausted = errors.New("job reply quota exhausted")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)

	CreateJob(ctx context.Context, job *models.ReplyJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.ReplyJob, error)
	// ListActiveJobs returns every job with active = true, oldest first.
	// Quota is not filtered here.
	ListActiveJobs(ctx context.Context) ([]*models.ReplyJob, error)
	SetJobActive(ctx context.Context, id uuid.UUID, active bool) error
	TouchJob(ctx context.Context, id uuid.UUID) error

	// RecordAttempt writes the attempt. For a successful attempt it also
	// increments current_replies and sets last_processed_at in the same
	// transaction.
	RecordAttempt(ctx context.Context, attempt *models.ReplyAttempt) error
	// AttemptedTargetIDs returns every target post id with a recorded
	// attempt for the job, successful or not.
	AttemptedTargetIDs(ctx context.Context, jobID uuid.UUID) (map[string]struct{}, error)
	ListAttempts(ctx context.Context, jobID uuid.UUID, limit int) ([]*models.ReplyAttempt, error)
}
