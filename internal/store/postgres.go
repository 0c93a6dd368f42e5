package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

const apiKeyColumns = `id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at`

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	return collectAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return collectAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// --- Accounts ---

func (s *PostgresStore) CreateAccount(ctx context.Context, account *models.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, handle, access_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.Handle, account.Credentials.AccessToken, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, handle, access_token, created_at, updated_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Handle, &a.Credentials.AccessToken, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// --- Reply Jobs ---

const jobColumns = `id, account_id, target_kind, target_values, static_text, use_ai, ai_settings,
	max_replies, current_replies, active, last_processed_at, created_at, updated_at`

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.ReplyJob) error {
	var aiSettings []byte
	if job.Content.AI != nil {
		b, err := json.Marshal(job.Content.AI)
		if err != nil {
			return fmt.Errorf("encode ai settings: %w", err)
		}
		aiSettings = b
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO reply_jobs (id, account_id, target_kind, target_values, static_text, use_ai, ai_settings,
		   max_replies, current_replies, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, job.AccountID, string(job.Target.Kind()), job.Target.Values(), job.Content.StaticText,
		job.Content.UseAI, aiSettings, job.MaxReplies, job.CurrentReplies, job.Active,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.ReplyJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM reply_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) ListActiveJobs(ctx context.Context) ([]*models.ReplyJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM reply_jobs WHERE active ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ReplyJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) SetJobActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reply_jobs SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set job active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchJob sets last_processed_at to now without changing the quota counter.
func (s *PostgresStore) TouchJob(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reply_jobs SET last_processed_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*models.ReplyJob, error) {
	var (
		j          models.ReplyJob
		kind       string
		values     []string
		aiSettings []byte
	)
	if err := row.Scan(&j.ID, &j.AccountID, &kind, &values, &j.Content.StaticText, &j.Content.UseAI,
		&aiSettings, &j.MaxReplies, &j.CurrentReplies, &j.Active, &j.LastProcessedAt,
		&j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}

	target, err := models.DecodeTarget(kind, values)
	if err != nil {
		return nil, fmt.Errorf("decode target of job %s: %w", j.ID, err)
	}
	j.Target = target

	if len(aiSettings) > 0 {
		var ai models.AISettings
		if err := json.Unmarshal(aiSettings, &ai); err != nil {
			return nil, fmt.Errorf("decode ai settings of job %s: %w", j.ID, err)
		}
		j.Content.AI = &ai
	}
	return &j, nil
}

// --- Reply Attempts ---

func (s *PostgresStore) RecordAttempt(ctx context.Context, attempt *models.ReplyAttempt) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record attempt: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO reply_attempts (id, job_id, target_post_id, reply_id, content, successful, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attempt.ID, attempt.JobID, attempt.TargetPostID, attempt.ReplyID, attempt.Content,
		attempt.Successful, attempt.ErrorMessage, attempt.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert reply attempt: %w", err)
	}

	if attempt.Successful {
		tag, err := tx.Exec(ctx,
			`UPDATE reply_jobs
			 SET current_replies = current_replies + 1, last_processed_at = $2, updated_at = $2
			 WHERE id = $1 AND current_replies < max_replies`,
			attempt.JobID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("increment reply count: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrQuotaExhausted
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) AttemptedTargetIDs(ctx context.Context, jobID uuid.UUID) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT target_post_id FROM reply_attempts WHERE job_id = $1`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list attempted targets: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan attempted target: %w", err)
		}
		seen[id] = struct{}{}
	}
	return seen, rows.Err()
}

// ListAttempts returns a job's attempts, newest first. Limit is clamped to [1, 500].
func (s *PostgresStore) ListAttempts(ctx context.Context, jobID uuid.UUID, limit int) ([]*models.ReplyAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, target_post_id, reply_id, content, successful, error_message, created_at
		 FROM reply_attempts WHERE job_id = $1 ORDER BY created_at DESC, id LIMIT $2`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.ReplyAttempt
	for rows.Next() {
		var a models.ReplyAttempt
		if err := rows.Scan(&a.ID, &a.JobID, &a.TargetPostID, &a.ReplyID, &a.Content,
			&a.Successful, &a.ErrorMessage, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
