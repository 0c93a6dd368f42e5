package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/autoreply/internal/config"
	"github.com/kiranshivaraju/autoreply/internal/store"
	"github.com/kiranshivaraju/autoreply/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("autoreply_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := store.Connect(ctx, config.DatabaseConfig{
		URL:             connStr,
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := store.Connect(context.Background(), config.DatabaseConfig{URL: "postgres://%zz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database URL")
}

func TestConnect_TagsSessions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool := setupTestDB(t)

	var name string
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT current_setting('application_name')").Scan(&name))
	assert.Equal(t, "autoreply", name)
}

func seedAccount(t *testing.T, s store.Store) *models.Account {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	acc := &models.Account{
		ID:          uuid.New(),
		Handle:      "replybot-" + uuid.NewString()[:8],
		Credentials: models.Credentials{AccessToken: "token-abc"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func seedJob(t *testing.T, s store.Store, accountID uuid.UUID, maxReplies int) *models.ReplyJob {
	t.Helper()
	target, err := models.KeywordsTarget([]string{"ai", "startup"})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &models.ReplyJob{
		ID:         uuid.New(),
		AccountID:  accountID,
		Target:     target,
		Content:    models.ContentSpec{StaticText: "Nice work!"},
		MaxReplies: maxReplies,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.CreateJob(context.Background(), job))
	return job
}

// --- API Key Tests ---

func TestAPIKey_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	key := &models.APIKey{
		ID:        uuid.New(),
		Name:      "test-key",
		KeyHash:   "bcrypt-hash-here",
		KeyPrefix: "ar_abcd",
		Scopes:    []string{"read", "write"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))

	keys, err := s.GetAPIKeyByPrefix(ctx, "ar_abcd")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
	assert.Equal(t, []string{"read", "write"}, keys[0].Scopes)

	all, err := s.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAPIKey_Revoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	key := &models.APIKey{
		ID: uuid.New(), Name: "revoke-me", KeyHash: "h", KeyPrefix: "ar_rvk1",
		Scopes: []string{"read"}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))
	require.NoError(t, s.RevokeAPIKey(ctx, key.ID))

	keys, err := s.GetAPIKeyByPrefix(ctx, "ar_rvk1")
	require.NoError(t, err)
	assert.Empty(t, keys)

	err = s.RevokeAPIKey(ctx, key.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestAPIKey_DuplicateID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	key := &models.APIKey{
		ID: uuid.New(), Name: "dup", KeyHash: "h", KeyPrefix: "ar_dup1",
		Scopes: []string{"read"}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))
	assert.ErrorIs(t, s.CreateAPIKey(ctx, key), store.ErrDuplicateKey)
}

// --- Account Tests ---

func TestAccount_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	acc := seedAccount(t, s)
	got, err := s.GetAccount(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.Handle, got.Handle)
	assert.Equal(t, "token-abc", got.Credentials.AccessToken)

	_, err = s.GetAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Job Tests ---

func TestJob_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	acc := seedAccount(t, s)
	target, err := models.AuthorsTarget([]string{"@alice", "bob"})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &models.ReplyJob{
		ID:        uuid.New(),
		AccountID: acc.ID,
		Target:    target,
		Content: models.ContentSpec{
			StaticText: "Thanks for sharing!",
			UseAI:      true,
			AI: &models.AISettings{
				Tone:            models.ToneCasual,
				IncludeHashtags: true,
				Model:           "llama3",
			},
		},
		MaxReplies: 5,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.CreateJob(ctx, job))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TargetAuthors, got.Target.Kind())
	assert.Equal(t, []string{"alice", "bob"}, got.Target.Handles())
	require.NotNil(t, got.Content.AI)
	assert.Equal(t, models.ToneCasual, got.Content.AI.Tone)
	assert.True(t, got.Content.AI.IncludeHashtags)
	assert.Equal(t, 0, got.CurrentReplies)
	assert.Nil(t, got.LastProcessedAt)
}

func TestJob_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJob_ListActiveJobs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	acc := seedAccount(t, s)
	first := seedJob(t, s, acc.ID, 3)
	second := seedJob(t, s, acc.ID, 3)
	stopped := seedJob(t, s, acc.ID, 3)
	require.NoError(t, s.SetJobActive(ctx, stopped.ID, false))

	jobs, err := s.ListActiveJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	ids := []uuid.UUID{jobs[0].ID, jobs[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestJob_SetActiveNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.SetJobActive(context.Background(), uuid.New(), false)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJob_Touch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, seedAccount(t, s).ID, 3)
	require.NoError(t, s.TouchJob(ctx, job.ID))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastProcessedAt)
	assert.Equal(t, 0, got.CurrentReplies)
}

// --- Attempt Tests ---

func TestRecordAttempt_SuccessIncrementsQuota(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, seedAccount(t, s).ID, 3)
	require.NoError(t, s.RecordAttempt(ctx, models.NewSuccessfulAttempt(job.ID, "p1", "Nice work!", "r1")))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentReplies)
	assert.NotNil(t, got.LastProcessedAt)
}

func TestRecordAttempt_FailureLeavesQuota(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, seedAccount(t, s).ID, 3)
	attempt := models.NewFailedAttempt(job.ID, "p1", "Nice work!", errors.New("rate limited"))
	require.NoError(t, s.RecordAttempt(ctx, attempt))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentReplies)

	attempts, err := s.ListAttempts(ctx, job.ID, 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Successful)
	require.NotNil(t, attempts[0].ErrorMessage)
	assert.Equal(t, "rate limited", *attempts[0].ErrorMessage)
}

func TestRecordAttempt_QuotaExhaustedWritesNothing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, seedAccount(t, s).ID, 1)
	require.NoError(t, s.RecordAttempt(ctx, models.NewSuccessfulAttempt(job.ID, "p1", "Nice work!", "r1")))

	err := s.RecordAttempt(ctx, models.NewSuccessfulAttempt(job.ID, "p2", "Nice work!", "r2"))
	assert.ErrorIs(t, err, store.ErrQuotaExhausted)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentReplies)

	seen, err := s.AttemptedTargetIDs(ctx, job.ID)
	require.NoError(t, err)
	assert.NotContains(t, seen, "p2")
}

func TestRecordAttempt_DuplicateSuccessRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, seedAccount(t, s).ID, 5)
	require.NoError(t, s.RecordAttempt(ctx, models.NewSuccessfulAttempt(job.ID, "p1", "Nice work!", "r1")))

	err := s.RecordAttempt(ctx, models.NewSuccessfulAttempt(job.ID, "p1", "Nice work!", "r2"))
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentReplies)
}

func TestAttemptedTargetIDs_IncludesFailures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, seedAccount(t, s).ID, 5)
	other := seedJob(t, s, job.AccountID, 5)
	require.NoError(t, s.RecordAttempt(ctx, models.NewSuccessfulAttempt(job.ID, "p1", "x", "r1")))
	require.NoError(t, s.RecordAttempt(ctx, models.NewFailedAttempt(job.ID, "p2", "x", errors.New("boom"))))
	require.NoError(t, s.RecordAttempt(ctx, models.NewSuccessfulAttempt(other.ID, "p3", "x", "r3")))

	seen, err := s.AttemptedTargetIDs(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Contains(t, seen, "p1")
	assert.Contains(t, seen, "p2")
}

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	assert.NoError(t, s.Ping(context.Background()))
}
