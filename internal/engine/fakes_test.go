package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoreply/internal/events"
	"github.com/kiranshivaraju/autoreply/internal/platform"
	"github.com/kiranshivaraju/autoreply/internal/store"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// fakeStore is an in-memory store.Store with the same attempt and quota
// rules as the Postgres store.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
	jobs     map[uuid.UUID]*models.ReplyJob
	attempts []*models.ReplyAttempt
	touched  map[uuid.UUID]int

	attemptsErr error
	recordErr   error
	listErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[uuid.UUID]*models.Account),
		jobs:     make(map[uuid.UUID]*models.ReplyJob),
		touched:  make(map[uuid.UUID]int),
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetAPIKeyByPrefix(context.Context, string) ([]*models.APIKey, error) {
	return nil, nil
}
func (f *fakeStore) UpdateAPIKeyLastUsed(context.Context, uuid.UUID) error     { return nil }
func (f *fakeStore) CreateAPIKey(context.Context, *models.APIKey) error        { return nil }
func (f *fakeStore) ListAPIKeys(context.Context) ([]*models.APIKey, error)     { return nil, nil }
func (f *fakeStore) RevokeAPIKey(context.Context, uuid.UUID) error             { return nil }
func (f *fakeStore) ListAttempts(context.Context, uuid.UUID, int) ([]*models.ReplyAttempt, error) {
	return nil, nil
}

func (f *fakeStore) CreateAccount(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) CreateJob(_ context.Context, j *models.ReplyJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	f.jobs[j.ID] = &cp
	return nil
}

func (f *fakeStore) GetJob(_ context.Context, id uuid.UUID) (*models.ReplyJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) ListActiveJobs(context.Context) ([]*models.ReplyJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.ReplyJob
	for _, j := range f.jobs {
		if j.Active {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (f *fakeStore) SetJobActive(_ context.Context, id uuid.UUID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	j.Active = active
	return nil
}

func (f *fakeStore) TouchJob(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	j.LastProcessedAt = &now
	f.touched[id]++
	return nil
}

func (f *fakeStore) RecordAttempt(_ context.Context, a *models.ReplyAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	if a.Successful {
		for _, prev := range f.attempts {
			if prev.Successful && prev.JobID == a.JobID && prev.TargetPostID == a.TargetPostID {
				return store.ErrDuplicateKey
			}
		}
		j, ok := f.jobs[a.JobID]
		if !ok {
			return store.ErrNotFound
		}
		if j.CurrentReplies >= j.MaxReplies {
			return store.ErrQuotaExhausted
		}
		j.CurrentReplies++
		now := time.Now().UTC()
		j.LastProcessedAt = &now
	}
	cp := *a
	f.attempts = append(f.attempts, &cp)
	return nil
}

func (f *fakeStore) AttemptedTargetIDs(_ context.Context, jobID uuid.UUID) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attemptsErr != nil {
		return nil, f.attemptsErr
	}
	out := make(map[string]struct{})
	for _, a := range f.attempts {
		if a.JobID == jobID {
			out[a.TargetPostID] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeStore) attemptsFor(jobID uuid.UUID) []*models.ReplyAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ReplyAttempt
	for _, a := range f.attempts {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeStore) job(id uuid.UUID) *models.ReplyJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.jobs[id]
	return &cp
}

var _ store.Store = (*fakeStore)(nil)

// fakeClient is a scripted platform.Client.
type fakeClient struct {
	mu         sync.Mutex
	byAuthor   map[string][]models.Post
	authorErr  map[string]error
	search     []models.Post
	searchErr  error
	byID       map[string]models.Post
	getErr     error
	publishErr map[string]error
	onPublish  func(parentID string)

	queries   []string
	lookups   []string
	published []publishCall
	seq       int
}

type publishCall struct {
	ParentID string
	Text     string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		byAuthor:   make(map[string][]models.Post),
		authorErr:  make(map[string]error),
		publishErr: make(map[string]error),
		byID:       make(map[string]models.Post),
	}
}

func (c *fakeClient) GetPost(_ context.Context, id string) (models.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups = append(c.lookups, id)
	if c.getErr != nil {
		return models.Post{}, c.getErr
	}
	p, ok := c.byID[id]
	if !ok {
		return models.Post{}, platform.ErrRequestFailed
	}
	return p, nil
}

func (c *fakeClient) SearchRecent(_ context.Context, query string, limit int) ([]models.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	if len(c.search) > limit {
		return append([]models.Post(nil), c.search[:limit]...), nil
	}
	return append([]models.Post(nil), c.search...), nil
}

func (c *fakeClient) RecentByAuthor(_ context.Context, handle string, limit int) ([]models.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.authorErr[handle]; err != nil {
		return nil, err
	}
	posts := c.byAuthor[handle]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return append([]models.Post(nil), posts...), nil
}

func (c *fakeClient) PublishReply(ctx context.Context, parentID, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onPublish != nil {
		c.onPublish(parentID)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.published = append(c.published, publishCall{ParentID: parentID, Text: text})
	if err := c.publishErr[parentID]; err != nil {
		return "", err
	}
	c.seq++
	return fmt.Sprintf("reply-%d", c.seq), nil
}

func (c *fakeClient) publishedTo() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.published))
	for _, p := range c.published {
		out = append(out, p.ParentID)
	}
	return out
}

// recordingPacer records requested delays without sleeping.
type recordingPacer struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (p *recordingPacer) Wait(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, d)
	if p.err != nil {
		return p.err
	}
	return ctx.Err()
}

func (p *recordingPacer) calls() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.waits...)
}

// recordingSink collects candidate events.
type recordingSink struct {
	mu     sync.Mutex
	events []events.CandidateObserved
	err    error
}

func (s *recordingSink) CandidateObserved(_ context.Context, ev events.CandidateObserved) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) postIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.PostID)
	}
	return out
}

// fakeCache is an in-memory cache.Cache.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Ping(context.Context) error { return nil }

func (c *fakeCache) AcquireLock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.data[key]; held {
		return false, nil
	}
	c.data[key] = []byte(token)
	return true, nil
}

func (c *fakeCache) ReleaseLock(_ context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if string(c.data[key]) == token {
		delete(c.data, key)
	}
	return nil
}

func (c *fakeCache) SetRunSummary(ctx context.Context, runID string, summary []byte, ttl time.Duration) error {
	return c.Set(ctx, "run:"+runID, summary, ttl)
}

func (c *fakeCache) GetRunSummary(ctx context.Context, runID string) ([]byte, bool, error) {
	return c.Get(ctx, "run:"+runID)
}

func (c *fakeCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("not supported")
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}
