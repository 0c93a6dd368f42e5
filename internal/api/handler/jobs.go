package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoreply/internal/api/response"
	"github.com/kiranshivaraju/autoreply/internal/engine"
	"github.com/kiranshivaraju/autoreply/internal/store"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

const (
	defaultAttemptLimit = 100
	maxAttemptLimit     = 500
)

// Runner is the engine surface the run endpoints depend on.
type Runner interface {
	TriggerJob(ctx context.Context, jobID uuid.UUID) (*engine.RunSummary, error)
	TriggerBatch(ctx context.Context) (*engine.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*engine.RunSummary, error)
}

// Jobs serves the reply job endpoints.
type Jobs struct {
	store  store.Store
	runner Runner
}

func NewJobs(st store.Store, runner Runner) *Jobs {
	return &Jobs{store: st, runner: runner}
}

type createJobRequest struct {
	AccountID string `json:"account_id"`
	Target    struct {
		PostID   string   `json:"post_id"`
		Author   string   `json:"author"`
		Authors  []string `json:"authors"`
		Keywords []string `json:"keywords"`
	} `json:"target"`
	StaticText string `json:"static_text"`
	UseAI      bool   `json:"use_ai"`
	AI         *struct {
		Tone               string `json:"tone"`
		IncludeHashtags    bool   `json:"include_hashtags"`
		IncludeEmojis      bool   `json:"include_emojis"`
		CustomInstructions string `json:"custom_instructions"`
		Model              string `json:"model"`
	} `json:"ai"`
	MaxReplies int `json:"max_replies"`
}

// Create handles POST /api/v1/jobs.
func (h *Jobs) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "account_id must be a valid UUID", nil)
		return
	}

	target, err := models.TargetFromFields(req.Target.PostID, req.Target.Author, req.Target.Authors, req.Target.Keywords)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_TARGET", err.Error(), nil)
		return
	}

	content := models.ContentSpec{StaticText: req.StaticText, UseAI: req.UseAI}
	if req.UseAI || req.AI != nil {
		settings := models.AISettings{}
		var toneName string
		if req.AI != nil {
			toneName = req.AI.Tone
			settings.IncludeHashtags = req.AI.IncludeHashtags
			settings.IncludeEmojis = req.AI.IncludeEmojis
			settings.CustomInstructions = req.AI.CustomInstructions
			settings.Model = req.AI.Model
		}
		tone, err := models.ParseTone(toneName)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		settings.Tone = tone
		content.AI = &settings
	}

	now := time.Now().UTC()
	job := &models.ReplyJob{
		ID:         uuid.New(),
		AccountID:  accountID,
		Target:     target,
		Content:    content,
		MaxReplies: req.MaxReplies,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := job.Validate(); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	if _, err := h.store.GetAccount(r.Context(), accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusUnprocessableEntity, "ACCOUNT_NOT_FOUND", "account_id does not exist", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load account", nil)
		return
	}

	if err := h.store.CreateJob(r.Context(), job); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create job", nil)
		return
	}

	response.Created(w, job)
}

// Get handles GET /api/v1/jobs/{jobID}.
func (h *Jobs) Get(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.JSON(w, job)
}

// Stop handles POST /api/v1/jobs/{jobID}/stop. Stopping is idempotent.
func (h *Jobs) Stop(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}

	if err := h.store.SetJobActive(r.Context(), jobID, false); err != nil {
		writeStoreError(w, err)
		return
	}
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.JSON(w, job)
}

// Attempts handles GET /api/v1/jobs/{jobID}/attempts?limit=N, newest first.
func (h *Jobs) Attempts(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}

	limit := defaultAttemptLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAttemptLimit {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"limit must be an integer between 1 and 500", nil)
			return
		}
		limit = n
	}

	if _, err := h.store.GetJob(r.Context(), jobID); err != nil {
		writeStoreError(w, err)
		return
	}

	attempts, err := h.store.ListAttempts(r.Context(), jobID, limit)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list attempts", nil)
		return
	}
	if attempts == nil {
		attempts = []*models.ReplyAttempt{}
	}

	response.Collection(w, attempts, response.NewListMeta(limit, len(attempts)))
}

// Run handles POST /api/v1/jobs/{jobID}/run. The run happens in the
// background; the response carries the run id to poll.
func (h *Jobs) Run(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}

	run, err := h.runner.TriggerJob(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
		case errors.Is(err, engine.ErrJobIneligible):
			response.Error(w, http.StatusConflict, "JOB_INELIGIBLE",
				"Job is stopped or has reached its reply quota", nil)
		default:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start run", nil)
		}
		return
	}
	response.Accepted(w, runLocation(run.RunID), run)
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}
