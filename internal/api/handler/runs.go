package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/autoreply/internal/api/response"
	"github.com/kiranshivaraju/autoreply/internal/engine"
)

// NewTriggerBatchHandler returns an http.HandlerFunc for POST /api/v1/runs.
func NewTriggerBatchHandler(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := runner.TriggerBatch(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start batch run", nil)
			return
		}
		response.Accepted(w, runLocation(run.RunID), run)
	}
}

// runLocation is the poll URL for a triggered run.
func runLocation(runID string) string {
	return "/api/v1/runs/" + runID
}

// NewGetRunHandler returns an http.HandlerFunc for GET /api/v1/runs/{runID}.
func NewGetRunHandler(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		if runID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "runID is required", nil)
			return
		}

		run, err := runner.GetRun(r.Context(), runID)
		if err != nil {
			if errors.Is(err, engine.ErrRunNotFound) {
				response.Error(w, http.StatusNotFound, "RUN_NOT_FOUND", "Run not found or expired", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load run", nil)
			return
		}
		response.JSON(w, run)
	}
}
