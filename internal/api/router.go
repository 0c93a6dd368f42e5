package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/autoreply/internal/api/middleware"
	"github.com/kiranshivaraju/autoreply/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler    http.HandlerFunc
	CreateAccount    http.HandlerFunc
	CreateJob        http.HandlerFunc
	GetJob           http.HandlerFunc
	StopJob          http.HandlerFunc
	ListAttempts     http.HandlerFunc
	RunJob           http.HandlerFunc
	TriggerBatch     http.HandlerFunc
	GetRun           http.HandlerFunc
	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(mw.ScopeRead))

			r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
			r.Get("/api/v1/jobs/{jobID}/attempts", orNotImplemented(deps.ListAttempts))
			r.Get("/api/v1/runs/{runID}", orNotImplemented(deps.GetRun))
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(mw.ScopeWrite))

			r.Post("/api/v1/accounts", orNotImplemented(deps.CreateAccount))
			r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJob))
			r.Post("/api/v1/jobs/{jobID}/stop", orNotImplemented(deps.StopJob))
			r.Post("/api/v1/jobs/{jobID}/run", orNotImplemented(deps.RunJob))
			r.Post("/api/v1/runs", orNotImplemented(deps.TriggerBatch))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(mw.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
