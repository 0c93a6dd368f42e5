package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logger logs one line per request with the matched route, the job or run it
// addressed, and the API key that made it.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx, info := withRequestInfo(r.Context())
		r = r.WithContext(ctx)

		next.ServeHTTP(rec, r)

		attrs := append([]any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}, requestAttrs(r, info)...)
		slog.Info("request", attrs...)
	})
}

// requestAttrs reads the route values chi resolved while serving r.
func requestAttrs(r *http.Request, info *requestInfo) []any {
	var attrs []any
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			attrs = append(attrs, "route", pattern)
		}
		if id := rctx.URLParam("jobID"); id != "" {
			attrs = append(attrs, "job_id", id)
		}
		if id := rctx.URLParam("runID"); id != "" {
			attrs = append(attrs, "run_id", id)
		}
	}
	if info != nil && info.keyID != uuid.Nil {
		attrs = append(attrs, "key_id", info.keyID.String())
	}
	return attrs
}
