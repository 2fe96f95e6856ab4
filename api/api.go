// Package api mounts the run history and schedule endpoints.
package api

import (
	"net/http"

	"github.com/mishra-lab/scheduler/api/runs"
	"github.com/mishra-lab/scheduler/api/schedule"
	"github.com/mishra-lab/scheduler/core/runlog"
)

// RequireToken rejects requests without "Authorization: Bearer <token>". An
// empty token disables the check.
func RequireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter serves /api/runs and /api/schedule from store behind the token
// check, and metrics on /metrics when not nil.
func NewRouter(store runlog.Store, token string, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	apiMux := http.NewServeMux()
	runs.Register(apiMux, store)
	schedule.Register(apiMux, store)
	mux.Handle("/api/", RequireToken(token, apiMux))
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
