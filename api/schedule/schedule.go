// Package schedule serves the schedule of the latest optimal run.
package schedule

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mishra-lab/scheduler/core/metrics"
	"github.com/mishra-lab/scheduler/core/runlog"
	"github.com/mishra-lab/scheduler/core/scheduler"
	"github.com/mishra-lab/scheduler/pkg/export"
)

// Register mounts GET /api/schedule on mux.
func Register(mux *http.ServeMux, store runlog.Store) {
	mux.Handle("GET /api/schedule", NewHandler(store))
}

// NewHandler writes the latest optimal schedule, or the one of run ?run=<id>.
// ?format=csv selects the weekly table instead of JSON.
func NewHandler(store runlog.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := find(r, store)
		if errors.Is(err, runlog.ErrNotFound) {
			http.Error(w, "no schedule", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		switch r.URL.Query().Get("format") {
		case "", "json":
			w.Header().Set("Content-Type", "application/json")
			err = json.NewEncoder(w).Encode(s)
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			err = export.WriteCSV(w, s)
		default:
			http.Error(w, "format must be json or csv", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func find(r *http.Request, store runlog.Store) (*scheduler.Schedule, error) {
	if id := r.URL.Query().Get("run"); id != "" {
		rec, err := store.Get(r.Context(), id)
		if err != nil {
			return nil, err
		}
		if rec.Schedule == nil {
			return nil, runlog.ErrNotFound
		}
		return rec.Schedule, nil
	}
	recs, err := store.Query(r.Context(), runlog.RunQuery{Outcome: string(metrics.OutcomeOptimal)})
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.Schedule != nil {
			return rec.Schedule, nil
		}
	}
	return nil, runlog.ErrNotFound
}
