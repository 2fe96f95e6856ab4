// Package runs exposes the run history over HTTP.
package runs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mishra-lab/scheduler/core/runlog"
)

// Summary is a run without its schedule.
type Summary struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Backend   string        `json:"backend"`
	Objective float64       `json:"objective"`
	NumBlocks int           `json:"num_blocks"`
	Seed      int64         `json:"seed"`
}

func summarize(r runlog.RunRecord) Summary {
	return Summary{
		ID: r.ID, StartedAt: r.StartedAt, Duration: r.Duration, Outcome: r.Outcome,
		Error: r.Error, Backend: r.Backend, Objective: r.Objective, NumBlocks: r.NumBlocks, Seed: r.Seed,
	}
}

// Register mounts GET /api/runs and GET /api/runs/{id} on mux.
func Register(mux *http.ServeMux, store runlog.Store) {
	mux.Handle("GET /api/runs", NewListHandler(store))
	mux.Handle("GET /api/runs/{id}", NewGetHandler(store))
}

// NewListHandler lists run summaries, newest first. Query parameters: since
// and until (RFC 3339), outcome and limit.
func NewListHandler(store runlog.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]Summary, 0, len(records))
		for _, rec := range records {
			out = append(out, summarize(rec))
		}
		writeJSON(w, out)
	})
}

// NewGetHandler returns one run including its schedule.
func NewGetHandler(store runlog.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, err := store.Get(r.Context(), r.PathValue("id"))
		if errors.Is(err, runlog.ErrNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, rec)
	})
}

func parseQuery(r *http.Request) (runlog.RunQuery, error) {
	v := r.URL.Query()
	q := runlog.RunQuery{Outcome: v.Get("outcome"), Limit: 50}
	if s := v.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("since must be RFC 3339")
		}
		q.Since = t
	}
	if s := v.Get("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("until must be RFC 3339")
		}
		q.Until = t
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
