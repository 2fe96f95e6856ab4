// Package runlog keeps a history of scheduling runs: when they ran, how they
// ended and, for optimal runs, the schedule they produced.
package runlog

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mishra-lab/scheduler/core/scheduler"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("runlog: run not found")

// RunRecord captures one scheduling run.
type RunRecord struct {
	ID          string              `json:"id"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration"`
	Outcome     string              `json:"outcome"`
	Error       string              `json:"error,omitempty"`
	Backend     string              `json:"backend"`
	Objective   float64             `json:"objective"`
	NumBlocks   int                 `json:"num_blocks"`
	Clinicians  int                 `json:"clinicians"`
	Divisions   int                 `json:"divisions"`
	Constraints []string            `json:"constraints"`
	Seed        int64               `json:"seed"`
	Attempt     int                 `json:"attempt"`
	Schedule    *scheduler.Schedule `json:"schedule,omitempty"`
}

// RunQuery filters records. Zero fields do not filter. Results are ordered
// newest first and truncated to Limit when positive.
type RunQuery struct {
	Since   time.Time
	Until   time.Time
	Outcome string
	Limit   int
}

// Match reports whether rec passes the time and outcome filters.
func (q RunQuery) Match(rec RunRecord) bool {
	if !q.Since.IsZero() && rec.StartedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && rec.StartedAt.After(q.Until) {
		return false
	}
	if q.Outcome != "" && rec.Outcome != q.Outcome {
		return false
	}
	return true
}

// finish orders matched records newest first and applies the limit.
func (q RunQuery) finish(recs []RunRecord) []RunRecord {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].StartedAt.After(recs[j].StartedAt) })
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}
	return recs
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Get(ctx context.Context, id string) (RunRecord, error)
	Close() error
}
