package metrics

import "time"

// Outcome labels a finished run.
type Outcome string

const (
	OutcomeOptimal     Outcome = "optimal"
	OutcomeInfeasible  Outcome = "infeasible"
	OutcomeConfigError Outcome = "config_error"
	OutcomeSolverError Outcome = "solver_error"
)

// RunResult summarizes one build and solve.
type RunResult struct {
	RunID       string
	Outcome     Outcome
	Backend     string
	NumBlocks   int
	Clinicians  int
	Divisions   int
	Variables   int
	Constraints int
	Nodes       int
	Objective   float64
	Duration    time.Duration
	Time        time.Time
}

// MetricsSink records finished runs.
type MetricsSink interface {
	RecordRun(res RunResult) error
}

// ProgressEvent is a periodic snapshot of a running search.
type ProgressEvent struct {
	RunID        string
	Nodes        int
	Depth        int
	Incumbent    float64
	HasIncumbent bool
	Elapsed      time.Duration
	Time         time.Time
}

// ProgressRecorder records search progress.
type ProgressRecorder interface {
	RecordProgress(ev ProgressEvent) error
}

// ConflictEvent counts the time-off requests a clinician was scheduled on.
type ConflictEvent struct {
	RunID               string
	Clinician           string
	BlocksOffAssigned   int
	WeekendsOffAssigned int
	Time                time.Time
}

// ConflictRecorder records per-clinician conflicts of a schedule.
type ConflictRecorder interface {
	RecordConflicts(evs []ConflictEvent) error
}

// PublishEvent records the delivery of one schedule assignment.
type PublishEvent struct {
	RunID    string
	Division string
	Kind     string
	Success  bool
	Time     time.Time
}

// PublishRecorder records schedule publication results.
type PublishRecorder interface {
	RecordPublish(ev PublishEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunResult) error             { return nil }
func (NopSink) RecordProgress(ProgressEvent) error    { return nil }
func (NopSink) RecordConflicts([]ConflictEvent) error { return nil }
func (NopSink) RecordPublish(PublishEvent) error      { return nil }
