package mip

import (
	"context"
	"errors"
	"math"
	"time"
)

// Status is the outcome of a solve.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusInfeasible
	// StatusLimit means the search stopped on a node, time or context limit.
	// The solution may still carry the best incumbent found.
	StatusLimit
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusLimit:
		return "limit"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	// ErrSolverUnavailable means the backend cannot run in this environment.
	ErrSolverUnavailable = errors.New("mip: solver unavailable")
	// ErrUnbounded means the relaxation has no finite optimum.
	ErrUnbounded = errors.New("mip: problem is unbounded")
	// ErrNumerical wraps failures of the underlying linear algebra.
	ErrNumerical = errors.New("mip: numerical failure")
)

// Solution holds the result of a solve. Values is indexed by Var.ID.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
	Duration  time.Duration
}

// Value returns the value of v, or NaN when no values are available.
func (s *Solution) Value(v *Var) float64 {
	if s == nil || v == nil || v.ID >= len(s.Values) {
		return math.NaN()
	}
	return s.Values[v.ID]
}

// IsOne reports whether a binary variable is set.
func (s *Solution) IsOne(v *Var) bool {
	return s.Value(v) > 0.5
}

// Solver solves a model. Implementations must not mutate the model.
// Infeasibility is reported through Solution.Status, not as an error.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// Progress is published while a search runs.
type Progress struct {
	Model        string
	Nodes        int
	Depth        int
	Incumbent    float64
	HasIncumbent bool
	Elapsed      time.Duration
}

// ProgressFunc receives Progress updates.
type ProgressFunc func(Progress)
