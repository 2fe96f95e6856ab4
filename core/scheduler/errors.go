package scheduler

import (
	"errors"
	"fmt"

	"github.com/mishra-lab/scheduler/core/mip"
)

var (
	// ErrInfeasible means the solver proved that no assignment satisfies the
	// enabled constraints.
	ErrInfeasible = errors.New("scheduler: model is infeasible")
	// ErrNotSolved is returned by ExtractSchedule before an optimal solve.
	ErrNotSolved = errors.New("scheduler: no optimal solution available")
	// ErrLimitReached means the search stopped on a node, time or context
	// limit before proving optimality.
	ErrLimitReached = errors.New("scheduler: search limit reached before optimality")
)

// ConfigError reports structurally invalid input. No solve is attempted.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "scheduler: invalid configuration: " + e.Msg
	}
	return fmt.Sprintf("scheduler: invalid configuration: %s: %s", e.Field, e.Msg)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// SolverError wraps a failure of the underlying MIP solver, including a
// backend that cannot run and a search stopped by a limit.
type SolverError struct {
	Status mip.Status
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("scheduler: solver finished with status %s", e.Status)
	}
	return fmt.Sprintf("scheduler: solver finished with status %s: %v", e.Status, e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsSolverUnavailable reports whether the solver backend could not run at all.
func IsSolverUnavailable(err error) bool {
	return errors.Is(err, mip.ErrSolverUnavailable)
}
