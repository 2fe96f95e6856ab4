// Package solver builds mip.Solver backends by name: "bnb" for the built-in
// branch and bound, "cbc" for the external CBC executable and "auto" for cbc
// when it can run and bnb otherwise.
package solver

import (
	"errors"
	"time"

	"github.com/mishra-lab/scheduler/core/factory"
	"github.com/mishra-lab/scheduler/core/mip"
	"github.com/mishra-lab/scheduler/infra/cbc"
	"github.com/mishra-lab/scheduler/infra/logger"
)

var registry = factory.NewRegistry[mip.Solver]()

type bnbConfig struct {
	NodeLimit        int     `json:"node_limit"`
	TimeLimitSeconds int     `json:"time_limit_seconds"`
	Tolerance        float64 `json:"tolerance"`
}

func init() {
	_ = Register("auto", func(conf map[string]any) (mip.Solver, error) {
		s, err := newCBC(conf)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, mip.ErrSolverUnavailable) {
			return nil, err
		}
		logger.New("solver").Infof("falling back to the built-in branch and bound: %v", err)
		return newBranchAndBound(conf)
	})
	_ = Register("bnb", newBranchAndBound)
	_ = Register("cbc", newCBC)
}

func newBranchAndBound(conf map[string]any) (mip.Solver, error) {
	var c bnbConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	s := mip.NewBranchAndBound(logger.New("bnb"))
	s.NodeLimit = c.NodeLimit
	s.TimeLimit = time.Duration(c.TimeLimitSeconds) * time.Second
	s.Tolerance = c.Tolerance
	return s, nil
}

func newCBC(conf map[string]any) (mip.Solver, error) {
	var c cbc.Config
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	s := cbc.New(c, logger.New("cbc"))
	if err := s.Available(); err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds a backend factory.
func Register(name string, f factory.Factory[mip.Solver]) error {
	return registry.Register(name, f)
}

// Types lists the registered backends.
func Types() []string { return registry.Types() }

// New creates the backend described by cfg. onProgress, when not nil, is
// attached to backends that report search progress.
func New(cfg factory.ModuleConfig, onProgress mip.ProgressFunc) (mip.Solver, error) {
	s, err := registry.Create(cfg)
	if err != nil {
		return nil, err
	}
	if bb, ok := s.(*mip.BranchAndBound); ok && onProgress != nil {
		bb.OnProgress = onProgress
	}
	return s, nil
}

// Name returns the registered name of the backend behind s.
func Name(s mip.Solver) string {
	switch s.(type) {
	case *mip.BranchAndBound:
		return "bnb"
	case *cbc.Solver:
		return "cbc"
	default:
		return "custom"
	}
}
