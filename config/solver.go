package config

import (
	"fmt"

	"github.com/mishra-lab/scheduler/core/factory"
)

// SolverConfig selects the MIP backend.
type SolverConfig struct {
	// Backend is "auto", "bnb" for the built-in branch and bound or "cbc".
	// "auto" runs cbc when the executable is found and bnb otherwise.
	Backend          string  `json:"backend"`
	NodeLimit        int     `json:"node_limit"`
	TimeLimitSeconds int     `json:"time_limit_seconds"`
	Tolerance        float64 `json:"tolerance"`
	CBCPath          string  `json:"cbc_path"`
	Threads          int     `json:"threads"`
	KeepFiles        bool    `json:"keep_files"`
}

func (c *SolverConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "auto"
	}
}

func (c SolverConfig) Validate() error {
	switch c.Backend {
	case "auto", "bnb", "cbc":
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.NodeLimit < 0 || c.TimeLimitSeconds < 0 || c.Threads < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if c.Tolerance < 0 || c.Tolerance >= 0.5 {
		return fmt.Errorf("tolerance must be in [0, 0.5)")
	}
	return nil
}

// Module describes the backend for the solver registry.
func (c SolverConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{
		Type: c.Backend,
		Conf: map[string]any{
			"node_limit":         c.NodeLimit,
			"time_limit_seconds": c.TimeLimitSeconds,
			"tolerance":          c.Tolerance,
			"path":               c.CBCPath,
			"threads":            c.Threads,
			"keep_files":         c.KeepFiles,
		},
	}
}
