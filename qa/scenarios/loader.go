// Package scenarios runs YAML described scheduling cases end to end and checks
// the properties every schedule must have.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mishra-lab/scheduler/core/roster"
	"github.com/mishra-lab/scheduler/core/scheduler"
)

type Expected struct {
	// Outcome is "optimal", "infeasible" or "config_error".
	Outcome string `yaml:"outcome"`
	// NoConflicts asserts every block and weekend off was honoured.
	NoConflicts bool `yaml:"no_conflicts,omitempty"`
	// Objective is checked when set.
	Objective *float64 `yaml:"objective,omitempty"`
}

type Scenario struct {
	Name         string                  `yaml:"name"`
	Description  string                  `yaml:"description,omitempty"`
	Roster       roster.File             `yaml:"roster"`
	NumBlocks    int                     `yaml:"num_blocks"`
	BlockSize    int                     `yaml:"block_size"`
	Constraints  []scheduler.Constraint  `yaml:"constraints,omitempty"`
	Availability roster.AvailabilityFile `yaml:"availability,omitempty"`
	LongWeekends []int                   `yaml:"long_weekends,omitempty"`
	Attempts     int                     `yaml:"attempts,omitempty"`
	Expected     Expected                `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Config is the scheduler configuration the scenario describes.
func (sc *Scenario) Config() scheduler.Config {
	return scheduler.Config{
		NumBlocks:   sc.NumBlocks,
		BlockSize:   sc.BlockSize,
		Constraints: sc.Constraints,
		Attempts:    sc.Attempts,
	}
}
