package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNumBlocks = 26
	DefaultBlockSize = 2
)

// Weights scale the three normalized sub-objectives.
type Weights struct {
	BlockAppeasement   float64 `json:"block_appeasement" yaml:"block_appeasement"`
	WeekendAppeasement float64 `json:"weekend_appeasement" yaml:"weekend_appeasement"`
	Adjacency          float64 `json:"adjacency" yaml:"adjacency"`
}

// EqualWeights gives every sub-objective a third of the total.
func EqualWeights() Weights {
	return Weights{BlockAppeasement: 1.0 / 3, WeekendAppeasement: 1.0 / 3, Adjacency: 1.0 / 3}
}

func (w Weights) isZero() bool {
	return w.BlockAppeasement == 0 && w.WeekendAppeasement == 0 && w.Adjacency == 0
}

// Config defines the model parameters of one scheduling run.
type Config struct {
	NumBlocks   int          `json:"num_blocks" yaml:"num_blocks"`
	BlockSize   int          `json:"block_size" yaml:"block_size"`
	Constraints []Constraint `json:"constraints" yaml:"constraints"`
	Weights     Weights      `json:"weights" yaml:"weights"`
	// Shuffle permutes the clinician order with Seed before every build.
	Shuffle bool  `json:"shuffle" yaml:"shuffle"`
	Seed    int64 `json:"seed" yaml:"seed"`
	// Attempts is the number of independently shuffled solves the
	// application runs; the scheduler itself solves once.
	Attempts int `json:"attempts" yaml:"attempts"`
}

// NumWeekends is NumBlocks * BlockSize.
func (c Config) NumWeekends() int { return c.NumBlocks * c.BlockSize }

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.NumBlocks == 0 {
		c.NumBlocks = DefaultNumBlocks
	}
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if len(c.Constraints) == 0 {
		c.Constraints = DefaultConstraints()
	}
	if c.Weights.isZero() {
		c.Weights = EqualWeights()
	}
	if c.Attempts == 0 {
		c.Attempts = 1
	}
}

// Validate checks the parameters. It returns a *ConfigError.
func (c Config) Validate() error {
	if c.NumBlocks <= 0 {
		return configErrorf("num_blocks", "must be positive, got %d", c.NumBlocks)
	}
	if c.BlockSize <= 0 {
		return configErrorf("block_size", "must be positive, got %d", c.BlockSize)
	}
	if c.Attempts < 0 {
		return configErrorf("attempts", "must not be negative")
	}
	for _, w := range []float64{c.Weights.BlockAppeasement, c.Weights.WeekendAppeasement, c.Weights.Adjacency} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return configErrorf("weights", "must be finite and non-negative")
		}
	}
	if c.Weights.isZero() {
		return configErrorf("weights", "at least one weight must be positive")
	}
	for _, name := range c.Constraints {
		if !name.Known() {
			return configErrorf("constraints", "unknown constraint %q", name)
		}
	}
	if dup := lo.FindDuplicates(c.Constraints); len(dup) > 0 {
		return configErrorf("constraints", "listed more than once: %v", dup)
	}
	if !lo.Contains(c.Constraints, Coverage) {
		return configErrorf("constraints", "%s must be enabled", Coverage)
	}
	return nil
}

// LoadConfig loads a Config from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var cfg Config
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format: %s", ext)
	}
	return cfg, err
}

// DecodeConfig reads a Config from r in the given format.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, nil
}
