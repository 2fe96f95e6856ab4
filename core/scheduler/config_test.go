package scheduler

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeConfig(t *testing.T) {
	data := "num_blocks: 13\nblock_size: 4\nconstraints: [coverage, min-max]\nweights:\n  adjacency: 1\nshuffle: true\nseed: 9\n"
	cfg, err := DecodeConfig(bytes.NewBufferString(data), "yaml")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.NumBlocks != 13 || cfg.BlockSize != 4 || cfg.NumWeekends() != 52 {
		t.Fatalf("unexpected grid: %+v", cfg)
	}
	if len(cfg.Constraints) != 2 || cfg.Constraints[1] != MinMax {
		t.Fatalf("unexpected constraints: %v", cfg.Constraints)
	}
	if !cfg.Shuffle || cfg.Seed != 9 || cfg.Weights.Adjacency != 1 {
		t.Fatalf("unexpected options: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := DecodeConfig(bytes.NewBufferString("{}"), "toml"); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.json")
	if err := os.WriteFile(path, []byte(`{"num_blocks": 6, "constraints": ["coverage"]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.SetDefaults()
	if cfg.NumBlocks != 6 || cfg.BlockSize != DefaultBlockSize || cfg.Attempts != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Weights != EqualWeights() {
		t.Fatalf("expected equal weights, got %+v", cfg.Weights)
	}
	if _, err := LoadConfig(filepath.Join(dir, "scheduler.ini")); err == nil {
		t.Fatalf("expected error for unknown extension")
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	if cfg.NumBlocks != DefaultNumBlocks || cfg.NumWeekends() != DefaultNumBlocks*DefaultBlockSize {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	for _, c := range cfg.Constraints {
		if c == SpreadBlocks || c == SpreadWeekends {
			t.Fatalf("%s should be disabled by default", c)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	base := Config{NumBlocks: 4, BlockSize: 2, Constraints: []Constraint{Coverage}, Weights: EqualWeights()}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero blocks", func(c *Config) { c.NumBlocks = 0 }},
		{"negative block size", func(c *Config) { c.BlockSize = -1 }},
		{"negative weight", func(c *Config) { c.Weights.Adjacency = -1 }},
		{"zero weights", func(c *Config) { c.Weights = Weights{} }},
		{"unknown constraint", func(c *Config) { c.Constraints = append(c.Constraints, "weekday-bonus") }},
		{"duplicate constraint", func(c *Config) { c.Constraints = append(c.Constraints, Coverage) }},
		{"no coverage", func(c *Config) { c.Constraints = []Constraint{MinMax} }},
		{"negative attempts", func(c *Config) { c.Attempts = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Constraints = append([]Constraint(nil), base.Constraints...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !IsConfigError(err) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestRegistered(t *testing.T) {
	infos := Registered()
	if len(infos) != 9 || infos[0].Name != Coverage {
		t.Fatalf("unexpected registry: %+v", infos)
	}
	if !Constraint("balanced-weekends").Known() || Constraint("nope").Known() {
		t.Fatalf("Known mismatch")
	}
}
