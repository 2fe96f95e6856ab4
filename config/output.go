package config

import "fmt"

// OutputConfig controls the files written after a successful run.
type OutputConfig struct {
	Dir string `json:"dir"`
	// Formats lists any of "json", "csv" and "lp".
	Formats []string `json:"formats"`
}

func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "out"
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{"json", "csv"}
	}
}

func (c OutputConfig) Validate() error {
	for _, f := range c.Formats {
		switch f {
		case "json", "csv", "lp":
		default:
			return fmt.Errorf("unknown format %s", f)
		}
	}
	return nil
}
