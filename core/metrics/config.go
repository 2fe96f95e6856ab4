package metrics

import "github.com/mishra-lab/scheduler/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Listen exposes /metrics on this address when serving.
	Listen string `json:"listen"`
	// Textfile is written after a batch run for the node exporter textfile
	// collector.
	Textfile string `json:"textfile"`
}
