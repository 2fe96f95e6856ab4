// Package metrics defines the sinks that record scheduling runs and solver
// progress. Concrete sinks (Prometheus, InfluxDB) live in infra/metrics and
// register themselves with the factory; NewMetricsSink wraps several
// configured sinks in a MultiSink.
package metrics
