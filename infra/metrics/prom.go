package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/mishra-lab/scheduler/core/metrics"
)

// PromSink records runs, search progress and publication in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	nodes       prometheus.Counter
	variables   prometheus.Gauge
	constraints prometheus.Gauge
	objective   prometheus.Gauge
	searchNodes prometheus.Gauge
	incumbent   prometheus.Gauge
	conflicts   *prometheus.GaugeVec
	published   *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the metrics on reg. A nil registerer
// defaults to the global one. Collectors already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_runs_total",
		Help: "Scheduling runs by outcome and solver backend",
	}, []string{"outcome", "backend"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_solve_duration_seconds",
		Help:    "Wall time of build and solve",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"backend"})); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_solver_nodes_total",
		Help: "Branch and bound nodes explored over all runs",
	})); err != nil {
		return nil, err
	}
	if s.variables, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_model_variables",
		Help: "Variables of the last built model",
	})); err != nil {
		return nil, err
	}
	if s.constraints, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_model_constraints",
		Help: "Constraints of the last built model",
	})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_objective_value",
		Help: "Objective of the last optimal schedule",
	})); err != nil {
		return nil, err
	}
	if s.searchNodes, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_search_nodes",
		Help: "Nodes explored by the running search",
	})); err != nil {
		return nil, err
	}
	if s.incumbent, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_search_incumbent",
		Help: "Best objective found so far by the running search",
	})); err != nil {
		return nil, err
	}
	if s.conflicts, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduler_timeoff_conflicts",
		Help: "Requested blocks or weekends off that were scheduled anyway",
	}, []string{"clinician", "kind"})); err != nil {
		return nil, err
	}
	if s.published, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_published_total",
		Help: "Schedule assignments published",
	}, []string{"division", "kind", "success"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates run counters and model gauges.
func (s *PromSink) RecordRun(res coremetrics.RunResult) error {
	s.runs.WithLabelValues(string(res.Outcome), res.Backend).Inc()
	s.duration.WithLabelValues(res.Backend).Observe(res.Duration.Seconds())
	s.nodes.Add(float64(res.Nodes))
	if res.Variables > 0 {
		s.variables.Set(float64(res.Variables))
		s.constraints.Set(float64(res.Constraints))
	}
	if res.Outcome == coremetrics.OutcomeOptimal {
		s.objective.Set(res.Objective)
	}
	return nil
}

// RecordProgress sets the search gauges.
func (s *PromSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	s.searchNodes.Set(float64(ev.Nodes))
	if ev.HasIncumbent {
		s.incumbent.Set(ev.Incumbent)
	}
	return nil
}

// RecordConflicts sets the per-clinician conflict gauges.
func (s *PromSink) RecordConflicts(evs []coremetrics.ConflictEvent) error {
	for _, ev := range evs {
		s.conflicts.WithLabelValues(ev.Clinician, "block").Set(float64(ev.BlocksOffAssigned))
		s.conflicts.WithLabelValues(ev.Clinician, "weekend").Set(float64(ev.WeekendsOffAssigned))
	}
	return nil
}

// RecordPublish counts a published assignment.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.published.WithLabelValues(ev.Division, ev.Kind, strconv.FormatBool(ev.Success)).Inc()
	return nil
}
