package metrics

import "errors"

// MultiSink fans records out to several sinks. Every sink is called even when
// an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the run to all sinks.
func (m *MultiSink) RecordRun(res RunResult) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRun(res))
	}
	return errors.Join(errs...)
}

// RecordProgress forwards progress to sinks implementing ProgressRecorder.
func (m *MultiSink) RecordProgress(ev ProgressEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ProgressRecorder); ok {
			errs = append(errs, r.RecordProgress(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordConflicts forwards conflicts to sinks implementing ConflictRecorder.
func (m *MultiSink) RecordConflicts(evs []ConflictEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ConflictRecorder); ok {
			errs = append(errs, r.RecordConflicts(evs))
		}
	}
	return errors.Join(errs...)
}

// RecordPublish forwards publish results to sinks implementing PublishRecorder.
func (m *MultiSink) RecordPublish(ev PublishEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PublishRecorder); ok {
			errs = append(errs, r.RecordPublish(ev))
		}
	}
	return errors.Join(errs...)
}
