// Package app wires configuration, inputs, the scheduler and the ambient
// services (metrics, run history, export and publishing) into one run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mishra-lab/scheduler/config"
	coremetrics "github.com/mishra-lab/scheduler/core/metrics"
	"github.com/mishra-lab/scheduler/core/mip"
	coremqtt "github.com/mishra-lab/scheduler/core/mqtt"
	"github.com/mishra-lab/scheduler/core/runlog"
	"github.com/mishra-lab/scheduler/core/scheduler"
	"github.com/mishra-lab/scheduler/infra/logger"
	inframetrics "github.com/mishra-lab/scheduler/infra/metrics"
	"github.com/mishra-lab/scheduler/infra/mqtt"
	"github.com/mishra-lab/scheduler/infra/solver"
	"github.com/mishra-lab/scheduler/internal/eventbus"
	"github.com/mishra-lab/scheduler/metrics"
	"github.com/mishra-lab/scheduler/pkg/export"
)

// SolverFactory creates one solver per attempt.
type SolverFactory func(onProgress mip.ProgressFunc) (mip.Solver, error)

// Service runs scheduling attempts and hands the result to the configured
// sinks, history store and publisher.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	sink      coremetrics.MetricsSink
	store     runlog.Store
	publisher coremqtt.Publisher
	newSolver SolverFactory
	progress  *eventbus.Bus[mip.Progress]
	closers   []func() error
}

// Option customizes a Service.
type Option func(*Service)

// WithStore replaces the history store built from the configuration.
func WithStore(s runlog.Store) Option { return func(svc *Service) { svc.store = s } }

// WithPublisher replaces the MQTT publisher built from the configuration.
func WithPublisher(p coremqtt.Publisher) Option { return func(svc *Service) { svc.publisher = p } }

// WithSink replaces the metrics sinks built from the configuration.
func WithSink(s coremetrics.MetricsSink) Option { return func(svc *Service) { svc.sink = s } }

// WithSolverFactory replaces the backend selected by the solver section.
func WithSolverFactory(f SolverFactory) Option { return func(svc *Service) { svc.newSolver = f } }

// New creates a Service from the configuration. Components not injected
// through options are built from cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	svc := &Service{cfg: cfg, log: logger.New("service"), progress: eventbus.New[mip.Progress](64)}
	for _, o := range opts {
		o(svc)
	}
	if svc.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sinks: %w", err)
		}
		svc.sink = sink
	}
	if svc.store == nil && !cfg.History.Disabled {
		store, err := runlog.Open(cfg.History.Options())
		if err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
		svc.store = store
		svc.closers = append(svc.closers, store.Close)
	}
	if svc.newSolver == nil {
		module := cfg.Solver.Module()
		svc.newSolver = func(onProgress mip.ProgressFunc) (mip.Solver, error) {
			return solver.New(module, onProgress)
		}
	}
	if svc.publisher == nil && cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.publisher = client
		svc.closers = append(svc.closers, func() error { client.Disconnect(); return nil })
	}
	return svc, nil
}

// Store returns the history store, nil when history is disabled.
func (s *Service) Store() runlog.Store { return s.store }

// Progress is the bus solver progress is published on.
func (s *Service) Progress() *eventbus.Bus[mip.Progress] { return s.progress }

// Result is the outcome of Generate. Backend names the solver behind the kept
// attempt.
type Result struct {
	RunID    string
	Backend  string
	Attempt  int
	Schedule *scheduler.Schedule
	Stats    scheduler.Stats
	Model    *mip.Model
	Duration time.Duration
}

type attempt struct {
	index    int
	backend  string
	sched    *scheduler.Scheduler
	schedule *scheduler.Schedule
	err      error
}

// Generate solves Attempts independent schedulers concurrently, seeded
// Seed, Seed+1, ..., and keeps the best objective. Several attempts imply a
// shuffled clinician order. The run is recorded in metrics and history
// whatever the outcome.
func (s *Service) Generate(ctx context.Context, in *Inputs) (*Result, error) {
	runID := uuid.NewString()
	started := time.Now()
	collectCtx, stop := context.WithCancel(ctx)
	collected := inframetrics.StartProgressCollector(collectCtx, s.progress, s.sink, runID)
	defer func() {
		stop()
		<-collected
	}()

	cfg := s.cfg.Scheduler
	n := max(cfg.Attempts, 1)
	attempts := make([]attempt, n)
	var wg sync.WaitGroup
	for i := range attempts {
		attempts[i].index = i
		wg.Add(1)
		go func(a *attempt) {
			defer wg.Done()
			s.solveAttempt(ctx, in, a)
		}(&attempts[i])
	}
	wg.Wait()

	best := -1
	for i, a := range attempts {
		if a.err != nil {
			s.log.Warnf("attempt %d: %v", i, a.err)
			continue
		}
		if best < 0 || a.schedule.Objective > attempts[best].schedule.Objective {
			best = i
		}
	}

	res := &Result{RunID: runID, Backend: s.cfg.Solver.Backend, Duration: time.Since(started)}
	var err error
	if best < 0 {
		err = attempts[0].err
		if attempts[0].backend != "" {
			res.Backend = attempts[0].backend
		}
		if attempts[0].sched != nil {
			res.Stats = attempts[0].sched.Stats()
		}
	} else {
		b := attempts[best]
		res.Attempt = best
		res.Backend = b.backend
		res.Schedule = b.schedule
		res.Schedule.HolidayMap = in.HolidayMap
		res.Stats = b.sched.Stats()
		res.Model = b.sched.Model()
		s.log.Infof("run %s: attempt %d of %d kept, objective %.4f", runID, best+1, n, b.schedule.Objective)
	}
	s.record(ctx, in, res, err, started)
	if err != nil {
		return res, err
	}
	return res, nil
}

func (s *Service) solveAttempt(ctx context.Context, in *Inputs, a *attempt) {
	cfg := s.cfg.Scheduler
	cfg.Seed += int64(a.index)
	if cfg.Attempts > 1 {
		cfg.Shuffle = true
	}
	slv, err := s.newSolver(s.progress.Publish)
	if err != nil {
		a.err = &scheduler.SolverError{Status: mip.StatusError, Err: err}
		return
	}
	a.backend = solver.Name(slv)
	a.sched, a.err = scheduler.New(in.Roster, cfg, slv, logger.New("scheduler"))
	if a.err != nil {
		return
	}
	if a.err = a.sched.SetAvailability(in.Availability); a.err != nil {
		return
	}
	a.sched.SetLongWeekends(in.LongWeekends)
	a.schedule, a.err = a.sched.Generate(ctx)
}

// Outcome classifies the error returned by Generate.
func Outcome(err error) coremetrics.Outcome {
	switch {
	case err == nil:
		return coremetrics.OutcomeOptimal
	case errors.Is(err, scheduler.ErrInfeasible):
		return coremetrics.OutcomeInfeasible
	case scheduler.IsConfigError(err):
		return coremetrics.OutcomeConfigError
	default:
		return coremetrics.OutcomeSolverError
	}
}

func (s *Service) record(ctx context.Context, in *Inputs, res *Result, runErr error, started time.Time) {
	outcome := Outcome(runErr)
	cfg := s.cfg.Scheduler
	objective := 0.0
	if res.Schedule != nil {
		objective = res.Schedule.Objective
	}
	if err := s.sink.RecordRun(coremetrics.RunResult{
		RunID:       res.RunID,
		Outcome:     outcome,
		Backend:     res.Backend,
		NumBlocks:   cfg.NumBlocks,
		Clinicians:  len(in.Roster.Clinicians),
		Divisions:   len(in.Roster.Divisions),
		Variables:   res.Stats.Variables,
		Constraints: res.Stats.Constraints,
		Nodes:       res.Stats.Nodes,
		Objective:   objective,
		Duration:    res.Duration,
		Time:        started,
	}); err != nil {
		s.log.Warnf("record run metrics: %v", err)
	}
	if res.Schedule != nil {
		if rec, ok := s.sink.(coremetrics.ConflictRecorder); ok {
			evs := make([]coremetrics.ConflictEvent, 0, len(res.Schedule.Conflicts))
			for _, c := range res.Schedule.Conflicts {
				evs = append(evs, coremetrics.ConflictEvent{
					RunID: res.RunID, Clinician: c.Clinician,
					BlocksOffAssigned: c.BlocksOffAssigned, WeekendsOffAssigned: c.WeekendsOffAssigned,
					Time: started,
				})
			}
			if err := rec.RecordConflicts(evs); err != nil {
				s.log.Warnf("record conflicts: %v", err)
			}
		}
	}
	if s.store == nil {
		return
	}
	rec := runlog.RunRecord{
		ID:          res.RunID,
		StartedAt:   started,
		Duration:    res.Duration,
		Outcome:     string(outcome),
		Backend:     res.Backend,
		Objective:   objective,
		NumBlocks:   cfg.NumBlocks,
		Clinicians:  len(in.Roster.Clinicians),
		Divisions:   len(in.Roster.Divisions),
		Constraints: constraintNames(cfg.Constraints),
		Seed:        cfg.Seed + int64(res.Attempt),
		Attempt:     res.Attempt,
		Schedule:    res.Schedule,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Warnf("append run history: %v", err)
	}
}

func constraintNames(cs []scheduler.Constraint) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// Export writes the result in every configured format under the output
// directory and returns the written paths.
func (s *Service) Export(res *Result, in *Inputs) ([]string, error) {
	if res.Schedule == nil {
		return nil, scheduler.ErrNotSolved
	}
	dir := s.cfg.Output.Dir
	var files []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		if err := export.WriteFile(path, fn); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		files = append(files, path)
		return nil
	}
	for _, format := range s.cfg.Output.Formats {
		var err error
		switch format {
		case "json":
			err = write("schedule.json", func(w io.Writer) error { return export.WriteJSON(w, res.Schedule) })
		case "csv":
			err = write("schedule.csv", func(w io.Writer) error { return export.WriteCSV(w, res.Schedule) })
			if err == nil {
				err = write("schedule_daily.csv", func(w io.Writer) error {
					return export.WriteDailyCSV(w, res.Schedule, in.Converter, in.Location)
				})
			}
			if err == nil {
				err = write("summary.csv", func(w io.Writer) error { return export.WriteSummaryCSV(w, res.Schedule) })
			}
		case "lp":
			if res.Model != nil {
				err = write("model.lp", func(w io.Writer) error { return mip.WriteLP(w, res.Model) })
			}
		}
		if err != nil {
			return files, err
		}
	}
	s.log.Infof("exported %d file(s) to %s", len(files), dir)
	return files, nil
}

// Publish sends every assignment to the publisher and returns how many were
// delivered. Failures are counted and the first one is returned.
func (s *Service) Publish(ctx context.Context, res *Result, in *Inputs) (int, error) {
	if s.publisher == nil {
		return 0, errors.New("publishing is not configured")
	}
	if res.Schedule == nil {
		return 0, scheduler.ErrNotSolved
	}
	rec, _ := s.sink.(coremetrics.PublishRecorder)
	sent := 0
	var firstErr error
	for _, a := range coremqtt.Assignments(res.RunID, res.Schedule, in.Roster, in.Converter, in.Location) {
		err := s.publisher.Publish(ctx, a)
		if err == nil {
			sent++
		} else if firstErr == nil {
			firstErr = err
		}
		if rec != nil {
			_ = rec.RecordPublish(coremetrics.PublishEvent{
				RunID: res.RunID, Division: a.Division, Kind: a.Kind, Success: err == nil, Time: time.Now(),
			})
		}
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
	}
	if firstErr != nil {
		s.log.Errorf("published %d assignment(s), first failure: %v", sent, firstErr)
	} else {
		s.log.Infof("published %d assignment(s)", sent)
	}
	return sent, firstErr
}

// Run generates, exports and optionally publishes, then writes the metrics
// textfile when configured.
func (s *Service) Run(ctx context.Context, in *Inputs, publish bool) (*Result, error) {
	defer s.writeTextfile()
	res, err := s.Generate(ctx, in)
	if err != nil {
		return res, err
	}
	if _, err := s.Export(res, in); err != nil {
		return res, err
	}
	if publish {
		if _, err := s.Publish(ctx, res, in); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *Service) writeTextfile() {
	if s.cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(s.cfg.Metrics.Textfile, nil); err != nil {
		s.log.Warnf("write metrics textfile: %v", err)
	}
}

// Close releases the store, the MQTT connection and the progress bus.
func (s *Service) Close() error {
	s.progress.Close()
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
