package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mishra-lab/scheduler/config"
	"github.com/mishra-lab/scheduler/core/calendar"
	coremetrics "github.com/mishra-lab/scheduler/core/metrics"
	"github.com/mishra-lab/scheduler/core/mip"
	coremqtt "github.com/mishra-lab/scheduler/core/mqtt"
	"github.com/mishra-lab/scheduler/core/roster"
	"github.com/mishra-lab/scheduler/core/runlog"
	"github.com/mishra-lab/scheduler/core/scheduler"
	"github.com/mishra-lab/scheduler/infra/mqtt"
)

type recordingSink struct {
	mu        sync.Mutex
	runs      []coremetrics.RunResult
	conflicts []coremetrics.ConflictEvent
	publishes []coremetrics.PublishEvent
}

func (s *recordingSink) RecordRun(r coremetrics.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, r)
	return nil
}

func (s *recordingSink) RecordConflicts(evs []coremetrics.ConflictEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = append(s.conflicts, evs...)
	return nil
}

func (s *recordingSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishes = append(s.publishes, ev)
	return nil
}

func testConfig(t *testing.T, attempts int) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Scheduler: scheduler.Config{
			NumBlocks:   4,
			BlockSize:   2,
			Constraints: []scheduler.Constraint{scheduler.Coverage, scheduler.MinMax},
			Attempts:    attempts,
		},
		Input:   config.InputConfig{Year: 2024},
		Output:  config.OutputConfig{Dir: t.TempDir(), Formats: []string{"json", "csv", "lp"}},
		History: config.HistoryConfig{Disabled: true},
		Solver:  config.SolverConfig{Backend: "bnb"},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func testInputs(t *testing.T, min, max int) *Inputs {
	t.Helper()
	r, err := roster.New(roster.File{
		"alice": {Email: "alice@example.org", Divisions: map[string]roster.Bounds{"ctu": {Min: min, Max: max}}},
		"bob":   {Email: "bob@example.org", Divisions: map[string]roster.Bounds{"ctu": {Min: min, Max: max}}},
	})
	require.NoError(t, err)
	return &Inputs{
		Roster:       r,
		Availability: roster.AvailabilityFile{"alice": {BlocksOff: []int{1}}},
		LongWeekends: []int{2},
		HolidayMap:   map[string]int{"2024-01-15": 2},
		Converter:    calendar.Converter{Year: 2024, NumBlocks: 4, BlockSize: 2},
		Location:     time.UTC,
	}
}

func newTestService(t *testing.T, cfg *config.Config, opts ...Option) (*Service, *recordingSink, runlog.Store) {
	t.Helper()
	sink := &recordingSink{}
	store, err := runlog.NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	require.NoError(t, err)
	opts = append([]Option{WithSink(sink), WithStore(store)}, opts...)
	svc, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = svc.Close()
		_ = store.Close()
	})
	return svc, sink, store
}

func TestGenerateRecordsRun(t *testing.T) {
	cfg := testConfig(t, 3)
	svc, sink, store := newTestService(t, cfg)
	in := testInputs(t, 1, 3)

	res, err := svc.Generate(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, res.Schedule)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, in.HolidayMap, res.Schedule.HolidayMap)
	assert.NotContains(t, res.Schedule.BlocksOf("alice", "ctu"), 1)
	assert.True(t, res.Schedule.IsLongWeekend(2))
	assert.Less(t, res.Attempt, 3)

	require.Len(t, sink.runs, 1)
	assert.Equal(t, coremetrics.OutcomeOptimal, sink.runs[0].Outcome)
	assert.Equal(t, "bnb", sink.runs[0].Backend)
	assert.Equal(t, 2, sink.runs[0].Clinicians)
	assert.Len(t, sink.conflicts, 2)

	rec, err := store.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "optimal", rec.Outcome)
	assert.Equal(t, []string{"coverage", "min-max"}, rec.Constraints)
	assert.Equal(t, int64(res.Attempt), rec.Seed)
	require.NotNil(t, rec.Schedule)
	assert.Equal(t, res.Schedule.Objective, rec.Schedule.Objective)
}

func TestGenerateInfeasible(t *testing.T) {
	cfg := testConfig(t, 1)
	svc, sink, store := newTestService(t, cfg)

	res, err := svc.Generate(context.Background(), testInputs(t, 4, 4))
	require.ErrorIs(t, err, scheduler.ErrInfeasible)
	assert.Nil(t, res.Schedule)

	require.Len(t, sink.runs, 1)
	assert.Equal(t, coremetrics.OutcomeInfeasible, sink.runs[0].Outcome)
	assert.Empty(t, sink.conflicts)

	rec, err := store.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "infeasible", rec.Outcome)
	assert.NotEmpty(t, rec.Error)
	assert.Nil(t, rec.Schedule)
}

type failingSolver struct{}

func (failingSolver) Solve(context.Context, *mip.Model) (*mip.Solution, error) {
	return &mip.Solution{Status: mip.StatusError}, mip.ErrSolverUnavailable
}

func TestGenerateSolverFailure(t *testing.T) {
	cfg := testConfig(t, 2)
	svc, sink, _ := newTestService(t, cfg, WithSolverFactory(func(mip.ProgressFunc) (mip.Solver, error) {
		return failingSolver{}, nil
	}))
	_, err := svc.Generate(context.Background(), testInputs(t, 1, 3))
	require.Error(t, err)
	assert.True(t, scheduler.IsSolverUnavailable(err))
	assert.Equal(t, coremetrics.OutcomeSolverError, sink.runs[0].Outcome)

	svc, _, _ = newTestService(t, cfg, WithSolverFactory(func(mip.ProgressFunc) (mip.Solver, error) {
		return nil, errors.New("no backend")
	}))
	_, err = svc.Generate(context.Background(), testInputs(t, 1, 3))
	var se *scheduler.SolverError
	assert.ErrorAs(t, err, &se)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, coremetrics.OutcomeOptimal, Outcome(nil))
	assert.Equal(t, coremetrics.OutcomeInfeasible, Outcome(scheduler.ErrInfeasible))
	assert.Equal(t, coremetrics.OutcomeConfigError, Outcome(&scheduler.ConfigError{Field: "num_blocks"}))
	assert.Equal(t, coremetrics.OutcomeSolverError, Outcome(errors.New("boom")))
}

func TestExportWritesConfiguredFormats(t *testing.T) {
	cfg := testConfig(t, 1)
	svc, _, _ := newTestService(t, cfg)
	in := testInputs(t, 1, 3)
	res, err := svc.Generate(context.Background(), in)
	require.NoError(t, err)

	files, err := svc.Export(res, in)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Equal(t, []string{"schedule.json", "schedule.csv", "schedule_daily.csv", "summary.csv", "model.lp"}, names)

	_, err = svc.Export(&Result{}, in)
	assert.ErrorIs(t, err, scheduler.ErrNotSolved)
}

func TestPublish(t *testing.T) {
	cfg := testConfig(t, 1)
	pub := mqtt.NewMockPublisher()
	svc, sink, _ := newTestService(t, cfg, WithPublisher(pub))
	in := testInputs(t, 1, 3)
	res, err := svc.Generate(context.Background(), in)
	require.NoError(t, err)

	sent, err := svc.Publish(context.Background(), res, in)
	require.NoError(t, err)
	assert.Equal(t, 12, sent)
	msgs := pub.Published()
	require.Len(t, msgs, 12)
	assert.Equal(t, coremqtt.KindBlock, msgs[0].Kind)
	assert.Equal(t, res.RunID, msgs[0].RunID)
	assert.Contains(t, []string{"alice@example.org", "bob@example.org"}, msgs[0].Email)
	assert.Len(t, sink.publishes, 12)

	pub.FailDivisions["ctu"] = true
	sent, err = svc.Publish(context.Background(), res, in)
	assert.Error(t, err)
	assert.Equal(t, 8, sent)
}

func TestPublishWithoutPublisher(t *testing.T) {
	svc, _, _ := newTestService(t, testConfig(t, 1))
	_, err := svc.Publish(context.Background(), &Result{}, testInputs(t, 1, 3))
	assert.Error(t, err)
}

func TestRunGeneratesAndExports(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Output.Formats = []string{"json"}
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "scheduler.prom")
	pub := mqtt.NewMockPublisher()
	svc, _, _ := newTestService(t, cfg, WithPublisher(pub))

	_, err := svc.Run(context.Background(), testInputs(t, 1, 3), true)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "schedule.json"))
	assert.FileExists(t, cfg.Metrics.Textfile)
	assert.Len(t, pub.Published(), 12)
}

func TestNewBuildsHistoryStore(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.History = config.HistoryConfig{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "runs.jsonl")}
	svc, err := New(cfg, WithSink(coremetrics.NopSink{}))
	require.NoError(t, err)
	require.NotNil(t, svc.Store())
	res, err := svc.Generate(context.Background(), testInputs(t, 1, 3))
	require.NoError(t, err)
	_, err = svc.Store().Get(context.Background(), res.RunID)
	assert.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestMergeAvailability(t *testing.T) {
	got := MergeAvailability(
		roster.AvailabilityFile{"a": {BlocksOff: []int{3, 1}}},
		roster.AvailabilityFile{"a": {BlocksOff: []int{1, 2}, WeekendsOff: []int{4}}, "b": {WeekendsOff: []int{1}}},
	)
	assert.Equal(t, []int{1, 2, 3}, got["a"].BlocksOff)
	assert.Equal(t, []int{4}, got["a"].WeekendsOff)
	assert.Equal(t, []int{1}, got["b"].WeekendsOff)
}

func TestLoadInputs(t *testing.T) {
	dir := t.TempDir()
	rosterPath := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(rosterPath, []byte(`
alice:
  divisions: {ctu: {min: 1, max: 3}}
bob:
  divisions: {ctu: {min: 1, max: 3}}
`), 0o600))
	avPath := filepath.Join(dir, "availability.yaml")
	require.NoError(t, os.WriteFile(avPath, []byte("bob:\n  blocks_off: [3]\n"), 0o600))
	calPath := filepath.Join(dir, "calendar.yaml")
	require.NoError(t, os.WriteFile(calPath, []byte(`
year: 2024
time_off:
  - {clinician: alice, start: 2024-01-08, end: 2024-01-13}
holidays:
  - {name: Family Day, date: 2024-02-19}
`), 0o600))

	cfg := testConfig(t, 1)
	cfg.Scheduler.NumBlocks = 26
	cfg.Input.Roster = rosterPath
	cfg.Input.Availability = avPath
	cfg.Input.Calendar = calPath

	in, err := LoadInputs(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, in.Roster.Clinicians, 2)
	assert.Equal(t, []int{1}, in.Availability["alice"].BlocksOff)
	assert.Equal(t, []int{3}, in.Availability["bob"].BlocksOff)
	assert.Equal(t, []int{7}, in.LongWeekends)
	assert.Equal(t, map[string]int{"2024-02-19": 7}, in.HolidayMap)
	assert.Equal(t, time.UTC, in.Location)

	cfg.Input.Roster = filepath.Join(dir, "missing.yaml")
	_, err = LoadInputs(cfg, nil)
	assert.Error(t, err)
}
