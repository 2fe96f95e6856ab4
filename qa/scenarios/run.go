package scenarios

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mishra-lab/scheduler/app"
	"github.com/mishra-lab/scheduler/config"
	"github.com/mishra-lab/scheduler/core/calendar"
	"github.com/mishra-lab/scheduler/core/roster"
	"github.com/mishra-lab/scheduler/infra/metrics"
)

// RunScenario generates the scenario's schedule through the application
// service and checks the outcome and the enabled constraints.
func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	r, err := roster.New(sc.Roster)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	cfg := &config.Config{
		Scheduler: sc.Config(),
		Input:     config.InputConfig{Year: 2024},
		Output:    config.OutputConfig{Dir: t.TempDir()},
		History:   config.HistoryConfig{Path: filepath.Join(t.TempDir(), "runs.jsonl")},
	}
	cfg.SetDefaults()

	svc, err := app.New(cfg, app.WithSink(sink))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer svc.Close()

	in := &app.Inputs{
		Roster:       r,
		Availability: sc.Availability,
		LongWeekends: sc.LongWeekends,
		Converter:    calendar.Converter{Year: 2024, NumBlocks: cfg.Scheduler.NumBlocks, BlockSize: cfg.Scheduler.BlockSize},
		Location:     time.UTC,
	}
	res, err := svc.Generate(context.Background(), in)
	outcome := string(app.Outcome(err))
	if outcome != sc.Expected.Outcome {
		t.Fatalf("scenario %s expected outcome %s, got %s (%v)", sc.Name, sc.Expected.Outcome, outcome, err)
	}
	if n, gerr := testutil.GatherAndCount(reg, "scheduler_runs_total"); gerr != nil || n != 1 {
		t.Errorf("scenario %s: %d run series recorded (%v)", sc.Name, n, gerr)
	}
	if err != nil {
		return
	}
	for _, v := range CheckSchedule(res.Schedule, r, cfg.Scheduler) {
		t.Errorf("scenario %s: %s", sc.Name, v)
	}
	if sc.Expected.NoConflicts {
		for _, c := range res.Schedule.Conflicts {
			if c.BlocksOffAssigned+c.WeekendsOffAssigned > 0 {
				t.Errorf("scenario %s: %s scheduled on %d requested day(s) off", sc.Name, c.Clinician, c.BlocksOffAssigned+c.WeekendsOffAssigned)
			}
		}
	}
	if want := sc.Expected.Objective; want != nil && abs(res.Schedule.Objective-*want) > 1e-6 {
		t.Errorf("scenario %s: objective %.6f, want %.6f", sc.Name, res.Schedule.Objective, *want)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
