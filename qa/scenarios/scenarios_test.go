package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mishra-lab/scheduler/core/roster"
	"github.com/mishra-lab/scheduler/core/scheduler"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("testdata/*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenarios found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString(":"); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestCheckScheduleFindsViolations(t *testing.T) {
	r, err := roster.New(roster.File{
		"A": {Divisions: map[string]roster.Bounds{"ctu": {Min: 1, Max: 1}}},
		"B": {Divisions: map[string]roster.Bounds{"ctu": {Min: 1, Max: 1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := &scheduler.Schedule{
		NumBlocks: 2,
		BlockSize: 1,
		Divisions: map[string][]string{"ctu": {"A", "A"}},
		Weekends:  []string{"A", ""},
	}
	cfg := scheduler.Config{Constraints: []scheduler.Constraint{scheduler.Coverage, scheduler.MinMax, scheduler.ConsecutiveBlocks}}
	got := CheckSchedule(s, r, cfg)
	// A over max, B under min, A consecutive, weekend 2 uncovered.
	if len(got) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(got), got)
	}
}
