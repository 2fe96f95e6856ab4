package scenarios

import (
	"fmt"
	"slices"

	"github.com/mishra-lab/scheduler/core/roster"
	"github.com/mishra-lab/scheduler/core/scheduler"
)

// CheckSchedule returns a description of every enabled constraint the
// schedule violates.
func CheckSchedule(s *scheduler.Schedule, r *roster.Roster, cfg scheduler.Config) []string {
	cfg.SetDefaults()
	enabled := func(c scheduler.Constraint) bool { return slices.Contains(cfg.Constraints, c) }
	var out []string
	for _, d := range r.Divisions {
		for b := 1; b <= s.NumBlocks; b++ {
			if s.BlockOwner(d.Name, b) == "" {
				out = append(out, fmt.Sprintf("division %s block %d uncovered", d.Name, b))
			}
		}
		if enabled(scheduler.MinMax) {
			for _, c := range d.Clinicians {
				n, bounds := len(s.BlocksOf(c.Name, d.Name)), d.Bounds[c.Name]
				if n < bounds.Min || n > bounds.Max {
					out = append(out, fmt.Sprintf("%s has %d %s blocks, bounds %d-%d", c.Name, n, d.Name, bounds.Min, bounds.Max))
				}
			}
		}
	}
	for w := 1; w <= s.NumWeekends(); w++ {
		if s.WeekendOwner(w) == "" {
			out = append(out, fmt.Sprintf("weekend %d uncovered", w))
		}
	}
	if enabled(scheduler.ConsecutiveWeekends) {
		for w := 1; w < s.NumWeekends(); w++ {
			if s.WeekendOwner(w) == s.WeekendOwner(w+1) {
				out = append(out, fmt.Sprintf("%s works weekends %d and %d", s.WeekendOwner(w), w, w+1))
			}
		}
	}
	if enabled(scheduler.ConsecutiveBlocks) {
		for _, c := range r.Clinicians {
			for b := 1; b < s.NumBlocks; b++ {
				if works(s, r, c.Name, b) && works(s, r, c.Name, b+1) {
					out = append(out, fmt.Sprintf("%s works blocks %d and %d", c.Name, b, b+1))
				}
			}
		}
	}
	if enabled(scheduler.BalancedWeekends) {
		share := float64(s.NumWeekends()) / float64(len(r.Clinicians))
		for _, c := range r.Clinicians {
			if n := float64(len(s.WeekendsOf(c.Name))); n < share-1 || n > share+1 {
				out = append(out, fmt.Sprintf("%s has %.0f weekends, share %.2f", c.Name, n, share))
			}
		}
	}
	return out
}

func works(s *scheduler.Schedule, r *roster.Roster, name string, block int) bool {
	for _, d := range r.Divisions {
		if s.BlockOwner(d.Name, block) == name {
			return true
		}
	}
	return false
}
