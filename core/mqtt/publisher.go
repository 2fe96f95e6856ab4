// Package mqtt defines the messages and publisher contract used to announce a
// generated schedule to downstream calendars.
package mqtt

import (
	"context"
	"time"

	"github.com/mishra-lab/scheduler/core/calendar"
	"github.com/mishra-lab/scheduler/core/roster"
	"github.com/mishra-lab/scheduler/core/scheduler"
)

const (
	KindBlock   = "block"
	KindWeekend = "weekend"
	// WeekendDivision is the pseudo division weekend assignments are published under.
	WeekendDivision = "weekend"
)

// Assignment is one block or weekend covered by a clinician.
type Assignment struct {
	RunID       string    `json:"run_id"`
	Kind        string    `json:"kind"`
	Division    string    `json:"division"`
	Index       int       `json:"index"`
	Clinician   string    `json:"clinician"`
	Email       string    `json:"email,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	LongWeekend bool      `json:"long_weekend,omitempty"`
}

// Publisher delivers assignments.
type Publisher interface {
	Publish(ctx context.Context, a Assignment) error
}

// Assignments expands a schedule into one message per division block and per
// weekend, dated with conv. Emails are looked up in r when it is not nil.
func Assignments(runID string, s *scheduler.Schedule, r *roster.Roster, conv calendar.Converter, loc *time.Location) []Assignment {
	email := func(name string) string {
		if r == nil {
			return ""
		}
		if c, ok := r.Clinician(name); ok {
			return c.Email
		}
		return ""
	}
	var out []Assignment
	for _, div := range s.DivisionNames() {
		for b := 1; b <= s.NumBlocks; b++ {
			name := s.BlockOwner(div, b)
			if name == "" {
				continue
			}
			start, end := conv.BlockWindow(b, loc)
			out = append(out, Assignment{
				RunID: runID, Kind: KindBlock, Division: div, Index: b,
				Clinician: name, Email: email(name), Start: start, End: end,
			})
		}
	}
	for w := 1; w <= s.NumWeekends(); w++ {
		name := s.WeekendOwner(w)
		if name == "" {
			continue
		}
		start, end := conv.WeekendWindow(w, loc)
		out = append(out, Assignment{
			RunID: runID, Kind: KindWeekend, Division: WeekendDivision, Index: w,
			Clinician: name, Email: email(name), Start: start, End: end,
			LongWeekend: s.IsLongWeekend(w),
		})
	}
	return out
}
