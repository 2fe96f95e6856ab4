// Package export writes schedules as JSON and as spreadsheet friendly CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mishra-lab/scheduler/core/calendar"
	"github.com/mishra-lab/scheduler/core/scheduler"
)

// WriteJSON writes the schedule to w in indented JSON.
func WriteJSON(w io.Writer, s *scheduler.Schedule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WeekLabel is the week number, suffixed with * on long weekends.
func WeekLabel(s *scheduler.Schedule, week int) string {
	label := strconv.Itoa(week)
	if s.IsLongWeekend(week) {
		label += "*"
	}
	return label
}

// WriteCSV writes the yearly table: one row per week with the Week label, the
// clinician of every division and the weekend clinician.
func WriteCSV(w io.Writer, s *scheduler.Schedule) error {
	cw := csv.NewWriter(w)
	divs := s.DivisionNames()
	header := append([]string{"Week"}, divs...)
	if err := cw.Write(append(header, "Weekend")); err != nil {
		return err
	}
	for week := 1; week <= s.NumWeekends(); week++ {
		rec := []string{WeekLabel(s, week)}
		for _, d := range divs {
			rec = append(rec, at(s.Divisions[d], week))
		}
		rec = append(rec, at(s.Weekends, week))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDailyCSV writes one row per day of the schedule with its month, date
// and weekday. Weekdays carry the division clinicians, Saturdays and Sundays
// the weekend clinician.
func WriteDailyCSV(w io.Writer, s *scheduler.Schedule, conv calendar.Converter, loc *time.Location) error {
	cw := csv.NewWriter(w)
	divs := s.DivisionNames()
	header := append([]string{"Month", "Date", "Day"}, divs...)
	if err := cw.Write(append(header, "Weekend")); err != nil {
		return err
	}
	for week := 1; week <= s.NumWeekends(); week++ {
		monday := conv.WeekStart(week, loc)
		for day := 0; day < 7; day++ {
			d := monday.AddDate(0, 0, day)
			rec := []string{d.Format("Jan-2006"), d.Format("2006-01-02"), d.Format("Mon")}
			weekend := d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
			for _, div := range divs {
				name := ""
				if !weekend {
					name = at(s.Divisions[div], week)
				}
				rec = append(rec, name)
			}
			name := ""
			if weekend {
				name = at(s.Weekends, week)
			}
			if err := cw.Write(append(rec, name)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one row per clinician with their block and weekend
// counts and how many requested days off were scheduled anyway.
func WriteSummaryCSV(w io.Writer, s *scheduler.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Clinician", "Blocks", "BlocksOffAssigned", "Weekends", "LongWeekends", "WeekendsOffAssigned"}); err != nil {
		return err
	}
	for _, c := range s.Conflicts {
		long := 0
		for _, wk := range s.WeekendsOf(c.Clinician) {
			if s.IsLongWeekend(wk) {
				long++
			}
		}
		rec := []string{
			c.Clinician,
			strconv.Itoa(c.Blocks),
			strconv.Itoa(c.BlocksOffAssigned),
			strconv.Itoa(c.Weekends),
			strconv.Itoa(long),
			strconv.Itoa(c.WeekendsOffAssigned),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func at(names []string, week int) string {
	if week < 1 || week > len(names) {
		return ""
	}
	return names[week-1]
}

// WriteFile creates path and writes it with fn.
func WriteFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
