package scheduler

import (
	"sort"

	"github.com/samber/lo"
)

// Conflict counts how many requested days off a clinician was scheduled on.
type Conflict struct {
	Clinician           string `json:"clinician"`
	Blocks              int    `json:"blocks"`
	BlocksOff           int    `json:"blocks_off"`
	BlocksOffAssigned   int    `json:"blocks_off_assigned"`
	Weekends            int    `json:"weekends"`
	WeekendsOff         int    `json:"weekends_off"`
	WeekendsOffAssigned int    `json:"weekends_off_assigned"`
}

// Schedule is the extracted assignment of one optimal solve.
type Schedule struct {
	NumBlocks int `json:"num_blocks"`
	BlockSize int `json:"block_size"`
	// Divisions maps a division to its clinicians per week: every block
	// appears BlockSize times.
	Divisions map[string][]string `json:"divisions"`
	// Weekends lists the clinician covering each weekend, index week-1.
	Weekends     []string  `json:"weekends"`
	LongWeekends []int     `json:"long_weekends"`
	Objective    float64   `json:"objective"`
	Breakdown    Breakdown `json:"breakdown"`
	// Conflicts has one entry per clinician in name order.
	Conflicts []Conflict `json:"conflicts"`
	// HolidayMap maps holiday dates (YYYY-MM-DD) to their long weekend.
	HolidayMap map[string]int `json:"holiday_map,omitempty"`
}

// NumWeekends is NumBlocks * BlockSize.
func (s *Schedule) NumWeekends() int { return s.NumBlocks * s.BlockSize }

// DivisionNames returns the division names in sorted order.
func (s *Schedule) DivisionNames() []string {
	names := lo.Keys(s.Divisions)
	sort.Strings(names)
	return names
}

// BlockOwner returns the clinician covering block of division.
func (s *Schedule) BlockOwner(division string, block int) string {
	weeks := s.Divisions[division]
	i := (block - 1) * s.BlockSize
	if block < 1 || i >= len(weeks) {
		return ""
	}
	return weeks[i]
}

// WeekendOwner returns the clinician covering week.
func (s *Schedule) WeekendOwner(week int) string {
	if week < 1 || week > len(s.Weekends) {
		return ""
	}
	return s.Weekends[week-1]
}

// BlocksOf returns the blocks assigned to clinician in division.
func (s *Schedule) BlocksOf(clinician, division string) []int {
	var out []int
	for b := 1; b <= s.NumBlocks; b++ {
		if s.BlockOwner(division, b) == clinician {
			out = append(out, b)
		}
	}
	return out
}

// WeekendsOf returns the weeks whose weekend clinician covers.
func (s *Schedule) WeekendsOf(clinician string) []int {
	var out []int
	for i, name := range s.Weekends {
		if name == clinician {
			out = append(out, i+1)
		}
	}
	return out
}

// IsLongWeekend reports whether week is flagged as a long weekend.
func (s *Schedule) IsLongWeekend(week int) bool {
	return lo.Contains(s.LongWeekends, week)
}
