// Package calendar converts dated time-off requests and statutory holidays into
// the block and week numbers used by the scheduler, and back into dates for
// publishing.
package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/mishra-lab/scheduler/core/logger"
	"github.com/mishra-lab/scheduler/core/roster"
)

const (
	// WeekHours is the length of a weekday coverage week starting Monday 08:00.
	WeekHours = 105
	// WeekendHours is the length of a weekend starting Friday 17:00.
	WeekendHours = 63
)

// Date is a calendar day encoded as YYYY-MM-DD.
type Date struct{ time.Time }

const dateLayout = "2006-01-02"

func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(dateLayout, strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("calendar: date %q: %w", b, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Format(dateLayout)), nil
}

// UnmarshalJSON shadows time.Time's RFC 3339 decoding.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("calendar: date %s: %w", b, err)
	}
	return d.UnmarshalText([]byte(s))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// NewDate returns the date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// TimeOff is a request covering the days [Start, End).
type TimeOff struct {
	Clinician string `json:"clinician" yaml:"clinician"`
	Start     Date   `json:"start" yaml:"start"`
	End       Date   `json:"end" yaml:"end"`
}

// Holiday is a statutory holiday.
type Holiday struct {
	Name string `json:"name" yaml:"name"`
	Date Date   `json:"date" yaml:"date"`
}

// Feed is the calendar input file.
type Feed struct {
	Year     int       `json:"year" yaml:"year"`
	TimeOff  []TimeOff `json:"time_off" yaml:"time_off"`
	Holidays []Holiday `json:"holidays" yaml:"holidays"`
}

// LoadFeed reads a feed file in JSON or YAML.
func LoadFeed(path string) (Feed, error) {
	var feed Feed
	b, err := os.ReadFile(path)
	if err != nil {
		return feed, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &feed)
	case ".json":
		err = json.Unmarshal(b, &feed)
	default:
		return feed, fmt.Errorf("unsupported calendar format: %s", ext)
	}
	return feed, err
}

// DecodeFeed reads a feed in the given format.
func DecodeFeed(r io.Reader, format string) (Feed, error) {
	var feed Feed
	var err error
	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(&feed)
	case "json":
		err = json.NewDecoder(r).Decode(&feed)
	default:
		return feed, fmt.Errorf("unsupported format: %s", format)
	}
	return feed, err
}

// Converter maps dates onto the block and week grid of one scheduling year.
type Converter struct {
	Year      int
	NumBlocks int
	BlockSize int
	Logger    logger.Logger
}

// NumWeekends is NumBlocks * BlockSize.
func (c Converter) NumWeekends() int { return c.NumBlocks * c.BlockSize }

func (c Converter) validate() error {
	if c.Year <= 0 || c.NumBlocks <= 0 || c.BlockSize <= 0 {
		return errors.New("calendar: year, blocks and block size must be positive")
	}
	return nil
}

// Availability turns time-off requests into per-clinician block and weekend
// indices. A weekday contributes block ceil(isoWeek/BlockSize); a Saturday or
// Sunday contributes its iso week. Days outside the scheduling year or grid
// are dropped with a warning.
func (c Converter) Availability(requests []TimeOff) (roster.AvailabilityFile, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	log := logger.OrNop(c.Logger)
	blocks := make(map[string]roster.IntSet)
	weekends := make(map[string]roster.IntSet)
	for _, req := range requests {
		if req.Clinician == "" {
			return nil, errors.New("calendar: time-off request without clinician")
		}
		if !req.End.After(req.Start.Time) {
			return nil, fmt.Errorf("calendar: time-off for %s ends before it starts", req.Clinician)
		}
		if blocks[req.Clinician] == nil {
			blocks[req.Clinician] = roster.IntSet{}
			weekends[req.Clinician] = roster.IntSet{}
		}
		dropped := 0
		for d := req.Start.Time; d.Before(req.End.Time); d = d.AddDate(0, 0, 1) {
			year, week := d.ISOWeek()
			if year != c.Year {
				dropped++
				continue
			}
			switch d.Weekday() {
			case time.Saturday, time.Sunday:
				if week > c.NumWeekends() {
					dropped++
					continue
				}
				weekends[req.Clinician][week] = struct{}{}
			default:
				block := int(math.Ceil(float64(week) / float64(c.BlockSize)))
				if block > c.NumBlocks {
					dropped++
					continue
				}
				blocks[req.Clinician][block] = struct{}{}
			}
		}
		if dropped > 0 {
			log.Warnf("time-off for %s: %d day(s) outside the %d schedule ignored", req.Clinician, dropped, c.Year)
		}
	}
	out := make(roster.AvailabilityFile, len(blocks))
	for name := range blocks {
		out[name] = roster.Availability{
			BlocksOff:   blocks[name].Sorted(),
			WeekendsOff: weekends[name].Sorted(),
		}
	}
	return out, nil
}

// LongWeekends returns the sorted week numbers adjacent to a holiday and the
// holiday date (YYYY-MM-DD) to week map. A Monday holiday extends the weekend
// of the previous iso week, a Friday holiday the weekend of its own week.
// Holidays on other days do not create long weekends.
func (c Converter) LongWeekends(holidays []Holiday) ([]int, map[string]int, error) {
	if err := c.validate(); err != nil {
		return nil, nil, err
	}
	log := logger.OrNop(c.Logger)
	weeks := roster.IntSet{}
	byDate := make(map[string]int)
	for _, h := range holidays {
		year, week := h.Date.ISOWeek()
		switch h.Date.Weekday() {
		case time.Monday:
			week--
		case time.Friday:
		default:
			continue
		}
		if year != c.Year || week < 1 || week > c.NumWeekends() {
			log.Warnf("holiday %s on %s falls outside the schedule", h.Name, h.Date.Format(dateLayout))
			continue
		}
		weeks[week] = struct{}{}
		byDate[h.Date.Format(dateLayout)] = week
	}
	return weeks.Sorted(), byDate, nil
}

// WeekStart is Monday 08:00 of iso week in the converter's year.
func (c Converter) WeekStart(week int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	// January 4th is always in iso week 1.
	jan4 := time.Date(c.Year, time.January, 4, 8, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, 7*(week-1))
}

// BlockStart is the start of the first week of block.
func (c Converter) BlockStart(block int, loc *time.Location) time.Time {
	return c.WeekStart((block-1)*c.BlockSize+1, loc)
}

// BlockWindow is the coverage interval of block: BlockSize weeks from Monday
// 08:00, each week lasting WeekHours.
func (c Converter) BlockWindow(block int, loc *time.Location) (time.Time, time.Time) {
	start := c.BlockStart(block, loc)
	lastWeek := c.WeekStart(block*c.BlockSize, loc)
	return start, lastWeek.Add(WeekHours * time.Hour)
}

// WeekendWindow is Friday 17:00 of week for WeekendHours.
func (c Converter) WeekendWindow(week int, loc *time.Location) (time.Time, time.Time) {
	mon := c.WeekStart(week, loc)
	start := time.Date(mon.Year(), mon.Month(), mon.Day()+4, 17, 0, 0, 0, mon.Location())
	return start, start.Add(WeekendHours * time.Hour)
}

// Names returns the clinicians mentioned in requests, sorted.
func Names(requests []TimeOff) []string {
	names := lo.Uniq(lo.Map(requests, func(r TimeOff, _ int) string { return r.Clinician }))
	sort.Strings(names)
	return names
}
