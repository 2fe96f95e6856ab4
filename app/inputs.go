package app

import (
	"fmt"
	"time"

	"github.com/mishra-lab/scheduler/config"
	"github.com/mishra-lab/scheduler/core/calendar"
	"github.com/mishra-lab/scheduler/core/logger"
	"github.com/mishra-lab/scheduler/core/roster"
)

// Inputs is everything a run needs besides the configuration.
type Inputs struct {
	Roster       *roster.Roster
	Availability roster.AvailabilityFile
	LongWeekends []int
	// HolidayMap maps holiday dates to the long weekend they create.
	HolidayMap map[string]int
	Converter  calendar.Converter
	Location   *time.Location
}

// LoadInputs reads the roster, the optional availability file and the
// optional calendar feed named by cfg.Input. Time off from both sources is
// merged.
func LoadInputs(cfg *config.Config, log logger.Logger) (*Inputs, error) {
	log = logger.OrNop(log)
	f, err := roster.Load(cfg.Input.Roster)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	r, err := roster.New(f)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Input.Location()
	if err != nil {
		return nil, err
	}
	in := &Inputs{
		Roster:       r,
		Availability: roster.AvailabilityFile{},
		Converter: calendar.Converter{
			Year:      cfg.Input.Year,
			NumBlocks: cfg.Scheduler.NumBlocks,
			BlockSize: cfg.Scheduler.BlockSize,
			Logger:    log,
		},
		Location: loc,
	}
	if cfg.Input.Availability != "" {
		av, err := roster.LoadAvailability(cfg.Input.Availability)
		if err != nil {
			return nil, fmt.Errorf("availability: %w", err)
		}
		in.Availability = MergeAvailability(in.Availability, av)
	}
	if cfg.Input.Calendar != "" {
		feed, err := calendar.LoadFeed(cfg.Input.Calendar)
		if err != nil {
			return nil, fmt.Errorf("calendar: %w", err)
		}
		if feed.Year != 0 && feed.Year != cfg.Input.Year {
			log.Warnf("calendar feed is for %d, scheduling %d", feed.Year, cfg.Input.Year)
		}
		av, err := in.Converter.Availability(feed.TimeOff)
		if err != nil {
			return nil, err
		}
		in.Availability = MergeAvailability(in.Availability, av)
		in.LongWeekends, in.HolidayMap, err = in.Converter.LongWeekends(feed.Holidays)
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}

// MergeAvailability returns the union of a and b.
func MergeAvailability(a, b roster.AvailabilityFile) roster.AvailabilityFile {
	out := make(roster.AvailabilityFile, len(a)+len(b))
	for _, src := range []roster.AvailabilityFile{a, b} {
		for name, av := range src {
			cur := out[name]
			cur.BlocksOff = roster.NewIntSet(append(cur.BlocksOff, av.BlocksOff...)...).Sorted()
			cur.WeekendsOff = roster.NewIntSet(append(cur.WeekendsOff, av.WeekendsOff...)...).Sorted()
			out[name] = cur
		}
	}
	return out
}
