package config

import (
	"fmt"
	"time"
)

// InputConfig locates the roster and time-off inputs.
type InputConfig struct {
	Roster string `json:"roster"`
	// Availability is an optional name to blocks_off/weekends_off file.
	Availability string `json:"availability"`
	// Calendar is an optional dated time-off and holiday feed.
	Calendar string `json:"calendar"`
	// Year is the iso year of the schedule; zero selects the next year.
	Year     int    `json:"year"`
	Timezone string `json:"timezone"`
}

func (c *InputConfig) SetDefaults() {
	if c.Roster == "" {
		c.Roster = "roster.yaml"
	}
	if c.Year == 0 {
		c.Year = time.Now().Year() + 1
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

func (c InputConfig) Validate() error {
	if c.Year < 1900 {
		return fmt.Errorf("year %d out of range", c.Year)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c InputConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
