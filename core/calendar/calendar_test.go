package calendar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailability(t *testing.T) {
	conv := Converter{Year: 2024, NumBlocks: 26, BlockSize: 2}
	av, err := conv.Availability([]TimeOff{
		{Clinician: "alice", Start: NewDate(2024, time.January, 8), End: NewDate(2024, time.January, 15)},
		{Clinician: "bob", Start: NewDate(2024, time.March, 1), End: NewDate(2024, time.March, 4)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, av["alice"].BlocksOff)
	assert.Equal(t, []int{2}, av["alice"].WeekendsOff)
	assert.Equal(t, []int{5}, av["bob"].BlocksOff)
	assert.Equal(t, []int{9}, av["bob"].WeekendsOff)
}

func TestAvailabilityDropsOutOfRange(t *testing.T) {
	conv := Converter{Year: 2024, NumBlocks: 4, BlockSize: 2}
	av, err := conv.Availability([]TimeOff{
		{Clinician: "bob", Start: NewDate(2024, time.March, 1), End: NewDate(2024, time.March, 4)},
		{Clinician: "bob", Start: NewDate(2023, time.December, 27), End: NewDate(2023, time.December, 29)},
	})
	require.NoError(t, err)
	assert.Empty(t, av["bob"].BlocksOff)
	assert.Empty(t, av["bob"].WeekendsOff)
}

func TestAvailabilityRejectsBadRequests(t *testing.T) {
	conv := Converter{Year: 2024, NumBlocks: 4, BlockSize: 2}
	_, err := conv.Availability([]TimeOff{{Start: NewDate(2024, 1, 1), End: NewDate(2024, 1, 2)}})
	assert.Error(t, err)
	_, err = conv.Availability([]TimeOff{{Clinician: "a", Start: NewDate(2024, 1, 5), End: NewDate(2024, 1, 2)}})
	assert.Error(t, err)
	_, err = Converter{Year: 2024}.Availability(nil)
	assert.Error(t, err)
}

func TestLongWeekends(t *testing.T) {
	conv := Converter{Year: 2024, NumBlocks: 26, BlockSize: 2}
	weeks, byDate, err := conv.LongWeekends([]Holiday{
		{Name: "Family Day", Date: NewDate(2024, time.February, 19)},
		{Name: "Good Friday", Date: NewDate(2024, time.March, 29)},
		{Name: "Christmas", Date: NewDate(2024, time.December, 25)},
		{Name: "New Year", Date: NewDate(2024, time.January, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 13}, weeks)
	assert.Equal(t, map[string]int{"2024-02-19": 7, "2024-03-29": 13}, byDate)
}

func TestWindows(t *testing.T) {
	conv := Converter{Year: 2024, NumBlocks: 26, BlockSize: 2}
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), conv.WeekStart(1, nil))

	start, end := conv.BlockWindow(1, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 12, 17, 0, 0, 0, time.UTC), end)

	start, end = conv.WeekendWindow(1, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 5, 17, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC), end)

	next := Converter{Year: 2025, NumBlocks: 26, BlockSize: 2}
	assert.Equal(t, time.Date(2024, 12, 30, 8, 0, 0, 0, time.UTC), next.WeekStart(1, nil))
}

func TestDecodeFeed(t *testing.T) {
	yml := `
year: 2024
time_off:
  - {clinician: alice, start: 2024-01-08, end: 2024-01-15}
holidays:
  - {name: Family Day, date: 2024-02-19}
`
	feed, err := DecodeFeed(strings.NewReader(yml), "yaml")
	require.NoError(t, err)
	assert.Equal(t, 2024, feed.Year)
	require.Len(t, feed.TimeOff, 1)
	assert.Equal(t, NewDate(2024, time.January, 8), feed.TimeOff[0].Start)
	assert.Equal(t, []string{"alice"}, Names(feed.TimeOff))

	js := `{"year": 2024, "holidays": [{"name": "Good Friday", "date": "2024-03-29"}]}`
	feed, err = DecodeFeed(strings.NewReader(js), "json")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, feed.Holidays[0].Date.Weekday())

	_, err = DecodeFeed(strings.NewReader(`{"holidays": [{"date": "29/03/2024"}]}`), "json")
	assert.Error(t, err)
}

func TestLoadFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"year": 2024, "time_off": [{"clinician": "a", "start": "2024-01-01", "end": "2024-01-02"}]}`), 0o600))
	feed, err := LoadFeed(path)
	require.NoError(t, err)
	assert.Len(t, feed.TimeOff, 1)
	_, err = LoadFeed(filepath.Join(t.TempDir(), "calendar.ini"))
	assert.Error(t, err)
}
