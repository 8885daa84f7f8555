package calendar_test

import (
	"testing"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/calendar"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"00:05", "12am"},
		{"0:30", "12am"},
		{"9:00", "9am"},
		{"12:00", "12pm"},
		{"13:30", "1pm"},
		{"23:59", "11pm"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			label, err := calendar.SlotLabel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, label)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()
		for _, input := range []string{"", "noon", "24:00", "12:61", "aa:10"} {
			_, err := calendar.SlotLabel(input)
			require.ErrorIs(t, err, calendar.ErrInvalidTime, input)
		}
	})
}

func TestHourSlots(t *testing.T) {
	t.Parallel()

	slots := calendar.HourSlots()

	require.Len(t, slots, 24)
	assert.Equal(t, "12am", slots[0])
	assert.Equal(t, "12pm", slots[12])
	assert.Equal(t, "11pm", slots[23])
}

func TestMonthKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2025-3-10", calendar.MonthKey(time.Date(2025, time.March, 10, 22, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-12-1", calendar.MonthKey(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBuckets(t *testing.T) {
	t.Parallel()
	loc := time.UTC

	dateOnly := models.Lead{ID: "1", LeadStartDate: "2025-03-10"}
	withTime := models.Lead{ID: "2", LeadStartDate: "2025-03-10T00:00:00.000Z", LeadStartTime: "13:30"}
	noDate := models.Lead{ID: "3", LeadStartTime: "09:00"}
	badTime := models.Lead{ID: "4", LeadStartDate: "2025-03-11", LeadStartTime: "later"}

	collection := []models.Lead{dateOnly, withTime, noDate, badTime}

	t.Run("month view", func(t *testing.T) {
		t.Parallel()
		buckets := calendar.MonthBuckets(collection, loc)

		assert.Len(t, buckets, 2)
		assert.Len(t, buckets["2025-3-10"], 2)
		assert.Len(t, buckets["2025-3-11"], 1)
	})

	t.Run("week view", func(t *testing.T) {
		t.Parallel()
		buckets := calendar.WeekBuckets(collection, loc)

		require.Len(t, buckets, 1)
		require.Len(t, buckets["2025-3-101pm"], 1)
		assert.Equal(t, "2", buckets["2025-3-101pm"][0].ID)
	})

	t.Run("date without time is in month bucket only", func(t *testing.T) {
		t.Parallel()
		key, ok := calendar.LeadMonthKey(dateOnly, loc)
		require.True(t, ok)
		assert.Equal(t, "2025-3-10", key)

		_, ok = calendar.LeadWeekKey(dateOnly, loc)
		assert.False(t, ok)
	})

	t.Run("date only is a local day", func(t *testing.T) {
		t.Parallel()
		west := time.FixedZone("UTC-5", -5*3600)
		key, ok := calendar.LeadMonthKey(dateOnly, west)
		require.True(t, ok)
		assert.Equal(t, "2025-3-10", key)
	})
}

func TestMonthGrid(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, loc)

	cells := calendar.MonthGrid(2025, time.March, now, loc)

	require.Len(t, cells, calendar.GridCells)
	// March 1st 2025 is a Saturday, so the grid opens on Sunday February 23rd.
	assert.Equal(t, time.Date(2025, time.February, 23, 0, 0, 0, 0, loc), cells[0].Date)
	assert.Equal(t, time.Sunday, cells[0].Date.Weekday())
	assert.False(t, cells[0].InCurrentMonth)
	assert.True(t, cells[6].InCurrentMonth)
	assert.Equal(t, 1, cells[6].Date.Day())
	assert.Equal(t, time.Date(2025, time.April, 5, 0, 0, 0, 0, loc), cells[41].Date)
	assert.False(t, cells[41].InCurrentMonth)

	todayCount := 0
	for _, cell := range cells {
		if cell.IsToday {
			todayCount++
			assert.Equal(t, "2025-3-10", cell.Key())
		}
	}
	assert.Equal(t, 1, todayCount)
}

func TestMonthGridStartsOnFirstWhenSunday(t *testing.T) {
	t.Parallel()

	// June 1st 2025 is a Sunday.
	cells := calendar.MonthGrid(2025, time.June, time.Time{}, time.UTC)

	assert.Equal(t, 1, cells[0].Date.Day())
	assert.True(t, cells[0].InCurrentMonth)
}

func TestWeekDays(t *testing.T) {
	t.Parallel()

	days := calendar.WeekDays(time.Date(2025, time.March, 12, 18, 0, 0, 0, time.UTC))

	require.Len(t, days, 7)
	assert.Equal(t, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), days[6])
}

func TestParseStartDate(t *testing.T) {
	t.Parallel()

	_, err := calendar.ParseStartDate("", time.UTC)
	require.Error(t, err)

	_, err = calendar.ParseStartDate("10/03/2025", time.UTC)
	require.ErrorContains(t, err, "failed to parse date")

	got, err := calendar.ParseStartDate("2025-03-10T23:30:00Z", time.FixedZone("plus2", 2*3600))
	require.NoError(t, err)
	assert.Equal(t, 11, got.Day())
}
