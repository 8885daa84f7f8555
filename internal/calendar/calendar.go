// Package calendar maps lead scheduling fields to month and week view cells.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/models"
)

const (
	// GridCells is the size of a month grid: 6 rows of 7 days.
	GridCells  = 42
	daysInWeek = 7
)

// ErrInvalidTime is returned when a clock value is not in H:MM form.
var ErrInvalidTime = errors.New("invalid time, expected H:MM")

// Cell is one day of the month grid.
type Cell struct {
	Date           time.Time // Local midnight of the day
	InCurrentMonth bool      // False for leading and trailing padding days
	IsToday        bool      // Day, month and year match now
}

// Key returns the bucket key of the cell.
func (c Cell) Key() string {
	return MonthKey(c.Date)
}

// MonthKey returns the month view bucket key "{year}-{month}-{day}" without padding.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// ParseStartDate parses a lead start date. Date-only values are taken as a
// local calendar day; timestamps are converted to loc.
func ParseStartDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date %q", value)
}

// ParseClock parses an H:MM 24-hour clock value.
func ParseClock(value string) (int, int, error) {
	hourPart, minutePart, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, 0, ErrInvalidTime
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, ErrInvalidTime
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidTime
	}
	return hour, minute, nil
}

// HourLabel formats a 24-hour value as a 12-hour slot label such as "12am" or "1pm".
func HourLabel(hour int) string {
	displayHour := hour
	switch {
	case hour == 0:
		displayHour = 12
	case hour > 12:
		displayHour = hour - 12
	}
	suffix := "pm"
	if hour < 12 {
		suffix = "am"
	}
	return strconv.Itoa(displayHour) + suffix
}

// SlotLabel returns the week view slot label for an H:MM start time.
func SlotLabel(startTime string) (string, error) {
	hour, _, err := ParseClock(startTime)
	if err != nil {
		return "", err
	}
	return HourLabel(hour), nil
}

// HourSlots returns the 24 slot labels of a day in order.
func HourSlots() []string {
	slots := make([]string, 0, 24)
	for hour := range 24 {
		slots = append(slots, HourLabel(hour))
	}
	return slots
}

// LeadMonthKey returns the month bucket of a lead. Leads without a
// start date have no bucket.
func LeadMonthKey(lead models.Lead, loc *time.Location) (string, bool) {
	if lead.LeadStartDate == "" {
		return "", false
	}
	day, err := ParseStartDate(lead.LeadStartDate, loc)
	if err != nil {
		return "", false
	}
	return MonthKey(day), true
}

// LeadWeekKey returns the week bucket of a lead: its month key followed by
// the slot label. Leads without a start time have no week bucket.
func LeadWeekKey(lead models.Lead, loc *time.Location) (string, bool) {
	if lead.LeadStartTime == "" {
		return "", false
	}
	dayKey, ok := LeadMonthKey(lead, loc)
	if !ok {
		return "", false
	}
	slot, err := SlotLabel(lead.LeadStartTime)
	if err != nil {
		return "", false
	}
	return WeekKey(dayKey, slot), true
}

// WeekKey joins a month key and a slot label.
func WeekKey(dayKey, slot string) string {
	return dayKey + slot
}

// MonthBuckets groups leads by month view key.
func MonthBuckets(leads []models.Lead, loc *time.Location) map[string][]models.Lead {
	buckets := make(map[string][]models.Lead)
	for _, lead := range leads {
		if key, ok := LeadMonthKey(lead, loc); ok {
			buckets[key] = append(buckets[key], lead)
		}
	}
	return buckets
}

// WeekBuckets groups leads by week view key.
func WeekBuckets(leads []models.Lead, loc *time.Location) map[string][]models.Lead {
	buckets := make(map[string][]models.Lead)
	for _, lead := range leads {
		if key, ok := LeadWeekKey(lead, loc); ok {
			buckets[key] = append(buckets[key], lead)
		}
	}
	return buckets
}

// MonthGrid returns the 42 cells shown for the month, starting on the Sunday
// on or before the 1st. Today is decided by now's day, month and year in loc.
func MonthGrid(year int, month time.Month, now time.Time, loc *time.Location) []Cell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	today := now.In(loc)

	cells := make([]Cell, 0, GridCells)
	for i := range GridCells {
		day := start.AddDate(0, 0, i)
		cells = append(cells, Cell{
			Date:           day,
			InCurrentMonth: day.Month() == month && day.Year() == year,
			IsToday:        sameDay(day, today),
		})
	}
	return cells
}

// WeekDays returns the seven days of the week containing anchor, Sunday first.
func WeekDays(anchor time.Time) []time.Time {
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, anchor.Location())
	start := day.AddDate(0, 0, -int(day.Weekday()))
	days := make([]time.Time, 0, daysInWeek)
	for i := range daysInWeek {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
