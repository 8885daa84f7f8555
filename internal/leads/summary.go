// Package leads derives dashboard counts and filtered views from a lead collection.
// Every function here is pure: nothing is stored, and "now" is always passed in,
// so results only depend on the arguments.
package leads

import (
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/models"
)

// Counts holds the per-salesperson summary columns.
// A lead may contribute to several columns at once.
type Counts struct {
	Today       int // Leads created on the current calendar day
	All         int // Every matched lead
	Missed      int // Status Miss
	Unscheduled int // Status or category Unscheduled
	Closed      int // Status Closed
	Void        int // Status Void
}

// Summary is one row of the salesperson summary table.
type Summary struct {
	Salesperson models.Salesperson
	Counts
}

// Counters holds the top-line dashboard cards.
type Counters struct {
	Pending int
	Closed  int
	Open    int
	Today   int
}

// Window is an inclusive creation date range. The zero value matches everything.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow normalizes from to local midnight and to to 23:59:59.999 of its day.
// Either bound may be zero to leave that side open.
func NewWindow(from, to time.Time) Window {
	var w Window
	if !from.IsZero() {
		w.From = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	}
	if !to.IsZero() {
		w.To = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(999*time.Millisecond), to.Location())
	}
	return w
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// IsZero reports whether the window is unbounded.
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// MatchesSalesperson reports whether the lead is linked to the salesperson.
// Upstream data links leads by id (createdBy) or by username (salesperson,
// testerSalesman); any match counts. The two username checks are a read-time
// fallback for records written before links were normalized to ids.
func MatchesSalesperson(lead models.Lead, sp models.Salesperson) bool {
	if sp.ID != "" && lead.CreatedBy == sp.ID {
		return true
	}
	name := sp.Name()
	if name == "" {
		return false
	}
	return lead.Salesperson == name || lead.TesterSalesman == name
}

// IsCreatedToday reports whether the lead was created on the same local
// calendar day as now. The day is taken in now's location.
func IsCreatedToday(lead models.Lead, now time.Time) bool {
	if lead.CreatedAt.IsZero() {
		return false
	}
	return SameDay(lead.CreatedAt.In(now.Location()), now)
}

// IsUnscheduled reports whether the lead is marked unscheduled by status or by category.
func IsUnscheduled(lead models.Lead) bool {
	return lead.LeadStatus == models.StatusUnscheduled || lead.Category == models.CategoryUnscheduled
}

// SameDay reports whether a and b fall on the same year, month and day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Summarize builds one summary row per salesperson. Leads outside the window
// are ignored; a zero window keeps every lead.
func Summarize(leads []models.Lead, salespersons []models.Salesperson, window Window, now time.Time) []Summary {
	summaries := make([]Summary, 0, len(salespersons))
	for _, sp := range salespersons {
		summary := Summary{Salesperson: sp}
		for _, lead := range leads {
			if !MatchesSalesperson(lead, sp) {
				continue
			}
			if !window.IsZero() && !window.Contains(lead.CreatedAt.In(now.Location())) {
				continue
			}
			summary.add(lead, now)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func (s *Summary) add(lead models.Lead, now time.Time) {
	s.All++
	if IsCreatedToday(lead, now) {
		s.Today++
	}
	if IsUnscheduled(lead) {
		s.Unscheduled++
	}
	switch lead.LeadStatus {
	case models.StatusMiss:
		s.Missed++
	case models.StatusClosed:
		s.Closed++
	case models.StatusVoid:
		s.Void++
	}
}

// Totals sums each column across the summaries.
func Totals(summaries []Summary) Counts {
	var total Counts
	for _, s := range summaries {
		total.Today += s.Today
		total.All += s.All
		total.Missed += s.Missed
		total.Unscheduled += s.Unscheduled
		total.Closed += s.Closed
		total.Void += s.Void
	}
	return total
}

// Count computes the dashboard cards over the whole collection.
func Count(leads []models.Lead, now time.Time) Counters {
	var c Counters
	for _, lead := range leads {
		switch lead.LeadStatus {
		case models.StatusPending:
			c.Pending++
		case models.StatusClosed:
			c.Closed++
		case models.StatusOpen:
			c.Open++
		}
		if IsCreatedToday(lead, now) {
			c.Today++
		}
	}
	return c
}
