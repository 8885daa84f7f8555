package leads

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FilterAll is the sentinel that disables the product and status filters.
const FilterAll = "All"

// SortOrder selects the first name ordering of the lead table.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Toggle returns the opposite order.
func (o SortOrder) Toggle() SortOrder {
	if o == SortDesc {
		return SortAsc
	}
	return SortDesc
}

// Criteria holds the lead table filters. Empty fields do not filter.
type Criteria struct {
	Product string
	Status  string
	Search  string
	Order   SortOrder
	// Locale drives the first name collation. Zero means language.Und.
	Locale language.Tag
}

// Filter applies product, status and search filters and sorts the result by
// first name. The filters are AND-composed, so their order does not matter.
// The input slice is never modified.
func Filter(leads []models.Lead, criteria Criteria) []models.Lead {
	term := strings.ToLower(strings.TrimSpace(criteria.Search))

	result := make([]models.Lead, 0, len(leads))
	for _, lead := range leads {
		if criteria.Product != "" && criteria.Product != FilterAll && lead.Product != criteria.Product {
			continue
		}
		if criteria.Status != "" && criteria.Status != FilterAll && lead.LeadStatus != criteria.Status {
			continue
		}
		if term != "" && !matchesSearch(lead, term) {
			continue
		}
		result = append(result, lead)
	}

	SortByFirstName(result, criteria.Order, criteria.Locale)
	return result
}

// matchesSearch reports whether any searchable field contains the lowercased term.
func matchesSearch(lead models.Lead, term string) bool {
	fields := [...]string{
		lead.FirstName, lead.LastName, lead.Company, lead.Email, lead.Phone, lead.City, lead.LeadStatus,
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// SortByFirstName sorts leads in place by first name using locale collation.
// Descending order is the exact reverse of the stable ascending order.
func SortByFirstName(leads []models.Lead, order SortOrder, locale language.Tag) {
	col := collate.New(locale)
	sort.SliceStable(leads, func(i, j int) bool {
		return col.CompareString(leads[i].FirstName, leads[j].FirstName) < 0
	})
	if order == SortDesc {
		slices.Reverse(leads)
	}
}

// StatusFilter is one of the filter bar buttons. Only one is active at a time.
type StatusFilter string

const (
	FilterToday       StatusFilter = "today"
	FilterEverything  StatusFilter = "all"
	FilterUnscheduled StatusFilter = "unscheduled"
	FilterPending     StatusFilter = StatusFilter(models.StatusPending)
	FilterMiss        StatusFilter = StatusFilter(models.StatusMiss)
	FilterClosed      StatusFilter = StatusFilter(models.StatusClosed)
	FilterDeals       StatusFilter = StatusFilter(models.StatusDeals)
	FilterVoid        StatusFilter = StatusFilter(models.StatusVoid)
	FilterCustomer    StatusFilter = StatusFilter(models.StatusCustomer)
)

// StatusFilters lists the filter bar buttons in display order.
func StatusFilters() []StatusFilter {
	return []StatusFilter{
		FilterToday, FilterEverything, FilterUnscheduled, FilterPending,
		FilterMiss, FilterClosed, FilterDeals, FilterVoid, FilterCustomer,
	}
}

// ParseStatusFilter maps a button value back to a filter.
func ParseStatusFilter(value string) (StatusFilter, bool) {
	for _, f := range StatusFilters() {
		if string(f) == value {
			return f, true
		}
	}
	return "", false
}

// Matches reports whether the lead passes the filter.
func (f StatusFilter) Matches(lead models.Lead, now time.Time) bool {
	switch f {
	case FilterToday:
		return IsCreatedToday(lead, now)
	case FilterEverything:
		return true
	case FilterUnscheduled:
		return IsUnscheduled(lead)
	default:
		return lead.LeadStatus == string(f)
	}
}

// ApplyStatusFilter returns the leads matching the selected filter.
func ApplyStatusFilter(leads []models.Lead, filter StatusFilter, now time.Time) []models.Lead {
	result := make([]models.Lead, 0, len(leads))
	for _, lead := range leads {
		if filter.Matches(lead, now) {
			result = append(result, lead)
		}
	}
	return result
}
