package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/calendar"
	"github.com/UnknownOlympus/leaddesk/internal/gateway"
	"github.com/UnknownOlympus/leaddesk/internal/i18n"
	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func newPhrases(t *testing.T, lang string) phrases {
	t.Helper()
	localizer, err := i18n.NewLocalizer()
	require.NoError(t, err)
	return phrases{localizer: localizer, lang: lang}
}

func numberedLeads(n int) []models.Lead {
	items := make([]models.Lead, 0, n)
	for i := range n {
		items = append(items, models.Lead{ID: strconv.Itoa(i + 1)})
	}
	return items
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	t.Run("middle page", func(t *testing.T) {
		t.Parallel()
		page := paginate(numberedLeads(17), 1)

		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 3, page.Pages)
		assert.Equal(t, 17, page.Total)
		require.Len(t, page.Items, leadsPerPage)
		assert.Equal(t, "9", page.Items[0].ID)
	})

	t.Run("page past the end is clamped to the last page", func(t *testing.T) {
		t.Parallel()
		page := paginate(numberedLeads(17), 5)

		assert.Equal(t, 2, page.Page)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "17", page.Items[0].ID)
	})

	t.Run("negative page is clamped to the first page", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0, paginate(numberedLeads(3), -2).Page)
	})

	t.Run("empty collection has one empty page", func(t *testing.T) {
		t.Parallel()
		page := paginate(nil, 0)

		assert.Equal(t, 1, page.Pages)
		assert.Empty(t, page.Items)
	})
}

func TestFilterLeads(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
	all := []models.Lead{
		{ID: "1", FirstName: "Zed", LeadStatus: models.StatusOpen, Product: "Solar", CreatedAt: now},
		{ID: "2", FirstName: "Amy", LeadStatus: models.StatusClosed, Product: "Solar"},
		{ID: "3", FirstName: "Bob", LeadStatus: models.StatusOpen, Product: "Wind", CreatedAt: now},
	}
	idsOf := func(items []models.Lead) []string {
		out := make([]string, 0, len(items))
		for _, lead := range items {
			out = append(out, lead.ID)
		}
		return out
	}

	t.Run("empty status shows everything sorted by first name", func(t *testing.T) {
		t.Parallel()
		result := filterLeads(all, ListView{Order: leads.SortAsc}, now, language.English)

		assert.Equal(t, []string{"2", "3", "1"}, idsOf(result))
	})

	t.Run("status filter runs before product filter", func(t *testing.T) {
		t.Parallel()
		view := ListView{Status: leads.FilterToday, Product: "Solar", Order: leads.SortAsc}

		assert.Equal(t, []string{"1"}, idsOf(filterLeads(all, view, now, language.English)))
	})

	t.Run("descending order", func(t *testing.T) {
		t.Parallel()
		view := ListView{Status: leads.FilterEverything, Order: leads.SortDesc}

		assert.Equal(t, []string{"1", "3", "2"}, idsOf(filterLeads(all, view, now, language.English)))
	})
}

func TestLeadListMarkup(t *testing.T) {
	t.Parallel()

	p := newPhrases(t, "en")
	view := ListView{Status: leads.FilterClosed, Order: leads.SortAsc}
	markup := leadListMarkup(p, paginate(numberedLeads(10), 0), view)

	var selected []string
	var pageButtons []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			if strings.HasPrefix(btn.Text, "• ") {
				selected = append(selected, btn.Text)
			}
			if btn.Unique == btnPage.Unique {
				pageButtons = append(pageButtons, btn.Data)
			}
		}
	}

	assert.Equal(t, []string{"• Closed"}, selected)
	assert.Equal(t, []string{"1"}, pageButtons, "first page links forward only")
}

func TestLeadCardMarkup(t *testing.T) {
	t.Parallel()

	p := newPhrases(t, "en")
	lead := models.Lead{ID: "42", LeadStatus: models.StatusPending}

	collect := func(isAdmin bool) map[string][]string {
		found := make(map[string][]string)
		for _, row := range leadCardMarkup(p, lead, isAdmin).InlineKeyboard {
			for _, btn := range row {
				found[btn.Unique] = append(found[btn.Unique], btn.Data)
			}
		}
		return found
	}

	t.Run("current status is not offered", func(t *testing.T) {
		t.Parallel()
		statuses := collect(false)[btnLeadStatus.Unique]

		assert.Len(t, statuses, len(cardStatuses)-1)
		assert.NotContains(t, statuses, "42|"+models.StatusPending)
		assert.Contains(t, statuses, "42|"+models.StatusClosed)
	})

	t.Run("delete is admin only", func(t *testing.T) {
		t.Parallel()
		assert.NotContains(t, collect(false), btnLeadDelete.Unique)
		assert.Equal(t, []string{"42"}, collect(true)[btnLeadDelete.Unique])
	})

	t.Run("tags are editable by everyone", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"42"}, collect(false)[btnLeadTags.Unique])
	})
}

func TestTagPickerMarkup(t *testing.T) {
	t.Parallel()

	p := newPhrases(t, "en")
	lead := models.Lead{ID: "42", Tags: []string{"Hot"}}
	tags := []models.Tag{
		{ID: "t1", Name: "hot", Source: models.TagSourceCRM},
		{ID: "t2", Name: "vip", Source: models.TagSourceCRM},
		{ID: "s1", Name: "webinar", Source: models.TagSourceSystemeIO},
		{Name: "unsaved", Source: models.TagSourceCRM},
	}

	var labels, toggles, back []string
	for _, row := range tagPickerMarkup(p, lead, tags).InlineKeyboard {
		for _, btn := range row {
			switch btn.Unique {
			case btnLeadTagToggle.Unique:
				labels = append(labels, btn.Text)
				toggles = append(toggles, btn.Data)
			case btnLeadDetails.Unique:
				back = append(back, btn.Data)
			}
		}
	}

	assert.Equal(t, []string{"✅ #hot", "#vip"}, labels)
	assert.Equal(t, []string{"42|t1", "42|t2"}, toggles)
	assert.Equal(t, []string{"42"}, back)
}

func TestToggleTag(t *testing.T) {
	t.Parallel()

	lead := models.Lead{ID: "42", Tags: []string{"vip"}}

	added, ok := toggleTag(lead, models.Tag{ID: "t1", Name: "hot"})
	assert.True(t, ok)
	assert.Equal(t, []string{"vip", "hot"}, added.Tags)

	removed, ok := toggleTag(lead, models.Tag{ID: "t2", Name: "VIP"})
	assert.False(t, ok)
	assert.Empty(t, removed.Tags)
	assert.Equal(t, []string{"vip"}, lead.Tags)
}

func TestTagChips(t *testing.T) {
	t.Parallel()

	idx := leads.NewTagIndex([]models.Tag{
		{ID: "t1", Name: "hot", Source: models.TagSourceCRM},
		{ID: "t2", Name: "webinar", Source: models.TagSourceCRM},
		{ID: "s1", Name: "webinar", Source: models.TagSourceSystemeIO},
		{ID: "s2", Name: "funnel", Source: models.TagSourceSystemeIO},
	})
	lead := models.Lead{Tags: []string{"hot", "webinar", "funnel", "ghost"}}
	customer := []models.Tag{
		{ID: "w1", Name: "hot", Source: models.TagSourceWhatsApp},
		{ID: "w2", Name: "replied", Source: models.TagSourceWhatsApp},
	}

	chips := tagChips(idx, cardTags(idx, lead, customer))

	assert.Equal(t, "#hot #webinar (crm) #funnel (systemeio) #ghost #replied (whatsapp)", chips)
}

func TestWhatsAppCustomerID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "380501234567", whatsAppCustomerID(models.Lead{Phone: "+38 (050) 123-45-67"}))
	assert.Empty(t, whatsAppCustomerID(models.Lead{Phone: "n/a"}))
}

func TestErrorText(t *testing.T) {
	t.Parallel()

	p := newPhrases(t, "en")
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "missing lead",
			err:      fmt.Errorf("lookup: %w", ErrLeadNotFound),
			expected: "This lead no longer exists.",
		},
		{
			name:     "validation",
			err:      &gateway.ValidationError{Field: "id", Message: "must not be empty"},
			expected: "⚠️ The CRM rejected the request: invalid id: must not be empty",
		},
		{
			name:     "transport",
			err:      fmt.Errorf("fetch: %w", gateway.ErrTransport),
			expected: "⚠️ The CRM is unreachable right now. Please try again later.",
		},
		{
			name:     "api error",
			err:      &gateway.APIError{Status: 400, Message: "Lead is locked"},
			expected: "⚠️ CRM error: Lead is locked",
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			expected: "Something went wrong. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, errorText(p, tt.err))
		})
	}
}

func TestParseLeadIDs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a1", "b2", "c3"}, parseLeadIDs("a1, b2;c3\n a1\tb2\r\n"))
	assert.Empty(t, parseLeadIDs(" ,;\n"))
}

func TestBatchDeleteText(t *testing.T) {
	t.Parallel()

	p := newPhrases(t, "en")

	t.Run("all deleted", func(t *testing.T) {
		t.Parallel()
		text := batchDeleteText(p, 2, gateway.BatchResult{Succeeded: []string{"a", "b"}})

		assert.Equal(t, "🗑 Deleted <b>2</b> of <b>2</b> leads. Failed: <b>0</b>.", text)
	})

	t.Run("failed ids are listed sorted", func(t *testing.T) {
		t.Parallel()
		result := gateway.BatchResult{
			Succeeded: []string{"b"},
			Failed:    map[string]error{"z": errors.New("x"), "a<": errors.New("y")},
		}
		text := batchDeleteText(p, 3, result)

		assert.Contains(t, text, "Failed: <b>2</b>")
		assert.True(t, strings.HasSuffix(text, "Failed IDs: <code>a&lt;</code>, <code>z</code>"), text)
	})
}

func TestParseCalendarArgs(t *testing.T) {
	t.Parallel()

	t.Run("month", func(t *testing.T) {
		t.Parallel()
		year, month, err := parseMonthArgs([]string{"2025", "12"})
		require.NoError(t, err)
		assert.Equal(t, 2025, year)
		assert.Equal(t, time.December, month)

		_, _, err = parseMonthArgs([]string{"2025", "13"})
		require.Error(t, err)
		_, _, err = parseMonthArgs([]string{"2025"})
		require.Error(t, err)
	})

	t.Run("day", func(t *testing.T) {
		t.Parallel()
		day, err := parseDayArgs([]string{"2024", "2", "29"}, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), day)

		_, err = parseDayArgs([]string{"2025", "2", "30"}, time.UTC)
		require.Error(t, err, "day does not exist")
		_, err = parseDayArgs([]string{"2025", "2", "x"}, time.UTC)
		require.Error(t, err)
	})

	t.Run("date args round trip", func(t *testing.T) {
		t.Parallel()
		date := time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC)
		parsed, err := parseDayArgs(dateArgs(date), time.UTC)
		require.NoError(t, err)
		assert.True(t, parsed.Equal(date))
	})
}

func TestMonthMarkup(t *testing.T) {
	t.Parallel()

	p := newPhrases(t, "en")
	now := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	cells := calendar.MonthGrid(2025, time.March, now, time.UTC)
	buckets := map[string][]models.Lead{
		"2025-3-14": {{ID: "1"}, {ID: "2"}},
		"2025-3-3":  {{ID: "3"}},
	}

	markup := monthMarkup(p, 2025, time.March, cells, buckets)
	rows := markup.InlineKeyboard

	require.Len(t, rows, 1+calendar.GridCells/7+1)
	assert.Equal(t, "Su", rows[0][0].Text)

	var labels []string
	for _, row := range rows[1 : len(rows)-1] {
		require.Len(t, row, 7)
		for _, btn := range row {
			labels = append(labels, btn.Text)
		}
	}
	assert.Len(t, labels, calendar.GridCells)
	assert.Contains(t, labels, "[14•2]")
	assert.Contains(t, labels, "3•1")
	assert.Equal(t, "·", labels[0], "1 March 2025 is a Saturday")

	nav := rows[len(rows)-1]
	require.Len(t, nav, 3)
	assert.Equal(t, "2025|2", nav[0].Data)
	assert.Equal(t, "2025|4", nav[2].Data)
}

func TestSummaryWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.February, 10, 15, 0, 0, 0, time.UTC)

	window, ok := summaryWindow(periodMonth, now)
	require.True(t, ok)
	assert.True(t, window.Contains(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, window.Contains(time.Date(2025, time.February, 28, 23, 0, 0, 0, time.UTC)))
	assert.False(t, window.Contains(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))

	window, ok = summaryWindow(periodToday, now)
	require.True(t, ok)
	assert.False(t, window.Contains(now.AddDate(0, 0, -1)))

	window, ok = summaryWindow(periodAll, now)
	require.True(t, ok)
	assert.True(t, window.IsZero())

	_, ok = summaryWindow("year", now)
	assert.False(t, ok)
}

func TestSummaryText(t *testing.T) {
	t.Parallel()

	p := newPhrases(t, "en")
	summaries := []leads.Summary{
		{Salesperson: models.Salesperson{Username: "ann"}, Counts: leads.Counts{All: 3, Closed: 1}},
	}
	totals := leads.Totals(summaries)

	text := summaryText(p, periodAll, summaries, &totals)
	assert.Contains(t, text, "All time")
	assert.Contains(t, text, "<pre>")
	assert.Contains(t, text, "ann")
	assert.Contains(t, text, "Total")

	assert.Contains(t, summaryText(p, periodMonth, nil, nil), "No salespersons to show.")
}

func TestSortBySchedule(t *testing.T) {
	t.Parallel()

	items := []models.Lead{
		{ID: "late", LeadStartTime: "14:00"},
		{ID: "none"},
		{ID: "early", LeadStartTime: "9:05"},
		{ID: "bad", LeadStartTime: "soon"},
	}
	sorted := sortBySchedule(items)

	got := make([]string, 0, len(sorted))
	for _, lead := range sorted {
		got = append(got, lead.ID)
	}
	assert.Equal(t, []string{"early", "late", "none", "bad"}, got)
	assert.Equal(t, "late", items[0].ID, "input is not modified")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
	assert.Equal(t, "Олек…", truncate("Олександр", 5))
}

func TestLeadName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ann Lee", leadName(models.Lead{ID: "1", FirstName: "Ann", LastName: "Lee"}))
	assert.Equal(t, "a@b.c", leadName(models.Lead{ID: "1", Email: "a@b.c"}))
	assert.Equal(t, "1", leadName(models.Lead{ID: "1"}))
}

func TestProductFromArg(t *testing.T) {
	t.Parallel()

	products := []string{"Solar", "Wind"}

	name, ok := productFromArg(products, "1")
	assert.True(t, ok)
	assert.Equal(t, "Wind", name)

	name, ok = productFromArg(products, productArgAll)
	assert.True(t, ok)
	assert.Empty(t, name)

	_, ok = productFromArg(products, "2")
	assert.False(t, ok)
	_, ok = productFromArg(products, "x")
	assert.False(t, ok)
}

func TestProductNames(t *testing.T) {
	t.Parallel()

	items := []models.ReferenceItem{{Name: "Solar"}, {Name: ""}, {Name: "Wind"}, {Name: "Solar"}}
	assert.Equal(t, []string{"Solar", "Wind"}, productNames(items))
}

func TestRoleFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, models.RoleAdmin, roleFor(models.Salesperson{Designation: " Admin "}))
	assert.Equal(t, models.RoleSalesperson, roleFor(models.Salesperson{Designation: "Sales Manager"}))
	assert.Equal(t, models.RoleSalesperson, roleFor(models.Salesperson{}))
}

func TestResolveButton(t *testing.T) {
	t.Parallel()

	localizer, err := i18n.NewLocalizer()
	require.NoError(t, err)
	registry := NewMenuRegistry()

	btn, ok := resolveButton(registry, localizer, candidateLanguages("uk"), "📋 Ліди")
	require.True(t, ok)
	assert.Equal(t, "leads", btn.Handler)

	btn, ok = resolveButton(registry, localizer, candidateLanguages("uk"), "📅 Calendar")
	require.True(t, ok, "english labels keep working after a language switch")
	assert.Equal(t, MenuCalendar, btn.SubMenu)

	_, ok = resolveButton(registry, localizer, candidateLanguages("en"), "hello")
	assert.False(t, ok)
}
