package bot

import (
	"cmp"
	"errors"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/UnknownOlympus/leaddesk/internal/calendar"
	"github.com/UnknownOlympus/leaddesk/internal/gateway"
	"github.com/UnknownOlympus/leaddesk/internal/i18n"
	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"golang.org/x/text/language"
	"gopkg.in/telebot.v4"
)

const (
	leadsPerPage      = 8
	filtersPerRow     = 3
	productsPerRow    = 2
	leadButtonRunes   = 40
	summaryNameRunes  = 12
	displayDateLayout = "02.01.2006"
)

// cardStatuses are offered as status changes on the lead card.
var cardStatuses = []string{
	models.StatusOpen, models.StatusPending, models.StatusMiss, models.StatusClosed,
	models.StatusDeals, models.StatusVoid, models.StatusCustomer,
}

// phrases binds the localizer to one language.
type phrases struct {
	localizer *i18n.Localizer
	lang      string
}

func (p phrases) get(key string) string {
	return p.localizer.Get(p.lang, key)
}

func (p phrases) with(key string, data map[string]interface{}) string {
	return p.localizer.GetWithData(p.lang, key, data)
}

// errorText maps a handler error to the short message shown to the user.
func errorText(p phrases, err error) string {
	switch {
	case errors.Is(err, ErrLeadNotFound):
		return p.get("error.lead_not_found")
	case gateway.IsValidationError(err):
		return p.with("error.validation", map[string]interface{}{"details": gateway.UserMessage(err)})
	case errors.Is(err, gateway.ErrTransport):
		return p.get("error.crm_unreachable")
	case gateway.IsAPIError(err):
		return p.with("error.crm", map[string]interface{}{"details": gateway.UserMessage(err)})
	default:
		return p.get("error.internal")
	}
}

// leadPage is one page of the filtered lead list.
type leadPage struct {
	Items []models.Lead
	Page  int
	Pages int
	Total int
}

// filterLeads applies the status filter and then the product, search and sort controls.
func filterLeads(all []models.Lead, view ListView, now time.Time, locale language.Tag) []models.Lead {
	status := view.Status
	if status == "" {
		status = leads.FilterEverything
	}
	return leads.Filter(leads.ApplyStatusFilter(all, status, now), leads.Criteria{
		Product: view.Product,
		Search:  view.Search,
		Order:   view.Order,
		Locale:  locale,
	})
}

// paginate cuts one page out of items, clamping page into range.
func paginate(items []models.Lead, page int) leadPage {
	pages := max(1, (len(items)+leadsPerPage-1)/leadsPerPage)
	page = max(0, min(page, pages-1))
	start := page * leadsPerPage
	end := min(start+leadsPerPage, len(items))
	return leadPage{Items: items[start:end], Page: page, Pages: pages, Total: len(items)}
}

func statusFilterKey(f leads.StatusFilter) string {
	return "filter." + strings.ToLower(string(f))
}

func statusKey(status string) string {
	return "status." + strings.ToLower(status)
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

func leadName(lead models.Lead) string {
	switch {
	case lead.FullName() != "":
		return lead.FullName()
	case lead.Email != "":
		return lead.Email
	default:
		return lead.ID
	}
}

func leadButtonText(lead models.Lead) string {
	text := leadName(lead)
	if lead.LeadStatus != "" {
		text += " · " + lead.LeadStatus
	}
	return truncate(text, leadButtonRunes)
}

func leadListText(p phrases, page leadPage, view ListView) string {
	product := view.Product
	if product == "" {
		product = p.get("filter.any_product")
	}

	var sb strings.Builder
	sb.WriteString(p.with("leads.title", map[string]interface{}{"count": page.Total}))
	sb.WriteString("\n")
	sb.WriteString(p.with("leads.filters", map[string]interface{}{
		"status":  p.get(statusFilterKey(view.Status)),
		"product": html.EscapeString(product),
	}))
	if view.Search != "" {
		sb.WriteString("\n")
		sb.WriteString(p.with("leads.search", map[string]interface{}{"term": html.EscapeString(view.Search)}))
	}
	if page.Total == 0 {
		sb.WriteString("\n\n")
		sb.WriteString(p.get("leads.empty"))
	}
	return sb.String()
}

func leadListMarkup(p phrases, page leadPage, view ListView) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, leadsPerPage+6)

	// The filter bar acts as a radio group: the selected filter is marked.
	var row telebot.Row
	for _, f := range leads.StatusFilters() {
		label := p.get(statusFilterKey(f))
		if f == view.Status {
			label = "• " + label
		}
		row = append(row, menu.Data(label, btnStatusFilter.Unique, string(f)))
		if len(row) == filtersPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	for _, lead := range page.Items {
		rows = append(rows, menu.Row(menu.Data(leadButtonText(lead), btnLeadDetails.Unique, lead.ID)))
	}

	if page.Pages > 1 {
		var nav telebot.Row
		if page.Page > 0 {
			nav = append(nav, menu.Data("«", btnPage.Unique, strconv.Itoa(page.Page-1)))
		}
		nav = append(nav, menu.Data(fmt.Sprintf("%d/%d", page.Page+1, page.Pages), btnNoop.Unique))
		if page.Page < page.Pages-1 {
			nav = append(nav, menu.Data("»", btnPage.Unique, strconv.Itoa(page.Page+1)))
		}
		rows = append(rows, nav)
	}

	sortLabel := p.get("leads.sort_asc")
	if view.Order == leads.SortDesc {
		sortLabel = p.get("leads.sort_desc")
	}
	rows = append(rows,
		menu.Row(
			menu.Data(p.get("leads.product_filter"), btnProductPicker.Unique),
			menu.Data(sortLabel, btnSortToggle.Unique),
		),
		menu.Row(
			menu.Data(p.get("leads.reset"), btnResetFilters.Unique),
			menu.Data(p.get("leads.refresh"), btnRefresh.Unique),
		),
	)

	menu.Inline(rows...)
	return menu
}

// productNames returns the distinct, non-empty product names in reference order.
func productNames(items []models.ReferenceItem) []string {
	seen := make(map[string]struct{}, len(items))
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Name == "" {
			continue
		}
		if _, ok := seen[item.Name]; ok {
			continue
		}
		seen[item.Name] = struct{}{}
		names = append(names, item.Name)
	}
	return names
}

func productPickerMarkup(p phrases, products []string, selected string) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}

	allLabel := p.get("filter.any_product")
	if selected == "" {
		allLabel = "• " + allLabel
	}
	rows := []telebot.Row{menu.Row(menu.Data(allLabel, btnProductFilter.Unique, productArgAll))}

	var row telebot.Row
	for idx, name := range products {
		label := truncate(name, leadButtonRunes/productsPerRow)
		if name == selected {
			label = "• " + label
		}
		row = append(row, menu.Data(label, btnProductFilter.Unique, strconv.Itoa(idx)))
		if len(row) == productsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, menu.Row(menu.Data(p.get("menu.back"), btnLeadBack.Unique)))
	menu.Inline(rows...)
	return menu
}

const productArgAll = "all"

// productFromArg maps a picker button back to a product name. The empty name clears the filter.
func productFromArg(products []string, arg string) (string, bool) {
	if arg == productArgAll {
		return "", true
	}
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 0 || idx >= len(products) {
		return "", false
	}
	return products[idx], true
}

func writeField(sb *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(sb, "<b>%s:</b> %s\n", label, html.EscapeString(value))
}

// scheduleText formats the lead start date and time for display.
func scheduleText(lead models.Lead, loc *time.Location) string {
	if lead.LeadStartDate == "" {
		return ""
	}
	text := lead.LeadStartDate
	if day, err := calendar.ParseStartDate(lead.LeadStartDate, loc); err == nil {
		text = day.Format(displayDateLayout)
	}
	if lead.LeadStartTime != "" {
		text += " " + lead.LeadStartTime
	}
	return text
}

// tagChips renders tags as hashtags. A chip names its source when the tag is
// read-only or another source uses the same name.
func tagChips(idx *leads.TagIndex, tags []models.Tag) string {
	chips := make([]string, 0, len(tags))
	for _, tag := range tags {
		chip := "#" + html.EscapeString(tag.Name)
		if !tag.Editable() || idx.Ambiguous(tag.Name) {
			chip += " (" + tag.SourceOrDefault() + ")"
		}
		chips = append(chips, chip)
	}
	return strings.Join(chips, " ")
}

// cardTags resolves the lead tags and appends the customer tags the lead does not carry yet.
func cardTags(idx *leads.TagIndex, lead models.Lead, customerTags []models.Tag) []models.Tag {
	tags := idx.ResolveAll(lead)
	for _, tag := range customerTags {
		if !leads.HasTag(lead, tag.Name) {
			tags = append(tags, tag)
		}
	}
	return tags
}

// whatsAppCustomerID is the lead phone reduced to digits, the way WhatsApp customers are keyed.
func whatsAppCustomerID(lead models.Lead) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, lead.Phone)
}

func leadCardText(p phrases, lead models.Lead, preview string, idx *leads.TagIndex, tags []models.Tag, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n\n", html.EscapeString(leadName(lead)))

	writeField(&sb, p.get("lead.company"), lead.Company)
	writeField(&sb, p.get("lead.email"), lead.Email)
	writeField(&sb, p.get("lead.phone"), lead.Phone)
	writeField(&sb, p.get("lead.city"), lead.City)
	writeField(&sb, p.get("lead.category"), lead.Category)
	writeField(&sb, p.get("lead.product"), lead.Product)
	writeField(&sb, p.get("lead.source"), lead.LeadSource)
	writeField(&sb, p.get("lead.status"), lead.LeadStatus)
	writeField(&sb, p.get("lead.salesperson"), lead.Salesperson)
	writeField(&sb, p.get("lead.schedule"), scheduleText(lead, loc))
	writeField(&sb, p.get("lead.reminder"), strings.TrimSpace(lead.ReminderDate+" "+lead.ReminderTime))
	if !lead.CreatedAt.IsZero() {
		writeField(&sb, p.get("lead.created"), lead.CreatedAt.In(loc).Format(displayDateLayout+" 15:04"))
	}

	if len(tags) > 0 {
		fmt.Fprintf(&sb, "<b>%s:</b> %s\n", p.get("lead.tags"), tagChips(idx, tags))
	}
	if preview != "" {
		fmt.Fprintf(&sb, "\n💬 <b>%s:</b>\n<i>%s</i>", p.get("lead.latest_comment"), html.EscapeString(preview))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func leadCardMarkup(p phrases, lead models.Lead, isAdmin bool) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	rows := []telebot.Row{
		menu.Row(
			menu.Data(p.get("lead.add_comment"), btnLeadComment.Unique, lead.ID),
			menu.Data(p.get("lead.export_comments"), btnLeadCommentsCSV.Unique, lead.ID),
		),
		menu.Row(menu.Data(p.get("lead.edit_tags"), btnLeadTags.Unique, lead.ID)),
	}

	var row telebot.Row
	for _, status := range cardStatuses {
		if status == lead.LeadStatus {
			continue
		}
		row = append(row, menu.Data(p.get(statusKey(status)), btnLeadStatus.Unique, lead.ID, status))
		if len(row) == filtersPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if isAdmin {
		rows = append(rows, menu.Row(menu.Data(p.get("lead.delete"), btnLeadDelete.Unique, lead.ID)))
	}
	rows = append(rows, menu.Row(menu.Data(p.get("lead.back_to_list"), btnLeadBack.Unique)))

	menu.Inline(rows...)
	return menu
}

// tagPickerMarkup offers every editable tag as a toggle. Tags the lead carries are checked.
func tagPickerMarkup(p phrases, lead models.Lead, tags []models.Tag) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(tags)/productsPerRow+2)

	var row telebot.Row
	for _, tag := range tags {
		if !tag.Editable() || tag.ID == "" {
			continue
		}
		label := "#" + tag.Name
		if leads.HasTag(lead, tag.Name) {
			label = "✅ " + label
		}
		row = append(row, menu.Data(truncate(label, leadButtonRunes), btnLeadTagToggle.Unique, lead.ID, tag.ID))
		if len(row) == productsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, menu.Row(menu.Data(p.get("lead.back_to_card"), btnLeadDetails.Unique, lead.ID)))

	menu.Inline(rows...)
	return menu
}

// toggleTag adds the tag to the lead, or removes it when already present.
func toggleTag(lead models.Lead, tag models.Tag) (models.Lead, bool) {
	if leads.HasTag(lead, tag.Name) {
		lead.Tags = leads.WithoutTag(lead, tag.Name)
		return lead, false
	}
	lead.Tags = leads.WithTag(lead, tag.Name)
	return lead, true
}

func deleteConfirmMarkup(p phrases, leadID string) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data(p.get("confirm.yes"), btnLeadDeleteConfirm.Unique, leadID),
		menu.Data(p.get("confirm.no"), btnLeadDetails.Unique, leadID),
	))
	return menu
}

func commentConfirmMarkup(p phrases, leadID string) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data(p.get("confirm.send"), btnCommentAccept.Unique, leadID),
		menu.Data(p.get("confirm.cancel"), btnCommentDecline.Unique, leadID),
	))
	return menu
}

func dashboardText(p phrases, counters leads.Counters, name string) string {
	return p.with("dashboard.text", map[string]interface{}{
		"name":    html.EscapeString(name),
		"pending": counters.Pending,
		"closed":  counters.Closed,
		"open":    counters.Open,
		"today":   counters.Today,
	})
}

// monthTitle renders "March 2025" style headers with a localized month name.
func monthTitle(p phrases, year int, month time.Month) string {
	return fmt.Sprintf("%s %d", p.get("month."+strconv.Itoa(int(month))), year)
}

func monthText(p phrases, year int, month time.Month, buckets map[string][]models.Lead) string {
	count := 0
	for key, items := range buckets {
		if strings.HasPrefix(key, fmt.Sprintf("%d-%d-", year, int(month))) {
			count += len(items)
		}
	}
	return fmt.Sprintf("<b>%s</b>\n%s", monthTitle(p, year, month),
		p.with("calendar.month_count", map[string]interface{}{"count": count}))
}

func dateArgs(t time.Time) []string {
	return []string{strconv.Itoa(t.Year()), strconv.Itoa(int(t.Month())), strconv.Itoa(t.Day())}
}

// monthMarkup renders the 42 cell grid. Days with leads carry their count,
// today is bracketed and padding days are inert.
func monthMarkup(
	p phrases,
	year int,
	month time.Month,
	cells []calendar.Cell,
	buckets map[string][]models.Lead,
) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, calendar.GridCells/7+2)

	header := make(telebot.Row, 0, 7)
	for day := range 7 {
		header = append(header, menu.Data(p.get("weekday."+strconv.Itoa(day)), btnNoop.Unique))
	}
	rows = append(rows, header)

	var week telebot.Row
	for _, cell := range cells {
		week = append(week, dayButton(menu, cell, len(buckets[cell.Key()])))
		if len(week) == 7 {
			rows = append(rows, week)
			week = nil
		}
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)
	rows = append(rows, menu.Row(
		menu.Data("« "+p.get("month."+strconv.Itoa(int(prev.Month()))), btnCalendarMonth.Unique,
			strconv.Itoa(prev.Year()), strconv.Itoa(int(prev.Month()))),
		menu.Data(p.get("menu.week_view"), btnCalendarWeek.Unique, dateArgs(first)...),
		menu.Data(p.get("month."+strconv.Itoa(int(next.Month())))+" »", btnCalendarMonth.Unique,
			strconv.Itoa(next.Year()), strconv.Itoa(int(next.Month()))),
	))

	menu.Inline(rows...)
	return menu
}

func dayButton(menu *telebot.ReplyMarkup, cell calendar.Cell, count int) telebot.Btn {
	if !cell.InCurrentMonth {
		return menu.Data("·", btnNoop.Unique)
	}
	label := strconv.Itoa(cell.Date.Day())
	if count > 0 {
		label += "•" + strconv.Itoa(count)
	}
	if cell.IsToday {
		label = "[" + label + "]"
	}
	return menu.Data(label, btnCalendarDay.Unique, dateArgs(cell.Date)...)
}

// sortBySchedule orders leads of one day by start time; leads without a time come last.
func sortBySchedule(items []models.Lead) []models.Lead {
	minutesOf := func(lead models.Lead) int {
		hour, minute, err := calendar.ParseClock(lead.LeadStartTime)
		if err != nil {
			return 24 * 60
		}
		return hour*60 + minute
	}
	result := slices.Clone(items)
	slices.SortStableFunc(result, func(a, b models.Lead) int {
		return cmp.Compare(minutesOf(a), minutesOf(b))
	})
	return result
}

func dayText(p phrases, day time.Time, items []models.Lead) string {
	title := fmt.Sprintf("<b>%s</b>", day.Format(displayDateLayout))
	if len(items) == 0 {
		return title + "\n" + p.get("calendar.empty_day")
	}
	return title + "\n" + p.with("calendar.day_count", map[string]interface{}{"count": len(items)})
}

func dayMarkup(p phrases, day time.Time, items []models.Lead) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(items)+1)
	for _, lead := range items {
		label := leadButtonText(lead)
		if lead.LeadStartTime != "" {
			label = truncate(lead.LeadStartTime+" "+label, leadButtonRunes)
		}
		rows = append(rows, menu.Row(menu.Data(label, btnLeadDetails.Unique, lead.ID)))
	}
	rows = append(rows, menu.Row(
		menu.Data("« "+monthTitle(p, day.Year(), day.Month()), btnCalendarMonth.Unique,
			strconv.Itoa(day.Year()), strconv.Itoa(int(day.Month()))),
		menu.Data(p.get("menu.week_view"), btnCalendarWeek.Unique, dateArgs(day)...),
	))
	menu.Inline(rows...)
	return menu
}

// weekText lists every day of the week with its leads grouped by hour slot.
func weekText(p phrases, days []time.Time, buckets map[string][]models.Lead) string {
	var sb strings.Builder
	if len(days) > 0 {
		fmt.Fprintf(&sb, "<b>%s – %s</b>\n", days[0].Format(displayDateLayout), days[len(days)-1].Format(displayDateLayout))
	}

	slots := calendar.HourSlots()
	for _, day := range days {
		fmt.Fprintf(&sb, "\n<b>%s %s</b>\n", p.get("weekday."+strconv.Itoa(int(day.Weekday()))), day.Format("02.01"))
		dayKey := calendar.MonthKey(day)
		empty := true
		for _, slot := range slots {
			items := buckets[calendar.WeekKey(dayKey, slot)]
			if len(items) == 0 {
				continue
			}
			empty = false
			names := make([]string, 0, len(items))
			for _, lead := range items {
				names = append(names, html.EscapeString(leadName(lead)))
			}
			fmt.Fprintf(&sb, "  %s: %s\n", slot, strings.Join(names, ", "))
		}
		if empty {
			fmt.Fprintf(&sb, "  %s\n", p.get("calendar.empty_day"))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func weekMarkup(p phrases, anchor time.Time) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	prev := anchor.AddDate(0, 0, -7)
	next := anchor.AddDate(0, 0, 7)
	menu.Inline(menu.Row(
		menu.Data("« "+p.get("calendar.prev_week"), btnCalendarWeek.Unique, dateArgs(prev)...),
		menu.Data(monthTitle(p, anchor.Year(), anchor.Month()), btnCalendarMonth.Unique,
			strconv.Itoa(anchor.Year()), strconv.Itoa(int(anchor.Month()))),
		menu.Data(p.get("calendar.next_week")+" »", btnCalendarWeek.Unique, dateArgs(next)...),
	))
	return menu
}

// parseMonthArgs parses "year|month" callback data.
func parseMonthArgs(args []string) (int, time.Month, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected year and month, got %d values", len(args))
	}
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q: %w", args[0], err)
	}
	month, err := strconv.Atoi(args[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q", args[1])
	}
	return year, time.Month(month), nil
}

// parseDayArgs parses "year|month|day" callback data into local midnight.
func parseDayArgs(args []string, loc *time.Location) (time.Time, error) {
	if len(args) != 3 {
		return time.Time{}, fmt.Errorf("expected year, month and day, got %d values", len(args))
	}
	year, month, err := parseMonthArgs(args[:2])
	if err != nil {
		return time.Time{}, err
	}
	day, err := strconv.Atoi(args[2])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid day %q", args[2])
	}
	date := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if date.Month() != month {
		return time.Time{}, fmt.Errorf("day %d does not exist in %s %d", day, month, year)
	}
	return date, nil
}

// Summary periods.
const (
	periodToday = "today"
	periodMonth = "month"
	periodAll   = "all"
)

// summaryWindow returns the creation window of a summary period.
func summaryWindow(period string, now time.Time) (leads.Window, bool) {
	switch period {
	case periodToday:
		return leads.NewWindow(now, now), true
	case periodMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return leads.NewWindow(first, first.AddDate(0, 1, -1)), true
	case periodAll:
		return leads.Window{}, true
	default:
		return leads.Window{}, false
	}
}

func summaryText(p phrases, period string, summaries []leads.Summary, totals *leads.Counts) string {
	var sb strings.Builder
	sb.WriteString(p.with("summary.title", map[string]interface{}{"period": p.get("period." + period)}))
	if len(summaries) == 0 {
		sb.WriteString("\n\n")
		sb.WriteString(p.get("summary.empty"))
		return sb.String()
	}

	sb.WriteString("\n<pre>")
	fmt.Fprintf(&sb, "%-*s %5s %5s %5s %5s %5s %5s\n", summaryNameRunes, p.get("summary.col.name"),
		p.get("summary.col.today"), p.get("summary.col.all"), p.get("summary.col.missed"),
		p.get("summary.col.unscheduled"), p.get("summary.col.closed"), p.get("summary.col.void"))
	for _, s := range summaries {
		sb.WriteString(summaryRow(truncate(s.Salesperson.DisplayName(), summaryNameRunes), s.Counts))
	}
	if totals != nil {
		sb.WriteString(summaryRow(p.get("summary.total"), *totals))
	}
	sb.WriteString("</pre>")
	return sb.String()
}

func summaryRow(name string, c leads.Counts) string {
	padding := max(0, summaryNameRunes-utf8.RuneCountInString(name))
	return fmt.Sprintf("%s%s %5d %5d %5d %5d %5d %5d\n", html.EscapeString(name), strings.Repeat(" ", padding),
		c.Today, c.All, c.Missed, c.Unscheduled, c.Closed, c.Void)
}

func summaryMarkup(p phrases, selected string) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	row := make(telebot.Row, 0, 3)
	for _, period := range []string{periodToday, periodMonth, periodAll} {
		label := p.get("period." + period)
		if period == selected {
			label = "• " + label
		}
		row = append(row, menu.Data(label, btnSummaryPeriod.Unique, period))
	}
	menu.Inline(row)
	return menu
}

// Report kinds.
const (
	reportSummaryExcel = "summary_xlsx"
	reportLeadsExcel   = "leads_xlsx"
	reportLeadsCSV     = "leads_csv"
)

func reportsMarkup(p phrases) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data(p.get("reports.summary_xlsx"), btnReport.Unique, reportSummaryExcel)),
		menu.Row(menu.Data(p.get("reports.leads_xlsx"), btnReport.Unique, reportLeadsExcel)),
		menu.Row(menu.Data(p.get("reports.leads_csv"), btnReport.Unique, reportLeadsCSV)),
	)
	return menu
}

// parseLeadIDs splits a message into lead ids separated by spaces, commas or new lines.
// Duplicates are dropped, the first occurrence wins.
func parseLeadIDs(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})
	seen := make(map[string]struct{}, len(fields))
	ids := make([]string, 0, len(fields))
	for _, id := range fields {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func batchDeleteText(p phrases, requested int, result gateway.BatchResult) string {
	text := p.with("admin.batch_delete.result", map[string]interface{}{
		"deleted":   len(result.Succeeded),
		"requested": requested,
		"failed":    len(result.Failed),
	})
	if len(result.Failed) == 0 {
		return text
	}

	failed := make([]string, 0, len(result.Failed))
	for id := range result.Failed {
		failed = append(failed, "<code>"+html.EscapeString(id)+"</code>")
	}
	slices.Sort(failed)
	return text + "\n" + p.get("admin.batch_delete.failed_ids") + " " + strings.Join(failed, ", ")
}

func reminderText(p phrases, lead models.Lead, remindAt time.Time) string {
	return p.with("reminder.text", map[string]interface{}{
		"name": html.EscapeString(leadName(lead)),
		"time": remindAt.Format(displayDateLayout + " 15:04"),
	})
}

// roleFor derives the bot role from the salesperson designation.
func roleFor(sp models.Salesperson) string {
	if strings.EqualFold(strings.TrimSpace(sp.Designation), models.RoleAdmin) {
		return models.RoleAdmin
	}
	return models.RoleSalesperson
}
