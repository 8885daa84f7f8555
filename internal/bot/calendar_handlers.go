package bot

import (
	"context"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/calendar"
	"gopkg.in/telebot.v4"
)

// calendarHandler opens the month grid of the current month.
func (b *Bot) calendarHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("calendar").Inc()
	now := b.now()
	return b.renderMonth(timeoutCtx, ctx, now.Year(), now.Month(), true)
}

func (b *Bot) calendarMonthHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("calendar_month").Inc()
	year, month, err := parseMonthArgs(ctx.Args())
	if err != nil {
		b.log.Error("Invalid month in callback", "error", err, "data", ctx.Data())
		return ctx.Respond()
	}
	return b.renderMonth(timeoutCtx, ctx, year, month, false)
}

// renderMonth shows the 42 cell grid with lead counts per day.
func (b *Bot) renderMonth(ctx context.Context, tCtx telebot.Context, year int, month time.Month, refetch bool) error {
	user, err := b.currentUser(ctx, tCtx)
	if err != nil {
		return b.replyError(ctx, tCtx, "calendar_month", err)
	}
	items, err := b.loadLeads(ctx, user, refetch)
	if err != nil {
		return b.replyError(ctx, tCtx, "calendar_month", err)
	}

	buckets := calendar.MonthBuckets(items, b.loc)
	cells := calendar.MonthGrid(year, month, b.now(), b.loc)

	if tCtx.Callback() != nil {
		_ = tCtx.Respond()
	}
	p := b.phrasesFor(ctx, tCtx)
	return b.show(tCtx, monthText(p, year, month, buckets), monthMarkup(p, year, month, cells, buckets))
}

// calendarDayHandler lists the leads scheduled on one day.
func (b *Bot) calendarDayHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("calendar_day").Inc()
	day, err := parseDayArgs(ctx.Args(), b.loc)
	if err != nil {
		b.log.Error("Invalid day in callback", "error", err, "data", ctx.Data())
		return ctx.Respond()
	}

	user, err := b.currentUser(timeoutCtx, ctx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "calendar_day", err)
	}
	items, err := b.loadLeads(timeoutCtx, user, false)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "calendar_day", err)
	}

	dayLeads := sortBySchedule(calendar.MonthBuckets(items, b.loc)[calendar.MonthKey(day)])

	_ = ctx.Respond()
	p := b.phrasesFor(timeoutCtx, ctx)
	return b.show(ctx, dayText(p, day, dayLeads), dayMarkup(p, day, dayLeads))
}

// weekHandler opens the week view of the current week.
func (b *Bot) weekHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("calendar_week").Inc()
	return b.renderWeek(timeoutCtx, ctx, b.now(), true)
}

func (b *Bot) calendarWeekHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("calendar_week").Inc()
	anchor, err := parseDayArgs(ctx.Args(), b.loc)
	if err != nil {
		b.log.Error("Invalid week anchor in callback", "error", err, "data", ctx.Data())
		return ctx.Respond()
	}
	return b.renderWeek(timeoutCtx, ctx, anchor, false)
}

// renderWeek shows the seven days around anchor with leads grouped by hour slot.
func (b *Bot) renderWeek(ctx context.Context, tCtx telebot.Context, anchor time.Time, refetch bool) error {
	user, err := b.currentUser(ctx, tCtx)
	if err != nil {
		return b.replyError(ctx, tCtx, "calendar_week", err)
	}
	items, err := b.loadLeads(ctx, user, refetch)
	if err != nil {
		return b.replyError(ctx, tCtx, "calendar_week", err)
	}

	days := calendar.WeekDays(anchor.In(b.loc))
	buckets := calendar.WeekBuckets(items, b.loc)

	if tCtx.Callback() != nil {
		_ = tCtx.Respond()
	}
	p := b.phrasesFor(ctx, tCtx)
	return b.show(tCtx, weekText(p, days, buckets), weekMarkup(p, days[0]))
}
