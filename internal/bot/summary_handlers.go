package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/i18n"
	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/UnknownOlympus/leaddesk/internal/report"
	"golang.org/x/text/language"
	"gopkg.in/telebot.v4"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// summaryHandler shows the salesperson summary for the current month.
func (b *Bot) summaryHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("summary").Inc()
	return b.renderSummary(timeoutCtx, ctx, periodMonth, true)
}

func (b *Bot) summaryPeriodHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("summary_period").Inc()
	return b.renderSummary(timeoutCtx, ctx, ctx.Data(), false)
}

func (b *Bot) renderSummary(ctx context.Context, tCtx telebot.Context, period string, refetch bool) error {
	window, ok := summaryWindow(period, b.now())
	if !ok {
		b.log.Error("Unknown summary period", "period", period)
		return tCtx.Respond()
	}

	user, err := b.currentUser(ctx, tCtx)
	if err != nil {
		return b.replyError(ctx, tCtx, "summary", err)
	}
	summaries, totals, err := b.summarize(ctx, user, window, refetch)
	if err != nil {
		return b.replyError(ctx, tCtx, "summary", err)
	}

	if tCtx.Callback() != nil {
		_ = tCtx.Respond()
	}
	p := b.phrasesFor(ctx, tCtx)
	return b.show(tCtx, summaryText(p, period, summaries, totals), summaryMarkup(p, period))
}

// summarize builds the summary rows visible to the user. Admins get every
// salesperson and the totals row; a salesperson gets their own row only.
func (b *Bot) summarize(
	ctx context.Context,
	user models.BotUser,
	window leads.Window,
	refetch bool,
) ([]leads.Summary, *leads.Counts, error) {
	items, err := b.loadLeads(ctx, user, refetch)
	if err != nil {
		return nil, nil, err
	}

	if !user.IsAdmin() {
		return leads.Summarize(items, []models.Salesperson{user.Salesperson()}, window, b.now()), nil, nil
	}

	salespersons, err := b.crm.Salespersons(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch salespersons: %w", err)
	}
	summaries := leads.Summarize(items, salespersons, window, b.now())
	totals := leads.Totals(summaries)
	return summaries, &totals, nil
}

// reportsHandler offers the available report formats.
func (b *Bot) reportsHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("reports").Inc()
	p := b.phrasesFor(timeoutCtx, ctx)

	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(p.get("reports.choose"), reportsMarkup(p))
}

// reportHandler generates the requested report and sends it as a document.
func (b *Bot) reportHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	kind := ctx.Data()
	userID := ctx.Sender().ID
	b.log.Info("User requested report", "user", userID, "kind", kind)
	b.metrics.CommandReceived.WithLabelValues("report").Inc()

	p := b.phrasesFor(timeoutCtx, ctx)
	b.metrics.SentMessages.WithLabelValues("respond").Inc()
	_ = ctx.Respond(&telebot.CallbackResponse{Text: p.get("reports.generating")})

	user, err := b.currentUser(timeoutCtx, ctx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "report", err)
	}

	startTime := time.Now()
	document, err := b.buildReport(timeoutCtx, user, kind, i18n.Tag(p.lang))
	b.metrics.ReportGeneration.WithLabelValues(kind).Observe(time.Since(startTime).Seconds())
	if err != nil {
		if errors.Is(err, report.ErrNoLeads) {
			b.metrics.SentMessages.WithLabelValues("text").Inc()
			return ctx.Send(p.get("reports.empty"))
		}
		return b.replyError(timeoutCtx, ctx, "report", err)
	}

	b.log.InfoContext(timeoutCtx, "Successfully generated report", "user", userID, "kind", kind)
	b.metrics.SentMessages.WithLabelValues("file").Inc()
	return ctx.Send(document)
}

func (b *Bot) buildReport(
	ctx context.Context,
	user models.BotUser,
	kind string,
	locale language.Tag,
) (*telebot.Document, error) {
	stamp := b.now().Format("2006-01-02")

	switch kind {
	case reportSummaryExcel:
		summaries, totals, err := b.summarize(ctx, user, leads.Window{}, true)
		if err != nil {
			return nil, err
		}
		if totals == nil {
			t := leads.Totals(summaries)
			totals = &t
		}
		buf, err := report.GenerateSummaryReport(summaries, *totals)
		if err != nil {
			return nil, fmt.Errorf("failed to generate summary report: %w", err)
		}
		return &telebot.Document{
			File:     telebot.FromReader(buf),
			FileName: fmt.Sprintf("summary_%s.xlsx", stamp),
			MIME:     xlsxMIME,
		}, nil

	case reportLeadsExcel, reportLeadsCSV:
		items, err := b.loadLeads(ctx, user, true)
		if err != nil {
			return nil, err
		}
		// Exports follow the list controls, without paging.
		filtered := filterLeads(items, b.sessions.View(ctx, user.TelegramID), b.now(), locale)

		if kind == reportLeadsCSV {
			if len(filtered) == 0 {
				return nil, report.ErrNoLeads
			}
			var buf bytes.Buffer
			if err = report.LeadsCSV(&buf, filtered); err != nil {
				return nil, fmt.Errorf("failed to write leads csv: %w", err)
			}
			return &telebot.Document{
				File:     telebot.FromReader(&buf),
				FileName: fmt.Sprintf("leads_%s.csv", stamp),
				MIME:     "text/csv",
			}, nil
		}

		buf, err := report.GenerateLeadsReport(filtered)
		if err != nil {
			return nil, fmt.Errorf("failed to generate leads report: %w", err)
		}
		return &telebot.Document{
			File:     telebot.FromReader(buf),
			FileName: fmt.Sprintf("leads_%s.xlsx", stamp),
			MIME:     xlsxMIME,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported report kind %q", kind)
	}
}
