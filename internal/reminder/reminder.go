// Package reminder pushes lead reminders to the salespersons they are assigned to.
// A cron job scans the lead collection and notifies every bot user whose
// salesperson matches a lead with a reminder that became due.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/calendar"
	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/metrics"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/robfig/cron/v3"
)

// DefaultHour is used when a lead has a reminder date but no reminder time.
const DefaultHour = 9

// LeadSource fetches the lead collection.
type LeadSource interface {
	Leads(ctx context.Context) ([]models.Lead, error)
}

// Store lists bot users and deduplicates deliveries.
type Store interface {
	GetAllBotUsers(ctx context.Context) ([]models.BotUser, error)
	MarkReminderSent(ctx context.Context, leadID string, remindAt time.Time) (bool, error)
	PruneReminders(ctx context.Context, before time.Time) (int64, error)
}

// Notifier delivers one reminder to one bot user.
type Notifier interface {
	NotifyReminder(ctx context.Context, user models.BotUser, lead models.Lead, remindAt time.Time) error
}

// Due is a lead whose reminder should be delivered.
type Due struct {
	Lead     models.Lead
	RemindAt time.Time
}

// Options configures the reminder service.
type Options struct {
	Schedule string         // Cron expression, five fields or a descriptor such as @every 1m
	Lookback time.Duration  // Reminders older than this are skipped
	Location *time.Location // Location of date-only reminder values
}

// Service runs the reminder job.
type Service struct {
	source   LeadSource
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	cron     *cron.Cron
	opts     Options
	now      func() time.Time
}

// NewService validates the schedule and prepares the job. Call Start to run it.
func NewService(
	log *slog.Logger,
	source LeadSource,
	store Store,
	notifier Notifier,
	appMetrics *metrics.Metrics,
	opts Options,
) (*Service, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Lookback <= 0 {
		return nil, errors.New("reminder lookback must be positive")
	}

	log = log.With(slog.String("service", "reminder"))
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelDebug))

	svc := &Service{
		source:   source,
		store:    store,
		notifier: notifier,
		metrics:  appMetrics,
		log:      log,
		opts:     opts,
		now:      time.Now,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(opts.Location),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}

	if _, err := svc.cron.AddFunc(opts.Schedule, svc.tick); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", opts.Schedule, err)
	}

	return svc, nil
}

// Start runs the job in the background.
func (s *Service) Start() {
	s.log.Info("Reminder job started", "schedule", s.opts.Schedule, "lookback", s.opts.Lookback)
	s.cron.Start()
}

// Stop stops scheduling and waits for a running job to finish or ctx to expire.
func (s *Service) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Service) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sent, err := s.RunOnce(ctx, s.now())
	if err != nil {
		s.log.ErrorContext(ctx, "Reminder run failed", "error", err)
		return
	}
	if sent > 0 {
		s.log.InfoContext(ctx, "Reminders delivered", "count", sent)
	}
}

// RunOnce delivers every reminder due at now and returns the number of
// notifications sent. Each (lead, reminder time) pair is delivered at most once.
func (s *Service) RunOnce(ctx context.Context, now time.Time) (int, error) {
	items, err := s.source.Leads(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch leads: %w", err)
	}

	due := DueReminders(items, now, s.opts.Lookback, s.opts.Location)
	if len(due) == 0 {
		return 0, s.prune(ctx, now)
	}

	users, err := s.store.GetAllBotUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list bot users: %w", err)
	}

	sent := 0
	for _, item := range due {
		recipients := Recipients(item.Lead, users)
		if len(recipients) == 0 {
			continue
		}

		marked, err := s.store.MarkReminderSent(ctx, item.Lead.ID, item.RemindAt)
		if err != nil {
			return sent, err
		}
		if !marked {
			continue
		}

		for _, user := range recipients {
			if err = s.notifier.NotifyReminder(ctx, user, item.Lead, item.RemindAt); err != nil {
				s.observe("failed")
				s.log.WarnContext(ctx, "Failed to deliver reminder",
					"lead_id", item.Lead.ID, "telegram_id", user.TelegramID, "error", err)
				continue
			}
			s.observe("sent")
			sent++
		}
	}

	return sent, s.prune(ctx, now)
}

// Records older than the lookback window can never be due again.
func (s *Service) prune(ctx context.Context, now time.Time) error {
	if _, err := s.store.PruneReminders(ctx, now.Add(-s.opts.Lookback)); err != nil {
		return fmt.Errorf("failed to prune reminders: %w", err)
	}
	return nil
}

func (s *Service) observe(status string) {
	if s.metrics != nil {
		s.metrics.RemindersSent.WithLabelValues(status).Inc()
	}
}

// ReminderAt returns the moment the reminder of a lead fires. A missing
// reminder time falls back to DefaultHour; a missing or malformed date means
// the lead has no reminder.
func ReminderAt(lead models.Lead, loc *time.Location) (time.Time, bool) {
	if strings.TrimSpace(lead.ReminderDate) == "" {
		return time.Time{}, false
	}
	day, err := calendar.ParseStartDate(lead.ReminderDate, loc)
	if err != nil {
		return time.Time{}, false
	}

	hour, minute := DefaultHour, 0
	if strings.TrimSpace(lead.ReminderTime) != "" {
		hour, minute, err = calendar.ParseClock(lead.ReminderTime)
		if err != nil {
			return time.Time{}, false
		}
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), true
}

// DueReminders selects leads whose reminder is in (now-lookback, now].
func DueReminders(items []models.Lead, now time.Time, lookback time.Duration, loc *time.Location) []Due {
	var due []Due
	oldest := now.Add(-lookback)
	for _, lead := range items {
		at, ok := ReminderAt(lead, loc)
		if !ok || at.After(now) || !at.After(oldest) {
			continue
		}
		due = append(due, Due{Lead: lead, RemindAt: at})
	}
	return due
}

// Recipients returns the bot users assigned to a lead.
func Recipients(lead models.Lead, users []models.BotUser) []models.BotUser {
	var out []models.BotUser
	for _, user := range users {
		if leads.MatchesSalesperson(lead, user.Salesperson()) {
			out = append(out, user)
		}
	}
	return out
}
