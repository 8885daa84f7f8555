package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/gateway"
	"github.com/UnknownOlympus/leaddesk/internal/i18n"
	"github.com/UnknownOlympus/leaddesk/internal/metrics"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/UnknownOlympus/leaddesk/internal/repository"
	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v4"
)

const (
	// dbTimeout bounds handlers that only touch the session store.
	dbTimeout = 3 * time.Second
	// crmTimeout bounds handlers that call the CRM API.
	crmTimeout = 15 * time.Second
	// reportTimeout bounds report generation.
	reportTimeout = 30 * time.Second
)

// ErrLeadNotFound is returned when a lead id is not in the user's collection.
var ErrLeadNotFound = errors.New("lead not found")

// CRM is the part of the CRM API client used by the bot.
type CRM interface {
	Leads(ctx context.Context) ([]models.Lead, error)
	UpdateLead(ctx context.Context, lead models.Lead) (*models.Lead, error)
	DeleteLead(ctx context.Context, id string) error
	DeleteLeads(ctx context.Context, ids []string) gateway.BatchResult
	Salespersons(ctx context.Context) ([]models.Salesperson, error)
	FindSalespersonByEmail(ctx context.Context, email string) (models.Salesperson, bool, error)
	Products(ctx context.Context) ([]models.ReferenceItem, error)
	Tags(ctx context.Context) ([]models.Tag, error)
	SystemeIOTags(ctx context.Context) ([]models.Tag, error)
	WhatsAppTags(ctx context.Context, customerID string) ([]models.Tag, error)
	Comments(ctx context.Context, leadID string) ([]models.Comment, error)
	AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error)
}

// Bot contains the bot API instance and other information.
type Bot struct {
	bot          *telebot.Bot
	log          *slog.Logger
	repo         repository.Interface
	crm          CRM
	metrics      *metrics.Metrics
	stateManager *StateManager
	sessions     *SessionStore
	busy         *BusyGuard
	menus        *MenuBuilder
	localizer    *i18n.Localizer
	loc          *time.Location
}

var (
	btnLanguage = telebot.InlineButton{Unique: "language"}

	// lead list controls.
	btnStatusFilter  = telebot.InlineButton{Unique: "lf_status"}
	btnProductPicker = telebot.InlineButton{Unique: "lf_products"}
	btnProductFilter = telebot.InlineButton{Unique: "lf_product"}
	btnSortToggle    = telebot.InlineButton{Unique: "lf_sort"}
	btnPage          = telebot.InlineButton{Unique: "lf_page"}
	btnResetFilters  = telebot.InlineButton{Unique: "lf_reset"}
	btnRefresh       = telebot.InlineButton{Unique: "lf_refresh"}

	// lead card actions.
	btnLeadDetails       = telebot.InlineButton{Unique: "lead"}
	btnLeadBack          = telebot.InlineButton{Unique: "lead_back"}
	btnLeadStatus        = telebot.InlineButton{Unique: "lead_status"}
	btnLeadDelete        = telebot.InlineButton{Unique: "lead_delete"}
	btnLeadDeleteConfirm = telebot.InlineButton{Unique: "lead_delete_yes"}
	btnLeadComment       = telebot.InlineButton{Unique: "lead_comment"}
	btnLeadCommentsCSV   = telebot.InlineButton{Unique: "lead_comments"}
	btnLeadTags          = telebot.InlineButton{Unique: "lead_tags"}
	btnLeadTagToggle     = telebot.InlineButton{Unique: "lead_tag"}
	btnCommentAccept     = telebot.InlineButton{Unique: "comment_accept"}
	btnCommentDecline    = telebot.InlineButton{Unique: "comment_decline"}

	// calendar navigation.
	btnCalendarMonth = telebot.InlineButton{Unique: "cal_month"}
	btnCalendarDay   = telebot.InlineButton{Unique: "cal_day"}
	btnCalendarWeek  = telebot.InlineButton{Unique: "cal_week"}

	btnSummaryPeriod = telebot.InlineButton{Unique: "summary_period"}
	btnReport        = telebot.InlineButton{Unique: "report"}

	// btnNoop backs inert keyboard cells such as headers and padding days.
	btnNoop = telebot.InlineButton{Unique: "noop"}
)

// NewBot creates a new bot with the given token.
func NewBot(
	log *slog.Logger,
	repo repository.Interface,
	crm CRM,
	redisClient *redis.Client,
	metrics *metrics.Metrics,
	token string,
	poller time.Duration,
	loc *time.Location,
) (*Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	localizer, err := i18n.NewLocalizer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize localizer: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}

	botInstance := &Bot{
		bot:          bot,
		log:          log,
		repo:         repo,
		crm:          crm,
		metrics:      metrics,
		stateManager: NewStateManager(),
		sessions:     NewSessionStore(redisClient, log, metrics),
		busy:         NewBusyGuard(),
		localizer:    localizer,
		loc:          loc,
	}
	botInstance.menus = NewMenuBuilder(botInstance)

	botInstance.registerRoutes()

	return botInstance, nil
}

// Start launches the bot to listen for updates.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	// Public routes.
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle("/language", b.languageHandler)
	b.bot.Handle("/cancel", b.cancelHandler)
	b.bot.Handle(telebot.OnText, b.routeTextHandler)
	b.bot.Handle(&btnLanguage, b.languageChangeHandler)

	// Authenticated commands.
	b.bot.Handle("/search", b.AuthMiddleware(b.searchCommandHandler))
	b.bot.Handle("/leads", b.AuthMiddleware(b.leadsHandler))
	b.bot.Handle("/calendar", b.AuthMiddleware(b.calendarHandler))

	// Lead list callbacks.
	b.bot.Handle(&btnStatusFilter, b.AuthMiddleware(b.statusFilterHandler))
	b.bot.Handle(&btnProductPicker, b.AuthMiddleware(b.productPickerHandler))
	b.bot.Handle(&btnProductFilter, b.AuthMiddleware(b.productFilterHandler))
	b.bot.Handle(&btnSortToggle, b.AuthMiddleware(b.sortToggleHandler))
	b.bot.Handle(&btnPage, b.AuthMiddleware(b.pageHandler))
	b.bot.Handle(&btnResetFilters, b.AuthMiddleware(b.resetFiltersHandler))
	b.bot.Handle(&btnRefresh, b.AuthMiddleware(b.refreshHandler))

	// Lead card callbacks.
	b.bot.Handle(&btnLeadDetails, b.AuthMiddleware(b.leadDetailsHandler))
	b.bot.Handle(&btnLeadBack, b.AuthMiddleware(b.leadBackHandler))
	b.bot.Handle(&btnLeadStatus, b.AuthMiddleware(b.Exclusive(b.leadStatusHandler)))
	b.bot.Handle(&btnLeadDelete, b.AuthMiddleware(b.AdminMiddleware(b.leadDeleteHandler)))
	b.bot.Handle(&btnLeadDeleteConfirm, b.AuthMiddleware(b.AdminMiddleware(b.Exclusive(b.leadDeleteConfirmHandler))))
	b.bot.Handle(&btnLeadComment, b.AuthMiddleware(b.addCommentHandler))
	b.bot.Handle(&btnLeadCommentsCSV, b.AuthMiddleware(b.Exclusive(b.commentsExportHandler)))
	b.bot.Handle(&btnLeadTags, b.AuthMiddleware(b.leadTagsHandler))
	b.bot.Handle(&btnLeadTagToggle, b.AuthMiddleware(b.Exclusive(b.leadTagToggleHandler)))
	b.bot.Handle(&btnCommentAccept, b.AuthMiddleware(b.Exclusive(b.commentAcceptHandler)))
	b.bot.Handle(&btnCommentDecline, b.AuthMiddleware(b.commentDeclineHandler))

	// Calendar callbacks.
	b.bot.Handle(&btnCalendarMonth, b.AuthMiddleware(b.calendarMonthHandler))
	b.bot.Handle(&btnCalendarDay, b.AuthMiddleware(b.calendarDayHandler))
	b.bot.Handle(&btnCalendarWeek, b.AuthMiddleware(b.calendarWeekHandler))
	b.bot.Handle(&btnNoop, b.noopHandler)

	b.bot.Handle(&btnSummaryPeriod, b.AuthMiddleware(b.summaryPeriodHandler))
	b.bot.Handle(&btnReport, b.AuthMiddleware(b.Exclusive(b.reportHandler)))
}

// getUserLanguage retrieves the user's language preference from the database.
// Users without a binding get the language detected from Telegram.
func (b *Bot) getUserLanguage(ctx context.Context, tCtx telebot.Context) string {
	if tCtx == nil || tCtx.Sender() == nil {
		return "en"
	}
	userID := tCtx.Sender().ID

	lang, err := b.repo.GetUserLanguage(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			b.log.WarnContext(ctx, "Failed to get user language, using default", "error", err, "userID", userID)
		}
		return i18n.NormalizeLanguageCode(tCtx.Sender().LanguageCode)
	}

	return lang
}

// t is a shorthand method for getting translations.
func (b *Bot) t(ctx context.Context, tCtx telebot.Context, key string) string {
	lang := b.getUserLanguage(ctx, tCtx)
	return b.localizer.Get(lang, key)
}

// tWithData is a shorthand method for getting translations with placeholder data.
func (b *Bot) tWithData(ctx context.Context, tCtx telebot.Context, key string, data map[string]interface{}) string {
	lang := b.getUserLanguage(ctx, tCtx)
	return b.localizer.GetWithData(lang, key, data)
}

// phrasesFor resolves the user's language once for a whole handler.
func (b *Bot) phrasesFor(ctx context.Context, tCtx telebot.Context) phrases {
	return phrases{localizer: b.localizer, lang: b.getUserLanguage(ctx, tCtx)}
}

// now returns the current time in the configured timezone.
func (b *Bot) now() time.Time {
	return time.Now().In(b.loc)
}

// currentUser returns the bot user bound to the sender.
func (b *Bot) currentUser(ctx context.Context, tCtx telebot.Context) (models.BotUser, error) {
	startTime := time.Now()
	user, err := b.repo.GetBotUser(ctx, tCtx.Sender().ID)
	b.metrics.DBQueryDuration.WithLabelValues("get_bot_user").Observe(time.Since(startTime).Seconds())
	if err != nil {
		return models.BotUser{}, fmt.Errorf("failed to get bot user: %w", err)
	}
	return user, nil
}

// replyError logs err and shows the user a short message.
func (b *Bot) replyError(ctx context.Context, tCtx telebot.Context, op string, err error) error {
	b.log.ErrorContext(ctx, "Handler failed", "op", op, "error", err, "user", tCtx.Sender().ID)
	b.metrics.SentMessages.WithLabelValues("error").Inc()

	message := errorText(b.phrasesFor(ctx, tCtx), err)
	if tCtx.Callback() != nil {
		return tCtx.Respond(&telebot.CallbackResponse{Text: message, ShowAlert: true})
	}
	return tCtx.Send(message)
}

// show edits the message behind a callback, or sends a new one for text commands.
func (b *Bot) show(ctx telebot.Context, text string, markup *telebot.ReplyMarkup) error {
	if ctx.Callback() != nil {
		return b.sendOrEditMessage(ctx, text, markup)
	}
	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(text, telebot.ModeHTML, markup)
}

// sendOrEditMessage handles the final step of sending the response.
func (b *Bot) sendOrEditMessage(ctx telebot.Context, text string, markup *telebot.ReplyMarkup) error {
	b.metrics.SentMessages.WithLabelValues("edit").Inc()
	err := ctx.Edit(text, telebot.ModeHTML, markup)
	if err != nil {
		if errors.Is(err, telebot.ErrSameMessageContent) {
			return nil
		}
		b.log.Error("Failed to edit message", "error", err)
	}
	return err
}

// NotifyReminder sends one lead reminder to a bot user.
func (b *Bot) NotifyReminder(ctx context.Context, user models.BotUser, lead models.Lead, remindAt time.Time) error {
	p := phrases{localizer: b.localizer, lang: user.Language}

	menu := &telebot.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data(p.get("reminder.open"), btnLeadDetails.Unique, lead.ID)))

	_, err := b.bot.Send(telebot.ChatID(user.TelegramID), reminderText(p, lead, remindAt.In(b.loc)), telebot.ModeHTML, menu)
	if err != nil {
		return fmt.Errorf("failed to send reminder to user %d: %w", user.TelegramID, err)
	}

	b.log.DebugContext(ctx, "Reminder delivered", "user", user.TelegramID, "lead", lead.ID)
	b.metrics.SentMessages.WithLabelValues("reminder").Inc()
	return nil
}
