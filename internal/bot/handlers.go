package bot

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/repository"
	"gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/react"
)

// startHandler process command /start.
func (b *Bot) startHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	userID := ctx.Sender().ID
	b.log.Info("User started the bot", "id", userID, "username", ctx.Sender().Username)
	b.metrics.CommandReceived.WithLabelValues("start").Inc()

	b.stateManager.Get(userID)
	messageKey := "welcome.guest"
	if b.isAuthenticated(timeoutCtx, userID) {
		messageKey = "welcome.authenticated"
	}
	return b.menus.ShowRoot(timeoutCtx, ctx, userID, b.t(timeoutCtx, ctx, messageKey))
}

// cancelHandler drops any pending prompt.
func (b *Bot) cancelHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("cancel").Inc()
	if _, ok := b.stateManager.Get(ctx.Sender().ID); !ok {
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send(b.t(timeoutCtx, ctx, "general.nothing_to_cancel"))
	}
	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(b.t(timeoutCtx, ctx, "general.canceled"))
}

// noopHandler answers presses on inert keyboard cells.
func (b *Bot) noopHandler(ctx telebot.Context) error {
	return ctx.Respond()
}

// routeTextHandler dispatches plain text: first to a pending prompt, then to
// reply keyboard buttons.
func (b *Bot) routeTextHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	userID := ctx.Sender().ID
	text := strings.TrimSpace(ctx.Text())

	if state, ok := b.stateManager.Get(userID); ok {
		switch state.WaitingFor {
		case stateAwaitingEmail:
			return b.loginEmailHandler(timeoutCtx, ctx, text)
		case stateAwaitingSearch:
			return b.AuthMiddleware(func(tCtx telebot.Context) error {
				return b.applySearch(timeoutCtx, tCtx, text)
			})(ctx)
		case stateAwaitingComment:
			return b.AuthMiddleware(func(tCtx telebot.Context) error {
				return b.commentConfirmHandler(timeoutCtx, tCtx, state.LeadID, text)
			})(ctx)
		case stateAwaitingBatchDelete:
			return b.AuthMiddleware(b.AdminMiddleware(b.Exclusive(func(tCtx telebot.Context) error {
				return b.batchDeleteHandler(timeoutCtx, tCtx, text)
			})))(ctx)
		}
		// A pending comment confirmation is dropped by any other message.
	}

	if b.menus.IsBackButton(text) {
		return b.menus.NavigateBack(timeoutCtx, ctx, userID)
	}

	btn, ok := b.menus.ResolveHandlerFromButtonText(timeoutCtx, ctx, text)
	if !ok {
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Reply(b.t(timeoutCtx, ctx, "general.use_buttons"))
	}

	if btn.RequiresAuth && !b.isAuthenticated(timeoutCtx, userID) {
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send(b.t(timeoutCtx, ctx, "error.login_required"))
	}
	if btn.SubMenu != "" {
		return b.menus.ShowMenu(timeoutCtx, ctx, btn.SubMenu, userID, "", true)
	}

	handler, ok := b.textHandlers()[btn.Handler]
	if !ok {
		b.log.ErrorContext(timeoutCtx, "No handler registered for button", "handler", btn.Handler)
		b.metrics.SentMessages.WithLabelValues("error").Inc()
		return ctx.Send(b.t(timeoutCtx, ctx, "error.internal"))
	}
	return handler(ctx)
}

// textHandlers maps reply keyboard handler names to handlers.
func (b *Bot) textHandlers() map[string]telebot.HandlerFunc {
	return map[string]telebot.HandlerFunc{
		"login":        b.loginHandler,
		"language":     b.languageHandler,
		"logout":       b.AuthMiddleware(b.logoutHandler),
		"dashboard":    b.AuthMiddleware(b.dashboardHandler),
		"leads":        b.AuthMiddleware(b.leadsHandler),
		"search":       b.AuthMiddleware(b.searchPromptHandler),
		"calendar":     b.AuthMiddleware(b.calendarHandler),
		"week":         b.AuthMiddleware(b.weekHandler),
		"summary":      b.AuthMiddleware(b.summaryHandler),
		"reports":      b.AuthMiddleware(b.reportsHandler),
		"batch_delete": b.AuthMiddleware(b.AdminMiddleware(b.batchDeleteInitiateHandler)),
	}
}

// loginHandler asks for the CRM email the salesperson is registered with.
func (b *Bot) loginHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	userID := ctx.Sender().ID
	b.metrics.CommandReceived.WithLabelValues("login").Inc()

	if b.isAuthenticated(timeoutCtx, userID) {
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send(b.t(timeoutCtx, ctx, "login.already"))
	}

	b.stateManager.Set(userID, UserState{WaitingFor: stateAwaitingEmail})
	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(b.t(timeoutCtx, ctx, "login.prompt"))
}

// loginEmailHandler looks the email up among CRM salespersons and links the
// Telegram ID to the match.
func (b *Bot) loginEmailHandler(ctx context.Context, tCtx telebot.Context, email string) error {
	userID := tCtx.Sender().ID
	b.log.DebugContext(ctx, "User is trying to authenticate", "user", userID, "email", email)

	salesperson, found, err := b.crm.FindSalespersonByEmail(ctx, email)
	if err != nil {
		return b.replyError(ctx, tCtx, "find_salesperson", err)
	}
	if !found {
		b.log.InfoContext(ctx, "Salesperson with this email not found", "user", userID, "email", email)
		_ = tCtx.Bot().React(tCtx.Recipient(), tCtx.Message(), react.React(react.ThumbDown))
		b.stateManager.Set(userID, UserState{WaitingFor: stateAwaitingEmail})
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return tCtx.Send(b.t(ctx, tCtx, "login.not_found"))
	}

	role := roleFor(salesperson)
	startTime := time.Now()
	err = b.repo.LinkTelegramID(ctx, userID, salesperson, role)
	b.metrics.DBQueryDuration.WithLabelValues("link_telegram_id").Observe(time.Since(startTime).Seconds())
	if err != nil {
		_ = tCtx.Bot().React(tCtx.Recipient(), tCtx.Message(), react.React(react.ThumbDown))
		b.metrics.SentMessages.WithLabelValues("error").Inc()
		switch {
		case errors.Is(err, repository.ErrUserAlreadyLinked):
			b.log.InfoContext(ctx, "Salesperson already linked to another id", "user", userID, "email", email)
			return tCtx.Send(b.t(ctx, tCtx, "login.already_linked"))
		case errors.Is(err, repository.ErrIDExists):
			b.log.InfoContext(ctx, "Telegram ID already linked to another salesperson", "user", userID)
			return tCtx.Send(b.t(ctx, tCtx, "login.id_exists"))
		default:
			b.log.ErrorContext(ctx, "Failed to link telegram id with salesperson", "error", err)
			return tCtx.Send(b.t(ctx, tCtx, "error.internal"))
		}
	}

	b.metrics.NewUsers.Inc()
	b.log.InfoContext(ctx, "User successfully authenticated", "user", userID, "salesperson", salesperson.ID, "role", role)
	_ = tCtx.Bot().React(tCtx.Recipient(), tCtx.Message(), react.React(react.ThumbUp))

	message := b.tWithData(ctx, tCtx, "login.success", map[string]interface{}{
		"name": html.EscapeString(salesperson.DisplayName()),
	})
	return b.menus.ShowRoot(ctx, tCtx, userID, message)
}

// logoutHandler removes the binding of the Telegram ID and every cached view.
func (b *Bot) logoutHandler(ctx telebot.Context) error {
	userID := ctx.Sender().ID
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	b.stateManager.Get(userID)
	b.sessions.Delete(timeoutCtx, userID)
	b.log.Info("User logged out", "user", userID)
	b.metrics.CommandReceived.WithLabelValues("logout").Inc()

	// Resolve the message before the language preference is deleted with the binding.
	message := b.t(timeoutCtx, ctx, "logout.success")

	startTime := time.Now()
	err := b.repo.DeleteUserByID(timeoutCtx, userID)
	b.metrics.DBQueryDuration.WithLabelValues("delete_user").Observe(time.Since(startTime).Seconds())
	if err != nil {
		b.log.ErrorContext(timeoutCtx, "Failed to delete bot user", "error", err, "user", userID)
		b.metrics.SentMessages.WithLabelValues("error").Inc()
		return ctx.Send(b.t(timeoutCtx, ctx, "logout.failed"))
	}

	return b.menus.ShowRoot(timeoutCtx, ctx, userID, message)
}

// dashboardHandler shows the top-line counters over the user's leads.
func (b *Bot) dashboardHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("dashboard").Inc()

	user, err := b.currentUser(timeoutCtx, ctx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "dashboard", err)
	}
	items, err := b.loadLeads(timeoutCtx, user, true)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "dashboard", err)
	}

	p := b.phrasesFor(timeoutCtx, ctx)
	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(dashboardText(p, leads.Count(items, b.now()), user.Username), telebot.ModeHTML)
}
