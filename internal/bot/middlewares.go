package bot

import (
	"context"

	"gopkg.in/telebot.v4"
)

// AuthMiddleware check if Telegram ID is linked to permitted user.
func (b *Bot) AuthMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(ctx telebot.Context) error {
		userID := ctx.Sender().ID
		timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		defer cancel()

		isAllowed, err := b.repo.IsUserAuthenticated(timeoutCtx, userID)
		if err != nil {
			b.log.Error("Failed to authenticate telegram user from DB", "id", userID, "error", err)
			b.metrics.SentMessages.WithLabelValues("error").Inc()
			return ctx.Send(b.t(timeoutCtx, ctx, "error.auth_check"))
		}

		if !isAllowed {
			b.log.Info("Access denied", "username", ctx.Sender().Username, "id", userID)
			if ctx.Callback() != nil {
				return ctx.Respond(&telebot.CallbackResponse{
					Text:      b.t(timeoutCtx, ctx, "error.access_denied"),
					ShowAlert: true,
				})
			}
			return ctx.Send(b.t(timeoutCtx, ctx, "error.login_required"))
		}

		b.log.Debug("Access granted", "username", ctx.Sender().Username, "id", userID)
		return next(ctx)
	}
}

// AdminMiddleware lets only admins through. It expects AuthMiddleware to run first.
func (b *Bot) AdminMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(ctx telebot.Context) error {
		userID := ctx.Sender().ID
		if !b.IsAdminCheck(userID) {
			timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
			defer cancel()

			b.log.Info("Admin access denied", "id", userID)
			if ctx.Callback() != nil {
				return ctx.Respond(&telebot.CallbackResponse{
					Text:      b.t(timeoutCtx, ctx, "error.admin_only"),
					ShowAlert: true,
				})
			}
			return ctx.Send(b.t(timeoutCtx, ctx, "error.admin_only"))
		}
		return next(ctx)
	}
}

// Exclusive rejects a submission while the same user has another one in flight.
func (b *Bot) Exclusive(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(ctx telebot.Context) error {
		userID := ctx.Sender().ID
		if !b.busy.Acquire(userID) {
			timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
			defer cancel()

			b.log.Debug("Submission rejected, user is busy", "id", userID)
			if ctx.Callback() != nil {
				return ctx.Respond(&telebot.CallbackResponse{Text: b.t(timeoutCtx, ctx, "error.busy")})
			}
			return ctx.Send(b.t(timeoutCtx, ctx, "error.busy"))
		}
		defer b.busy.Release(userID)

		return next(ctx)
	}
}
