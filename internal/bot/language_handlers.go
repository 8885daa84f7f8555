package bot

import (
	"context"
	"errors"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/repository"
	"gopkg.in/telebot.v4"
)

// supportedLanguages are the codes accepted by the language picker.
var supportedLanguages = map[string]string{
	"en": "language.button.english",
	"uk": "language.button.ukrainian",
}

// languageHandler handles the language selection request from the user.
// It presents the user with a menu to choose their preferred language.
func (b *Bot) languageHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("language").Inc()
	p := b.phrasesFor(timeoutCtx, ctx)

	menu := &telebot.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data(p.get(supportedLanguages["en"]), btnLanguage.Unique, "en")),
		menu.Row(menu.Data(p.get(supportedLanguages["uk"]), btnLanguage.Unique, "uk")),
	)

	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(p.get("language.select"), menu)
}

// languageChangeHandler handles the language change request from the user.
// It updates the user's language preference in the database and sends a confirmation message.
func (b *Bot) languageChangeHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	userID := ctx.Sender().ID
	langCode := ctx.Data()
	b.log.DebugContext(timeoutCtx, "User selected language", "callbackData", langCode, "userID", userID)

	if _, ok := supportedLanguages[langCode]; !ok {
		b.log.Error("Unknown language callback", "data", langCode)
		return ctx.Respond(&telebot.CallbackResponse{Text: "Unknown language"})
	}

	startTime := time.Now()
	err := b.repo.SetUserLanguage(timeoutCtx, userID, langCode)
	b.metrics.DBQueryDuration.WithLabelValues("set_user_language").Observe(time.Since(startTime).Seconds())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Guests have no row to store the preference in yet.
			return ctx.Respond(&telebot.CallbackResponse{
				Text:      b.localizer.Get(langCode, "language.login_required"),
				ShowAlert: true,
			})
		}
		b.log.ErrorContext(timeoutCtx, "Failed to set user language", "error", err, "userID", userID)
		b.metrics.SentMessages.WithLabelValues("error").Inc()
		return ctx.Respond(&telebot.CallbackResponse{Text: b.t(timeoutCtx, ctx, "error.internal")})
	}

	b.log.InfoContext(timeoutCtx, "User changed language", "userID", userID, "language", langCode)

	b.metrics.SentMessages.WithLabelValues("respond").Inc()
	_ = ctx.Respond(&telebot.CallbackResponse{Text: "✅"})

	// Rebuild the reply keyboard in the new language.
	return b.menus.ShowRoot(timeoutCtx, ctx, userID, b.localizer.Get(langCode, "language.changed"))
}
