package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/UnknownOlympus/leaddesk/internal/i18n"
	"gopkg.in/telebot.v4"
)

// MenuBuilder handles dynamic menu generation with i18n support.
type MenuBuilder struct {
	bot      *Bot
	registry *MenuRegistry
	navStack *NavigationStack
}

// NewMenuBuilder creates a new menu builder instance.
func NewMenuBuilder(bot *Bot) *MenuBuilder {
	return &MenuBuilder{
		bot:      bot,
		registry: NewMenuRegistry(),
		navStack: NewNavigationStack(),
	}
}

// Build generates a telebot.ReplyMarkup from a menu definition.
func (mb *MenuBuilder) Build(
	ctx context.Context,
	tCtx telebot.Context,
	menuType MenuType,
	userID int64,
) *telebot.ReplyMarkup {
	lang := mb.bot.getUserLanguage(ctx, tCtx)

	menuDef := mb.registry.Get(menuType)
	if menuDef == nil {
		mb.bot.log.Error("Menu definition not found", "menuType", menuType)
		return buildFallbackMenu(mb.bot.localizer, lang)
	}

	visibleButtons := mb.filterVisibleButtons(menuDef.Buttons, userID)
	return buildReplyMenu(mb.bot.localizer, lang, menuDef, visibleButtons)
}

// filterVisibleButtons returns only buttons that user has permission to see.
func (mb *MenuBuilder) filterVisibleButtons(buttons []MenuButton, userID int64) []MenuButton {
	visible := make([]MenuButton, 0, len(buttons))

	for _, btn := range buttons {
		if btn.RequiresRole != nil {
			hasRole := btn.RequiresRole(mb.bot, userID)
			mb.bot.log.Debug("Button role check", "button", btn.TextKey, "userID", userID, "hasRole", hasRole)
			if !hasRole {
				continue
			}
		}
		visible = append(visible, btn)
	}

	return visible
}

// buildReplyMenu lays the buttons out in rows and appends the back button if needed.
func buildReplyMenu(
	localizer *i18n.Localizer,
	lang string,
	menuDef *MenuDefinition,
	buttons []MenuButton,
) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{ResizeKeyboard: true}
	rows := make([]telebot.Row, 0, len(menuDef.Layout)+1)
	buttonIdx := 0

	for _, rowSize := range menuDef.Layout {
		if buttonIdx >= len(buttons) {
			break
		}

		rowButtons := make([]telebot.Btn, 0, rowSize)
		for i := 0; i < rowSize && buttonIdx < len(buttons); i++ {
			rowButtons = append(rowButtons, menu.Text(buttonText(localizer, lang, buttons[buttonIdx])))
			buttonIdx++
		}
		rows = append(rows, menu.Row(rowButtons...))
	}

	// Buttons beyond the layout get a row each.
	for ; buttonIdx < len(buttons); buttonIdx++ {
		rows = append(rows, menu.Row(menu.Text(buttonText(localizer, lang, buttons[buttonIdx]))))
	}

	if menuDef.HasBack {
		rows = append(rows, menu.Row(menu.Text(localizer.Get(lang, "menu.back"))))
	}

	menu.Reply(rows...)
	return menu
}

// buttonText constructs button text with optional emoji.
func buttonText(localizer *i18n.Localizer, lang string, btn MenuButton) string {
	text := localizer.Get(lang, btn.TextKey)
	if btn.Emoji != "" && !strings.HasPrefix(text, btn.Emoji) {
		return fmt.Sprintf("%s %s", btn.Emoji, text)
	}
	return text
}

// buildFallbackMenu creates a safe fallback menu in case of errors.
func buildFallbackMenu(localizer *i18n.Localizer, lang string) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(menu.Row(menu.Text(localizer.Get(lang, "menu.back"))))
	return menu
}

// ShowMenu sends a menu to the user with the message under messageKey, or the menu title.
// If trackNavigation is false, the menu won't be added to navigation history (used for back navigation).
func (mb *MenuBuilder) ShowMenu(
	ctx context.Context,
	tCtx telebot.Context,
	menuType MenuType,
	userID int64,
	messageKey string,
	trackNavigation bool,
) error {
	if messageKey == "" {
		messageKey = "general.welcome_back"
		if menuDef := mb.registry.Get(menuType); menuDef != nil && menuDef.TitleKey != "" {
			messageKey = menuDef.TitleKey
		}
	}

	return mb.ShowMenuWithText(ctx, tCtx, menuType, userID, mb.bot.t(ctx, tCtx, messageKey), trackNavigation)
}

// ShowMenuWithText sends a menu along with an already translated message.
func (mb *MenuBuilder) ShowMenuWithText(
	ctx context.Context,
	tCtx telebot.Context,
	menuType MenuType,
	userID int64,
	message string,
	trackNavigation bool,
) error {
	menu := mb.Build(ctx, tCtx, menuType, userID)

	if trackNavigation {
		mb.navStack.Push(userID, menuType)
	}

	mb.bot.metrics.SentMessages.WithLabelValues("text").Inc()
	return tCtx.Send(message, telebot.ModeHTML, menu)
}

// ShowRoot resets the navigation history and shows the top menu for the user.
func (mb *MenuBuilder) ShowRoot(ctx context.Context, tCtx telebot.Context, userID int64, message string) error {
	mb.navStack.Reset(userID)
	root := MenuMain
	if mb.bot.isAuthenticated(ctx, userID) {
		root = MenuHome
	}
	return mb.ShowMenuWithText(ctx, tCtx, root, userID, message, true)
}

// NavigateBack returns user to previous menu.
func (mb *MenuBuilder) NavigateBack(
	ctx context.Context,
	tCtx telebot.Context,
	userID int64,
) error {
	mb.navStack.Pop(userID)

	prevMenu := mb.navStack.Current(userID)
	if prevMenu == MenuMain && mb.bot.isAuthenticated(ctx, userID) {
		prevMenu = MenuHome
	}

	// Show the previous menu without tracking (already in stack)
	return mb.ShowMenu(ctx, tCtx, prevMenu, userID, "", false)
}

// ResolveHandlerFromButtonText looks up which handler to call based on button text.
// This is used in routeTextHandler to map button clicks to handler functions.
func (mb *MenuBuilder) ResolveHandlerFromButtonText(
	ctx context.Context,
	tCtx telebot.Context,
	text string,
) (MenuButton, bool) {
	lang := mb.bot.getUserLanguage(ctx, tCtx)
	return resolveButton(mb.registry, mb.bot.localizer, candidateLanguages(lang), text)
}

// IsBackButton reports whether text is the back button in any supported language.
func (mb *MenuBuilder) IsBackButton(text string) bool {
	for _, lang := range []string{"en", "uk"} {
		if text == mb.bot.localizer.Get(lang, "menu.back") {
			return true
		}
	}
	return false
}

// candidateLanguages lists the user's language first, then the other supported one.
func candidateLanguages(lang string) []string {
	if lang != "en" {
		return []string{lang, "en"}
	}
	return []string{"en", "uk"}
}

func resolveButton(registry *MenuRegistry, localizer *i18n.Localizer, languages []string, text string) (MenuButton, bool) {
	for _, menuType := range registry.order {
		for _, btn := range registry.Get(menuType).Buttons {
			for _, lang := range languages {
				if text == buttonText(localizer, lang, btn) {
					return btn, true
				}
			}
		}
	}
	return MenuButton{}, false
}
