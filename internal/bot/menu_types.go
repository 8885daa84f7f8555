package bot

import (
	"context"
	"time"
)

// MenuType represents different menu screens in the bot.
type MenuType string

const (
	MenuMain     MenuType = "main"
	MenuHome     MenuType = "home"
	MenuCalendar MenuType = "calendar"
	MenuMore     MenuType = "more"
	MenuAdmin    MenuType = "admin"
)

// MenuButton represents a single button in a menu.
type MenuButton struct {
	TextKey      string                 // i18n key for button text
	Handler      string                 // Handler function name or unique identifier
	Emoji        string                 // Optional emoji prefix
	SubMenu      MenuType               // If this button opens a submenu
	RequiresAuth bool                   // Whether user must be authenticated
	RequiresRole func(*Bot, int64) bool // Optional role check (e.g., isAdmin)
}

// MenuDefinition represents a complete menu screen.
type MenuDefinition struct {
	Type     MenuType
	TitleKey string // i18n key for menu title (optional, sent as message)
	Buttons  []MenuButton
	Layout   []int // Button layout: [2, 2, 1] means 2+2+1 buttons per row
	HasBack  bool  // Whether to show back button
}

// MenuRegistry holds all menu definitions.
type MenuRegistry struct {
	menus map[MenuType]*MenuDefinition
	order []MenuType
}

// NewMenuRegistry creates and initializes the menu registry with all menu definitions.
func NewMenuRegistry() *MenuRegistry {
	registry := &MenuRegistry{
		menus: make(map[MenuType]*MenuDefinition),
	}

	registry.register(mainMenu())
	registry.register(homeMenu())
	registry.register(calendarMenu())
	registry.register(moreMenu())
	registry.register(adminMenu())

	return registry
}

func (r *MenuRegistry) register(def *MenuDefinition) {
	r.menus[def.Type] = def
	r.order = append(r.order, def.Type)
}

// mainMenu is shown to users without a binding.
func mainMenu() *MenuDefinition {
	return &MenuDefinition{
		Type:    MenuMain,
		Layout:  []int{1, 1},
		HasBack: false,
		Buttons: []MenuButton{
			{TextKey: "menu.login", Handler: "login"},
			{TextKey: "menu.language", Handler: "language"},
		},
	}
}

func homeMenu() *MenuDefinition {
	return &MenuDefinition{
		Type:     MenuHome,
		TitleKey: "home.title",
		Layout:   []int{2, 2, 2},
		HasBack:  false,
		Buttons: []MenuButton{
			{TextKey: "menu.dashboard", Handler: "dashboard", RequiresAuth: true},
			{TextKey: "menu.leads", Handler: "leads", RequiresAuth: true},
			{TextKey: "menu.calendar", SubMenu: MenuCalendar, RequiresAuth: true},
			{TextKey: "menu.summary", Handler: "summary", RequiresAuth: true},
			{TextKey: "menu.reports", Handler: "reports", RequiresAuth: true},
			{TextKey: "menu.more", SubMenu: MenuMore, RequiresAuth: true},
		},
	}
}

func calendarMenu() *MenuDefinition {
	return &MenuDefinition{
		Type:     MenuCalendar,
		TitleKey: "calendar.title",
		Layout:   []int{2},
		HasBack:  true,
		Buttons: []MenuButton{
			{TextKey: "menu.month_view", Handler: "calendar", RequiresAuth: true},
			{TextKey: "menu.week_view", Handler: "week", RequiresAuth: true},
		},
	}
}

func moreMenu() *MenuDefinition {
	return &MenuDefinition{
		Type:     MenuMore,
		TitleKey: "more.title",
		Layout:   []int{1, 1, 1, 1},
		HasBack:  true,
		Buttons: []MenuButton{
			{TextKey: "menu.search", Handler: "search", RequiresAuth: true},
			{TextKey: "menu.language", Handler: "language"},
			{
				TextKey:      "menu.admin_panel",
				SubMenu:      MenuAdmin,
				RequiresAuth: true,
				RequiresRole: (*Bot).IsAdminCheck,
			},
			{TextKey: "menu.logout", Handler: "logout", RequiresAuth: true},
		},
	}
}

func adminMenu() *MenuDefinition {
	return &MenuDefinition{
		Type:     MenuAdmin,
		TitleKey: "admin.panel.title",
		Layout:   []int{1},
		HasBack:  true,
		Buttons: []MenuButton{
			{
				TextKey:      "menu.batch_delete",
				Handler:      "batch_delete",
				RequiresAuth: true,
				RequiresRole: (*Bot).IsAdminCheck,
			},
		},
	}
}

// Get retrieves a menu definition by type.
func (r *MenuRegistry) Get(menuType MenuType) *MenuDefinition {
	return r.menus[menuType]
}

// IsAdminCheck is a helper method to check if user is admin.
func (b *Bot) IsAdminCheck(userID int64) bool {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	startTime := time.Now()
	isAdmin, err := b.repo.IsAdmin(ctx, userID)
	b.metrics.DBQueryDuration.WithLabelValues("is_admin").Observe(time.Since(startTime).Seconds())
	if err != nil {
		b.log.Error("Failed to check admin status", "error", err, "userID", userID)
		return false
	}

	b.log.Debug("Admin check result", "userID", userID, "isAdmin", isAdmin)
	return isAdmin
}

// isAuthenticated reports whether the Telegram ID is bound to a salesperson.
func (b *Bot) isAuthenticated(ctx context.Context, userID int64) bool {
	ok, err := b.repo.IsUserAuthenticated(ctx, userID)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to check authentication", "error", err, "userID", userID)
		return false
	}
	return ok
}
