package models

import "time"

// Bot user roles.
const (
	RoleAdmin       = "admin"
	RoleSalesperson = "salesperson"
)

// BotUser binds a Telegram account to a CRM salesperson.
// It contains the Telegram ID, the salesperson identity used to match leads,
// the role, the preferred language and the date the binding was created.
type BotUser struct {
	TelegramID    int64     // Telegram user ID
	SalespersonID string    // CRM salesperson ID
	Username      string    // CRM salesperson username
	Role          string    // admin or salesperson
	Language      string    // Preferred interface language
	CreatedAt     time.Time // Timestamp of when the binding was created
}

// IsAdmin reports whether the user has the admin role.
func (u BotUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Salesperson returns the CRM identity of the bound user.
func (u BotUser) Salesperson() Salesperson {
	return Salesperson{ID: u.SalespersonID, Username: u.Username}
}
