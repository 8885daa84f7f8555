package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/models"
)

type Repository struct {
	db Database
}

// Interface defines the repository operations used by the bot: linking a Telegram
// account to a CRM salesperson, reading the binding back, managing the preferred
// language and deduplicating reminders.
type Interface interface {
	LinkTelegramID(ctx context.Context, telegramID int64, salesperson models.Salesperson, role string) error
	GetBotUser(ctx context.Context, telegramID int64) (models.BotUser, error)
	GetAllBotUsers(ctx context.Context) ([]models.BotUser, error)
	IsUserAuthenticated(ctx context.Context, telegramID int64) (bool, error)
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
	DeleteUserByID(ctx context.Context, telegramID int64) error
	SetUserLanguage(ctx context.Context, telegramID int64, language string) error
	GetUserLanguage(ctx context.Context, telegramID int64) (string, error)
	MarkReminderSent(ctx context.Context, leadID string, remindAt time.Time) (bool, error)
	PruneReminders(ctx context.Context, before time.Time) (int64, error)
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the tables used by the bot when they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
