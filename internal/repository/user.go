package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrUserNotFound is returned when no bot user is bound to the telegram ID.
	ErrUserNotFound = errors.New("telegram user is not linked to a salesperson")
	// ErrUserAlreadyLinked is returned when a salesperson is already linked to a telegram account.
	ErrUserAlreadyLinked = errors.New("this salesperson is already linked to a telegram account")
	// ErrIDExists is returned when the specified telegram ID already exists in the database.
	ErrIDExists = errors.New("this telegram ID is already exists in the DB")
)

// LinkTelegramID binds a Telegram ID to a CRM salesperson.
// It begins a transaction, verifies the Telegram ID is not bound yet and inserts
// the binding. A salesperson already bound to another account yields ErrUserAlreadyLinked.
func (r *Repository) LinkTelegramID(
	ctx context.Context,
	telegramID int64,
	salesperson models.Salesperson,
	role string,
) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var exists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM bot_users WHERE telegram_id = $1)", telegramID).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	if exists {
		return ErrIDExists
	}

	cmdTag, err := tx.Exec(ctx, insertBotUserSQL, telegramID, salesperson.ID, salesperson.Name(), role)
	if err != nil {
		return fmt.Errorf("failed to insert into bot_users: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserAlreadyLinked
	}

	return tx.Commit(ctx)
}

// GetBotUser returns the binding of a Telegram ID.
func (r *Repository) GetBotUser(ctx context.Context, telegramID int64) (models.BotUser, error) {
	var user models.BotUser

	err := r.db.QueryRow(ctx, selectBotUserSQL, telegramID).Scan(
		&user.TelegramID, &user.SalespersonID, &user.Username, &user.Role, &user.Language, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BotUser{}, ErrUserNotFound
		}
		return models.BotUser{}, fmt.Errorf("failed to get bot user: %w", err)
	}

	return user, nil
}

// GetAllBotUsers returns every bound Telegram account.
func (r *Repository) GetAllBotUsers(ctx context.Context) ([]models.BotUser, error) {
	rows, err := r.db.Query(ctx, selectAllBotUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("error querying bot users: %w", err)
	}
	defer rows.Close()

	var users []models.BotUser
	for rows.Next() {
		var user models.BotUser
		if err = rows.Scan(
			&user.TelegramID, &user.SalespersonID, &user.Username, &user.Role, &user.Language, &user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning bot user row: %w", err)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterating bot user rows: %w", err)
	}

	return users, nil
}

// IsUserAuthenticated checks if a user is authenticated based on their Telegram ID.
// It returns true if the user exists in the bot_users table, and false otherwise.
func (r *Repository) IsUserAuthenticated(ctx context.Context, telegramID int64) (bool, error) {
	var exists bool

	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM bot_users WHERE telegram_id = $1)", telegramID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user authentication: %w", err)
	}

	return exists, nil
}

// IsAdmin reports whether the Telegram ID is bound with the admin role.
// Unknown users are not admins.
func (r *Repository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var isAdmin bool

	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM bot_users WHERE telegram_id = $1 AND role = $2)",
		telegramID, models.RoleAdmin,
	).Scan(&isAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to check admin role: %w", err)
	}

	return isAdmin, nil
}

// DeleteUserByID removes a user from the bot_users table by their telegram ID.
func (r *Repository) DeleteUserByID(ctx context.Context, telegramID int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM bot_users WHERE telegram_id = $1", telegramID)
	if err != nil {
		return fmt.Errorf("failed to delete user %d from bot_users: %w", telegramID, err)
	}

	return nil
}

// SetUserLanguage stores the preferred interface language of a user.
func (r *Repository) SetUserLanguage(ctx context.Context, telegramID int64, language string) error {
	cmdTag, err := r.db.Exec(ctx, "UPDATE bot_users SET language = $1 WHERE telegram_id = $2", language, telegramID)
	if err != nil {
		return fmt.Errorf("failed to update language of user %d: %w", telegramID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// GetUserLanguage returns the preferred interface language of a user.
func (r *Repository) GetUserLanguage(ctx context.Context, telegramID int64) (string, error) {
	var language string

	err := r.db.QueryRow(ctx, "SELECT language FROM bot_users WHERE telegram_id = $1", telegramID).Scan(&language)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get language of user %d: %w", telegramID, err)
	}

	return language, nil
}
