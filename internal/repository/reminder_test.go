package repository_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var insertSentReminder = regexp.QuoteMeta(`
INSERT INTO sent_reminders (lead_id, remind_at)
VALUES ($1, $2) ON CONFLICT (lead_id, remind_at) DO NOTHING`)

const deleteSentReminders = "DELETE FROM sent_reminders WHERE remind_at < \\$1"

func TestMarkReminderSent(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	remindAt := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		expected bool
	}{
		{name: "first delivery", affected: 1, expected: true},
		{name: "already sent", affected: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := repository.NewRepository(mock)

			mock.ExpectExec(insertSentReminder).
				WithArgs("lead-1", remindAt).
				WillReturnResult(pgxmock.NewResult("INSERT", tt.affected))

			marked, err := repo.MarkReminderSent(ctx, "lead-1", remindAt)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, marked)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("error - insert failed", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectExec(insertSentReminder).WithArgs("lead-1", remindAt).WillReturnError(assert.AnError)

		_, err = repo.MarkReminderSent(ctx, "lead-1", remindAt)

		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPruneReminders(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	before := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewRepository(mock)

	mock.ExpectExec(deleteSentReminders).WithArgs(before).WillReturnResult(pgxmock.NewResult("DELETE", 4))

	removed, err := repo.PruneReminders(ctx, before)

	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewRepository(mock)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS bot_users").WillReturnError(assert.AnError)

	err = repo.EnsureSchema(ctx)

	require.ErrorIs(t, err, assert.AnError)
	require.ErrorContains(t, err, "failed to create schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}
