package repository

import (
	"context"
	"fmt"
	"time"
)

// MarkReminderSent records that the reminder of a lead at remindAt was delivered.
// It returns false when the reminder had already been recorded.
func (r *Repository) MarkReminderSent(ctx context.Context, leadID string, remindAt time.Time) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, insertSentReminderSQL, leadID, remindAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder of lead %s: %w", leadID, err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

// PruneReminders deletes reminder records older than before and returns how many were removed.
func (r *Repository) PruneReminders(ctx context.Context, before time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, deleteSentRemindersSQL, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sent reminders: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}
