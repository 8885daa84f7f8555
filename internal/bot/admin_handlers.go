package bot

import (
	"context"

	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"gopkg.in/telebot.v4"
)

// batchDeleteInitiateHandler starts the batch delete process.
func (b *Bot) batchDeleteInitiateHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	userID := ctx.Sender().ID
	b.log.Info("Admin user initiated a batch delete", "user", userID)
	b.metrics.CommandReceived.WithLabelValues("batch_delete").Inc()

	b.stateManager.Set(userID, UserState{WaitingFor: stateAwaitingBatchDelete})

	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(b.t(timeoutCtx, ctx, "admin.batch_delete.prompt"))
}

// batchDeleteHandler deletes every listed lead concurrently. Leads that failed
// stay in the snapshot; nothing is rolled back.
func (b *Bot) batchDeleteHandler(ctx context.Context, tCtx telebot.Context, text string) error {
	userID := tCtx.Sender().ID
	ids := parseLeadIDs(text)
	if len(ids) == 0 {
		b.stateManager.Set(userID, UserState{WaitingFor: stateAwaitingBatchDelete})
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return tCtx.Send(b.t(ctx, tCtx, "admin.batch_delete.no_ids"))
	}

	b.log.InfoContext(ctx, "Starting batch delete", "admin", userID, "count", len(ids))
	result := b.crm.DeleteLeads(ctx, ids)
	b.metrics.BatchDeleteFailures.Add(float64(len(result.Failed)))

	b.sessions.UpdateSnapshot(ctx, userID, func(items []models.Lead) []models.Lead {
		return leads.Without(items, result.Succeeded)
	})
	if err := result.Err(); err != nil {
		b.log.WarnContext(ctx, "Batch delete finished with failures", "admin", userID, "error", err)
	}

	p := b.phrasesFor(ctx, tCtx)
	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return tCtx.Send(batchDeleteText(p, len(ids), result), telebot.ModeHTML)
}
