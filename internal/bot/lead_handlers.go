package bot

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/i18n"
	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/UnknownOlympus/leaddesk/internal/report"
	"gopkg.in/telebot.v4"
)

// leadsHandler opens the lead list with the user's current controls.
func (b *Bot) leadsHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("leads").Inc()
	return b.renderLeadList(timeoutCtx, ctx, true)
}

// renderLeadList recomputes the visible page from the lead snapshot and shows it.
func (b *Bot) renderLeadList(ctx context.Context, tCtx telebot.Context, refetch bool) error {
	user, err := b.currentUser(ctx, tCtx)
	if err != nil {
		return b.replyError(ctx, tCtx, "lead_list", err)
	}
	items, err := b.loadLeads(ctx, user, refetch)
	if err != nil {
		return b.replyError(ctx, tCtx, "lead_list", err)
	}

	p := b.phrasesFor(ctx, tCtx)
	view := b.sessions.View(ctx, user.TelegramID)
	page := paginate(filterLeads(items, view, b.now(), i18n.Tag(p.lang)), view.Page)
	if page.Page != view.Page {
		b.sessions.UpdateView(ctx, user.TelegramID, func(v *ListView) { v.Page = page.Page })
	}

	if tCtx.Callback() != nil {
		_ = tCtx.Respond()
	}
	return b.show(tCtx, leadListText(p, page, view), leadListMarkup(p, page, view))
}

// updateListView applies fn to the list controls and re-renders the list.
func (b *Bot) updateListView(tCtx telebot.Context, command string, fn func(*ListView)) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues(command).Inc()
	b.sessions.UpdateView(timeoutCtx, tCtx.Sender().ID, fn)
	return b.renderLeadList(timeoutCtx, tCtx, false)
}

func (b *Bot) statusFilterHandler(ctx telebot.Context) error {
	filter, ok := leads.ParseStatusFilter(ctx.Data())
	if !ok {
		b.log.Error("Unknown status filter in callback", "data", ctx.Data())
		return ctx.Respond()
	}
	return b.updateListView(ctx, "status_filter", func(v *ListView) {
		v.Status = filter
		v.Page = 0
	})
}

func (b *Bot) sortToggleHandler(ctx telebot.Context) error {
	return b.updateListView(ctx, "sort_toggle", func(v *ListView) {
		v.Order = v.Order.Toggle()
	})
}

func (b *Bot) pageHandler(ctx telebot.Context) error {
	page, err := strconv.Atoi(ctx.Data())
	if err != nil {
		b.log.Error("Invalid page in callback", "error", err, "data", ctx.Data())
		return ctx.Respond()
	}
	return b.updateListView(ctx, "page", func(v *ListView) {
		v.Page = page
	})
}

func (b *Bot) resetFiltersHandler(ctx telebot.Context) error {
	return b.updateListView(ctx, "reset_filters", func(v *ListView) {
		*v = defaultView()
	})
}

func (b *Bot) leadBackHandler(ctx telebot.Context) error {
	return b.updateListView(ctx, "lead_back", func(*ListView) {})
}

func (b *Bot) refreshHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("refresh").Inc()
	return b.renderLeadList(timeoutCtx, ctx, true)
}

// productPickerHandler offers the product reference list as filter buttons.
func (b *Bot) productPickerHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("product_picker").Inc()

	items, err := b.crm.Products(timeoutCtx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "products", err)
	}
	products := productNames(items)
	view := b.sessions.UpdateView(timeoutCtx, ctx.Sender().ID, func(v *ListView) { v.Products = products })

	_ = ctx.Respond()
	p := b.phrasesFor(timeoutCtx, ctx)
	return b.sendOrEditMessage(ctx, p.get("leads.pick_product"), productPickerMarkup(p, products, view.Product))
}

func (b *Bot) productFilterHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	view := b.sessions.View(timeoutCtx, ctx.Sender().ID)
	product, ok := productFromArg(view.Products, ctx.Data())
	if !ok {
		b.log.Error("Unknown product in callback", "data", ctx.Data())
		return ctx.Respond()
	}
	return b.updateListView(ctx, "product_filter", func(v *ListView) {
		v.Product = product
		v.Page = 0
	})
}

// searchCommandHandler handles "/search <term>". Without a term it prompts for one.
func (b *Bot) searchCommandHandler(ctx telebot.Context) error {
	term := strings.TrimSpace(ctx.Message().Payload)
	if term == "" {
		return b.searchPromptHandler(ctx)
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	return b.applySearch(timeoutCtx, ctx, term)
}

func (b *Bot) searchPromptHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("search").Inc()
	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingSearch})

	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(b.t(timeoutCtx, ctx, "search.prompt"))
}

// applySearch sets the search term. A single "-" clears it.
func (b *Bot) applySearch(ctx context.Context, tCtx telebot.Context, term string) error {
	b.metrics.CommandReceived.WithLabelValues("search_apply").Inc()
	if term == "-" {
		term = ""
	}
	b.sessions.UpdateView(ctx, tCtx.Sender().ID, func(v *ListView) {
		v.Search = term
		v.Page = 0
	})
	return b.renderLeadList(ctx, tCtx, false)
}

// leadDetailsHandler shows the lead card with its latest comment and tags.
func (b *Bot) leadDetailsHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("lead_details").Inc()
	leadID := ctx.Data()

	user, err := b.currentUser(timeoutCtx, ctx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_details", err)
	}
	lead, err := b.findLead(timeoutCtx, user, leadID)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_details", err)
	}

	_ = ctx.Respond()
	return b.renderLeadCard(timeoutCtx, ctx, user, lead)
}

// renderLeadCard shows the card of lead with its latest comment and tag chips.
func (b *Bot) renderLeadCard(ctx context.Context, tCtx telebot.Context, user models.BotUser, lead models.Lead) error {
	comments, err := b.crm.Comments(ctx, lead.ID)
	if err != nil {
		// The lead comment mirror still gives a preview.
		b.log.WarnContext(ctx, "Failed to fetch comments", "error", err, "lead", lead.ID)
	}
	idx, customerTags := b.loadCardTags(ctx, lead)

	p := b.phrasesFor(ctx, tCtx)
	text := leadCardText(p, lead, leads.CommentPreview(lead, comments), idx, cardTags(idx, lead, customerTags), b.loc)
	return b.show(tCtx, text, leadCardMarkup(p, lead, user.IsAdmin()))
}

// loadCardTags indexes the CRM and systeme.io tags and fetches the WhatsApp tags
// of the lead's customer. A failing source is left out of the card.
func (b *Bot) loadCardTags(ctx context.Context, lead models.Lead) (*leads.TagIndex, []models.Tag) {
	tags, err := b.crm.Tags(ctx)
	if err != nil {
		b.log.WarnContext(ctx, "Failed to fetch tags", "error", err)
	}
	external, err := b.crm.SystemeIOTags(ctx)
	if err != nil {
		b.log.WarnContext(ctx, "Failed to fetch systeme.io tags", "error", err)
	}
	tags = append(tags, external...)

	var customerTags []models.Tag
	if customerID := whatsAppCustomerID(lead); customerID != "" {
		customerTags, err = b.crm.WhatsAppTags(ctx, customerID)
		if err != nil {
			b.log.WarnContext(ctx, "Failed to fetch whatsapp tags", "error", err, "lead", lead.ID)
		}
		tags = append(tags, customerTags...)
	}
	return leads.NewTagIndex(tags), customerTags
}

// leadTagsHandler opens the tag picker of the lead.
func (b *Bot) leadTagsHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("lead_tags").Inc()

	user, err := b.currentUser(timeoutCtx, ctx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_tags", err)
	}
	lead, err := b.findLead(timeoutCtx, user, ctx.Data())
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_tags", err)
	}
	tags, err := b.crm.Tags(timeoutCtx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_tags", err)
	}

	_ = ctx.Respond()
	return b.renderTagPicker(timeoutCtx, ctx, lead, tags)
}

func (b *Bot) renderTagPicker(ctx context.Context, tCtx telebot.Context, lead models.Lead, tags []models.Tag) error {
	p := b.phrasesFor(ctx, tCtx)
	text := p.with("lead.pick_tags", map[string]interface{}{"name": html.EscapeString(leadName(lead))})
	if len(tags) == 0 {
		text = p.get("lead.no_tags")
	}
	return b.sendOrEditMessage(tCtx, text, tagPickerMarkup(p, lead, tags))
}

// leadTagToggleHandler adds or removes one CRM tag and merges the server copy into the snapshot.
func (b *Bot) leadTagToggleHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("lead_tag_toggle").Inc()
	args := ctx.Args()
	if len(args) != 2 {
		b.log.Error("Invalid tag callback", "data", ctx.Data())
		return ctx.Respond()
	}
	leadID, tagID := args[0], args[1]

	user, err := b.currentUser(timeoutCtx, ctx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_tag_toggle", err)
	}
	lead, err := b.findLead(timeoutCtx, user, leadID)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_tag_toggle", err)
	}
	tags, err := b.crm.Tags(timeoutCtx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_tag_toggle", err)
	}

	tag, ok := leads.NewTagIndex(tags).Get(models.TagKey{Source: models.TagSourceCRM, ID: tagID})
	if !ok {
		b.log.WarnContext(timeoutCtx, "Tag not found", "user", user.TelegramID, "tag", tagID)
		b.metrics.SentMessages.WithLabelValues("respond").Inc()
		_ = ctx.Respond(&telebot.CallbackResponse{Text: b.t(timeoutCtx, ctx, "lead.tag_missing")})
		return b.renderTagPicker(timeoutCtx, ctx, lead, tags)
	}

	changed, added := toggleTag(lead, tag)
	updated, err := b.crm.UpdateLead(timeoutCtx, changed)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_tag_toggle", err)
	}
	lead = changed
	if updated != nil {
		lead = *updated
	}
	b.sessions.UpdateSnapshot(timeoutCtx, user.TelegramID, func(items []models.Lead) []models.Lead {
		return leads.Merge(items, lead)
	})
	b.log.InfoContext(timeoutCtx, "Lead tags changed", "user", user.TelegramID, "lead", lead.ID, "tag", tag.Name, "added", added)

	key := "lead.tag_removed"
	if added {
		key = "lead.tag_added"
	}
	b.metrics.SentMessages.WithLabelValues("respond").Inc()
	_ = ctx.Respond(&telebot.CallbackResponse{Text: b.t(timeoutCtx, ctx, key)})
	return b.renderTagPicker(timeoutCtx, ctx, lead, tags)
}

// findLead looks the lead up in the snapshot, refetching once if it is missing.
func (b *Bot) findLead(ctx context.Context, user models.BotUser, leadID string) (models.Lead, error) {
	items, err := b.loadLeads(ctx, user, false)
	if err != nil {
		return models.Lead{}, err
	}
	if lead, ok := leads.Find(items, leadID); ok {
		return lead, nil
	}

	items, err = b.loadLeads(ctx, user, true)
	if err != nil {
		return models.Lead{}, err
	}
	if lead, ok := leads.Find(items, leadID); ok {
		return lead, nil
	}
	return models.Lead{}, fmt.Errorf("%w: %s", ErrLeadNotFound, leadID)
}

// leadStatusHandler changes the lead status and merges the server copy into the snapshot.
func (b *Bot) leadStatusHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("lead_status").Inc()
	args := ctx.Args()
	if len(args) != 2 {
		b.log.Error("Invalid status callback", "data", ctx.Data())
		return ctx.Respond()
	}
	leadID, status := args[0], args[1]

	user, err := b.currentUser(timeoutCtx, ctx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_status", err)
	}
	lead, err := b.findLead(timeoutCtx, user, leadID)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_status", err)
	}

	lead.LeadStatus = status
	updated, err := b.crm.UpdateLead(timeoutCtx, lead)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_status", err)
	}
	if updated != nil {
		lead = *updated
	}
	b.sessions.UpdateSnapshot(timeoutCtx, user.TelegramID, func(items []models.Lead) []models.Lead {
		return leads.Merge(items, lead)
	})
	b.log.InfoContext(timeoutCtx, "Lead status changed", "user", user.TelegramID, "lead", lead.ID, "status", status)

	b.metrics.SentMessages.WithLabelValues("respond").Inc()
	_ = ctx.Respond(&telebot.CallbackResponse{Text: b.t(timeoutCtx, ctx, "lead.status_changed")})
	return b.renderLeadCard(timeoutCtx, ctx, user, lead)
}

// leadDeleteHandler asks an admin to confirm the deletion.
func (b *Bot) leadDeleteHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("lead_delete").Inc()
	_ = ctx.Respond()

	p := b.phrasesFor(timeoutCtx, ctx)
	return b.sendOrEditMessage(ctx, p.get("lead.delete_confirm"), deleteConfirmMarkup(p, ctx.Data()))
}

func (b *Bot) leadDeleteConfirmHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("lead_delete_confirm").Inc()
	userID := ctx.Sender().ID
	leadID := ctx.Data()

	if err := b.crm.DeleteLead(timeoutCtx, leadID); err != nil {
		return b.replyError(timeoutCtx, ctx, "lead_delete", err)
	}
	b.sessions.UpdateSnapshot(timeoutCtx, userID, func(items []models.Lead) []models.Lead {
		return leads.Without(items, []string{leadID})
	})
	b.log.InfoContext(timeoutCtx, "Lead deleted", "user", userID, "lead", leadID)

	b.metrics.SentMessages.WithLabelValues("respond").Inc()
	_ = ctx.Respond(&telebot.CallbackResponse{Text: b.t(timeoutCtx, ctx, "lead.deleted")})
	return b.renderLeadList(timeoutCtx, ctx, false)
}

func (b *Bot) addCommentHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("leave_comment").Inc()
	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingComment, LeadID: ctx.Data()})

	_ = ctx.Respond()
	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(b.t(timeoutCtx, ctx, "comment.prompt"))
}

// commentConfirmHandler keeps the comment text until the user confirms it.
func (b *Bot) commentConfirmHandler(ctx context.Context, tCtx telebot.Context, leadID, text string) error {
	if text == "" {
		b.stateManager.Set(tCtx.Sender().ID, UserState{WaitingFor: stateAwaitingComment, LeadID: leadID})
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return tCtx.Send(b.t(ctx, tCtx, "comment.empty"))
	}

	pending := PendingComment{LeadID: leadID, Text: text}
	if err := b.sessions.SavePendingComment(ctx, tCtx.Sender().ID, pending); err != nil {
		return b.replyError(ctx, tCtx, "comment_confirm", err)
	}

	p := b.phrasesFor(ctx, tCtx)
	b.metrics.SentMessages.WithLabelValues("text").Inc()
	message := p.with("comment.confirm", map[string]interface{}{"text": html.EscapeString(text)})
	return tCtx.Send(message, telebot.ModeHTML, commentConfirmMarkup(p, leadID))
}

// commentAcceptHandler - final message sending.
func (b *Bot) commentAcceptHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), crmTimeout)
	defer cancel()

	b.log.Info("User requested accept comment", "user", ctx.Sender().ID)
	b.metrics.CommandReceived.WithLabelValues("comment_accept").Inc()
	_ = ctx.Respond()

	pending, err := b.sessions.TakePendingComment(timeoutCtx, ctx.Sender().ID)
	if err != nil || pending.LeadID != ctx.Data() {
		b.log.Warn("Could not find comment in confirmation cache", "user", ctx.Sender().ID, "data", ctx.Data())
		b.metrics.SentMessages.WithLabelValues("edit").Inc()
		return ctx.Edit(b.t(timeoutCtx, ctx, "comment.expired"))
	}

	user, err := b.currentUser(timeoutCtx, ctx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "comment_accept", err)
	}

	_, err = b.crm.AddComment(timeoutCtx, models.Comment{
		LeadID:    pending.LeadID,
		Text:      pending.Text,
		CreatedBy: user.SalespersonID,
		AddedBy:   user.Username,
		Role:      user.Role,
	})
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "comment_accept", err)
	}

	b.metrics.SentMessages.WithLabelValues("edit").Inc()
	return ctx.Edit(b.t(timeoutCtx, ctx, "comment.added"))
}

// commentDeclineHandler - cancel.
func (b *Bot) commentDeclineHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	b.log.Info("User requested decline comment", "user", ctx.Sender().ID)
	b.metrics.CommandReceived.WithLabelValues("comment_declined").Inc()
	b.sessions.DropPendingComment(timeoutCtx, ctx.Sender().ID)

	_ = ctx.Respond()
	b.metrics.SentMessages.WithLabelValues("edit").Inc()
	return ctx.Edit(b.t(timeoutCtx, ctx, "general.canceled"))
}

// commentsExportHandler sends every comment of the lead as a CSV document.
func (b *Bot) commentsExportHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	b.metrics.CommandReceived.WithLabelValues("comments_export").Inc()

	user, err := b.currentUser(timeoutCtx, ctx)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "comments_export", err)
	}
	lead, err := b.findLead(timeoutCtx, user, ctx.Data())
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "comments_export", err)
	}

	startTime := time.Now()
	comments, err := b.crm.Comments(timeoutCtx, lead.ID)
	if err != nil {
		return b.replyError(timeoutCtx, ctx, "comments_export", err)
	}
	if len(comments) == 0 {
		return ctx.Respond(&telebot.CallbackResponse{Text: b.t(timeoutCtx, ctx, "comment.none")})
	}

	var buf bytes.Buffer
	if err = report.CommentsCSV(&buf, lead, leads.SortCommentsNewestFirst(comments)); err != nil {
		return b.replyError(timeoutCtx, ctx, "comments_export", err)
	}
	b.metrics.ReportGeneration.WithLabelValues("comments_csv").Observe(time.Since(startTime).Seconds())

	_ = ctx.Respond()
	b.metrics.SentMessages.WithLabelValues("file").Inc()
	return ctx.Send(&telebot.Document{
		File:     telebot.FromReader(&buf),
		FileName: fmt.Sprintf("comments_%s.csv", lead.ID),
		MIME:     "text/csv",
	})
}
