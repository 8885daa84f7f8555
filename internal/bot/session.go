package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/metrics"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// snapshotTTL is how long a fetched lead collection is reused before refetching.
	snapshotTTL = 2 * time.Minute
	// viewTTL keeps the list controls of idle users for a day.
	viewTTL = 24 * time.Hour
	// commentTTL bounds how long a comment waits for confirmation.
	commentTTL = 10 * time.Minute
)

// ErrConfirmationExpired is returned when no pending comment is stored for the user.
var ErrConfirmationExpired = errors.New("confirmation expired")

// ListView holds the lead list controls of one user.
type ListView struct {
	Status   leads.StatusFilter `json:"status"`
	Product  string             `json:"product,omitempty"`
	Search   string             `json:"search,omitempty"`
	Order    leads.SortOrder    `json:"order"`
	Page     int                `json:"page"`
	Products []string           `json:"products,omitempty"` // Product names offered by the last picker, indexed by button data
}

func defaultView() ListView {
	return ListView{Status: leads.FilterEverything, Order: leads.SortAsc}
}

// PendingComment is a comment typed by the user and waiting for confirmation.
type PendingComment struct {
	LeadID string `json:"lead_id"`
	Text   string `json:"text"`
}

// SessionStore keeps the per-user view state in redis, keyed by Telegram ID.
// The lead snapshot is the local copy of the collection that list, calendar
// and summary views are computed from; it expires after snapshotTTL.
type SessionStore struct {
	client  *redis.Client
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewSessionStore(client *redis.Client, log *slog.Logger, metrics *metrics.Metrics) *SessionStore {
	return &SessionStore{client: client, log: log, metrics: metrics}
}

func viewKey(userID int64) string {
	return fmt.Sprintf("leaddesk:view:user:%d", userID)
}

func leadsKey(userID int64) string {
	return fmt.Sprintf("leaddesk:leads:user:%d", userID)
}

func commentKey(userID int64) string {
	return fmt.Sprintf("leaddesk:comment_confirm:%d", userID)
}

// load decodes the value under key into v. It reports false on a miss or a broken value.
func (s *SessionStore) load(ctx context.Context, key string, v any) bool {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.metrics.CacheOps.WithLabelValues("get", "error").Inc()
			s.log.ErrorContext(ctx, "Failed to read from cache", "error", err, "key", key)
			return false
		}
		s.metrics.CacheOps.WithLabelValues("get", "miss").Inc()
		return false
	}

	if err = json.Unmarshal(payload, v); err != nil {
		s.metrics.CacheOps.WithLabelValues("get", "error").Inc()
		s.log.ErrorContext(ctx, "Failed to unmarshal cached value", "error", err, "key", key)
		return false
	}
	s.metrics.CacheOps.WithLabelValues("get", "hit").Inc()
	return true
}

// save stores v under key. redis.KeepTTL as ttl keeps the remaining lifetime of the key.
func (s *SessionStore) save(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		s.metrics.CacheOps.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err = s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.metrics.CacheOps.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	s.metrics.CacheOps.WithLabelValues("set", "success").Inc()
	return nil
}

// View returns the user's list controls, or the default ones.
func (s *SessionStore) View(ctx context.Context, userID int64) ListView {
	view := defaultView()
	if !s.load(ctx, viewKey(userID), &view) {
		return defaultView()
	}
	return view
}

// UpdateView applies fn to the user's list controls, stores and returns the result.
// A failed write is logged; the caller still renders the updated view.
func (s *SessionStore) UpdateView(ctx context.Context, userID int64, fn func(*ListView)) ListView {
	view := s.View(ctx, userID)
	fn(&view)
	if err := s.save(ctx, viewKey(userID), view, viewTTL); err != nil {
		s.log.ErrorContext(ctx, "Failed to save list view", "error", err, "user", userID)
	}
	return view
}

// Snapshot returns the user's lead snapshot while it is fresh.
func (s *SessionStore) Snapshot(ctx context.Context, userID int64) ([]models.Lead, bool) {
	var items []models.Lead
	if !s.load(ctx, leadsKey(userID), &items) {
		return nil, false
	}
	return items, true
}

// SaveSnapshot replaces the user's lead snapshot and restarts its lifetime.
func (s *SessionStore) SaveSnapshot(ctx context.Context, userID int64, items []models.Lead) error {
	return s.save(ctx, leadsKey(userID), items, snapshotTTL)
}

// UpdateSnapshot applies fn to a fresh snapshot without extending its lifetime.
// Nothing happens once the snapshot has expired; the next view refetches.
func (s *SessionStore) UpdateSnapshot(ctx context.Context, userID int64, fn func([]models.Lead) []models.Lead) {
	items, ok := s.Snapshot(ctx, userID)
	if !ok {
		return
	}
	if err := s.save(ctx, leadsKey(userID), fn(items), redis.KeepTTL); err != nil {
		s.log.ErrorContext(ctx, "Failed to update lead snapshot", "error", err, "user", userID)
		s.client.Del(ctx, leadsKey(userID))
	}
}

// SavePendingComment keeps the comment until the user accepts or declines it.
func (s *SessionStore) SavePendingComment(ctx context.Context, userID int64, comment PendingComment) error {
	return s.save(ctx, commentKey(userID), comment, commentTTL)
}

// TakePendingComment returns the pending comment and removes it.
func (s *SessionStore) TakePendingComment(ctx context.Context, userID int64) (PendingComment, error) {
	var comment PendingComment
	if !s.load(ctx, commentKey(userID), &comment) {
		return PendingComment{}, ErrConfirmationExpired
	}
	s.client.Del(ctx, commentKey(userID))
	return comment, nil
}

// DropPendingComment discards the pending comment, if any.
func (s *SessionStore) DropPendingComment(ctx context.Context, userID int64) {
	s.client.Del(ctx, commentKey(userID))
}

// Delete drops everything stored for the user.
func (s *SessionStore) Delete(ctx context.Context, userID int64) {
	if err := s.client.Del(ctx, viewKey(userID), leadsKey(userID), commentKey(userID)).Err(); err != nil {
		s.log.ErrorContext(ctx, "Failed to drop session", "error", err, "user", userID)
	}
}

// loadLeads returns the user's lead collection, reusing a fresh snapshot unless force is set.
func (b *Bot) loadLeads(ctx context.Context, user models.BotUser, force bool) ([]models.Lead, error) {
	if !force {
		if items, ok := b.sessions.Snapshot(ctx, user.TelegramID); ok {
			return items, nil
		}
	}

	all, err := b.crm.Leads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	scoped := scopeLeads(all, user)
	if err = b.sessions.SaveSnapshot(ctx, user.TelegramID, scoped); err != nil {
		b.log.ErrorContext(ctx, "Failed to cache lead snapshot", "error", err, "user", user.TelegramID)
	}
	b.log.DebugContext(ctx, "Lead snapshot refreshed", "user", user.TelegramID, "total", len(all), "visible", len(scoped))
	return scoped, nil
}

// scopeLeads limits a salesperson to their own leads. Admins see everything.
func scopeLeads(all []models.Lead, user models.BotUser) []models.Lead {
	if user.IsAdmin() {
		return all
	}
	sp := user.Salesperson()
	result := make([]models.Lead, 0, len(all))
	for _, lead := range all {
		if leads.MatchesSalesperson(lead, sp) {
			result = append(result, lead)
		}
	}
	return result
}
