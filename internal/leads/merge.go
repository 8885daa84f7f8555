package leads

import (
	"slices"

	"github.com/UnknownOlympus/leaddesk/internal/models"
)

// Merge returns a copy of leads with updated replacing the lead of the same id,
// or appended when no such lead exists.
func Merge(leads []models.Lead, updated models.Lead) []models.Lead {
	result := slices.Clone(leads)
	for i := range result {
		if result[i].ID == updated.ID {
			result[i] = updated
			return result
		}
	}
	return append(result, updated)
}

// Without returns a copy of leads without the given ids.
func Without(leads []models.Lead, ids []string) []models.Lead {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	result := make([]models.Lead, 0, len(leads))
	for _, lead := range leads {
		if _, ok := drop[lead.ID]; !ok {
			result = append(result, lead)
		}
	}
	return result
}

// Find returns the lead with the given id.
func Find(leads []models.Lead, id string) (models.Lead, bool) {
	for _, lead := range leads {
		if lead.ID == id {
			return lead, true
		}
	}
	return models.Lead{}, false
}

// LatestComment returns the newest comment. The comments collection is the
// source of truth; the lead comment field is only a fallback for display.
func LatestComment(comments []models.Comment) (models.Comment, bool) {
	if len(comments) == 0 {
		return models.Comment{}, false
	}
	latest := comments[0]
	for _, c := range comments[1:] {
		if c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return latest, true
}

// SortCommentsNewestFirst returns a copy of comments ordered by creation time, newest first.
func SortCommentsNewestFirst(comments []models.Comment) []models.Comment {
	result := slices.Clone(comments)
	slices.SortStableFunc(result, func(a, b models.Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result
}

// CommentPreview returns the text shown as a lead's latest comment.
func CommentPreview(lead models.Lead, comments []models.Comment) string {
	if latest, ok := LatestComment(comments); ok {
		return latest.Text
	}
	return lead.Comment
}
