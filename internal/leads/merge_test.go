package leads_test

import (
	"testing"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAndWithout(t *testing.T) {
	t.Parallel()

	collection := []models.Lead{{ID: "1", FirstName: "Amy"}, {ID: "2", FirstName: "Bob"}}

	merged := leads.Merge(collection, models.Lead{ID: "2", FirstName: "Robert"})
	assert.Equal(t, "Robert", merged[1].FirstName)
	assert.Equal(t, "Bob", collection[1].FirstName)

	appended := leads.Merge(collection, models.Lead{ID: "3"})
	assert.Equal(t, []string{"1", "2", "3"}, ids(appended))

	assert.Equal(t, []string{"2"}, ids(leads.Without(collection, []string{"1", "missing"})))

	found, ok := leads.Find(collection, "2")
	require.True(t, ok)
	assert.Equal(t, "Bob", found.FirstName)
	_, ok = leads.Find(collection, "9")
	assert.False(t, ok)
}

func TestLatestComment(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	comments := []models.Comment{
		{ID: "a", Text: "first", CreatedAt: base},
		{ID: "c", Text: "latest", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "b", Text: "middle", CreatedAt: base.Add(time.Hour)},
	}

	latest, ok := leads.LatestComment(comments)
	require.True(t, ok)
	assert.Equal(t, "c", latest.ID)

	sorted := leads.SortCommentsNewestFirst(comments)
	assert.Equal(t, "c", sorted[0].ID)
	assert.Equal(t, "a", sorted[2].ID)
	assert.Equal(t, "a", comments[0].ID)

	lead := models.Lead{Comment: "stale mirror"}
	assert.Equal(t, "latest", leads.CommentPreview(lead, comments))
	assert.Equal(t, "stale mirror", leads.CommentPreview(lead, nil))

	_, ok = leads.LatestComment(nil)
	assert.False(t, ok)
}
