package leads

import (
	"strings"

	"github.com/UnknownOlympus/leaddesk/internal/models"
)

// TagIndex resolves tag display data. Tags are keyed by (source, id); lead
// records still reference tags by name, so names are looked up through a
// secondary index that prefers CRM tags when several sources share a name.
type TagIndex struct {
	byKey  map[models.TagKey]models.Tag
	byName map[string][]models.Tag
}

// NewTagIndex builds an index over tags from every source.
func NewTagIndex(tags []models.Tag) *TagIndex {
	idx := &TagIndex{
		byKey:  make(map[models.TagKey]models.Tag, len(tags)),
		byName: make(map[string][]models.Tag, len(tags)),
	}
	for _, tag := range tags {
		idx.byKey[tag.Key()] = tag
		name := normalizeTagName(tag.Name)
		idx.byName[name] = append(idx.byName[name], tag)
	}
	return idx
}

// Get returns the tag stored under key.
func (idx *TagIndex) Get(key models.TagKey) (models.Tag, bool) {
	tag, ok := idx.byKey[key]
	return tag, ok
}

// Resolve returns the tag a lead refers to by name.
func (idx *TagIndex) Resolve(name string) (models.Tag, bool) {
	candidates := idx.byName[normalizeTagName(name)]
	if len(candidates) == 0 {
		return models.Tag{}, false
	}
	for _, tag := range candidates {
		if tag.Editable() {
			return tag, true
		}
	}
	return candidates[0], true
}

// Ambiguous reports whether more than one source uses the name.
func (idx *TagIndex) Ambiguous(name string) bool {
	return len(idx.byName[normalizeTagName(name)]) > 1
}

// ResolveAll resolves every tag of the lead, keeping unknown names as bare tags.
func (idx *TagIndex) ResolveAll(lead models.Lead) []models.Tag {
	tags := make([]models.Tag, 0, len(lead.Tags))
	for _, name := range lead.Tags {
		if tag, ok := idx.Resolve(name); ok {
			tags = append(tags, tag)
			continue
		}
		tags = append(tags, models.Tag{Name: name})
	}
	return tags
}

// HasTag reports whether the lead carries the tag name, ignoring case.
func HasTag(lead models.Lead, name string) bool {
	for _, existing := range lead.Tags {
		if normalizeTagName(existing) == normalizeTagName(name) {
			return true
		}
	}
	return false
}

// WithTag returns the names of lead tags with name appended, without duplicates.
func WithTag(lead models.Lead, name string) []string {
	if HasTag(lead, name) {
		return append([]string(nil), lead.Tags...)
	}
	return append(append([]string(nil), lead.Tags...), name)
}

// WithoutTag returns the names of lead tags with name removed.
func WithoutTag(lead models.Lead, name string) []string {
	result := make([]string, 0, len(lead.Tags))
	for _, existing := range lead.Tags {
		if normalizeTagName(existing) != normalizeTagName(name) {
			result = append(result, existing)
		}
	}
	return result
}

func normalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
