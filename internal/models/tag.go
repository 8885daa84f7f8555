package models

import "encoding/json"

// Tag sources. Only CRM tags may be created or edited locally.
const (
	TagSourceCRM       = "crm"
	TagSourceSystemeIO = "systemeio"
	TagSourceWhatsApp  = "whatsapp"
)

// Tag is a named, colored label.
type Tag struct {
	ID          string `json:"id"`          // Unique identifier within its source
	Name        string `json:"name"`        // Display name
	Color       string `json:"color"`       // Hex color
	Description string `json:"description"` // Optional description
	Source      string `json:"source"`      // Origin system, empty means crm
}

// TagKey identifies a tag across sources.
type TagKey struct {
	Source string
	ID     string
}

// Key returns the composite (source, id) key of the tag.
func (t Tag) Key() TagKey {
	return TagKey{Source: t.SourceOrDefault(), ID: t.ID}
}

// SourceOrDefault returns the tag source, treating an empty source as crm.
func (t Tag) SourceOrDefault() string {
	if t.Source == "" {
		return TagSourceCRM
	}
	return t.Source
}

// Editable reports whether the tag may be changed through the CRM endpoints.
func (t Tag) Editable() bool {
	return t.SourceOrDefault() == TagSourceCRM
}

// UnmarshalJSON accepts both "id" and "_id".
func (t *Tag) UnmarshalJSON(data []byte) error {
	type alias Tag
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = aux.MongoID
	}
	return nil
}

// ReferenceItem is an entry of the simple reference lists:
// categories, products, lead sources and lead statuses.
type ReferenceItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts both "id" and "_id".
func (r *ReferenceItem) UnmarshalJSON(data []byte) error {
	type alias ReferenceItem
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = aux.MongoID
	}
	return nil
}
