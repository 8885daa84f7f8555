package models

import (
	"encoding/json"
	"time"
)

// Comment is a note attached to a lead.
type Comment struct {
	ID        string    `json:"id"`        // Unique identifier of the comment
	LeadID    string    `json:"leadId"`    // Lead the comment belongs to
	Text      string    `json:"text"`      // Comment body
	CreatedAt time.Time `json:"createdAt"` // When the comment was added
	CreatedBy string    `json:"createdBy"` // Author id
	AddedBy   string    `json:"addedBy"`   // Author display name
	Role      string    `json:"role"`      // Author role
}

// Author returns the best available author label.
func (c Comment) Author() string {
	if c.AddedBy != "" {
		return c.AddedBy
	}
	return c.CreatedBy
}

// UnmarshalJSON accepts both "id" and "_id" and tolerates malformed timestamps.
func (c *Comment) UnmarshalJSON(data []byte) error {
	type alias Comment
	aux := struct {
		*alias
		MongoID   string          `json:"_id"`
		CreatedAt json.RawMessage `json:"createdAt"`
	}{alias: (*alias)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = aux.MongoID
	}
	c.CreatedAt = parseTimestamp(aux.CreatedAt)
	return nil
}
