package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Lead statuses used by the CRM. The server treats them as free strings,
// so any other value is passed through untouched.
const (
	StatusOpen        = "Open"
	StatusClosed      = "Closed"
	StatusPending     = "Pending"
	StatusMiss        = "Miss"
	StatusVoid        = "Void"
	StatusUnscheduled = "Unscheduled"
	StatusDeals       = "Deals"
	StatusCustomer    = "Customer"
)

// CategoryUnscheduled marks a lead without a schedule when stored as category.
const CategoryUnscheduled = "Unscheduled"

// Lead represents a sales prospect record as returned by the CRM API.
type Lead struct {
	ID             string    `json:"id"`             // Opaque identifier, unique within a tenant
	FirstName      string    `json:"firstName"`      // Contact first name
	LastName       string    `json:"lastName"`       // Contact last name
	Company        string    `json:"company"`        // Company name
	Email          string    `json:"email"`          // Contact email
	Phone          string    `json:"phone"`          // Contact phone
	City           string    `json:"city"`           // Contact city
	Category       string    `json:"category"`       // Category name from the reference list
	Product        string    `json:"product"`        // Product name from the reference list
	LeadSource     string    `json:"leadSource"`     // Lead source name from the reference list
	LeadStatus     string    `json:"leadStatus"`     // Status, see Status* constants
	Tags           []string  `json:"tags"`           // Tag names attached to the lead
	CreatedAt      time.Time `json:"createdAt"`      // Creation timestamp
	LeadStartDate  string    `json:"leadStartDate"`  // Scheduled date, date-only or ISO timestamp
	LeadStartTime  string    `json:"leadStartTime"`  // Scheduled time, H:MM 24-hour
	ReminderDate   string    `json:"reminderDate"`   // Reminder date
	ReminderTime   string    `json:"reminderTime"`   // Reminder time, H:MM 24-hour
	Comment        string    `json:"comment"`        // Latest comment mirror kept by the server
	Salesperson    string    `json:"salesperson"`    // Assignee username
	CreatedBy      string    `json:"createdBy"`      // Assignee id
	TesterSalesman string    `json:"testerSalesman"` // Secondary assignee username
}

// FullName returns the first and last name joined by a space.
func (l Lead) FullName() string {
	switch {
	case l.FirstName == "":
		return l.LastName
	case l.LastName == "":
		return l.FirstName
	default:
		return l.FirstName + " " + l.LastName
	}
}

// UnmarshalJSON accepts both "id" and the "_id" key used by the CRM backend.
// String fields are decoded leniently, see text.
func (l *Lead) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID             text            `json:"id"`
		MongoID        text            `json:"_id"`
		FirstName      text            `json:"firstName"`
		LastName       text            `json:"lastName"`
		Company        text            `json:"company"`
		Email          text            `json:"email"`
		Phone          text            `json:"phone"`
		City           text            `json:"city"`
		Category       text            `json:"category"`
		Product        text            `json:"product"`
		LeadSource     text            `json:"leadSource"`
		LeadStatus     text            `json:"leadStatus"`
		Tags           json.RawMessage `json:"tags"`
		CreatedAt      json.RawMessage `json:"createdAt"`
		LeadStartDate  text            `json:"leadStartDate"`
		LeadStartTime  text            `json:"leadStartTime"`
		ReminderDate   text            `json:"reminderDate"`
		ReminderTime   text            `json:"reminderTime"`
		Comment        text            `json:"comment"`
		Salesperson    text            `json:"salesperson"`
		CreatedBy      text            `json:"createdBy"`
		TesterSalesman text            `json:"testerSalesman"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*l = Lead{
		ID:             string(aux.ID),
		FirstName:      string(aux.FirstName),
		LastName:       string(aux.LastName),
		Company:        string(aux.Company),
		Email:          string(aux.Email),
		Phone:          string(aux.Phone),
		City:           string(aux.City),
		Category:       string(aux.Category),
		Product:        string(aux.Product),
		LeadSource:     string(aux.LeadSource),
		LeadStatus:     string(aux.LeadStatus),
		Tags:           parseTagNames(aux.Tags),
		CreatedAt:      parseTimestamp(aux.CreatedAt),
		LeadStartDate:  string(aux.LeadStartDate),
		LeadStartTime:  string(aux.LeadStartTime),
		ReminderDate:   string(aux.ReminderDate),
		ReminderTime:   string(aux.ReminderTime),
		Comment:        string(aux.Comment),
		Salesperson:    string(aux.Salesperson),
		CreatedBy:      string(aux.CreatedBy),
		TesterSalesman: string(aux.TesterSalesman),
	}
	if l.ID == "" {
		l.ID = string(aux.MongoID)
	}

	return nil
}

// text is a string field that never fails to decode. Numbers and booleans keep
// their literal form, a populated reference such as {"_id": "sp1"} yields its id
// and anything else is empty.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	*t = text(scalar(data))
	return nil
}

func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return ""
		}
		return s
	case '{':
		var ref map[string]json.RawMessage
		if json.Unmarshal(raw, &ref) != nil {
			return ""
		}
		for _, key := range []string{"_id", "id"} {
			if id, ok := ref[key]; ok && len(id) > 0 && id[0] != '{' {
				return scalar(id)
			}
		}
		return ""
	case '[', 'n':
		return ""
	default:
		return string(raw)
	}
}

// parseTimestamp decodes a JSON timestamp and yields the zero time for anything malformed.
func parseTimestamp(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseTagNames accepts either a list of names or a list of tag objects with a name.
func parseTagNames(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var names []string
	if json.Unmarshal(raw, &names) == nil {
		return names
	}
	var objects []struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &objects) != nil {
		return nil
	}
	names = make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.Name != "" {
			names = append(names, obj.Name)
		}
	}
	return names
}
