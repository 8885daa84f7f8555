package models

import "encoding/json"

// Salesperson represents a CRM user with the sales role.
type Salesperson struct {
	ID           string `json:"id"`           // Unique identifier of the salesperson
	Username     string `json:"username"`     // Login name, used by name-based lead links
	FirstName    string `json:"firstName"`    // First name
	LastName     string `json:"lastName"`     // Last name
	Email        string `json:"email"`        // Email address
	Designation  string `json:"designation"`  // Job title
	Contact      string `json:"contact"`      // Phone number
	ProfileImage string `json:"profileImage"` // Profile image reference
}

// Name returns the value leads carry in their salesperson name fields.
func (s Salesperson) Name() string {
	return s.Username
}

// DisplayName returns a human readable name, falling back to the username.
func (s Salesperson) DisplayName() string {
	switch {
	case s.FirstName != "" && s.LastName != "":
		return s.FirstName + " " + s.LastName
	case s.FirstName != "":
		return s.FirstName
	default:
		return s.Username
	}
}

// UnmarshalJSON accepts both "id" and "_id".
func (s *Salesperson) UnmarshalJSON(data []byte) error {
	type alias Salesperson
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = aux.MongoID
	}
	return nil
}
