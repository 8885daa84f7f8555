package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/UnknownOlympus/leaddesk/internal/models"
)

// Salespersons returns every salesperson of the tenant.
func (c *Client) Salespersons(ctx context.Context) ([]models.Salesperson, error) {
	sps, err := list[models.Salesperson](ctx, c, "get_salespersons", "/api/salespersons/get-salespersons")
	if err != nil {
		return sps, fmt.Errorf("failed to get salespersons: %w", err)
	}
	return sps, nil
}

// FindSalespersonByEmail looks a salesperson up by email, ignoring case.
func (c *Client) FindSalespersonByEmail(ctx context.Context, email string) (models.Salesperson, bool, error) {
	sps, err := c.Salespersons(ctx)
	if err != nil {
		return models.Salesperson{}, false, err
	}
	email = strings.TrimSpace(email)
	for _, sp := range sps {
		if strings.EqualFold(sp.Email, email) {
			return sp, true, nil
		}
	}
	return models.Salesperson{}, false, nil
}

// CreateSalesperson creates a salesperson. Admin only on the server side.
func (c *Client) CreateSalesperson(ctx context.Context, sp models.Salesperson) error {
	if err := validateSalesperson(sp); err != nil {
		return err
	}
	if _, err := c.do(ctx, "create_salesperson", http.MethodPost, "/api/salespersons/create-salesperson", sp); err != nil {
		return fmt.Errorf("failed to create salesperson: %w", err)
	}
	return nil
}

// UpdateSalesperson edits a salesperson.
func (c *Client) UpdateSalesperson(ctx context.Context, sp models.Salesperson) error {
	if sp.ID == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if err := validateSalesperson(sp); err != nil {
		return err
	}
	path := "/api/salespersons/update-salesperson/" + url.PathEscape(sp.ID)
	if _, err := c.do(ctx, "update_salesperson", http.MethodPut, path, sp); err != nil {
		return fmt.Errorf("failed to update salesperson %s: %w", sp.ID, err)
	}
	return nil
}

// DeleteSalesperson deletes a salesperson. Leads assigned to them are left untouched.
func (c *Client) DeleteSalesperson(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	path := "/api/salespersons/delete-salesperson/" + url.PathEscape(id)
	if _, err := c.do(ctx, "delete_salesperson", http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("failed to delete salesperson %s: %w", id, err)
	}
	return nil
}

// Comments returns the comments of a lead.
func (c *Client) Comments(ctx context.Context, leadID string) ([]models.Comment, error) {
	path := "/api/comments/get-comments/" + url.PathEscape(leadID)
	comments, err := list[models.Comment](ctx, c, "get_comments", path)
	if err != nil {
		return comments, fmt.Errorf("failed to get comments of lead %s: %w", leadID, err)
	}
	return comments, nil
}

// AddComment attaches a comment to a lead.
func (c *Client) AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	if comment.LeadID == "" {
		return nil, &ValidationError{Field: "leadId", Message: "is required"}
	}
	if strings.TrimSpace(comment.Text) == "" {
		return nil, &ValidationError{Field: "text", Message: "is required"}
	}

	data, err := c.do(ctx, "add_comment", http.MethodPost, "/api/comments/add-comment", comment)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	var created models.Comment
	if jsonUnmarshalLenient(data, &created) != nil || created.ID == "" {
		return nil, nil //nolint:nilnil // the server does not always echo the comment
	}
	return &created, nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	path := "/api/comments/delete-comment/" + url.PathEscape(id)
	if _, err := c.do(ctx, "delete_comment", http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("failed to delete comment %s: %w", id, err)
	}
	return nil
}

func validateSalesperson(sp models.Salesperson) error {
	if strings.TrimSpace(sp.Username) == "" {
		return &ValidationError{Field: "username", Message: "is required"}
	}
	if !strings.Contains(sp.Email, "@") {
		return &ValidationError{Field: "email", Message: "must be a valid address"}
	}
	return nil
}

func jsonUnmarshalLenient(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty data")
	}
	return json.Unmarshal(data, v)
}
