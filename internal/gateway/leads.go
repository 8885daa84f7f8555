package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/UnknownOlympus/leaddesk/internal/models"
	"golang.org/x/sync/errgroup"
)

// MaxConcurrentWrites bounds the requests a batch write keeps in flight.
const MaxConcurrentWrites = 8

// BatchResult reports the outcome of a fan-out write. Succeeded items are
// never rolled back when others fail.
type BatchResult struct {
	Succeeded []string         // IDs processed successfully
	Failed    map[string]error // IDs that failed, with their errors
}

// Err returns ErrPartialFailure with the failure count, or nil when everything succeeded.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d failed", ErrPartialFailure, len(r.Failed), len(r.Failed)+len(r.Succeeded))
}

// Leads returns every lead visible to the current token.
func (c *Client) Leads(ctx context.Context) ([]models.Lead, error) {
	leads, err := list[models.Lead](ctx, c, "get_leads", "/api/leads/get-leads")
	if err != nil {
		return leads, fmt.Errorf("failed to get leads: %w", err)
	}
	return leads, nil
}

// CreateLead validates and creates a lead. The created lead is returned when
// the server sends it back.
func (c *Client) CreateLead(ctx context.Context, lead models.Lead) (*models.Lead, error) {
	if err := validateLead(lead); err != nil {
		return nil, err
	}

	data, err := c.do(ctx, "create_lead", http.MethodPost, "/api/leads/create-lead", lead)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	return decodeLead(data), nil
}

// UpdateLead sends the full lead to the update endpoint. When the server
// returns the updated entity it is returned, otherwise the result is nil and
// callers should refetch.
func (c *Client) UpdateLead(ctx context.Context, lead models.Lead) (*models.Lead, error) {
	if lead.ID == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}
	if err := validateLead(lead); err != nil {
		return nil, err
	}

	path := "/api/leads/update-lead/" + url.PathEscape(lead.ID)
	data, err := c.do(ctx, "update_lead", http.MethodPut, path, lead)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead %s: %w", lead.ID, err)
	}

	return decodeLead(data), nil
}

// DeleteLead deletes one lead.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if _, err := c.do(ctx, "delete_lead", http.MethodDelete, "/api/leads/delete-lead/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("failed to delete lead %s: %w", id, err)
	}
	return nil
}

// DeleteLeads deletes leads concurrently, one request per id, with no
// ordering between them. It waits for every request and reports failures by id.
func (c *Client) DeleteLeads(ctx context.Context, ids []string) BatchResult {
	result := BatchResult{Failed: make(map[string]error)}
	var mu sync.Mutex
	var group errgroup.Group
	group.SetLimit(MaxConcurrentWrites)

	for _, id := range ids {
		group.Go(func() error {
			err := c.DeleteLead(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = err
				return nil
			}
			result.Succeeded = append(result.Succeeded, id)
			return nil
		})
	}
	_ = group.Wait()

	if len(result.Failed) > 0 {
		c.log.WarnContext(ctx, "Batch delete finished with failures",
			"requested", len(ids), "failed", len(result.Failed))
	}

	return result
}

func decodeLead(data json.RawMessage) *models.Lead {
	var lead models.Lead
	if len(data) == 0 || json.Unmarshal(data, &lead) != nil || lead.ID == "" {
		return nil
	}
	return &lead
}

func validateLead(lead models.Lead) error {
	if strings.TrimSpace(lead.FirstName) == "" {
		return &ValidationError{Field: "firstName", Message: "is required"}
	}
	if strings.TrimSpace(lead.Email) == "" && strings.TrimSpace(lead.Phone) == "" {
		return &ValidationError{Field: "contact", Message: "email or phone is required"}
	}
	return nil
}
