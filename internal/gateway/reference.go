package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/UnknownOlympus/leaddesk/internal/models"
)

// ItemKind names a reference list under /api/manage-items.
type ItemKind string

const (
	KindCategories ItemKind = "categories"
	KindProducts   ItemKind = "products"
	KindLeadSource ItemKind = "lead-source"
	KindLeadStatus ItemKind = "lead-status"
	kindTags       ItemKind = "tags"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Items returns a reference list.
func (c *Client) Items(ctx context.Context, kind ItemKind) ([]models.ReferenceItem, error) {
	items, err := list[models.ReferenceItem](ctx, c, "get_"+routeName(kind), itemsPath(kind))
	if err != nil {
		return items, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	return items, nil
}

// Categories returns the category reference list.
func (c *Client) Categories(ctx context.Context) ([]models.ReferenceItem, error) {
	return c.Items(ctx, KindCategories)
}

// Products returns the product reference list.
func (c *Client) Products(ctx context.Context) ([]models.ReferenceItem, error) {
	return c.Items(ctx, KindProducts)
}

// LeadSources returns the lead source reference list.
func (c *Client) LeadSources(ctx context.Context) ([]models.ReferenceItem, error) {
	return c.Items(ctx, KindLeadSource)
}

// LeadStatuses returns the lead status reference list.
func (c *Client) LeadStatuses(ctx context.Context) ([]models.ReferenceItem, error) {
	return c.Items(ctx, KindLeadStatus)
}

// CreateItem adds a reference list entry.
func (c *Client) CreateItem(ctx context.Context, kind ItemKind, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	body := map[string]string{"name": strings.TrimSpace(name)}
	if _, err := c.do(ctx, "create_"+routeName(kind), http.MethodPost, itemsPath(kind), body); err != nil {
		return fmt.Errorf("failed to create %s item: %w", kind, err)
	}
	return nil
}

// UpdateItem renames a reference list entry.
func (c *Client) UpdateItem(ctx context.Context, kind ItemKind, item models.ReferenceItem) error {
	if item.ID == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if strings.TrimSpace(item.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	path := itemsPath(kind) + "/" + url.PathEscape(item.ID)
	if _, err := c.do(ctx, "update_"+routeName(kind), http.MethodPut, path, item); err != nil {
		return fmt.Errorf("failed to update %s item %s: %w", kind, item.ID, err)
	}
	return nil
}

// DeleteItem removes a reference list entry.
func (c *Client) DeleteItem(ctx context.Context, kind ItemKind, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	path := itemsPath(kind) + "/" + url.PathEscape(id)
	if _, err := c.do(ctx, "delete_"+routeName(kind), http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("failed to delete %s item %s: %w", kind, id, err)
	}
	return nil
}

// Tags returns the CRM tags.
func (c *Client) Tags(ctx context.Context) ([]models.Tag, error) {
	tags, err := list[models.Tag](ctx, c, "get_tags", itemsPath(kindTags))
	if err != nil {
		return tags, fmt.Errorf("failed to get tags: %w", err)
	}
	for i := range tags {
		if tags[i].Source == "" {
			tags[i].Source = models.TagSourceCRM
		}
	}
	return tags, nil
}

// WhatsAppTags returns the read-only tags of a WhatsApp customer.
func (c *Client) WhatsAppTags(ctx context.Context, customerID string) ([]models.Tag, error) {
	path := "/api/external-tags/whatsapp/" + url.PathEscape(customerID)
	return c.externalTags(ctx, "get_whatsapp_tags", path, models.TagSourceWhatsApp)
}

// SystemeIOTags returns the read-only tags synced from systeme.io.
func (c *Client) SystemeIOTags(ctx context.Context) ([]models.Tag, error) {
	return c.externalTags(ctx, "get_systemeio_tags", "/api/external-tags/systemeio", models.TagSourceSystemeIO)
}

func (c *Client) externalTags(ctx context.Context, route, path, source string) ([]models.Tag, error) {
	tags, err := list[models.Tag](ctx, c, route, path)
	if err != nil {
		return tags, fmt.Errorf("failed to get %s tags: %w", source, err)
	}
	for i := range tags {
		tags[i].Source = source
	}
	return tags, nil
}

// CreateTag creates a CRM tag.
func (c *Client) CreateTag(ctx context.Context, tag models.Tag) error {
	if err := validateTag(tag); err != nil {
		return err
	}
	if _, err := c.do(ctx, "create_tag", http.MethodPost, itemsPath(kindTags), tag); err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

// UpdateTag edits a CRM tag.
func (c *Client) UpdateTag(ctx context.Context, tag models.Tag) error {
	if tag.ID == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if err := validateTag(tag); err != nil {
		return err
	}
	path := itemsPath(kindTags) + "/" + url.PathEscape(tag.ID)
	if _, err := c.do(ctx, "update_tag", http.MethodPut, path, tag); err != nil {
		return fmt.Errorf("failed to update tag %s: %w", tag.ID, err)
	}
	return nil
}

// DeleteTag deletes a CRM tag. The server removes it from every lead and the
// number of updated leads is returned.
func (c *Client) DeleteTag(ctx context.Context, tag models.Tag) (int, error) {
	if !tag.Editable() {
		return 0, ErrReadOnlyTag
	}
	if tag.ID == "" {
		return 0, &ValidationError{Field: "id", Message: "is required"}
	}
	path := itemsPath(kindTags) + "/" + url.PathEscape(tag.ID)
	data, err := c.do(ctx, "delete_tag", http.MethodDelete, path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tag %s: %w", tag.ID, err)
	}

	var resp struct {
		UpdatedLeads int `json:"updatedLeads"`
	}
	_ = jsonUnmarshalLenient(data, &resp)
	return resp.UpdatedLeads, nil
}

func validateTag(tag models.Tag) error {
	if !tag.Editable() {
		return ErrReadOnlyTag
	}
	if strings.TrimSpace(tag.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if tag.Color != "" && !hexColor.MatchString(tag.Color) {
		return &ValidationError{Field: "color", Message: "must be a hex color like #ff0000"}
	}
	return nil
}

func itemsPath(kind ItemKind) string {
	return "/api/manage-items/" + string(kind)
}

func routeName(kind ItemKind) string {
	return strings.ReplaceAll(string(kind), "-", "_")
}
