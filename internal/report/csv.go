package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/models"
)

var leadCSVHeader = []string{
	"ID", "First Name", "Last Name", "Company", "Email", "Phone", "City", "Category", "Product",
	"Lead Source", "Lead Status", "Tags", "Salesperson", "Start Date", "Start Time", "Created At",
}

var commentCSVHeader = []string{"Lead ID", "Lead Name", "Comment", "Added By", "Role", "Created At"}

// LeadsCSV writes leads as CSV with a fixed header row. Tags are joined with "; ".
func LeadsCSV(w io.Writer, items []models.Lead) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(leadCSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, lead := range items {
		record := []string{
			lead.ID,
			lead.FirstName,
			lead.LastName,
			lead.Company,
			lead.Email,
			lead.Phone,
			lead.City,
			lead.Category,
			lead.Product,
			lead.LeadSource,
			lead.LeadStatus,
			strings.Join(lead.Tags, "; "),
			lead.Salesperson,
			lead.LeadStartDate,
			lead.LeadStartTime,
			formatTime(lead.CreatedAt),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write lead %s: %w", lead.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// CommentsCSV writes the comments of one lead as CSV with a fixed header row.
func CommentsCSV(w io.Writer, lead models.Lead, comments []models.Comment) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(commentCSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, comment := range comments {
		record := []string{
			lead.ID,
			lead.FullName(),
			comment.Text,
			comment.Author(),
			comment.Role,
			formatTime(comment.CreatedAt),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write comment %s: %w", comment.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
