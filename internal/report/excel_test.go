package report_test

import (
	"testing"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/UnknownOlympus/leaddesk/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateSummaryReport(t *testing.T) {
	t.Parallel()

	summaries := []leads.Summary{
		{
			Salesperson: models.Salesperson{ID: "1", Username: "jdoe", FirstName: "John", LastName: "Doe"},
			Counts:      leads.Counts{Today: 1, All: 4, Missed: 1, Closed: 2},
		},
		{
			Salesperson: models.Salesperson{ID: "2", Username: "asmith"},
			Counts:      leads.Counts{All: 2, Void: 1, Unscheduled: 1},
		},
	}

	t.Run("successful report generation", func(t *testing.T) {
		t.Parallel()

		buffer, err := report.GenerateSummaryReport(summaries, leads.Totals(summaries))
		require.NoError(t, err)
		require.NotNil(t, buffer)

		f, err := excelize.OpenReader(buffer)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{"Summary"}, f.GetSheetList())

		rows, err := f.GetRows("Summary")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"Salesperson", "Today", "All", "Missed", "Unscheduled", "Closed", "Void"}, rows[0])
		assert.Equal(t, "John Doe", rows[1][0])
		assert.Equal(t, "asmith", rows[2][0])
		assert.Equal(t, []string{"Total", "1", "6", "1", "1", "2", "1"}, rows[3])
	})

	t.Run("no summaries", func(t *testing.T) {
		t.Parallel()

		buffer, err := report.GenerateSummaryReport(nil, leads.Counts{})

		require.ErrorIs(t, err, report.ErrNoLeads)
		assert.Nil(t, buffer)
	})
}

func TestGenerateLeadsReport(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	items := []models.Lead{
		{ID: "1", FirstName: "Ann", LeadStatus: models.StatusOpen, CreatedAt: created},
		{ID: "2", FirstName: "Bob", LastName: "Stone", LeadStatus: models.StatusClosed},
		{ID: "3", FirstName: "Cid", LeadStatus: models.StatusOpen, Company: "Acme"},
		{ID: "4", FirstName: "Dee"},
	}

	t.Run("successful report generation", func(t *testing.T) {
		t.Parallel()

		buffer, err := report.GenerateLeadsReport(items)
		require.NoError(t, err)

		f, err := excelize.OpenReader(buffer)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{"Closed", "No status", "Open"}, f.GetSheetList())

		header, err := f.GetCellValue("Open", "A1")
		require.NoError(t, err)
		assert.Equal(t, "Lead ID", header)

		createdVal, err := f.GetCellValue("Open", "B2")
		require.NoError(t, err)
		assert.Equal(t, "10.03.2025", createdVal)

		companyVal, err := f.GetCellValue("Open", "D3")
		require.NoError(t, err)
		assert.Equal(t, "Acme", companyVal)

		nameVal, err := f.GetCellValue("Closed", "C2")
		require.NoError(t, err)
		assert.Equal(t, "Bob Stone", nameVal)
	})

	t.Run("long status is truncated", func(t *testing.T) {
		t.Parallel()

		long := "A status name that is way longer than excel allows"
		buffer, err := report.GenerateLeadsReport([]models.Lead{{ID: "1", LeadStatus: long}})
		require.NoError(t, err)

		f, err := excelize.OpenReader(buffer)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{long[:31]}, f.GetSheetList())
	})

	t.Run("no leads found", func(t *testing.T) {
		t.Parallel()

		buffer, err := report.GenerateLeadsReport([]models.Lead{})

		require.ErrorIs(t, err, report.ErrNoLeads)
		assert.Nil(t, buffer)
	})
}
