// Package report renders lead collections as Excel workbooks and CSV exports.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/UnknownOlympus/leaddesk/internal/leads"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/xuri/excelize/v2"
)

// ErrNoLeads is returned when a report is requested for an empty collection.
var ErrNoLeads = errors.New("failed to generate report, 0 leads were provided")

const (
	summarySheet  = "Summary"
	noStatusSheet = "No status"
	dateLayout    = "02.01.2006"
	maxSheetName  = 31
	headerHeight  = 20
)

var summaryHeaders = []string{"Salesperson", "Today", "All", "Missed", "Unscheduled", "Closed", "Void"}

var leadHeaders = []string{
	"Lead ID", "Created", "Name", "Company", "Email", "Phone", "Product", "Source", "Salesperson", "Start date",
}

// Generator holds the state for the Excel report generation process.
type Generator struct {
	file   *excelize.File
	tables int
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		file: excelize.NewFile(),
	}
}

// GenerateSummaryReport renders the salesperson summary as a single styled sheet
// with one row per salesperson followed by a totals row.
func GenerateSummaryReport(summaries []leads.Summary, totals leads.Counts) (*bytes.Buffer, error) {
	if len(summaries) == 0 {
		return nil, ErrNoLeads
	}

	gen := NewGenerator()
	defer gen.file.Close()

	if _, err := gen.file.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to generate new sheet '%s': %w", summarySheet, err)
	}
	widths := []float64{30, 10, 10, 10, 14, 10, 10}
	if err := gen.setupSheet(summarySheet, summaryHeaders, widths, len(summaries)); err != nil {
		return nil, fmt.Errorf("failed to setup sheet '%s': %w", summarySheet, err)
	}

	for i, summary := range summaries {
		row := append([]any{summary.Salesperson.DisplayName()}, countCells(summary.Counts)...)
		if err := gen.setRow(summarySheet, i+2, row); err != nil { // first row is the header
			return nil, err
		}
	}

	totalsRow := len(summaries) + 2 //nolint:mnd // header row plus one row per salesperson
	if err := gen.setRow(summarySheet, totalsRow, append([]any{"Total"}, countCells(totals)...)); err != nil {
		return nil, err
	}
	if err := gen.boldRow(summarySheet, totalsRow, len(summaryHeaders)); err != nil {
		return nil, err
	}

	return gen.finish()
}

// GenerateLeadsReport renders leads into one sheet per lead status.
// Sheets are ordered by status name; leads without a status share one sheet.
func GenerateLeadsReport(items []models.Lead) (*bytes.Buffer, error) {
	if len(items) == 0 {
		return nil, ErrNoLeads
	}

	byStatus := make(map[string][]models.Lead)
	for _, lead := range items {
		status := lead.LeadStatus
		if status == "" {
			status = noStatusSheet
		}
		name := truncateSheetName(status)
		byStatus[name] = append(byStatus[name], lead)
	}

	names := make([]string, 0, len(byStatus))
	for name := range byStatus {
		names = append(names, name)
	}
	slices.Sort(names)

	gen := NewGenerator()
	defer gen.file.Close()

	widths := []float64{26, 12, 28, 24, 30, 18, 20, 18, 20, 12}
	for _, name := range names {
		sheetLeads := byStatus[name]

		if _, err := gen.file.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to generate new sheet '%s': %w", name, err)
		}
		if err := gen.setupSheet(name, leadHeaders, widths, len(sheetLeads)); err != nil {
			return nil, fmt.Errorf("failed to setup sheet '%s': %w", name, err)
		}
		for i, lead := range sheetLeads {
			if err := gen.setRow(name, i+2, leadCells(lead)); err != nil {
				return nil, err
			}
		}
	}

	return gen.finish()
}

// finish activates the first sheet, removes the default one and serializes the workbook.
func (g *Generator) finish() (*bytes.Buffer, error) {
	if sheetIndex, _ := g.file.GetSheetIndex("Sheet1"); sheetIndex != -1 {
		if err := g.file.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("failed to delete default sheet 'Sheet1': %w", err)
		}
	}
	g.file.SetActiveSheet(0)

	buffer, err := g.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write data from saved file: %w", err)
	}

	return buffer, nil
}

// setupSheet writes a styled header row, sets column widths and wraps the
// header plus rowCount data rows in a table.
func (g *Generator) setupSheet(sheetName string, headers []string, widths []float64, rowCount int) error {
	headerStyle, err := g.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center", Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create new style: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))

	if err = g.file.SetRowHeight(sheetName, 1, headerHeight); err != nil {
		return fmt.Errorf("failed to set row height for headers: %w", err)
	}
	if err = g.file.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to set sheet row for headers: %w", err)
	}
	if err = g.file.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to set cell style for headers: %w", err)
	}

	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err = g.file.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	g.tables++
	if err = g.file.AddTable(sheetName, &excelize.Table{
		Range:     fmt.Sprintf("A1:%s%d", lastCol, rowCount+1),
		Name:      fmt.Sprintf("table_%d", g.tables),
		StyleName: "TableStyleMedium9",
	}); err != nil {
		return fmt.Errorf("failed to add table: %w", err)
	}

	return nil
}

func (g *Generator) setRow(sheetName string, rowNum int, values []any) error {
	cell, _ := excelize.CoordinatesToCellName(1, rowNum)
	if err := g.file.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to add row '%d': %w", rowNum, err)
	}
	return nil
}

func (g *Generator) boldRow(sheetName string, rowNum, cols int) error {
	style, err := g.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Border: []excelize.Border{
			{Type: "top", Color: "000000", Style: 2},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create totals style: %w", err)
	}

	first, _ := excelize.CoordinatesToCellName(1, rowNum)
	last, _ := excelize.CoordinatesToCellName(cols, rowNum)
	if err = g.file.SetCellStyle(sheetName, first, last, style); err != nil {
		return fmt.Errorf("failed to set totals style: %w", err)
	}
	return nil
}

func countCells(c leads.Counts) []any {
	return []any{c.Today, c.All, c.Missed, c.Unscheduled, c.Closed, c.Void}
}

func leadCells(lead models.Lead) []any {
	created := ""
	if !lead.CreatedAt.IsZero() {
		created = lead.CreatedAt.Format(dateLayout)
	}
	return []any{
		lead.ID,
		created,
		lead.FullName(),
		lead.Company,
		lead.Email,
		lead.Phone,
		lead.Product,
		lead.LeadSource,
		lead.Salesperson,
		lead.LeadStartDate,
	}
}

// truncateSheetName truncates the given sheet name to a maximum of 31 runes.
func truncateSheetName(name string) string {
	if utf8.RuneCountInString(name) > maxSheetName {
		runes := []rune(name)
		return string(runes[:maxSheetName])
	}
	return name
}
