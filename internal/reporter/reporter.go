// Package reporter renders preview, batch and confirm results for the CLI.
//
// Supported output formats:
//   - Console: Human-readable output for terminal display
//   - JSON: Structured data format for programmatic consumption
//   - CSV: Comma-separated format for spreadsheet applications
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"statement-splitter/internal/materializer"
	"statement-splitter/internal/models"
	"statement-splitter/internal/trace"
	splittererrors "statement-splitter/pkg/errors"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// MaxItems caps console item listings; 0 means unlimited.
	MaxItems int `json:"max_items"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:       FormatConsole,
		MaxItems:     0,
		CSVDelimiter: ',',
		CSVHeaders:   true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative, got %d", c.MaxItems)
	}
	return nil
}

// ReportGenerator renders results in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// WritePreview renders one statement preview with its totals and tags.
func (rg *ReportGenerator) WritePreview(result *models.ReconciliationResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("preview result cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		return writeJSON(result, writer)
	case FormatCSV:
		return rg.writeItemsCSV(result.Items, writer)
	default:
		fmt.Fprintf(writer, "STATEMENT PREVIEW\n\n")
		rg.printItems(result.Items, writer)
		fmt.Fprintf(writer, "\nTotals:\n")
		fmt.Fprintf(writer, "  Original: %s\n", result.Totals.Original.StringFixed(2))
		fmt.Fprintf(writer, "  Sum:      %s\n", result.Totals.Sum.StringFixed(2))
		fmt.Fprintf(writer, "  Diff:     %s\n", result.Totals.Diff.StringFixed(2))
		fmt.Fprintf(writer, "\nTags: %s, %s\n", result.Meta.Tag, result.Meta.ParentTag)
		return nil
	}
}

// WriteBatch renders the batch preview groups with their match status.
func (rg *ReportGenerator) WriteBatch(groups []*models.BatchGroup, writer io.Writer) error {
	switch rg.config.Format {
	case FormatJSON:
		return writeJSON(groups, writer)
	case FormatCSV:
		return rg.writeBatchCSV(groups, writer)
	default:
		fmt.Fprintf(writer, "BATCH PREVIEW (%d files)\n\n", len(groups))
		for i, group := range groups {
			fmt.Fprintf(writer, "%d. %s: %d items, sum %s\n",
				i+1, group.FileName, len(group.Items), group.Sum.StringFixed(2))
			switch {
			case group.Error != "":
				fmt.Fprintf(writer, "   error: %s\n", group.Error)
			case group.Matched == nil:
				fmt.Fprintf(writer, "   unmatched\n")
			default:
				fmt.Fprintf(writer, "   matched: %s (original %s, diff %s)%s\n",
					group.Matched.OriginalID,
					group.Matched.Original.StringFixed(2),
					group.Matched.Diff.StringFixed(2),
					selectableMarker(group.Selectable))
			}
		}
		return nil
	}
}

// WriteConfirm renders the materialization outcome.
func (rg *ReportGenerator) WriteConfirm(result *materializer.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("confirm result cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		return writeJSON(result, writer)
	case FormatCSV:
		return rg.writeConfirmCSV(result, writer)
	default:
		fmt.Fprintf(writer, "CONFIRMED\n\n")
		fmt.Fprintf(writer, "Created entries: %d\n", result.Created)
		fmt.Fprintf(writer, "Diff:            %s\n", result.Diff.StringFixed(2))
		if len(result.Merchants) > 0 {
			fmt.Fprintf(writer, "New merchant accounts: %s\n", strings.Join(result.Merchants, ", "))
		}
		for _, tx := range result.Transactions {
			fmt.Fprintf(writer, "  %s  %-10s %8s  %s\n",
				tx.ID, tx.Type, tx.Amount.StringFixed(2), tx.Description)
		}
		if len(result.Errors) > 0 {
			fmt.Fprintf(writer, "\nErrors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(writer, "  - %s\n", e)
			}
		}
		return nil
	}
}

// WriteTrace renders the parse-stage diagnostics.
func (rg *ReportGenerator) WriteTrace(entries []trace.Entry, writer io.Writer) error {
	if rg.config.Format == FormatJSON {
		return writeJSON(entries, writer)
	}
	for _, e := range entries {
		fmt.Fprintf(writer, "[%s] %s\n", e.Stage, e.Message)
	}
	return nil
}

// WriteError renders an error with its suggestion for terminal users.
func WriteError(err error, writer io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(writer, "Error: %v\n", err)
	if se, ok := splittererrors.AsSplitterError(err); ok && se.Suggestion != "" {
		fmt.Fprintf(writer, "Suggestion: %s\n", se.Suggestion)
	}
}

func (rg *ReportGenerator) printItems(items []models.StatementLineItem, writer io.Writer) {
	fmt.Fprintf(writer, "Items (%d):\n", len(items))
	for i := range items {
		item := &items[i]
		date := "          "
		if item.Date != nil {
			date = item.Date.Format("2006-01-02")
		}
		fmt.Fprintf(writer, "  %2d. %s %8s %-3s %s\n",
			i+1, date, item.Amount.StringFixed(2), item.Direction, item.Description)

		if rg.config.MaxItems > 0 && i+1 >= rg.config.MaxItems && len(items) > rg.config.MaxItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(items)-rg.config.MaxItems)
			break
		}
	}
}

func (rg *ReportGenerator) writeItemsCSV(items []models.StatementLineItem, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		if err := csvWriter.Write([]string{"Description", "Payee", "Amount", "Direction", "Date", "Currency"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	for i := range items {
		item := &items[i]
		date := ""
		if item.Date != nil {
			date = item.Date.Format("2006-01-02")
		}
		record := []string{
			item.Description,
			item.EffectivePayee(),
			item.Amount.StringFixed(2),
			string(item.Direction),
			date,
			item.Currency,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write item record: %w", err)
		}
	}
	return csvWriter.Error()
}

func (rg *ReportGenerator) writeBatchCSV(groups []*models.BatchGroup, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		if err := csvWriter.Write([]string{"File", "Items", "Sum", "Matched_ID", "Original", "Diff", "Selectable", "Error"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	for _, group := range groups {
		matchedID, original, diff := "", "", ""
		if group.Matched != nil {
			matchedID = group.Matched.OriginalID
			original = group.Matched.Original.StringFixed(2)
			diff = group.Matched.Diff.StringFixed(2)
		}
		record := []string{
			group.FileName,
			fmt.Sprintf("%d", len(group.Items)),
			group.Sum.StringFixed(2),
			matchedID,
			original,
			diff,
			fmt.Sprintf("%t", group.Selectable),
			group.Error,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write group record: %w", err)
		}
	}
	return csvWriter.Error()
}

func (rg *ReportGenerator) writeConfirmCSV(result *materializer.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		if err := csvWriter.Write([]string{"ID", "Type", "Amount", "Date", "Description", "Tags"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	for _, tx := range result.Transactions {
		record := []string{
			tx.ID,
			string(tx.Type),
			tx.Amount.StringFixed(2),
			tx.Date.Format("2006-01-02"),
			tx.Description,
			strings.Join(tx.Tags, ";"),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write transaction record: %w", err)
		}
	}
	return csvWriter.Error()
}

func writeJSON(v interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func selectableMarker(selectable bool) string {
	if selectable {
		return " [selectable]"
	}
	return ""
}
