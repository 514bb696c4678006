// Package parsers turns unstructured statement text into line items using
// deterministic strategies:
//
//  1. anchor scan: lines carrying a currency-tagged amount plus one or two
//     dates delimit rows; descriptions are claimed one-to-one from
//     neighbouring lines
//  2. legacy table scan: date-leading row blocks with the billed amount as
//     the last currency-tagged number in the block
//
// Parse runs both in order and the first that yields items wins. A third
// strategy, the per-line heuristic scan, is exposed separately because it
// ranks below AI extraction in the fallback chain.
//
// Lines matching the configured ignore markers (balances, carry-overs,
// page footers) never become items, and zero amounts are dropped.
package parsers

import (
	"github.com/shopspring/decimal"

	"statement-splitter/internal/models"
	"statement-splitter/internal/trace"
	splittererrors "statement-splitter/pkg/errors"
	"statement-splitter/pkg/logger"
)

// Config holds the row parser settings.
type Config struct {
	// Markers classifies statement lines. Extend these sets to support
	// additional statement languages or layouts.
	Markers MarkerPatterns `json:"markers" mapstructure:"markers"`
}

// DefaultConfig returns a parser configuration with the built-in
// multilingual marker sets.
func DefaultConfig() *Config {
	return &Config{Markers: DefaultMarkerPatterns()}
}

// Validate checks that every marker pattern compiles.
func (c *Config) Validate() error {
	if _, err := NewMarkerTable(c.Markers); err != nil {
		return splittererrors.Config("markers", err)
	}
	return nil
}

// RowParser extracts statement line items from raw text.
type RowParser struct {
	markers *MarkerTable
	logger  logger.Logger
	tracer  *trace.Recorder
}

// NewRowParser creates a row parser from the given configuration. The
// tracer may be nil.
func NewRowParser(config *Config, tracer *trace.Recorder) (*RowParser, error) {
	if config == nil {
		config = DefaultConfig()
	}
	markers, err := NewMarkerTable(config.Markers)
	if err != nil {
		return nil, splittererrors.Config("markers", err)
	}
	return &RowParser{
		markers: markers,
		logger:  logger.WithComponent("row_parser"),
		tracer:  tracer,
	}, nil
}

// Parse runs the strategy chain over the text and returns the parsed
// statement. The result may be empty; callers decide whether to fall back
// to AI-assisted extraction.
func (rp *RowParser) Parse(text, source string) *models.ParsedStatement {
	lines := splitLines(text)

	statement := &models.ParsedStatement{Source: source}
	statement.StatementTotal = rp.findStatementTotal(lines)

	strategies := []struct {
		name string
		run  func([]string) []models.StatementLineItem
	}{
		{"anchor_scan", rp.anchorScan},
		{"legacy_table_scan", rp.legacyTableScan},
	}

	for _, s := range strategies {
		items := validItems(s.run(lines))
		rp.tracer.Record("parse", "%s produced %d items", s.name, len(items))
		if len(items) > 0 {
			rp.logger.WithFields(logger.Fields{
				"strategy": s.name,
				"items":    len(items),
				"source":   source,
			}).Debug("Deterministic parse succeeded")
			statement.Items = items
			return statement
		}
	}

	rp.logger.WithField("source", source).Debug("No deterministic strategy produced items")
	return statement
}

// HeuristicScan runs the last-resort per-line strategy. It ranks below
// AI extraction, so callers invoke it only when both Parse and the
// extractor came back empty.
func (rp *RowParser) HeuristicScan(text string) []models.StatementLineItem {
	items := validItems(rp.heuristicLineScan(splitLines(text)))
	rp.tracer.Record("parse", "heuristic_line_scan produced %d items", len(items))
	return items
}

// findStatementTotal captures the printed ending balance from a
// total-marker line, when one exists. It is a hint for sum verification,
// never a line item.
func (rp *RowParser) findStatementTotal(lines []string) *decimal.Decimal {
	for _, line := range lines {
		if !rp.markers.IsTotal(line) {
			continue
		}
		amounts := findCurrencyAmounts(line)
		if len(amounts) == 0 {
			continue
		}
		amt := amounts[len(amounts)-1].Value.Magnitude
		if amt.IsZero() {
			continue
		}
		rp.tracer.Record("parse", "statement total hint %s from %q", amt, line)
		return &amt
	}
	return nil
}

// validItems drops items that fail validation, keeping order.
func validItems(items []models.StatementLineItem) []models.StatementLineItem {
	out := items[:0]
	for _, item := range items {
		if err := item.Validate(); err == nil {
			out = append(out, item)
		}
	}
	return out
}
