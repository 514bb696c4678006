package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"statement-splitter/internal/models"
	splittererrors "statement-splitter/pkg/errors"
	"statement-splitter/pkg/logger"
)

// Logical fields resolved from CSV headers.
const (
	FieldDescription = "description"
	FieldPayee       = "payee"
	FieldAmount      = "amount"
	FieldDate        = "date"
	FieldCurrency    = "currency"
)

// headerSynonyms maps each logical field to the header names seen across
// bank and card exports, in preference order. Matching is case-insensitive
// and the first present column wins.
var headerSynonyms = map[string][]string{
	FieldDescription: {"description", "beschreibung", "buchungstext", "text", "verwendungszweck", "details", "libelle", "libellé", "narrative"},
	FieldPayee:       {"payee", "merchant", "empfaenger", "empfänger", "recipient", "beneficiary", "counterparty"},
	FieldAmount:      {"amount", "betrag", "montant", "value", "belastung"},
	FieldDate:        {"date", "datum", "buchungsdatum", "transaction date", "booking date", "valuta", "valutadatum"},
	FieldCurrency:    {"currency", "waehrung", "währung", "devise", "ccy"},
}

// CSVConfig holds settings for CSV ingestion.
type CSVConfig struct {
	// HasHeader indicates the first row names the columns. Without a
	// header the default column order description, amount, date applies.
	HasHeader bool `json:"has_header" mapstructure:"has_header"`

	// Delimiter is the field separator. Zero means sniff comma vs
	// semicolon from the header row.
	Delimiter rune `json:"delimiter" mapstructure:"delimiter"`

	// HeaderMapping maps a logical field name to an exact column header,
	// taking precedence over the synonym table.
	HeaderMapping map[string]string `json:"header_mapping" mapstructure:"header_mapping"`
}

// DefaultCSVConfig returns the configuration for common exports: header
// row present, delimiter sniffed.
func DefaultCSVConfig() *CSVConfig {
	return &CSVConfig{HasHeader: true}
}

// Validate checks that the header mapping only names known logical fields.
func (c *CSVConfig) Validate() error {
	for field := range c.HeaderMapping {
		if _, known := headerSynonyms[strings.ToLower(field)]; !known {
			return splittererrors.Config("header_mapping", nil).
				WithContext("field", field)
		}
	}
	return nil
}

// CSVIngester parses CSV statement exports into line items.
type CSVIngester struct {
	config *CSVConfig
	logger logger.Logger
}

// NewCSVIngester creates a CSV ingester from the given configuration.
func NewCSVIngester(config *CSVConfig) (*CSVIngester, error) {
	if config == nil {
		config = DefaultCSVConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CSVIngester{
		config: config,
		logger: logger.WithComponent("ingest"),
	}, nil
}

// Ingest reads the CSV buffer and returns the parsed statement. Rows
// missing an amount or a description are dropped and logged at debug.
func (ci *CSVIngester) Ingest(data []byte, source string) (*models.ParsedStatement, error) {
	delim := ci.config.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(data)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = delim
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	columns, err := ci.resolveColumns(reader)
	if err != nil {
		return nil, err
	}

	statement := &models.ParsedStatement{Source: source}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, splittererrors.Wrap(err, splittererrors.CategoryParse,
				splittererrors.CodeInvalidInput, "malformed CSV record").
				WithContext("line", line)
		}
		line++

		if item, ok := ci.recordToItem(record, columns, line); ok {
			statement.Items = append(statement.Items, item)
		}
	}

	ci.logger.WithFields(logger.Fields{
		"source": source,
		"items":  len(statement.Items),
	}).Debug("Ingested CSV statement")
	return statement, nil
}

// resolveColumns reads the header row (when present) and maps each logical
// field to its column index. -1 means the field is absent.
func (ci *CSVIngester) resolveColumns(reader *csv.Reader) (map[string]int, error) {
	columns := map[string]int{
		FieldDescription: -1,
		FieldPayee:       -1,
		FieldAmount:      -1,
		FieldDate:        -1,
		FieldCurrency:    -1,
	}

	if !ci.config.HasHeader {
		columns[FieldDescription] = 0
		columns[FieldAmount] = 1
		columns[FieldDate] = 2
		return columns, nil
	}

	headers, err := reader.Read()
	if err != nil {
		return nil, splittererrors.Wrap(err, splittererrors.CategoryParse,
			splittererrors.CodeInvalidInput, "could not read CSV header row").
			WithSuggestion("ensure the file contains a header row and data rows")
	}

	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}
	indexOf := func(name string) int {
		name = strings.ToLower(strings.TrimSpace(name))
		for i, h := range lowered {
			if h == name {
				return i
			}
		}
		return -1
	}

	for field := range columns {
		if override, ok := ci.config.HeaderMapping[field]; ok {
			columns[field] = indexOf(override)
			continue
		}
		for _, syn := range headerSynonyms[field] {
			if idx := indexOf(syn); idx != -1 {
				columns[field] = idx
				break
			}
		}
	}

	if columns[FieldAmount] == -1 || columns[FieldDescription] == -1 {
		return nil, splittererrors.New(splittererrors.CategoryParse,
			splittererrors.CodeInvalidInput,
			"CSV is missing an amount or description column").
			WithSuggestion("set header_mapping to name the columns explicitly").
			WithContext("headers", headers)
	}
	return columns, nil
}

// recordToItem converts one CSV record into a line item. ok is false when
// the row lacks the required fields or the amount does not parse.
func (ci *CSVIngester) recordToItem(record []string, columns map[string]int, line int) (models.StatementLineItem, bool) {
	field := func(name string) string {
		idx := columns[name]
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	desc := field(FieldDescription)
	rawAmount := field(FieldAmount)
	if desc == "" || rawAmount == "" {
		ci.logger.WithField("line", line).Debug("Dropping row without description or amount")
		return models.StatementLineItem{}, false
	}

	amount, err := models.ParseFlexibleAmount(rawAmount)
	if err != nil {
		ci.logger.WithError(err).WithFields(logger.Fields{
			"line":   line,
			"amount": rawAmount,
		}).Debug("Dropping row with unparseable amount")
		return models.StatementLineItem{}, false
	}
	if amount.Magnitude.IsZero() {
		return models.StatementLineItem{}, false
	}

	item := models.StatementLineItem{
		Description: desc,
		Payee:       field(FieldPayee),
		Amount:      amount.Magnitude,
		Currency:    strings.ToUpper(field(FieldCurrency)),
		Direction:   amount.Direction,
	}
	if raw := field(FieldDate); raw != "" {
		if d, err := models.ParseStatementDate(raw); err == nil {
			item.Date = &d
		} else {
			ci.logger.WithFields(logger.Fields{"line": line, "date": raw}).
				Debug("Keeping row with unparseable date")
		}
	}
	return item, true
}

// sniffDelimiter picks comma or semicolon from the first line.
func sniffDelimiter(data []byte) rune {
	firstLine := string(data)
	if idx := strings.IndexByte(firstLine, '\n'); idx != -1 {
		firstLine = firstLine[:idx]
	}
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}
