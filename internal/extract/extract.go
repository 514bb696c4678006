// Package extract is the AI-assisted row extractor: it asks a language
// model to propose statement line items from the same text the
// deterministic parser sees. The core only builds the prompt and
// normalizes the response; model output is advisory and the merge
// reconciler decides what survives.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"statement-splitter/internal/models"
	"statement-splitter/internal/parsers"
	"statement-splitter/pkg/logger"
)

// Result is a single extraction response: normalized items plus the raw
// model text for diagnostics.
type Result struct {
	Items []models.StatementLineItem
	Raw   string
}

// Extractor proposes line items from statement text.
type Extractor interface {
	Extract(ctx context.Context, text, accountCurrency string) (*Result, error)
}

// BuildPrompt constructs the extraction prompt. The instructions are
// deliberately strict: models drift into prose or code fences without
// them, and a non-JSON response costs the whole extraction.
func BuildPrompt(text, accountCurrency string) string {
	currency := accountCurrency
	if currency == "" {
		currency = "the account's own currency"
	}

	var b strings.Builder
	b.WriteString("You are a credit card and bank statement parser.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Extract ALL transaction rows from the statement text below.\n")
	b.WriteString("- Output STRICT JSON only: a JSON array of objects, no comments, no extra text.\n\n")
	b.WriteString("Each object must have these fields:\n")
	b.WriteString("- \"description\": string\n")
	b.WriteString("- \"payee\": string or null\n")
	b.WriteString("- \"amount\": number, always positive\n")
	b.WriteString("- \"date\": string \"YYYY-MM-DD\" or null\n")
	b.WriteString("- \"direction\": \"out\" for charges, \"in\" for refunds and payments received\n\n")
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- When a row shows both a foreign-currency amount and the billed amount in %s, use the billed amount.\n", currency)
	b.WriteString("- Include conversion and processing fees as separate entries.\n")
	b.WriteString("- Skip balance, carry-over, subtotal and page footer lines.\n")
	b.WriteString("- Do NOT wrap the response in code fences or Markdown.\n")
	b.WriteString("- Output must begin with \"[\" and end with \"]\".\n\n")
	b.WriteString("Statement text:\n")
	b.WriteString(text)
	return b.String()
}

// rawItem is the wire shape of one model-proposed row. Amount stays raw so
// both JSON numbers and formatted strings decode.
type rawItem struct {
	Description string          `json:"description"`
	Payee       string          `json:"payee"`
	Amount      json.RawMessage `json:"amount"`
	Date        string          `json:"date"`
	Direction   string          `json:"direction"`
}

// Normalizer validates and cleans model-proposed rows with the same
// filters the deterministic parser applies.
type Normalizer struct {
	markers *parsers.MarkerTable
	logger  logger.Logger
}

// NewNormalizer creates a normalizer over the given marker table.
func NewNormalizer(markers *parsers.MarkerTable) *Normalizer {
	if markers == nil {
		markers = parsers.DefaultMarkerTable()
	}
	return &Normalizer{
		markers: markers,
		logger:  logger.WithComponent("extractor"),
	}
}

// Normalize decodes a model response into line items. Rows missing an
// amount or description, ignore-marker rows and zero amounts are dropped.
func (n *Normalizer) Normalize(raw string) ([]models.StatementLineItem, error) {
	clean := CleanModelJSON(raw)

	var rows []rawItem
	if err := json.Unmarshal([]byte(clean), &rows); err != nil {
		return nil, fmt.Errorf("model response is not a JSON array: %w", err)
	}

	items := make([]models.StatementLineItem, 0, len(rows))
	for _, row := range rows {
		item, ok := n.rowToItem(row)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (n *Normalizer) rowToItem(row rawItem) (models.StatementLineItem, bool) {
	desc := strings.TrimSpace(row.Description)
	if desc == "" || len(row.Amount) == 0 {
		n.logger.Debug("Dropping model row without description or amount")
		return models.StatementLineItem{}, false
	}
	if n.markers.IsIgnored(desc) {
		return models.StatementLineItem{}, false
	}

	amount, err := models.ParseFlexibleAmount(strings.Trim(string(row.Amount), `"`))
	if err != nil {
		n.logger.WithError(err).WithField("amount", string(row.Amount)).
			Debug("Dropping model row with unparseable amount")
		return models.StatementLineItem{}, false
	}
	if amount.Magnitude.IsZero() {
		return models.StatementLineItem{}, false
	}

	direction := models.Direction(strings.ToLower(strings.TrimSpace(row.Direction)))
	if !direction.IsValid() {
		direction = amount.Direction
		if n.markers.IsSettlement(desc) {
			direction = models.DirectionIn
		}
	}

	item := models.StatementLineItem{
		Description: desc,
		Payee:       strings.TrimSpace(row.Payee),
		Amount:      amount.Magnitude,
		Direction:   direction,
	}
	if row.Date != "" {
		if d, err := models.ParseStatementDate(row.Date); err == nil {
			item.Date = &d
		}
	}
	return item, true
}

// CleanModelJSON strips Markdown code fences and surrounding prose from a
// model response, keeping the outermost JSON array.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
