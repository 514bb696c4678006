// Package models defines the data model of the statement reconciliation
// engine: parsed statement line items, parsed statements, match candidates,
// batch groups and reconciliation results, together with the amount, date
// and tag normalization helpers shared by every parsing stage.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction encodes the sign semantics of a line item separately from its
// magnitude. Amounts are always stored as non-negative magnitudes.
type Direction string

const (
	// DirectionOut is money leaving the account (a withdrawal / purchase).
	DirectionOut Direction = "out"
	// DirectionIn is money entering the account (a deposit / refund).
	DirectionIn Direction = "in"
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is one of the two known values.
func (d Direction) IsValid() bool {
	return d == DirectionOut || d == DirectionIn
}

// Signed applies the direction to a magnitude: out is positive, in is
// negative. This is the convention of the statement sum, where outgoing
// purchases add up to the settlement total and incoming refunds reduce it.
func (d Direction) Signed(amount decimal.Decimal) decimal.Decimal {
	if d == DirectionIn {
		return amount.Neg()
	}
	return amount
}

// StatementLineItem is a single extracted row of a settlement statement.
type StatementLineItem struct {
	Description string          `json:"description"`
	Payee       string          `json:"payee,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
	Direction   Direction       `json:"direction"`
}

// Validate checks the line item invariants: a non-empty description, a
// non-negative magnitude and a known direction.
func (li *StatementLineItem) Validate() error {
	if strings.TrimSpace(li.Description) == "" {
		return fmt.Errorf("line item description cannot be empty")
	}
	if li.Amount.IsNegative() {
		return fmt.Errorf("line item amount must be a non-negative magnitude, got %s", li.Amount)
	}
	if !li.Direction.IsValid() {
		return fmt.Errorf("invalid direction: %q", li.Direction)
	}
	return nil
}

// SignedAmount returns the direction-adjusted amount (out positive, in negative).
func (li *StatementLineItem) SignedAmount() decimal.Decimal {
	return li.Direction.Signed(li.Amount)
}

// EffectivePayee returns the payee, deriving one from the description when
// absent (first segment before a separator, trimmed).
func (li *StatementLineItem) EffectivePayee() string {
	if li.Payee != "" {
		return li.Payee
	}
	desc := li.Description
	for _, sep := range []string{",", " - ", "  "} {
		if idx := strings.Index(desc, sep); idx > 0 {
			desc = desc[:idx]
			break
		}
	}
	return strings.TrimSpace(desc)
}

// String returns a compact representation for logs.
func (li *StatementLineItem) String() string {
	date := "-"
	if li.Date != nil {
		date = li.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("LineItem{%s %s %s %s}", li.Description, li.Amount, li.Direction, date)
}

// MarshalJSON renders the amount as a string to keep decimal precision.
func (li *StatementLineItem) MarshalJSON() ([]byte, error) {
	type alias StatementLineItem
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		*alias
	}{
		Amount: li.Amount.StringFixed(2),
		alias:  (*alias)(li),
	})
}

// UnmarshalJSON accepts the amount either as a JSON string or a number.
func (li *StatementLineItem) UnmarshalJSON(data []byte) error {
	type alias StatementLineItem
	aux := &struct {
		Amount json.RawMessage `json:"amount"`
		*alias
	}{alias: (*alias)(li)}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.Amount) > 0 {
		raw := strings.Trim(string(aux.Amount), `"`)
		amount, err := ParseFlexibleAmount(raw)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		li.Amount = amount.Magnitude
		if li.Direction == "" {
			li.Direction = amount.Direction
		}
	}
	return nil
}

// ParsedStatement is an ordered sequence of extracted line items plus an
// optional ending-balance hint captured during parsing. The hint is used
// for sum comparison only, never for per-row amounts.
type ParsedStatement struct {
	Items          []StatementLineItem `json:"items"`
	StatementTotal *decimal.Decimal    `json:"statement_total,omitempty"`
	Source         string              `json:"source,omitempty"`
}

// IsEmpty reports whether parsing produced no items.
func (ps *ParsedStatement) IsEmpty() bool {
	return ps == nil || len(ps.Items) == 0
}

// DateRange returns the earliest and latest item dates. ok is false when no
// item carries a date.
func (ps *ParsedStatement) DateRange() (min, max time.Time, ok bool) {
	for i := range ps.Items {
		d := ps.Items[i].Date
		if d == nil {
			continue
		}
		if !ok {
			min, max, ok = *d, *d, true
			continue
		}
		if d.Before(min) {
			min = *d
		}
		if d.After(max) {
			max = *d
		}
	}
	return min, max, ok
}

// ReferenceDate is the midpoint of the items' min/max dates, used by the
// batch matcher to anchor a statement in time.
func (ps *ParsedStatement) ReferenceDate() (time.Time, bool) {
	min, max, ok := ps.DateRange()
	if !ok {
		return time.Time{}, false
	}
	mid := min.Add(max.Sub(min) / 2)
	return mid, true
}

// MatchCandidate is a settlement entity eligible for batch matching.
type MatchCandidate struct {
	ID        string          `json:"id"`
	AmountAbs decimal.Decimal `json:"amount_abs"`
	Date      time.Time       `json:"date"`
	Currency  string          `json:"currency,omitempty"`
}

// Validate checks candidate invariants.
func (mc *MatchCandidate) Validate() error {
	if strings.TrimSpace(mc.ID) == "" {
		return fmt.Errorf("candidate id cannot be empty")
	}
	if mc.AmountAbs.IsNegative() {
		return fmt.Errorf("candidate amount must be absolute, got %s", mc.AmountAbs)
	}
	if mc.Date.IsZero() {
		return fmt.Errorf("candidate date cannot be zero")
	}
	return nil
}

// MatchedRef records the candidate assigned to a batch group.
type MatchedRef struct {
	OriginalID string          `json:"original_id"`
	Original   decimal.Decimal `json:"original"`
	Sum        decimal.Decimal `json:"sum"`
	Diff       decimal.Decimal `json:"diff"`
}

// BatchGroup is one uploaded file's parsed statement inside a batch run.
// At most one group may be matched to a given original (one-to-one).
type BatchGroup struct {
	FileName   string              `json:"file_name"`
	Items      []StatementLineItem `json:"items"`
	Sum        decimal.Decimal     `json:"sum"`
	Matched    *MatchedRef         `json:"matched,omitempty"`
	Selectable bool                `json:"selectable"`
	Error      string              `json:"error,omitempty"`
}

// LastItemDate returns the latest dated item of the group, falling back to a
// filename-embedded date when no item carries one.
func (bg *BatchGroup) LastItemDate() (time.Time, bool) {
	ps := ParsedStatement{Items: bg.Items}
	if _, max, ok := ps.DateRange(); ok {
		return max, true
	}
	if d, ok := DateFromFilename(bg.FileName); ok {
		return d, true
	}
	return time.Time{}, false
}

// ReferenceDate returns the midpoint of the group's item dates, or the
// filename-embedded date as fallback.
func (bg *BatchGroup) ReferenceDate() (time.Time, bool) {
	ps := ParsedStatement{Items: bg.Items}
	if mid, ok := ps.ReferenceDate(); ok {
		return mid, true
	}
	if d, ok := DateFromFilename(bg.FileName); ok {
		return d, true
	}
	return time.Time{}, false
}

// Totals carries the reconciliation arithmetic of a preview.
// Invariant: Diff = round(|Original| - Sum, 2).
type Totals struct {
	Original decimal.Decimal `json:"original"`
	Sum      decimal.Decimal `json:"sum"`
	Diff     decimal.Decimal `json:"diff"`
}

// Meta carries the tags that will be applied during materialization.
type Meta struct {
	ParentTag string `json:"parent_tag"`
	Tag       string `json:"tag"`
}

// ReconciliationResult is the preview response: items, totals and tag meta.
type ReconciliationResult struct {
	Items  []StatementLineItem `json:"items"`
	Totals Totals              `json:"totals"`
	Meta   Meta                `json:"meta"`
}

// Accepted reports whether the totals are within the acceptance tolerance.
func (rr *ReconciliationResult) Accepted(tolerance decimal.Decimal) bool {
	return rr.Totals.Diff.Abs().LessThan(tolerance)
}
