package reconciler

import (
	"testing"

	"github.com/shopspring/decimal"

	"statement-splitter/internal/models"
	"statement-splitter/internal/parsers"
)

func TestComputeSumDirections(t *testing.T) {
	items := []models.StatementLineItem{
		item("Purchase", 45.00, nil),
		item("Fee", 0.50, nil),
	}
	refund := item("Refund online shop", 5.00, nil)
	refund.Direction = models.DirectionIn
	items = append(items, refund)

	sum := ComputeSum(items, parsers.DefaultMarkerTable())

	if !sum.Equal(decimal.NewFromFloat(40.50)) {
		t.Errorf("sum = %s, want 40.50 (45.00 + 0.50 - 5.00)", sum)
	}
}

func TestComputeSumExcludesSettlement(t *testing.T) {
	items := []models.StatementLineItem{
		item("Purchase", 45.00, nil),
		item("Conversion fee", 0.50, nil),
	}
	settlement := item("Payment of previous statement", 300.00, nil)
	settlement.Direction = models.DirectionIn
	items = append(items, settlement)

	sum := ComputeSum(items, parsers.DefaultMarkerTable())

	if !sum.Equal(decimal.NewFromFloat(45.50)) {
		t.Errorf("sum = %s, want 45.50 with settlement excluded", sum)
	}
}

func TestReconcileTotalsExactMatch(t *testing.T) {
	statement := &models.ParsedStatement{Items: []models.StatementLineItem{
		item("Purchase", 45.00, nil),
		item("Fee", 0.50, nil),
	}}

	totals := ReconcileTotals(decimal.NewFromFloat(-45.50), statement, parsers.DefaultMarkerTable())

	if !totals.Diff.IsZero() {
		t.Errorf("diff = %s, want 0 for 45.00 + 0.50 against 45.50", totals.Diff)
	}
	if !totals.Original.Equal(decimal.NewFromFloat(45.50)) {
		t.Errorf("original must be absolute, got %s", totals.Original)
	}
	if !Accepted(totals, false) {
		t.Error("exact match must be accepted")
	}
}

func TestReconcileTotalsMismatch(t *testing.T) {
	statement := &models.ParsedStatement{Items: []models.StatementLineItem{
		item("Purchase", 45.00, nil),
	}}

	totals := ReconcileTotals(decimal.NewFromFloat(45.50), statement, parsers.DefaultMarkerTable())

	if !totals.Diff.Equal(decimal.NewFromFloat(0.50)) {
		t.Errorf("diff = %s, want 0.50", totals.Diff)
	}
	if Accepted(totals, false) {
		t.Error("0.50 diff must not be accepted")
	}
	if !Accepted(totals, true) {
		t.Error("override must accept any diff")
	}
}

func TestReconcileTotalsHintOnlyWhenSumZero(t *testing.T) {
	hint := decimal.NewFromFloat(45.50)

	empty := &models.ParsedStatement{StatementTotal: &hint}
	totals := ReconcileTotals(decimal.NewFromFloat(45.50), empty, parsers.DefaultMarkerTable())
	if !totals.Diff.IsZero() {
		t.Errorf("hint should substitute when no priced items exist, diff = %s", totals.Diff)
	}

	withItems := &models.ParsedStatement{
		Items:          []models.StatementLineItem{item("Purchase", 40.00, nil)},
		StatementTotal: &hint,
	}
	totals = ReconcileTotals(decimal.NewFromFloat(45.50), withItems, parsers.DefaultMarkerTable())
	if !totals.Diff.Equal(decimal.NewFromFloat(5.50)) {
		t.Errorf("items must stay ground truth over the hint, diff = %s", totals.Diff)
	}
}
