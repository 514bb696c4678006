package reconciler

import (
	"github.com/shopspring/decimal"

	"statement-splitter/internal/models"
	"statement-splitter/internal/parsers"
)

// DefaultSumTolerance is the acceptance bound on the reconciliation diff.
var DefaultSumTolerance = decimal.NewFromFloat(0.01)

// ComputeSum returns the signed statement sum: outgoing items add, incoming
// items subtract, and settlement-carryover lines (the payment of the
// previous statement) are excluded entirely so they cannot cancel the
// period's charges.
func ComputeSum(items []models.StatementLineItem, markers *parsers.MarkerTable) decimal.Decimal {
	sum := decimal.Zero
	for i := range items {
		if markers.IsSettlement(items[i].Description) {
			continue
		}
		sum = sum.Add(items[i].SignedAmount())
	}
	return sum
}

// ReconcileTotals compares the statement against the original amount.
// The ending-balance hint substitutes for the computed sum only when no
// priced items survived parsing (computed sum is zero); otherwise the line
// items stay ground truth. The returned diff is round(|original| - sum, 2).
func ReconcileTotals(original decimal.Decimal, statement *models.ParsedStatement, markers *parsers.MarkerTable) models.Totals {
	sum := ComputeSum(statement.Items, markers)
	if sum.IsZero() && statement.StatementTotal != nil {
		sum = *statement.StatementTotal
	}
	return models.Totals{
		Original: original.Abs(),
		Sum:      sum,
		Diff:     models.RoundMoney(original.Abs().Sub(sum)),
	}
}

// Accepted reports whether the totals fall within tolerance, unless the
// caller overrides the mismatch.
func Accepted(totals models.Totals, override bool) bool {
	return override || totals.Diff.Abs().LessThan(DefaultSumTolerance)
}
