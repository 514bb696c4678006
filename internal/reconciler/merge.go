// Package reconciler combines the deterministic and AI row extractions,
// computes the statement sum and drives the preview flow. Deterministic
// numbers are ground truth throughout: AI items only ever contribute text.
package reconciler

import (
	"math"

	"github.com/shopspring/decimal"

	"statement-splitter/internal/models"
	"statement-splitter/internal/trace"
	splittererrors "statement-splitter/pkg/errors"
	"statement-splitter/pkg/logger"
)

// MergeConfig holds the tolerances for pairing deterministic rows with
// AI-proposed rows.
type MergeConfig struct {
	// AmountTolerance is the maximum amount difference for a pair.
	AmountTolerance decimal.Decimal `json:"amount_tolerance" mapstructure:"amount_tolerance"`
	// DateToleranceDays is the maximum day distance for a pair.
	DateToleranceDays int `json:"date_tolerance_days" mapstructure:"date_tolerance_days"`
}

// DefaultMergeConfig returns the standard pairing tolerances.
func DefaultMergeConfig() *MergeConfig {
	return &MergeConfig{
		AmountTolerance:   decimal.NewFromFloat(0.02),
		DateToleranceDays: 2,
	}
}

// Validate checks the tolerance settings.
func (c *MergeConfig) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return splittererrors.Config("merge.amount_tolerance", nil)
	}
	if c.DateToleranceDays < 0 {
		return splittererrors.Config("merge.date_tolerance_days", nil)
	}
	return nil
}

// MergeReconciler enriches deterministic rows with AI text.
type MergeReconciler struct {
	config *MergeConfig
	logger logger.Logger
	tracer *trace.Recorder
}

// NewMergeReconciler creates a merge reconciler. The tracer may be nil.
func NewMergeReconciler(config *MergeConfig, tracer *trace.Recorder) (*MergeReconciler, error) {
	if config == nil {
		config = DefaultMergeConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &MergeReconciler{
		config: config,
		logger: logger.WithComponent("merge_reconciler"),
		tracer: tracer,
	}, nil
}

// Merge combines the deterministic and AI item sets. A non-empty
// deterministic set is authoritative for order, amount, date and
// direction; matched AI items may only replace description and payee with
// longer text. When the deterministic set is empty the AI items are
// returned as-is.
//
// Undercount guard: the AI rows usable in the merge are those that pair
// with a deterministic row within both tolerances. When they number no
// more than ceil(0.9 x N) the response is degraded (dropped rows, or rows
// that do not correspond to the statement) and is discarded entirely.
func (mr *MergeReconciler) Merge(det, ai []models.StatementLineItem) []models.StatementLineItem {
	if len(det) == 0 {
		mr.tracer.Record("merge", "no deterministic items, using %d AI items", len(ai))
		return ai
	}
	if len(ai) == 0 {
		return det
	}

	// Pair every deterministic row with its best unused AI row first, so
	// the guard counts usable matches rather than the raw response size.
	matches := make([]int, len(det))
	usedAI := make(map[int]bool)
	usable := 0
	for i := range det {
		matches[i] = -1
		if best, ok := mr.bestAIMatch(&det[i], ai, usedAI); ok {
			usedAI[best] = true
			matches[i] = best
			usable++
		}
	}

	threshold := int(math.Ceil(0.9 * float64(len(det))))
	if usable <= threshold {
		mr.tracer.Record("merge", "undercount guard: %d usable AI matches <= %d, discarding AI", usable, threshold)
		mr.logger.WithFields(logger.Fields{
			"deterministic": len(det),
			"ai":            len(ai),
			"usable":        usable,
		}).Warn("Discarding degraded AI extraction")
		return det
	}

	merged := make([]models.StatementLineItem, len(det))
	enriched := 0

	for i, item := range det {
		merged[i] = item

		best := matches[i]
		if best == -1 {
			continue
		}
		if longer(ai[best].Description, item.Description) {
			merged[i].Description = ai[best].Description
			enriched++
		}
		if longer(ai[best].Payee, item.Payee) {
			merged[i].Payee = ai[best].Payee
		}
	}

	mr.tracer.Record("merge", "merged %d items, %d descriptions enriched", len(merged), enriched)
	return merged
}

// bestAIMatch finds the unused AI item closest to the deterministic item
// within both tolerances, scored by amountDiff + dayDiff/100.
func (mr *MergeReconciler) bestAIMatch(item *models.StatementLineItem, ai []models.StatementLineItem, used map[int]bool) (int, bool) {
	best := -1
	bestScore := math.MaxFloat64

	for j := range ai {
		if used[j] {
			continue
		}

		amountDiff := item.Amount.Sub(ai[j].Amount).Abs()
		if amountDiff.GreaterThan(mr.config.AmountTolerance) {
			continue
		}

		days := 0
		if item.Date != nil && ai[j].Date != nil {
			days = models.DaysBetween(*item.Date, *ai[j].Date)
			if days > mr.config.DateToleranceDays {
				continue
			}
		}

		score := amountDiff.InexactFloat64() + float64(days)/100
		if score < bestScore {
			bestScore = score
			best = j
		}
	}
	return best, best != -1
}

// longer reports whether candidate is strictly more descriptive.
func longer(candidate, current string) bool {
	return len(candidate) > len(current)
}
