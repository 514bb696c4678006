// Package matcher assigns parsed statement groups to candidate settlement
// transactions. Matching is one-to-one: every group and every candidate is
// used at most once, decided greedily over amount/date scores.
package matcher

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"statement-splitter/internal/ledger"
	"statement-splitter/internal/models"
	"statement-splitter/internal/trace"
	splittererrors "statement-splitter/pkg/errors"
	"statement-splitter/pkg/logger"
)

// Config holds the matching tolerances.
type Config struct {
	// WindowDays bounds how far after a group's last item date a candidate
	// may settle, and caps the day distance entering the score.
	WindowDays int `json:"window_days" mapstructure:"window_days"`

	// GraceBeforeDays tolerates candidates dated slightly before the last
	// item, covering clock drift between card and ledger.
	GraceBeforeDays int `json:"grace_before_days" mapstructure:"grace_before_days"`

	// AbsoluteTolerance accepts a pair whose amount difference is at most
	// this, regardless of the relative difference.
	AbsoluteTolerance decimal.Decimal `json:"absolute_tolerance" mapstructure:"absolute_tolerance"`

	// RelativeTolerance accepts a pair whose amount difference relative to
	// the candidate amount is at most this.
	RelativeTolerance decimal.Decimal `json:"relative_tolerance" mapstructure:"relative_tolerance"`
}

// DefaultConfig returns the standard matching tolerances.
func DefaultConfig() *Config {
	return &Config{
		WindowDays:        30,
		GraceBeforeDays:   3,
		AbsoluteTolerance: decimal.NewFromFloat(3.5),
		RelativeTolerance: decimal.NewFromFloat(0.01),
	}
}

// Validate checks the tolerance settings.
func (c *Config) Validate() error {
	if c.WindowDays <= 0 {
		return splittererrors.Config("matcher.window_days", nil)
	}
	if c.GraceBeforeDays < 0 {
		return splittererrors.Config("matcher.grace_before_days", nil)
	}
	if c.AbsoluteTolerance.IsNegative() || c.RelativeTolerance.IsNegative() {
		return splittererrors.Config("matcher.tolerance", nil)
	}
	return nil
}

// Matcher pairs batch groups with settlement candidates.
type Matcher struct {
	config *Config
	logger logger.Logger
	tracer *trace.Recorder
}

// New creates a matcher. The tracer may be nil.
func New(config *Config, tracer *trace.Recorder) (*Matcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{
		config: config,
		logger: logger.WithComponent("batch_matcher"),
		tracer: tracer,
	}, nil
}

// pair is one acceptable (group, candidate) combination.
type pair struct {
	group     int
	candidate int
	score     float64
}

// Match assigns candidates to groups in place, filling each group's
// Matched reference. Greedy pass one honors the date gate; leftovers get a
// second pass on amount alone, which tolerates statements uploaded long
// after settlement.
func (m *Matcher) Match(groups []*models.BatchGroup, candidates []models.MatchCandidate) {
	usedGroup := make(map[int]bool)
	usedCandidate := make(map[int]bool)

	m.assign(groups, candidates, usedGroup, usedCandidate, true)
	m.assign(groups, candidates, usedGroup, usedCandidate, false)

	matched := len(usedGroup)
	m.tracer.Record("match", "matched %d of %d groups against %d candidates",
		matched, len(groups), len(candidates))
	m.logger.WithFields(logger.Fields{
		"groups":     len(groups),
		"candidates": len(candidates),
		"matched":    matched,
	}).Debug("Batch matching completed")
}

// assign runs one greedy pass over all still-unused pairs.
func (m *Matcher) assign(groups []*models.BatchGroup, candidates []models.MatchCandidate, usedGroup, usedCandidate map[int]bool, dateGate bool) {
	var pairs []pair
	for gi, group := range groups {
		if usedGroup[gi] || len(group.Items) == 0 {
			continue
		}
		for ci := range candidates {
			if usedCandidate[ci] {
				continue
			}
			if score, ok := m.scorePair(group, &candidates[ci], dateGate); ok {
				pairs = append(pairs, pair{group: gi, candidate: ci, score: score})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score < pairs[j].score
		}
		if pairs[i].group != pairs[j].group {
			return pairs[i].group < pairs[j].group
		}
		return pairs[i].candidate < pairs[j].candidate
	})

	for _, p := range pairs {
		if usedGroup[p.group] || usedCandidate[p.candidate] {
			continue
		}
		usedGroup[p.group] = true
		usedCandidate[p.candidate] = true

		group := groups[p.group]
		candidate := candidates[p.candidate]
		group.Matched = &models.MatchedRef{
			OriginalID: candidate.ID,
			Original:   candidate.AmountAbs,
			Sum:        group.Sum,
			Diff:       models.RoundMoney(candidate.AmountAbs.Sub(group.Sum)),
		}
	}
}

// scorePair evaluates one (group, candidate) pair. ok is false when the
// pair is not acceptable under the amount tolerances, the currency guard
// or (when gated) the date rules.
func (m *Matcher) scorePair(group *models.BatchGroup, candidate *models.MatchCandidate, dateGate bool) (float64, bool) {
	if cur := groupCurrency(group); cur != "" && candidate.Currency != "" && cur != candidate.Currency {
		return 0, false
	}

	amountDiff := candidate.AmountAbs.Sub(group.Sum).Abs()
	acceptable := amountDiff.LessThanOrEqual(m.config.AbsoluteTolerance)
	if !acceptable && candidate.AmountAbs.IsPositive() {
		relDiff := amountDiff.Div(candidate.AmountAbs)
		acceptable = relDiff.LessThanOrEqual(m.config.RelativeTolerance)
	}
	if !acceptable {
		return 0, false
	}

	dayDistance := 0
	if ref, ok := group.ReferenceDate(); ok {
		dayDistance = models.DaysBetween(ref, candidate.Date)
	}

	if dateGate {
		last, ok := group.LastItemDate()
		if !ok {
			return 0, false
		}
		earliest := last.AddDate(0, 0, -m.config.GraceBeforeDays)
		latest := last.AddDate(0, 0, m.config.WindowDays)
		if candidate.Date.Before(earliest) || candidate.Date.After(latest) {
			return 0, false
		}
	}

	capped := math.Min(float64(dayDistance), float64(m.config.WindowDays))
	return amountDiff.InexactFloat64() + capped/100, true
}

// groupCurrency returns the currency shared by the group's items, or "".
func groupCurrency(group *models.BatchGroup) string {
	currency := ""
	for i := range group.Items {
		c := group.Items[i].Currency
		if c == "" {
			continue
		}
		if currency == "" {
			currency = c
			continue
		}
		if currency != c {
			return ""
		}
	}
	return currency
}

// DiscoveryWindow derives the search window for candidate auto-discovery
// from the groups' item dates, padded by the matching tolerances. ok is
// false when no group carries a date.
func (m *Matcher) DiscoveryWindow(groups []*models.BatchGroup) (from, to time.Time, ok bool) {
	for _, group := range groups {
		ps := models.ParsedStatement{Items: group.Items}
		min, max, has := ps.DateRange()
		if !has {
			if d, fromName := models.DateFromFilename(group.FileName); fromName {
				min, max, has = d, d, true
			}
		}
		if !has {
			continue
		}
		if !ok {
			from, to, ok = min, max, true
			continue
		}
		if min.Before(from) {
			from = min
		}
		if max.After(to) {
			to = max
		}
	}
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return from.AddDate(0, 0, -m.config.GraceBeforeDays), to.AddDate(0, 0, m.config.WindowDays), true
}

// CandidatesFromTransactions converts ledger search results into match
// candidates, dropping entries without a positive amount or a date.
func CandidatesFromTransactions(txs []*ledger.Transaction) []models.MatchCandidate {
	candidates := make([]models.MatchCandidate, 0, len(txs))
	for _, tx := range txs {
		c := models.MatchCandidate{
			ID:        tx.ID,
			AmountAbs: tx.Amount.Abs(),
			Date:      tx.Date,
			Currency:  tx.Currency,
		}
		if err := c.Validate(); err != nil {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}
