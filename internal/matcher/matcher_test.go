package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"statement-splitter/internal/models"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func group(name string, sum float64, itemDays ...int) *models.BatchGroup {
	g := &models.BatchGroup{FileName: name, Sum: decimal.NewFromFloat(sum)}
	for _, d := range itemDays {
		dt := day(d)
		g.Items = append(g.Items, models.StatementLineItem{
			Description: "row",
			Amount:      decimal.NewFromFloat(1),
			Direction:   models.DirectionOut,
			Date:        &dt,
		})
	}
	return g
}

func candidate(id string, amount float64, d int) models.MatchCandidate {
	return models.MatchCandidate{
		ID:        id,
		AmountAbs: decimal.NewFromFloat(amount),
		Date:      day(d),
	}
}

func newMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func TestMatchAssignsBestPairsFirst(t *testing.T) {
	groups := []*models.BatchGroup{
		group("a.txt", 100.00, 1, 5),
		group("b.txt", 200.00, 1, 5),
	}
	candidates := []models.MatchCandidate{
		candidate("orig-200", 200.00, 7),
		candidate("orig-100", 100.50, 7),
	}

	newMatcher(t).Match(groups, candidates)

	if groups[0].Matched == nil || groups[0].Matched.OriginalID != "orig-100" {
		t.Errorf("group a matched %+v, want orig-100", groups[0].Matched)
	}
	if groups[1].Matched == nil || groups[1].Matched.OriginalID != "orig-200" {
		t.Errorf("group b matched %+v, want orig-200", groups[1].Matched)
	}
	if !groups[0].Matched.Diff.Equal(decimal.NewFromFloat(0.50)) {
		t.Errorf("diff = %s, want 0.50", groups[0].Matched.Diff)
	}
}

func TestMatchOrderIndependence(t *testing.T) {
	// The same assignment must come out regardless of input order because
	// pairs are scored globally, not first-come-first-served.
	build := func(reverse bool) []*models.BatchGroup {
		groups := []*models.BatchGroup{
			group("a.txt", 100.00, 1, 5),
			group("b.txt", 100.40, 1, 5),
		}
		if reverse {
			groups[0], groups[1] = groups[1], groups[0]
		}
		return groups
	}
	candidates := []models.MatchCandidate{
		candidate("orig-1", 100.00, 7),
		candidate("orig-2", 100.40, 7),
	}

	m := newMatcher(t)
	for _, reverse := range []bool{false, true} {
		groups := build(reverse)
		m.Match(groups, candidates)
		for _, g := range groups {
			if g.Matched == nil {
				t.Fatalf("reverse=%v: group %s unmatched", reverse, g.FileName)
			}
			want := map[string]string{"a.txt": "orig-1", "b.txt": "orig-2"}[g.FileName]
			if g.Matched.OriginalID != want {
				t.Errorf("reverse=%v: group %s matched %s, want %s",
					reverse, g.FileName, g.Matched.OriginalID, want)
			}
		}
	}
}

func TestMatchAmountAcceptance(t *testing.T) {
	m := newMatcher(t)

	cases := []struct {
		sum, amount float64
		want        bool
	}{
		{100.00, 103.00, true},  // within 3.5 absolute
		{100.00, 104.00, false}, // beyond both tolerances
		{1000.00, 1008.00, true},  // 0.8% relative
		{1000.00, 1015.00, false}, // 1.5% relative
	}
	for _, tc := range cases {
		g := group("g.txt", tc.sum, 1)
		c := candidate("orig", tc.amount, 5)
		_, ok := m.scorePair(g, &c, true)
		if ok != tc.want {
			t.Errorf("sum %.2f vs amount %.2f: acceptable = %v, want %v",
				tc.sum, tc.amount, ok, tc.want)
		}
	}
}

func TestMatchDateGate(t *testing.T) {
	m := newMatcher(t)
	g := group("g.txt", 100.00, 1, 10) // last item day 10

	tooEarly := candidate("orig", 100.00, 5) // before day 10 - 3 grace
	if _, ok := m.scorePair(g, &tooEarly, true); ok {
		t.Error("candidate before the grace window must be gated out")
	}

	inGrace := candidate("orig", 100.00, 8)
	if _, ok := m.scorePair(g, &inGrace, true); !ok {
		t.Error("candidate within the grace window must pass")
	}

	tooLate := candidate("orig", 100.00, 10)
	tooLate.Date = day(10).AddDate(0, 0, 31)
	if _, ok := m.scorePair(g, &tooLate, true); ok {
		t.Error("candidate beyond the window must be gated out")
	}
}

func TestMatchRetryWithoutDateGate(t *testing.T) {
	// The only candidate settled months after the statement. Pass one
	// rejects it on dates, the retry pass accepts it on amount.
	groups := []*models.BatchGroup{group("old.txt", 100.00, 1, 10)}
	candidates := []models.MatchCandidate{
		{ID: "late", AmountAbs: decimal.NewFromFloat(100.00), Date: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)},
	}

	newMatcher(t).Match(groups, candidates)

	if groups[0].Matched == nil || groups[0].Matched.OriginalID != "late" {
		t.Errorf("expected the date-free retry to match, got %+v", groups[0].Matched)
	}
}

func TestMatchOneToOne(t *testing.T) {
	groups := []*models.BatchGroup{
		group("a.txt", 100.00, 1, 5),
		group("b.txt", 100.00, 1, 5),
	}
	candidates := []models.MatchCandidate{candidate("only", 100.00, 7)}

	newMatcher(t).Match(groups, candidates)

	matched := 0
	for _, g := range groups {
		if g.Matched != nil {
			matched++
		}
	}
	if matched != 1 {
		t.Errorf("one candidate must match exactly one group, got %d", matched)
	}
}

func TestMatchCurrencyGuard(t *testing.T) {
	m := newMatcher(t)
	g := group("g.txt", 100.00, 1, 5)
	for i := range g.Items {
		g.Items[i].Currency = "CHF"
	}

	c := candidate("orig", 100.00, 7)
	c.Currency = "EUR"
	if _, ok := m.scorePair(g, &c, true); ok {
		t.Error("currency mismatch must be rejected")
	}

	c.Currency = "CHF"
	if _, ok := m.scorePair(g, &c, true); !ok {
		t.Error("matching currency must pass")
	}
}

func TestMatchFilenameDateFallback(t *testing.T) {
	g := &models.BatchGroup{
		FileName: "statement_2024-03-10.txt",
		Sum:      decimal.NewFromFloat(100.00),
		Items: []models.StatementLineItem{{
			Description: "undated row",
			Amount:      decimal.NewFromFloat(100.00),
			Direction:   models.DirectionOut,
		}},
	}
	candidates := []models.MatchCandidate{candidate("orig", 100.00, 12)}

	newMatcher(t).Match([]*models.BatchGroup{g}, candidates)

	if g.Matched == nil {
		t.Error("filename date must anchor a group without item dates")
	}
}

func TestDiscoveryWindow(t *testing.T) {
	m := newMatcher(t)
	groups := []*models.BatchGroup{
		group("a.txt", 10, 5, 12),
		group("b.txt", 20, 2, 8),
	}

	from, to, ok := m.DiscoveryWindow(groups)
	if !ok {
		t.Fatal("expected a discovery window")
	}
	if from.After(day(2).AddDate(0, 0, -3)) {
		t.Errorf("window start %s must include the grace padding", from)
	}
	if to.Before(day(12).AddDate(0, 0, 30)) {
		t.Errorf("window end %s must include the window padding", to)
	}
}
