package parsers

import (
	"testing"

	"github.com/shopspring/decimal"

	"statement-splitter/internal/models"
	"statement-splitter/internal/trace"
)

func newTestParser(t *testing.T) *RowParser {
	t.Helper()
	rp, err := NewRowParser(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewRowParser failed: %v", err)
	}
	return rp
}

func amountOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad amount literal %q: %v", s, err)
	}
	return d
}

func TestAnchorScanDescriptionsAfterAnchors(t *testing.T) {
	text := `
CHF 45.50 01.03.2024 02.03.2024
COOP PRONTO ZUERICH
CHF 12.50 03.03.2024
MIGROS M BAHNHOF
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "statement.txt")

	if len(ps.Items) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(ps.Items), ps.Items)
	}
	if ps.Items[0].Description != "COOP PRONTO ZUERICH" {
		t.Errorf("item 0 description = %q", ps.Items[0].Description)
	}
	if !ps.Items[0].Amount.Equal(amountOf(t, "45.50")) {
		t.Errorf("item 0 amount = %s", ps.Items[0].Amount)
	}
	if ps.Items[0].Date == nil || ps.Items[0].Date.Day() != 1 {
		t.Errorf("item 0 should carry the first (transaction) date, got %v", ps.Items[0].Date)
	}
	if ps.Items[1].Description != "MIGROS M BAHNHOF" {
		t.Errorf("item 1 description = %q", ps.Items[1].Description)
	}
	for _, item := range ps.Items {
		if item.Direction != models.DirectionOut {
			t.Errorf("unsigned amounts default to out, got %s for %q", item.Direction, item.Description)
		}
	}
}

func TestAnchorScanPrecedingLineFallback(t *testing.T) {
	text := `
COOP PRONTO ZUERICH
CHF 45.50 01.03.2024 02.03.2024
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if len(ps.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(ps.Items))
	}
	if ps.Items[0].Description != "COOP PRONTO ZUERICH" {
		t.Errorf("description = %q", ps.Items[0].Description)
	}
}

func TestAnchorScanResidualDescription(t *testing.T) {
	text := "MIGROS M BAHNHOF CHF 89.90 05.03.2024"
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if len(ps.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(ps.Items))
	}
	if ps.Items[0].Description != "MIGROS M BAHNHOF" {
		t.Errorf("description = %q", ps.Items[0].Description)
	}
}

func TestAnchorScanOneToOneClaiming(t *testing.T) {
	// Two anchors, one description candidate between them. Once the first
	// anchor claims it, the second anchor has nothing left and is dropped
	// rather than reusing the claimed line.
	text := `
CHF 10.00 01.03.2024
SHARED DESCRIPTION LINE
CHF 20.00 02.03.2024
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if len(ps.Items) != 1 {
		t.Fatalf("expected 1 item, got %d: %v", len(ps.Items), ps.Items)
	}
	if ps.Items[0].Description != "SHARED DESCRIPTION LINE" {
		t.Errorf("description = %q", ps.Items[0].Description)
	}
	if !ps.Items[0].Amount.Equal(amountOf(t, "10.00")) {
		t.Errorf("the first anchor should claim the shared line, got %s", ps.Items[0].Amount)
	}
}

func TestAnchorScanFeeDeferral(t *testing.T) {
	// The fee text sits right after the large anchor but belongs to the
	// small fee anchor below. The large anchor must defer and take the
	// hotel description instead.
	text := `
CHF 120.00 10.03.2024
Conversion fee
HOTEL BELLEVUE PARIS
CHF 1.80 11.03.2024
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if len(ps.Items) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(ps.Items), ps.Items)
	}
	if ps.Items[0].Description != "HOTEL BELLEVUE PARIS" {
		t.Errorf("large anchor took %q, want the hotel description", ps.Items[0].Description)
	}
	if ps.Items[1].Description != "Conversion fee" {
		t.Errorf("fee anchor took %q, want the fee description", ps.Items[1].Description)
	}
}

func TestAnchorScanSettlementDirection(t *testing.T) {
	text := `
CHF 250.00 05.03.2024
Payment received - thank you
CHF 12.50 06.03.2024
COOP PRONTO ZUERICH
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if len(ps.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(ps.Items))
	}
	if ps.Items[0].Direction != models.DirectionIn {
		t.Errorf("settlement payment direction = %s, want in", ps.Items[0].Direction)
	}
	if ps.Items[1].Direction != models.DirectionOut {
		t.Errorf("purchase direction = %s, want out", ps.Items[1].Direction)
	}
}

func TestAnchorScanExplicitSignWins(t *testing.T) {
	text := `
CHF +30.00 04.03.2024
REFUND ONLINE SHOP
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if len(ps.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(ps.Items))
	}
	if ps.Items[0].Direction != models.DirectionIn {
		t.Errorf("explicit plus should force in, got %s", ps.Items[0].Direction)
	}
}

func TestAnchorScanSkipsIgnoredAndZeroAmounts(t *testing.T) {
	text := `
Previous balance CHF 500.00 01.03.2024
CHF 0.00 02.03.2024
CHF 12.50 03.03.2024
COOP PRONTO ZUERICH
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if len(ps.Items) != 1 {
		t.Fatalf("expected 1 item, got %d: %v", len(ps.Items), ps.Items)
	}
	if !ps.Items[0].Amount.Equal(amountOf(t, "12.50")) {
		t.Errorf("amount = %s, want 12.50", ps.Items[0].Amount)
	}
	if ps.Items[0].Description != "COOP PRONTO ZUERICH" {
		t.Errorf("description = %q", ps.Items[0].Description)
	}
}

func TestLegacyTableScan(t *testing.T) {
	// Date-leading row blocks with no date after the amount: the anchor
	// scan finds nothing and the legacy table scan takes over.
	text := `
01.03.2024 COOP PRONTO Zuerich
Kartennr 1234
CHF 12.50
05.03.2024 Onlineshop Beispiel CHF 3.20
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if len(ps.Items) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(ps.Items), ps.Items)
	}
	if !ps.Items[0].Amount.Equal(amountOf(t, "12.50")) {
		t.Errorf("block amount = %s, want the last tagged amount 12.50", ps.Items[0].Amount)
	}
	if ps.Items[0].Date == nil || ps.Items[0].Date.Day() != 1 {
		t.Errorf("block date = %v, want 01.03.2024", ps.Items[0].Date)
	}
	if ps.Items[1].Description != "Onlineshop Beispiel" {
		t.Errorf("item 1 description = %q", ps.Items[1].Description)
	}
}

func TestHeuristicScan(t *testing.T) {
	// Date mid-line and amount at the end: neither the anchor pattern nor
	// the date-leading table layout applies.
	text := `
Einkauf 01.03.2024 COOP CHF 12.50
Einkauf 02.03.2024 MIGROS CHF 8.40
`
	rp := newTestParser(t)

	if ps := rp.Parse(text, ""); !ps.IsEmpty() {
		t.Fatalf("deterministic strategies should find nothing, got %v", ps.Items)
	}

	items := rp.HeuristicScan(text)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(items), items)
	}
	if items[0].Description != "Einkauf COOP" {
		t.Errorf("description = %q", items[0].Description)
	}
	if items[0].Date == nil || items[0].Date.Day() != 1 {
		t.Errorf("date = %v", items[0].Date)
	}
}

func TestParseCapturesStatementTotal(t *testing.T) {
	text := `
COOP PRONTO ZUERICH
CHF 45.50 01.03.2024
Totalbetrag CHF 45.50
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if ps.StatementTotal == nil {
		t.Fatal("expected a statement total hint")
	}
	if !ps.StatementTotal.Equal(amountOf(t, "45.50")) {
		t.Errorf("statement total = %s, want 45.50", ps.StatementTotal)
	}
	if len(ps.Items) != 1 {
		t.Errorf("the total line must not become an item, got %d items", len(ps.Items))
	}
}

func TestParseEmptyOnNoise(t *testing.T) {
	text := `
Previous balance CHF 500.00
Page 1 of 2
IBAN CH12 3456 7890
`
	rp := newTestParser(t)
	ps := rp.Parse(text, "")

	if !ps.IsEmpty() {
		t.Errorf("expected no items from noise-only text, got %v", ps.Items)
	}
}

func TestParseRecordsTrace(t *testing.T) {
	rec := trace.New()
	rp, err := NewRowParser(DefaultConfig(), rec)
	if err != nil {
		t.Fatalf("NewRowParser failed: %v", err)
	}

	rp.Parse("COOP PRONTO\nCHF 12.50 01.03.2024", "s.txt")

	if len(rec.Stage("parse")) == 0 {
		t.Error("expected parse-stage trace entries")
	}
}

func TestNewMarkerTableRejectsBadPattern(t *testing.T) {
	p := DefaultMarkerPatterns()
	p.Ignore = append(p.Ignore, `(unclosed`)
	if _, err := NewMarkerTable(p); err == nil {
		t.Error("expected error for invalid marker pattern")
	}
}

func TestMarkerClassification(t *testing.T) {
	mt := DefaultMarkerTable()

	cases := []struct {
		line  string
		check func(string) bool
		want  bool
		kind  string
	}{
		{"Saldovortrag per 01.03.2024", mt.IsIgnored, true, "ignore"},
		{"Zwischentotal", mt.IsIgnored, true, "ignore"},
		{"COOP PRONTO ZUERICH", mt.IsIgnored, false, "ignore"},
		{"Zahlung letzte Rechnung", mt.IsSettlement, true, "settlement"},
		{"Votre paiement", mt.IsSettlement, true, "settlement"},
		{"Bearbeitungsgebühr", mt.IsFee, true, "fee"},
		{"Conversion fee 1.75%", mt.IsFee, true, "fee"},
		{"Totalbetrag CHF 158.20", mt.IsTotal, true, "total"},
		{"Amount due", mt.IsTotal, true, "total"},
	}
	for _, tc := range cases {
		if got := tc.check(tc.line); got != tc.want {
			t.Errorf("%s(%q) = %v, want %v", tc.kind, tc.line, got, tc.want)
		}
	}
}
