package extract

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"statement-splitter/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("CHF 12.50 01.03.2024", "CHF")

	for _, want := range []string{
		"STRICT JSON",
		"billed amount",
		"fees as separate entries",
		"begin with \"[\"",
		"CHF 12.50 01.03.2024",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestCleanModelJSON(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`[{"a":1}]`, `[{"a":1}]`},
		{"```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"```\n[1,2]\n```", `[1,2]`},
		{"Here are the rows:\n[1,2] done", `[1,2]`},
	}
	for _, tc := range cases {
		if got := CleanModelJSON(tc.raw); got != tc.want {
			t.Errorf("CleanModelJSON(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	raw := `[
		{"description": "COOP PRONTO ZUERICH", "payee": "Coop", "amount": 12.50, "date": "2024-03-01", "direction": "out"},
		{"description": "Payment received - thank you", "amount": "250.00"},
		{"description": "", "amount": 5},
		{"description": "No amount row"},
		{"description": "Previous balance", "amount": 500},
		{"description": "Zero row", "amount": 0}
	]`

	n := NewNormalizer(nil)
	items, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(items), items)
	}

	first := items[0]
	if first.Payee != "Coop" {
		t.Errorf("payee = %q", first.Payee)
	}
	if !first.Amount.Equal(decimal.NewFromFloat(12.50)) {
		t.Errorf("amount = %s", first.Amount)
	}
	if first.Date == nil || first.Date.Day() != 1 {
		t.Errorf("date = %v", first.Date)
	}

	second := items[1]
	if second.Direction != models.DirectionIn {
		t.Errorf("settlement row without direction should be in, got %s", second.Direction)
	}
}

func TestNormalizeRejectsNonArray(t *testing.T) {
	n := NewNormalizer(nil)
	if _, err := n.Normalize(`{"not": "an array"}`); err == nil {
		t.Error("expected error for non-array response")
	}
}

func TestNormalizeHandlesFencedResponse(t *testing.T) {
	raw := "```json\n[{\"description\": \"MIGROS\", \"amount\": \"8,40\", \"direction\": \"out\"}]\n```"
	n := NewNormalizer(nil)
	items, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(items) != 1 || !items[0].Amount.Equal(decimal.NewFromFloat(8.40)) {
		t.Errorf("items = %v", items)
	}
}
