package ingest

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"statement-splitter/internal/models"
	"statement-splitter/internal/parsers"
)

func TestDetectKind(t *testing.T) {
	cases := []struct {
		name string
		data string
		want Kind
	}{
		{"export.csv", "", KindCSV},
		{"statement.txt", "", KindText},
		{"statement.TXT", "", KindText},
		{"upload", "date,description,amount\n01.03.2024,COOP,12.50\n02.03.2024,MIGROS,8.40", KindCSV},
		{"upload", "COOP PRONTO ZUERICH\nCHF 45.50 01.03.2024", KindText},
		{"upload", "\x00\x01binary", KindUnsupported},
		{"upload", "   ", KindUnsupported},
	}

	for _, tc := range cases {
		if got := DetectKind(tc.name, []byte(tc.data)); got != tc.want {
			t.Errorf("DetectKind(%q, %q) = %s, want %s", tc.name, tc.data, got, tc.want)
		}
	}
}

func TestCSVIngestHeaderSynonyms(t *testing.T) {
	data := strings.Join([]string{
		"Buchungsdatum;Buchungstext;Betrag;Währung",
		"01.03.2024;COOP PRONTO ZUERICH;-12,50;CHF",
		"02.03.2024;Gehalt;+3500,00;CHF",
	}, "\n")

	ci, err := NewCSVIngester(DefaultCSVConfig())
	if err != nil {
		t.Fatalf("NewCSVIngester failed: %v", err)
	}
	ps, err := ci.Ingest([]byte(data), "export.csv")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if len(ps.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(ps.Items))
	}
	first := ps.Items[0]
	if first.Description != "COOP PRONTO ZUERICH" {
		t.Errorf("description = %q", first.Description)
	}
	if !first.Amount.Equal(decimal.NewFromFloat(12.50)) {
		t.Errorf("amount = %s, want 12.50", first.Amount)
	}
	if first.Direction != models.DirectionOut {
		t.Errorf("negative amount should be out, got %s", first.Direction)
	}
	if first.Currency != "CHF" {
		t.Errorf("currency = %q", first.Currency)
	}
	if first.Date == nil || first.Date.Day() != 1 {
		t.Errorf("date = %v", first.Date)
	}
	if ps.Items[1].Direction != models.DirectionIn {
		t.Errorf("explicit plus should be in, got %s", ps.Items[1].Direction)
	}
}

func TestCSVIngestHeaderMappingOverride(t *testing.T) {
	data := strings.Join([]string{
		"col_a,col_b,col_c",
		"01.03.2024,COOP,12.50",
	}, "\n")

	config := &CSVConfig{
		HasHeader: true,
		HeaderMapping: map[string]string{
			FieldDate:        "col_a",
			FieldDescription: "col_b",
			FieldAmount:      "col_c",
		},
	}
	ci, err := NewCSVIngester(config)
	if err != nil {
		t.Fatalf("NewCSVIngester failed: %v", err)
	}
	ps, err := ci.Ingest([]byte(data), "")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if len(ps.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(ps.Items))
	}
	if ps.Items[0].Description != "COOP" {
		t.Errorf("description = %q", ps.Items[0].Description)
	}
}

func TestCSVIngestDropsIncompleteRows(t *testing.T) {
	data := strings.Join([]string{
		"date,description,amount",
		"01.03.2024,COOP,12.50",
		"02.03.2024,,8.40",
		"03.03.2024,MIGROS,",
		"04.03.2024,KIOSK,not-a-number",
		"05.03.2024,ZERO,0.00",
	}, "\n")

	ci, _ := NewCSVIngester(DefaultCSVConfig())
	ps, err := ci.Ingest([]byte(data), "")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(ps.Items) != 1 {
		t.Errorf("expected only the complete row, got %d items", len(ps.Items))
	}
}

func TestCSVIngestMissingRequiredColumn(t *testing.T) {
	data := "date,note\n01.03.2024,hello"

	ci, _ := NewCSVIngester(DefaultCSVConfig())
	if _, err := ci.Ingest([]byte(data), ""); err == nil {
		t.Error("expected error when amount/description columns are absent")
	}
}

func TestCSVConfigRejectsUnknownField(t *testing.T) {
	config := &CSVConfig{
		HasHeader:     true,
		HeaderMapping: map[string]string{"frobnicate": "col_x"},
	}
	if _, err := NewCSVIngester(config); err == nil {
		t.Error("expected error for unknown logical field in header mapping")
	}
}

func TestTableSlice(t *testing.T) {
	text := strings.Join([]string{
		"Musterbank AG",
		"Kontoauszug Seite 1",
		"COOP PRONTO ZUERICH",
		"CHF 12.50 01.03.2024",
		"MIGROS M BAHNHOF",
		"CHF 8.40 02.03.2024",
		"Neuer Saldo CHF 500.00",
		"Unsere Kontaktdaten",
	}, "\n")

	sliced := TableSlice(text, parsers.DefaultMarkerTable())

	if strings.Contains(sliced, "Musterbank AG") {
		t.Error("header noise should be cut")
	}
	if !strings.Contains(sliced, "COOP PRONTO ZUERICH") {
		t.Error("the description line preceding the first row must be kept")
	}
	if !strings.Contains(sliced, "CHF 8.40 02.03.2024") {
		t.Error("all transaction rows must be kept")
	}
	if strings.Contains(sliced, "Unsere Kontaktdaten") {
		t.Error("footer after the balance marker should be cut")
	}
}

func TestTableSlicePassThroughWithoutDates(t *testing.T) {
	text := "no dates here\njust text"
	if got := TableSlice(text, parsers.DefaultMarkerTable()); got != text {
		t.Errorf("text without dates must pass through, got %q", got)
	}
}
