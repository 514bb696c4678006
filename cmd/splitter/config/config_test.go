package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

func TestServiceConfigAppliesSettings(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set(KeyDefaultTag, "card-split")
	viper.Set(KeyUseAI, true)
	viper.Set(KeyAccountCurrency, "CHF")
	viper.Set(KeyAmountTolerance, 0.05)
	viper.Set(KeyDateToleranceDays, 3)
	viper.Set(KeyHeaderMapping, map[string]string{"amount": "Betrag"})

	config := ServiceConfig()

	if config.DefaultTag != "card-split" {
		t.Errorf("default tag = %q", config.DefaultTag)
	}
	if !config.UseAI {
		t.Error("use AI must be enabled")
	}
	if config.AccountCurrency != "CHF" {
		t.Errorf("account currency = %q", config.AccountCurrency)
	}
	if !config.Merge.AmountTolerance.Equal(decimal.NewFromFloat(0.05)) {
		t.Errorf("amount tolerance = %s", config.Merge.AmountTolerance)
	}
	if config.Merge.DateToleranceDays != 3 {
		t.Errorf("date tolerance = %d", config.Merge.DateToleranceDays)
	}
	if config.CSV.HeaderMapping["amount"] != "Betrag" {
		t.Errorf("header mapping = %v", config.CSV.HeaderMapping)
	}
}

func TestServiceConfigDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	config := ServiceConfig()

	if config.DefaultTag != "statement-split" {
		t.Errorf("default tag = %q", config.DefaultTag)
	}
	if config.UseAI {
		t.Error("use AI must default to off")
	}
	if !config.Merge.AmountTolerance.Equal(decimal.NewFromFloat(0.02)) {
		t.Errorf("amount tolerance = %s, want the default", config.Merge.AmountTolerance)
	}
}

func TestMatcherConfigFlagOverrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set(KeyWindowDays, 45)

	config := MatcherConfig(0, -1)
	if config.WindowDays != 45 {
		t.Errorf("window days = %d, want the configured 45", config.WindowDays)
	}
	if config.GraceBeforeDays != 3 {
		t.Errorf("grace days = %d, want the default 3", config.GraceBeforeDays)
	}

	config = MatcherConfig(60, 5)
	if config.WindowDays != 60 || config.GraceBeforeDays != 5 {
		t.Errorf("flags must override: window %d, grace %d", config.WindowDays, config.GraceBeforeDays)
	}
}

func TestIsSettable(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{KeyDefaultTag, true},
		{KeyUseAI, true},
		{"header_mapping.amount", true},
		{"header_mapping.", false},
		{"unknown_key", false},
		{KeyLedgerToken, false},
	}
	for _, tc := range cases {
		if got := IsSettable(tc.key); got != tc.want {
			t.Errorf("IsSettable(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestReportConfigRejectsUnknownFormat(t *testing.T) {
	if _, err := ReportConfig("xml"); err == nil {
		t.Error("unknown format must be rejected")
	}
	config, err := ReportConfig("json")
	if err != nil {
		t.Fatalf("ReportConfig failed: %v", err)
	}
	if string(config.Format) != "json" {
		t.Errorf("format = %s", config.Format)
	}
}
