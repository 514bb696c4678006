// Package config assembles component configurations from viper settings
// for the splitter CLI.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"statement-splitter/internal/extract"
	"statement-splitter/internal/ledger"
	"statement-splitter/internal/matcher"
	"statement-splitter/internal/materializer"
	"statement-splitter/internal/parsers"
	"statement-splitter/internal/reconciler"
	"statement-splitter/internal/reporter"
)

// Settings keys recognized in the config file and environment.
const (
	KeyDefaultTag        = "default_tag"
	KeyUseAI             = "use_ai_for_parsing"
	KeyAccountCurrency   = "account_currency"
	KeyHeaderMapping     = "header_mapping"
	KeyAmountTolerance   = "amount_merge_tolerance"
	KeyDateToleranceDays = "date_merge_tolerance_days"
	KeyWindowDays        = "match_window_days"
	KeyGraceBeforeDays   = "grace_before_days"
	KeyLedgerBaseURL     = "ledger.base_url"
	KeyLedgerToken       = "ledger.token"
	KeyGeminiModel       = "gemini_model"
)

// SettableKeys lists the keys `splitter config set` accepts.
var SettableKeys = []string{
	KeyDefaultTag,
	KeyUseAI,
	KeyAccountCurrency,
	KeyAmountTolerance,
	KeyDateToleranceDays,
	KeyWindowDays,
	KeyGraceBeforeDays,
	KeyLedgerBaseURL,
	KeyGeminiModel,
}

// IsSettable reports whether the key may be written through the CLI.
// Header mapping entries use the header_mapping.<field> form.
func IsSettable(key string) bool {
	for _, k := range SettableKeys {
		if k == key {
			return true
		}
	}
	return len(key) > len(KeyHeaderMapping)+1 &&
		key[:len(KeyHeaderMapping)+1] == KeyHeaderMapping+"."
}

// ServiceConfig builds the preview pipeline configuration.
func ServiceConfig() *reconciler.Config {
	config := reconciler.DefaultConfig()

	if tag := viper.GetString(KeyDefaultTag); tag != "" {
		config.DefaultTag = tag
	}
	config.UseAI = viper.GetBool(KeyUseAI)
	config.AccountCurrency = viper.GetString(KeyAccountCurrency)

	if mapping := viper.GetStringMapString(KeyHeaderMapping); len(mapping) > 0 {
		config.CSV.HeaderMapping = mapping
	}
	if viper.IsSet(KeyAmountTolerance) {
		config.Merge.AmountTolerance = decimal.NewFromFloat(viper.GetFloat64(KeyAmountTolerance))
	}
	if viper.IsSet(KeyDateToleranceDays) {
		config.Merge.DateToleranceDays = viper.GetInt(KeyDateToleranceDays)
	}
	return config
}

// MatcherConfig builds the batch matching configuration. CLI flag values
// override the configured defaults when positive.
func MatcherConfig(windowDays, graceBeforeDays int) *matcher.Config {
	config := matcher.DefaultConfig()
	if viper.IsSet(KeyWindowDays) {
		config.WindowDays = viper.GetInt(KeyWindowDays)
	}
	if viper.IsSet(KeyGraceBeforeDays) {
		config.GraceBeforeDays = viper.GetInt(KeyGraceBeforeDays)
	}
	if windowDays > 0 {
		config.WindowDays = windowDays
	}
	if graceBeforeDays >= 0 {
		config.GraceBeforeDays = graceBeforeDays
	}
	return config
}

// MaterializerConfig builds the confirm-stage configuration.
func MaterializerConfig() *materializer.Config {
	config := materializer.DefaultConfig()
	if tag := viper.GetString(KeyDefaultTag); tag != "" {
		config.DefaultTag = tag
	}
	return config
}

// LedgerService connects to the configured ledger backend.
func LedgerService() (ledger.Service, error) {
	clientConfig := &ledger.ClientConfig{
		BaseURL: viper.GetString(KeyLedgerBaseURL),
		Token:   viper.GetString(KeyLedgerToken),
		Timeout: 30 * time.Second,
	}
	return ledger.NewClient(clientConfig)
}

// Extractor builds the AI extractor when AI parsing is enabled or forced.
// Returns nil when AI is off; the pipeline treats that as disabled.
func Extractor(ctx context.Context, forceAI bool, markers *parsers.MarkerTable) (extract.Extractor, error) {
	if !forceAI && !viper.GetBool(KeyUseAI) {
		return nil, nil
	}
	geminiConfig := extract.DefaultGeminiConfig()
	if model := viper.GetString(KeyGeminiModel); model != "" {
		geminiConfig.Model = model
	}
	return extract.NewGeminiExtractor(ctx, geminiConfig, markers)
}

// ReportConfig builds the reporter configuration for the requested format.
func ReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	if !config.Format.IsValid() {
		return nil, fmt.Errorf("invalid output format %q, valid formats: console, json, csv", format)
	}
	return config, nil
}
