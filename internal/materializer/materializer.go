// Package materializer writes confirmed statement splits to the ledger:
// one child entry per line item, the extracted tag on the original, and a
// correction clone that neutralizes the original's balance effect.
package materializer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"statement-splitter/internal/ledger"
	"statement-splitter/internal/models"
	"statement-splitter/internal/parsers"
	"statement-splitter/internal/reconciler"
	"statement-splitter/internal/trace"
	splittererrors "statement-splitter/pkg/errors"
	"statement-splitter/pkg/logger"
)

const (
	// DefaultExtractedTag marks a settlement original whose children have
	// already been written. Its presence blocks a second confirm.
	DefaultExtractedTag = "statement-extracted"

	// DefaultCorrectionSuffix distinguishes the correction clone's tag from
	// the user tag on the children.
	DefaultCorrectionSuffix = "-correction"
)

// Config holds the materialization settings.
type Config struct {
	DefaultTag       string `json:"default_tag" mapstructure:"default_tag"`
	ExtractedTag     string `json:"extracted_tag" mapstructure:"extracted_tag"`
	CorrectionSuffix string `json:"correction_suffix" mapstructure:"correction_suffix"`
}

// DefaultConfig returns the standard materialization settings.
func DefaultConfig() *Config {
	return &Config{
		DefaultTag:       "statement-split",
		ExtractedTag:     DefaultExtractedTag,
		CorrectionSuffix: DefaultCorrectionSuffix,
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if c.ExtractedTag == "" {
		return splittererrors.Config("materializer.extracted_tag", nil)
	}
	if c.CorrectionSuffix == "" {
		return splittererrors.Config("materializer.correction_suffix", nil)
	}
	return nil
}

// Request is one confirmed group to materialize.
type Request struct {
	OriginalID        string
	Items             []models.StatementLineItem
	Tag               string
	ProceedOnMismatch bool
	Force             bool
}

// Result reports what one confirm run wrote. Item-level failures land in
// Errors and do not abort the remaining items.
type Result struct {
	Created      int                   `json:"created"`
	Diff         decimal.Decimal       `json:"diff"`
	Merchants    []string              `json:"merchants,omitempty"`
	Transactions []*ledger.Transaction `json:"transactions,omitempty"`
	Errors       []string              `json:"errors,omitempty"`
}

// Materializer performs the ledger writes for confirmed statements.
type Materializer struct {
	config  *Config
	ledger  ledger.Service
	markers *parsers.MarkerTable
	tracer  *trace.Recorder
	logger  logger.Logger
}

// New creates a materializer. The tracer may be nil.
func New(config *Config, ledgerSvc ledger.Service, markers *parsers.MarkerTable, tracer *trace.Recorder) (*Materializer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if ledgerSvc == nil {
		return nil, splittererrors.Config("materializer.ledger", nil)
	}
	if markers == nil {
		markers = parsers.DefaultMarkerTable()
	}
	return &Materializer{
		config:  config,
		ledger:  ledgerSvc,
		markers: markers,
		tracer:  tracer,
		logger:  logger.WithComponent("materializer"),
	}, nil
}

// Confirm materializes one group. It re-checks idempotency and the sum
// tolerance before writing, then creates the children, tags the original
// and writes the correction clone.
func (m *Materializer) Confirm(ctx context.Context, req Request) (*Result, error) {
	if req.OriginalID == "" {
		return nil, splittererrors.Validation(splittererrors.CodeMissingInput, "original_id", "no settlement transaction selected")
	}
	if len(req.Items) == 0 {
		return nil, splittererrors.Validation(splittererrors.CodeMissingInput, "items", "no line items to write")
	}

	original, err := m.ledger.GetTransaction(ctx, req.OriginalID)
	if err != nil {
		return nil, err
	}
	if !req.Force && original.HasTag(m.config.ExtractedTag) {
		return nil, splittererrors.AlreadyExtracted(original.ID, m.config.ExtractedTag)
	}

	totals := reconciler.ReconcileTotals(original.Amount,
		&models.ParsedStatement{Items: req.Items}, m.markers)
	if !reconciler.Accepted(totals, req.ProceedOnMismatch) {
		return nil, splittererrors.SumMismatch(
			totals.Original.StringFixed(2), totals.Sum.StringFixed(2), totals.Diff.StringFixed(2))
	}

	userTag := models.SanitizeTag(req.Tag)
	if userTag == "" {
		userTag = m.config.DefaultTag
	}
	parentTag := models.ParentTag(original.Description)
	assetID, assetName := m.resolveAssetAccount(ctx, original)

	result := &Result{Diff: totals.Diff}
	for i := range req.Items {
		child := m.childTransaction(&req.Items[i], original, userTag, parentTag, assetID, assetName)
		created, err := m.writeChild(ctx, child, req.Items[i].Direction, result)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("item %q: %v", req.Items[i].Description, err))
			m.logger.WithError(err).WithField("item", req.Items[i].Description).Warn("Child entry failed")
			continue
		}
		result.Created++
		result.Transactions = append(result.Transactions, created)
	}
	m.tracer.Record("materialize", "wrote %d of %d child entries for %s",
		result.Created, len(req.Items), original.ID)

	if result.Created == 0 {
		return result, nil
	}

	if err := m.ledger.AttachTags(ctx, original.ID, []string{m.config.ExtractedTag}); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("tagging original: %v", err))
	}
	if err := m.writeCorrection(ctx, original, userTag, parentTag, assetID, assetName, result); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("correction clone: %v", err))
	}
	return result, nil
}

// childTransaction builds the ledger entry for one line item, inheriting
// date and currency from the original when the item carries none.
func (m *Materializer) childTransaction(item *models.StatementLineItem, original *ledger.Transaction, userTag, parentTag, assetID, assetName string) *ledger.Transaction {
	child := &ledger.Transaction{
		Description:        item.Description,
		Payee:              item.EffectivePayee(),
		Amount:             item.Amount,
		Currency:           item.Currency,
		Tags:               []string{userTag, parentTag},
		AccountID:          assetID,
		AccountName:        assetName,
		CounterAccountName: item.EffectivePayee(),
	}
	if item.Direction == models.DirectionIn {
		child.Type = ledger.TypeDeposit
	} else {
		child.Type = ledger.TypeWithdrawal
	}
	if item.Date != nil {
		child.Date = *item.Date
	} else {
		child.Date = original.Date
	}
	if child.Currency == "" {
		child.Currency = original.Currency
	}
	return child
}

// writeChild creates one child entry, retrying once through an auto-created
// merchant account when the ledger rejects the counterparty.
func (m *Materializer) writeChild(ctx context.Context, child *ledger.Transaction, direction models.Direction, result *Result) (*ledger.Transaction, error) {
	created, err := m.ledger.CreateTransaction(ctx, child)
	if err == nil {
		return created, nil
	}
	if !splittererrors.IsCode(err, splittererrors.CodeAccountResolution) {
		return nil, err
	}

	account, created2, accErr := m.ensureMerchantAccount(ctx, child.CounterAccountName, direction)
	if accErr != nil {
		return nil, accErr
	}
	if created2 {
		result.Merchants = append(result.Merchants, account.Name)
		m.tracer.Record("materialize", "created %s account %q", account.Type, account.Name)
	}
	child.CounterAccountID = account.ID
	return m.ledger.CreateTransaction(ctx, child)
}

// ensureMerchantAccount finds or creates the counterparty account of the
// type matching the money direction (expense out, revenue in). The boolean
// reports whether the account was newly created.
func (m *Materializer) ensureMerchantAccount(ctx context.Context, name string, direction models.Direction) (*ledger.Account, bool, error) {
	if name == "" {
		return nil, false, splittererrors.AccountResolution(name, nil)
	}
	accountType := ledger.AccountExpense
	if direction == models.DirectionIn {
		accountType = ledger.AccountRevenue
	}
	if account, err := m.ledger.FindAccount(ctx, name, accountType); err == nil {
		return account, false, nil
	}
	account, err := m.ledger.CreateAccount(ctx, &ledger.Account{Name: name, Type: accountType})
	if err != nil {
		return nil, false, splittererrors.AccountResolution(name, err)
	}
	return account, true, nil
}

// resolveAssetAccount picks the asset-side binding for the children: the
// original's own account, its counter account, a name lookup across asset
// and liability accounts, else the bare name reference.
func (m *Materializer) resolveAssetAccount(ctx context.Context, original *ledger.Transaction) (id, name string) {
	if original.AccountID != "" {
		return original.AccountID, ""
	}
	if original.CounterAccountID != "" {
		return original.CounterAccountID, ""
	}
	lookup := original.AccountName
	if lookup == "" {
		lookup = original.CounterAccountName
	}
	if lookup == "" {
		return "", ""
	}
	if account, err := m.ledger.FindAccount(ctx, lookup, ledger.AccountAsset, ledger.AccountLiability); err == nil {
		return account.ID, ""
	}
	return "", lookup
}

// writeCorrection creates the deposit that cancels the original's balance
// effect now that its children exist alongside it.
func (m *Materializer) writeCorrection(ctx context.Context, original *ledger.Transaction, userTag, parentTag, assetID, assetName string, result *Result) error {
	correction := &ledger.Transaction{
		Type:        ledger.TypeDeposit,
		Description: original.Description + " (correction)",
		Amount:      original.Amount.Abs(),
		Currency:    original.Currency,
		Date:        original.Date,
		Tags:        []string{userTag + m.config.CorrectionSuffix, parentTag},
		AccountID:   assetID,
		AccountName: assetName,
	}
	created, err := m.ledger.CreateTransaction(ctx, correction)
	if err != nil {
		return err
	}
	result.Transactions = append(result.Transactions, created)
	return nil
}

// ConfirmBatch materializes matched groups strictly in order. Group-level
// failures are recorded on the group and in the combined result; they do
// not stop the remaining groups.
func (m *Materializer) ConfirmBatch(ctx context.Context, groups []*models.BatchGroup, tag string, proceedOnMismatch, force bool) (*Result, error) {
	if len(groups) == 0 {
		return nil, splittererrors.Validation(splittererrors.CodeMissingInput, "groups", "no groups to confirm")
	}

	combined := &Result{}
	for _, group := range groups {
		if group.Matched == nil {
			group.Error = "no matched original"
			combined.Errors = append(combined.Errors,
				fmt.Sprintf("%s: no matched original", group.FileName))
			continue
		}
		result, err := m.Confirm(ctx, Request{
			OriginalID:        group.Matched.OriginalID,
			Items:             group.Items,
			Tag:               tag,
			ProceedOnMismatch: proceedOnMismatch,
			Force:             force,
		})
		if err != nil {
			group.Error = err.Error()
			combined.Errors = append(combined.Errors,
				fmt.Sprintf("%s: %v", group.FileName, err))
			continue
		}
		combined.Created += result.Created
		combined.Merchants = append(combined.Merchants, result.Merchants...)
		combined.Transactions = append(combined.Transactions, result.Transactions...)
		for _, e := range result.Errors {
			combined.Errors = append(combined.Errors, fmt.Sprintf("%s: %s", group.FileName, e))
		}
	}
	return combined, nil
}
