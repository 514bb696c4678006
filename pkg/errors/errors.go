// Package errors defines the error taxonomy for the statement splitter.
//
// Every failure surfaced by the engine is a *SplitterError carrying a
// category, a machine-readable code, optional context and a suggestion for
// the operator. The categories map onto the recovery rules of the engine:
// validation and file errors abort immediately, sum-mismatch and
// already-extracted errors are overridable by the caller, account-resolution
// errors trigger exactly one auto-create retry, and collaborator errors are
// propagated with their original message.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category groups errors by the subsystem that produced them.
type Category string

const (
	CategoryValidation   Category = "validation"
	CategoryFile         Category = "file"
	CategoryParse        Category = "parse"
	CategoryReconcile    Category = "reconcile"
	CategoryMaterialize  Category = "materialize"
	CategoryCollaborator Category = "collaborator"
	CategoryConfig       Category = "config"
)

// Code identifies a specific failure within a category.
type Code string

const (
	// Validation
	CodeMissingInput    Code = "missing_input"
	CodeInvalidInput    Code = "invalid_input"
	CodeUnsupportedFile Code = "unsupported_file_type"

	// Parse
	CodeNoRowsExtracted Code = "no_rows_extracted"
	CodeBadAmount       Code = "bad_amount"
	CodeBadDate         Code = "bad_date"

	// Reconcile
	CodeSumMismatch Code = "sum_mismatch"
	CodeUnmatched   Code = "unmatched_group"

	// Materialize
	CodeAlreadyExtracted  Code = "already_extracted"
	CodeAccountResolution Code = "account_resolution"

	// Collaborator
	CodeLedgerFailure    Code = "ledger_failure"
	CodeExtractorFailure Code = "extractor_failure"

	// Config
	CodeInvalidConfig Code = "invalid_config"
)

// SplitterError is the error type returned across package boundaries.
type SplitterError struct {
	Category   Category               `json:"category"`
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Cause      error                  `json:"-"`
	Stack      errors.StackTrace      `json:"-"`
}

// Error implements the error interface.
func (e *SplitterError) Error() string {
	if e.Cause != nil && !strings.Contains(e.Message, e.Cause.Error()) {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *SplitterError) Unwrap() error {
	return e.Cause
}

// Is reports code equality so callers can compare against sentinel errors.
func (e *SplitterError) Is(target error) bool {
	t, ok := target.(*SplitterError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithContext attaches a key/value pair for diagnostics.
func (e *SplitterError) WithContext(key string, value interface{}) *SplitterError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches an operator-facing hint.
func (e *SplitterError) WithSuggestion(s string) *SplitterError {
	e.Suggestion = s
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a SplitterError with a captured stack trace.
func New(category Category, code Code, message string) *SplitterError {
	return &SplitterError{
		Category: category,
		Code:     code,
		Message:  message,
		Stack:    errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error. Returns nil when err is nil.
func Wrap(err error, category Category, code Code, message string) *SplitterError {
	if err == nil {
		return nil
	}
	return &SplitterError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    err,
		Stack:    errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// Validation constructs a CategoryValidation error for a missing or invalid input.
func Validation(code Code, field string, detail string) *SplitterError {
	msg := fmt.Sprintf("invalid request: %s", field)
	if detail != "" {
		msg = fmt.Sprintf("invalid request: %s (%s)", field, detail)
	}
	return New(CategoryValidation, code, msg).WithContext("field", field)
}

// UnsupportedFileType reports a file whose kind the ingester cannot handle.
func UnsupportedFileType(name string) *SplitterError {
	return New(CategoryFile, CodeUnsupportedFile,
		fmt.Sprintf("unsupported file type: %s", name)).
		WithSuggestion("upload a CSV file or extracted statement text").
		WithContext("file", name)
}

// SumMismatch reports a reconciliation difference beyond tolerance.
func SumMismatch(original, sum, diff string) *SplitterError {
	return New(CategoryReconcile, CodeSumMismatch,
		fmt.Sprintf("statement sum %s does not match original amount %s (diff %s)", sum, original, diff)).
		WithSuggestion("review the parsed items or pass the mismatch override").
		WithContext("original", original).
		WithContext("sum", sum).
		WithContext("diff", diff)
}

// AlreadyExtracted reports an idempotency violation on a settlement entity.
func AlreadyExtracted(originalID, tag string) *SplitterError {
	return New(CategoryMaterialize, CodeAlreadyExtracted,
		fmt.Sprintf("transaction %s already carries the %q tag", originalID, tag)).
		WithSuggestion("pass force to split the statement again").
		WithContext("original_id", originalID).
		WithContext("tag", tag)
}

// AccountResolution reports an unresolvable counterparty or asset account.
func AccountResolution(name string, cause error) *SplitterError {
	se := Wrap(cause, CategoryMaterialize, CodeAccountResolution,
		fmt.Sprintf("could not resolve account %q", name))
	if se == nil {
		se = New(CategoryMaterialize, CodeAccountResolution,
			fmt.Sprintf("could not resolve account %q", name))
	}
	return se.
		WithSuggestion("create the account manually or check the ledger bindings").
		WithContext("account", name)
}

// Collaborator wraps a failure from the ledger or the AI extractor, keeping
// the original message visible to the caller.
func Collaborator(code Code, service string, cause error) *SplitterError {
	se := Wrap(cause, CategoryCollaborator, code,
		fmt.Sprintf("%s call failed", service))
	if se == nil {
		se = New(CategoryCollaborator, code,
			fmt.Sprintf("%s call failed", service))
	}
	return se.WithContext("service", service)
}

// Config constructs a configuration error.
func Config(setting string, cause error) *SplitterError {
	se := Wrap(cause, CategoryConfig, CodeInvalidConfig,
		fmt.Sprintf("invalid configuration: %s", setting))
	if se == nil {
		se = New(CategoryConfig, CodeInvalidConfig,
			fmt.Sprintf("invalid configuration: %s", setting))
	}
	return se.WithContext("setting", setting)
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code Code) bool {
	var se *SplitterError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// AsSplitterError extracts a SplitterError from an error chain.
func AsSplitterError(err error) (*SplitterError, bool) {
	var se *SplitterError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ExitCode maps an error to a process exit code for the CLI.
func ExitCode(err error) int {
	se, ok := AsSplitterError(err)
	if !ok {
		return 1
	}
	switch se.Category {
	case CategoryValidation, CategoryFile:
		return 2
	case CategoryParse:
		return 3
	case CategoryConfig:
		return 4
	case CategoryReconcile, CategoryMaterialize:
		return 5
	case CategoryCollaborator:
		return 6
	default:
		return 1
	}
}
