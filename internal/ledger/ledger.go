// Package ledger is the collaborator boundary to the bookkeeping backend.
// The engine reads settlement transactions, writes child entries and tags
// through the Service interface; Client talks to the HTTP API and Memory
// is the in-process fake used by tests.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the ledger-side entry type.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

// AccountType classifies ledger accounts.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountExpense   AccountType = "expense"
	AccountRevenue   AccountType = "revenue"
)

// Account is a ledger account reference.
type Account struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	Currency string      `json:"currency,omitempty"`
}

// Transaction is a ledger entry. For settlement originals the engine reads
// every field; for child entries it fills the fields and lets the ledger
// assign the ID.
type Transaction struct {
	ID          string          `json:"id,omitempty"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Payee       string          `json:"payee,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Date        time.Time       `json:"date"`
	Tags        []string        `json:"tags,omitempty"`

	// AccountID is the asset/liability side of the entry. AccountName is the
	// bare reference used when no ID could be resolved.
	AccountID   string `json:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`
	// CounterAccountID is the merchant side when known; CounterAccountName
	// is the bare reference the ledger resolves (or rejects) itself.
	CounterAccountID   string `json:"counter_account_id,omitempty"`
	CounterAccountName string `json:"counter_account_name,omitempty"`

	// ExternalRef deduplicates writes on the ledger side.
	ExternalRef string `json:"external_ref,omitempty"`
}

// HasTag reports whether the transaction carries the tag (case-insensitive).
func (t *Transaction) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

// SearchQuery scopes a transaction search.
type SearchQuery struct {
	From time.Time
	To   time.Time
	Type TransactionType
}

// Service is the ledger operation set the engine depends on.
type Service interface {
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	SearchTransactions(ctx context.Context, q SearchQuery) ([]*Transaction, error)
	CreateTransaction(ctx context.Context, tx *Transaction) (*Transaction, error)
	AttachTags(ctx context.Context, id string, tags []string) error
	FindAccount(ctx context.Context, name string, types ...AccountType) (*Account, error)
	CreateAccount(ctx context.Context, acc *Account) (*Account, error)
}
