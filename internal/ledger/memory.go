package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	splittererrors "statement-splitter/pkg/errors"
)

// Memory is an in-process Service implementation backing tests and dry
// runs. It mimics the ledger's merchant-account strictness: a write naming
// an unknown counter account is rejected with an account-resolution error,
// which is what triggers the materializer's auto-create retry.
type Memory struct {
	mu           sync.Mutex
	transactions map[string]*Transaction
	accounts     map[string]*Account

	// RequireCounterAccount rejects writes whose counter account cannot be
	// resolved, matching the real ledger's behavior. Off by default so
	// simple tests need no account fixtures.
	RequireCounterAccount bool
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[string]*Transaction),
		accounts:     make(map[string]*Account),
	}
}

// Seed adds a transaction with the given ID, for test fixtures.
func (m *Memory) Seed(tx *Transaction) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	m.transactions[tx.ID] = tx
	return tx
}

// SeedAccount adds an account, for test fixtures.
func (m *Memory) SeedAccount(acc *Account) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	m.accounts[acc.ID] = acc
	return acc
}

// GetTransaction fetches one transaction by ID.
func (m *Memory) GetTransaction(_ context.Context, id string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, splittererrors.Collaborator(splittererrors.CodeLedgerFailure, "ledger",
			fmt.Errorf("transaction %s not found", id))
	}
	clone := *tx
	return &clone, nil
}

// SearchTransactions lists transactions within the query's date window.
func (m *Memory) SearchTransactions(_ context.Context, q SearchQuery) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Transaction
	for _, tx := range m.transactions {
		if q.Type != "" && tx.Type != q.Type {
			continue
		}
		if !q.From.IsZero() && tx.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && tx.Date.After(q.To) {
			continue
		}
		clone := *tx
		out = append(out, &clone)
	}
	return out, nil
}

// CreateTransaction stores a new entry, enforcing counter-account
// resolution when RequireCounterAccount is set.
func (m *Memory) CreateTransaction(_ context.Context, tx *Transaction) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RequireCounterAccount && tx.CounterAccountID == "" && tx.CounterAccountName != "" {
		if m.findAccountLocked(tx.CounterAccountName) == nil {
			return nil, splittererrors.AccountResolution(tx.CounterAccountName, nil)
		}
	}
	if tx.CounterAccountID != "" {
		if _, ok := m.accounts[tx.CounterAccountID]; !ok {
			return nil, splittererrors.AccountResolution(tx.CounterAccountID, nil)
		}
	}

	clone := *tx
	clone.ID = uuid.NewString()
	if clone.ExternalRef == "" {
		clone.ExternalRef = uuid.NewString()
	}
	m.transactions[clone.ID] = &clone
	created := clone
	return &created, nil
}

// AttachTags adds tags to an existing transaction, skipping duplicates.
func (m *Memory) AttachTags(_ context.Context, id string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return splittererrors.Collaborator(splittererrors.CodeLedgerFailure, "ledger",
			fmt.Errorf("transaction %s not found", id))
	}
	for _, tag := range tags {
		if !tx.HasTag(tag) {
			tx.Tags = append(tx.Tags, tag)
		}
	}
	return nil
}

// FindAccount looks an account up by name, optionally restricted to types.
func (m *Memory) FindAccount(_ context.Context, name string, types ...AccountType) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if !strings.EqualFold(acc.Name, name) {
			continue
		}
		if len(types) == 0 || containsType(types, acc.Type) {
			clone := *acc
			return &clone, nil
		}
	}
	return nil, splittererrors.AccountResolution(name, nil)
}

// CreateAccount stores a new account.
func (m *Memory) CreateAccount(_ context.Context, acc *Account) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *acc
	clone.ID = uuid.NewString()
	m.accounts[clone.ID] = &clone
	created := clone
	return &created, nil
}

func (m *Memory) findAccountLocked(name string) *Account {
	if name == "" {
		return nil
	}
	for _, acc := range m.accounts {
		if strings.EqualFold(acc.Name, name) {
			return acc
		}
	}
	return nil
}

func containsType(types []AccountType, t AccountType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
