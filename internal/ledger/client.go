package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	splittererrors "statement-splitter/pkg/errors"
	"statement-splitter/pkg/logger"
)

// ClientConfig holds the HTTP ledger connection settings.
type ClientConfig struct {
	BaseURL string        `json:"base_url" mapstructure:"base_url"`
	Token   string        `json:"token" mapstructure:"token"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultClientConfig returns the default connection settings. BaseURL and
// Token must still be provided.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{Timeout: 30 * time.Second}
}

// Validate checks the connection settings.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return splittererrors.Config("ledger.base_url", nil).
			WithSuggestion("set the ledger API URL in the configuration")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return splittererrors.Config("ledger.base_url", err)
	}
	return nil
}

// Client talks to the ledger's JSON API with personal-token auth.
type Client struct {
	config *ClientConfig
	http   *http.Client
	logger logger.Logger
}

// NewClient creates an HTTP ledger client.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		config = DefaultClientConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: timeout},
		logger: logger.WithComponent("ledger_client"),
	}, nil
}

// apiError is the ledger's JSON error envelope.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// call performs one JSON round trip. A non-2xx status becomes a
// CollaboratorError carrying the ledger's own message; account rejection
// statuses map to the account-resolution code so the materializer can run
// its auto-create retry.
func (c *Client) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return splittererrors.Collaborator(splittererrors.CodeLedgerFailure, "ledger", err)
		}
		body = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return splittererrors.Collaborator(splittererrors.CodeLedgerFailure, "ledger", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return splittererrors.Collaborator(splittererrors.CodeLedgerFailure, "ledger", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		_ = json.Unmarshal(raw, &envelope)
		msg := envelope.Message
		if msg == "" {
			msg = string(raw)
		}

		cause := fmt.Errorf("ledger returned %d: %s", resp.StatusCode, msg)
		if resp.StatusCode == http.StatusUnprocessableEntity || envelope.Code == "invalid_account" {
			return splittererrors.AccountResolution("", cause).
				WithContext("path", path)
		}
		return splittererrors.Collaborator(splittererrors.CodeLedgerFailure, "ledger", cause).
			WithContext("status", resp.StatusCode).
			WithContext("path", path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return splittererrors.Collaborator(splittererrors.CodeLedgerFailure, "ledger", err)
		}
	}
	return nil
}

// GetTransaction fetches one transaction by ID.
func (c *Client) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	var tx Transaction
	if err := c.call(ctx, http.MethodGet, "/transactions/"+url.PathEscape(id), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// SearchTransactions lists transactions within the query's date window.
func (c *Client) SearchTransactions(ctx context.Context, q SearchQuery) ([]*Transaction, error) {
	params := url.Values{}
	if !q.From.IsZero() {
		params.Set("from", q.From.Format("2006-01-02"))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.Format("2006-01-02"))
	}
	if q.Type != "" {
		params.Set("type", string(q.Type))
	}

	var txs []*Transaction
	if err := c.call(ctx, http.MethodGet, "/transactions?"+params.Encode(), nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// CreateTransaction writes one entry. An external reference is assigned
// when absent so the ledger can deduplicate retried writes.
func (c *Client) CreateTransaction(ctx context.Context, tx *Transaction) (*Transaction, error) {
	if tx.ExternalRef == "" {
		tx.ExternalRef = uuid.NewString()
	}

	var created Transaction
	if err := c.call(ctx, http.MethodPost, "/transactions", tx, &created); err != nil {
		return nil, err
	}
	c.logger.WithFields(logger.Fields{
		"id":   created.ID,
		"type": created.Type,
	}).Debug("Created ledger transaction")
	return &created, nil
}

// AttachTags adds tags to an existing transaction.
func (c *Client) AttachTags(ctx context.Context, id string, tags []string) error {
	payload := map[string][]string{"tags": tags}
	return c.call(ctx, http.MethodPost, "/transactions/"+url.PathEscape(id)+"/tags", payload, nil)
}

// FindAccount looks an account up by name, optionally restricted to types.
func (c *Client) FindAccount(ctx context.Context, name string, types ...AccountType) (*Account, error) {
	params := url.Values{}
	params.Set("name", name)
	for _, t := range types {
		params.Add("type", string(t))
	}

	var accounts []*Account
	if err := c.call(ctx, http.MethodGet, "/accounts?"+params.Encode(), nil, &accounts); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, splittererrors.AccountResolution(name, nil)
	}
	return accounts[0], nil
}

// CreateAccount creates a new account.
func (c *Client) CreateAccount(ctx context.Context, acc *Account) (*Account, error) {
	var created Account
	if err := c.call(ctx, http.MethodPost, "/accounts", acc, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
