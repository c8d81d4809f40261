// Package ynab implements the ledger interface against the YNAB v1 HTTP API.
package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/service"
	"golang.org/x/oauth2"
)

// Client talks to one YNAB budget.
type Client struct {
	httpClient   *http.Client
	limiter      *rateLimiter
	logger       *slog.Logger
	baseURL      string
	budgetID     string
	retryOpts    service.RetryOptions
	lookbackDays int
}

// Ensure Client implements service.Ledger.
var _ service.Ledger = (*Client)(nil)

// NewClient creates a client authenticated with the personal access token.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.Token,
		TokenType:   "Bearer",
	})
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		httpClient:   httpClient,
		limiter:      newRateLimiter(cfg.RequestsPerHour),
		logger:       slog.Default().With("component", "ynab"),
		baseURL:      cfg.BaseURL,
		budgetID:     cfg.BudgetID,
		lookbackDays: cfg.LookbackDays,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Close stops the rate limiter.
func (c *Client) Close() error {
	c.limiter.close()
	return nil
}

// ListAccounts returns every account of the budget, deleted ones included.
func (c *Client) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var resp accountsResponse
	if err := c.do(ctx, http.MethodGet, c.budgetPath("accounts"), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]model.Account, 0, len(resp.Data.Accounts))
	for _, a := range resp.Data.Accounts {
		accounts = append(accounts, model.Account{
			ID:      a.ID,
			Name:    a.Name,
			Closed:  a.Closed,
			Deleted: a.Deleted,
		})
	}
	return accounts, nil
}

// ListTransactions returns the budget's transactions.
func (c *Client) ListTransactions(ctx context.Context) ([]model.ExistingTransaction, error) {
	path := c.budgetPath("transactions")
	if c.lookbackDays > 0 {
		since := time.Now().AddDate(0, 0, -c.lookbackDays).Format(model.DateLayout)
		path += "?" + url.Values{"since_date": {since}}.Encode()
	}

	var resp transactionsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	transactions := make([]model.ExistingTransaction, 0, len(resp.Data.Transactions))
	for _, t := range resp.Data.Transactions {
		existing, err := toExisting(t)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, existing)
	}

	c.logger.Debug("Fetched ledger transactions", "count", len(transactions))
	return transactions, nil
}

// CreateTransactions creates the batch in one call. YNAB drops candidates
// whose import ID it has already seen and reports them as duplicates.
func (c *Client) CreateTransactions(ctx context.Context, transactions []model.CandidateTransaction) (service.CreateResult, error) {
	if len(transactions) == 0 {
		return service.CreateResult{}, nil
	}

	req := saveTransactionsRequest{Transactions: make([]saveTransaction, 0, len(transactions))}
	for i := range transactions {
		req.Transactions = append(req.Transactions, toSave(&transactions[i]))
	}

	var resp saveTransactionsResponse
	if err := c.do(ctx, http.MethodPost, c.budgetPath("transactions"), req, &resp); err != nil {
		return service.CreateResult{}, fmt.Errorf("failed to create transactions: %w", err)
	}

	return service.CreateResult{
		CreatedIDs:         resp.Data.TransactionIDs,
		DuplicateImportIDs: resp.Data.DuplicateImportIDs,
	}, nil
}

// UpdateTransaction changes the flag and memo of one transaction.
func (c *Client) UpdateTransaction(ctx context.Context, id string, update model.TransactionUpdate) error {
	req := updateTransactionRequest{Transaction: updateTransaction{Memo: update.Memo}}
	if update.Flag != nil {
		flag := string(*update.Flag)
		req.Transaction.FlagColor = &flag
	}

	if err := c.do(ctx, http.MethodPut, c.budgetPath("transactions", id), req, nil); err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	return nil
}

// DeleteTransaction deletes one transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.budgetPath("transactions", id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	return nil
}

func (c *Client) budgetPath(parts ...string) string {
	path := "/budgets/" + url.PathEscape(c.budgetID)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

// do performs one API call with rate limiting and retries. A nil out
// discards the response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	return common.WithRetry(ctx, func() error {
		if err := c.limiter.wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.Debug("Calling YNAB", "method", method, "path", path)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: %v", common.ErrLedgerConnection, err),
				Retryable: true,
			}
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				c.logger.Debug("Failed to close response body", "error", closeErr)
			}
		}()

		if resp.StatusCode >= http.StatusBadRequest {
			return c.statusError(resp)
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}, c.retryOpts)
}

func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	detail := string(raw)
	var apiErr errorResponse
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Detail != "" {
		detail = apiErr.Error.Detail
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", common.ErrRateLimit, detail)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, detail)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, detail)
	case resp.StatusCode >= http.StatusInternalServerError:
		return &common.RetryableError{
			Err:       fmt.Errorf("YNAB API error %d: %s", resp.StatusCode, detail),
			Retryable: true,
		}
	default:
		return fmt.Errorf("YNAB API error %d: %s", resp.StatusCode, detail)
	}
}

func toExisting(t transactionDetail) (model.ExistingTransaction, error) {
	date, err := time.Parse(model.DateLayout, t.Date)
	if err != nil {
		return model.ExistingTransaction{}, fmt.Errorf("%w: transaction %s has date %q", common.ErrInvalidDate, t.ID, t.Date)
	}

	existing := model.ExistingTransaction{
		ID:              t.ID,
		Date:            date,
		Amount:          t.Amount,
		AccountID:       t.AccountID,
		AccountName:     t.AccountName,
		PayeeName:       deref(t.PayeeName),
		ImportPayeeName: deref(t.ImportPayeeName),
		ImportID:        deref(t.ImportID),
		Memo:            deref(t.Memo),
		CategoryID:      deref(t.CategoryID),
		Cleared:         model.Clearance(t.Cleared),
		Flag:            model.FlagColor(deref(t.FlagColor)),
		Approved:        t.Approved,
		Deleted:         t.Deleted,
	}
	for _, s := range t.Subtransactions {
		if s.Deleted {
			continue
		}
		existing.SubTransactions = append(existing.SubTransactions, model.SubTransaction{
			Amount:     s.Amount,
			PayeeID:    deref(s.PayeeID),
			PayeeName:  deref(s.PayeeName),
			CategoryID: deref(s.CategoryID),
			Memo:       deref(s.Memo),
		})
	}
	return existing, nil
}

func toSave(c *model.CandidateTransaction) saveTransaction {
	save := saveTransaction{
		AccountID:  c.AccountID,
		Date:       c.DateString(),
		Amount:     c.Amount,
		PayeeName:  optional(c.PayeeName),
		CategoryID: optional(c.CategoryID),
		Memo:       optional(c.Memo),
		ImportID:   optional(c.ImportID),
		FlagColor:  optional(string(c.Flag)),
		Cleared:    string(c.Cleared),
		Approved:   c.Approved,
	}
	for _, s := range c.SubTransactions {
		save.Subtransactions = append(save.Subtransactions, saveSubTransaction{
			Amount:     s.Amount,
			PayeeID:    optional(s.PayeeID),
			PayeeName:  optional(s.PayeeName),
			CategoryID: optional(s.CategoryID),
			Memo:       optional(s.Memo),
		})
	}
	return save
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IsAuthError reports whether err came from rejected credentials.
func IsAuthError(err error) bool {
	return errors.Is(err, common.ErrUnauthorized)
}
