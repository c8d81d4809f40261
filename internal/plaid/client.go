// Package plaid provides a bank feed backed by the Plaid API.
package plaid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/service"
	"github.com/plaid/plaid-go/v20/plaid"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID     string
	Secret       string
	Environment  string // sandbox or production
	AccessToken  string
	LookbackDays int
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	}
	if c.Environment == "" {
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	}

	switch c.Environment {
	case "sandbox", "production":
	default:
		return fmt.Errorf("%w: invalid Plaid environment: must be sandbox or production", common.ErrInvalidConfig)
	}

	return nil
}

// Client implements TransactionFetcher against the Plaid API.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   *service.RetryOptions
	accessToken string
}

// Ensure Client implements TransactionFetcher.
var _ TransactionFetcher = (*Client)(nil)

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// GetTransactions fetches transactions from Plaid within the specified date range.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]Transaction, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if startDate.After(endDate) {
		return nil, errors.New("start date must be before end date")
	}

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", startDate.Format("2006-01-02"),
		"end_date", endDate.Format("2006-01-02"))

	var all []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var page []plaid.Transaction

		err := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(
				c.accessToken,
				startDate.Format("2006-01-02"),
				endDate.Format("2006-01-02"),
			)
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.apiError("fetch transactions", err)
			}

			page = resp.GetTransactions()
			c.logger.Debug("Fetched transaction batch",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		}, *c.retryOpts)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	c.logger.Info("Fetched all transactions", "count", len(all))

	transactions := make([]Transaction, 0, len(all))
	for _, pt := range all {
		transactions = append(transactions, fromPlaidTransaction(pt))
	}
	return transactions, nil
}

// GetAccounts fetches the accounts of the linked item.
func (c *Client) GetAccounts(ctx context.Context) ([]Account, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	c.logger.Info("Fetching accounts from Plaid")

	var accounts []plaid.AccountBase
	err := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.apiError("fetch accounts", err)
		}
		accounts = resp.GetAccounts()
		return nil
	}, *c.retryOpts)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Fetched accounts", "count", len(accounts))

	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, fromPlaidAccount(a))
	}
	return out, nil
}

// apiError classifies a Plaid error, marking rate limits retryable.
func (c *Client) apiError(op string, err error) error {
	plaidError := extractPlaidError(err)
	if plaidError == nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
		c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
		return &common.RetryableError{Err: err, Retryable: true}
	}
	return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
}

func fromPlaidTransaction(pt plaid.Transaction) Transaction {
	return Transaction{
		ID:             pt.GetTransactionId(),
		AccountID:      pt.GetAccountId(),
		Name:           pt.GetName(),
		MerchantName:   pt.GetMerchantName(),
		Date:           pt.GetDate(),
		AuthorizedDate: pt.GetAuthorizedDate(),
		Amount:         pt.GetAmount(),
		Pending:        pt.GetPending(),
	}
}

func fromPlaidAccount(a plaid.AccountBase) Account {
	return Account{
		ID:   a.GetAccountId(),
		Name: a.GetName(),
	}
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}
