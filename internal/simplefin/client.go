// Package simplefin fetches accounts and transactions from a SimpleFIN
// Bridge and presents them as a bank feed.
package simplefin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/service"
	"github.com/shopspring/decimal"
)

// Config holds SimpleFIN connection settings. AccessURL wins over Token;
// Token is only claimed when no access URL is saved at StatePath.
type Config struct {
	Location     *time.Location
	Token        string
	AccessURL    string
	StatePath    string
	LookbackDays int
	Timeout      time.Duration
}

// Client implements service.FeedSource for SimpleFIN.
type Client struct {
	httpClient   *http.Client
	location     *time.Location
	logger       *slog.Logger
	accessURL    string
	retryOpts    service.RetryOptions
	lookbackDays int
}

// Ensure Client implements service.FeedSource.
var _ service.FeedSource = (*Client)(nil)

// SimpleFIN API response types.
type accountSet struct {
	Errors   []string  `json:"errors"`
	Accounts []account `json:"accounts"`
}

type account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Currency     string        `json:"currency"`
	Balance      string        `json:"balance"`
	Transactions []transaction `json:"transactions"`
}

type transaction struct {
	ID           string `json:"id"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
	Payee        string `json:"payee"`
	Posted       int64  `json:"posted"`
	TransactedAt int64  `json:"transacted_at"`
	Pending      bool   `json:"pending"`
}

// NewClient creates a client, claiming the setup token if needed.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 30
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	accessURL := cfg.AccessURL
	if accessURL == "" {
		if cfg.Token == "" && cfg.StatePath == "" {
			return nil, fmt.Errorf("%w: SimpleFIN token or access URL is required", common.ErrMissingConfig)
		}
		auth, err := LoadOrClaimAuth(ctx, httpClient, cfg.Token, cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load/claim auth: %w", err)
		}
		accessURL = auth.AccessURL
	}

	return &Client{
		accessURL:    strings.TrimSuffix(accessURL, "/"),
		httpClient:   httpClient,
		location:     cfg.Location,
		lookbackDays: cfg.LookbackDays,
		logger:       slog.Default().With("component", "simplefin"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// FetchAccounts downloads every account with the transactions of the
// lookback window, pending ones included.
func (c *Client) FetchAccounts(ctx context.Context) ([]model.FeedAccount, error) {
	set, err := c.fetch(ctx, time.Now().AddDate(0, 0, -c.lookbackDays))
	if err != nil {
		return nil, err
	}

	for _, msg := range set.Errors {
		c.logger.Warn("SimpleFIN reported a problem", "message", msg)
	}

	accounts := make([]model.FeedAccount, 0, len(set.Accounts))
	for _, a := range set.Accounts {
		feed := model.FeedAccount{Name: a.Name}

		for _, tx := range a.Transactions {
			amount, err := spend(tx.Amount)
			if err != nil {
				return nil, &common.InputError{Account: a.Name, Field: "amount", Value: tx.Amount, Err: err}
			}
			description := tx.Description
			if strings.TrimSpace(description) == "" {
				description = tx.Payee
			}

			if tx.Pending {
				when := tx.TransactedAt
				if when == 0 {
					when = tx.Posted
				}
				feed.Pending = append(feed.Pending, model.RawPending{
					Amount:      amount,
					ChargeDate:  time.Unix(when, 0).In(c.location).Format(model.DateLayout),
					Description: description,
				})
				continue
			}

			feed.Posted = append(feed.Posted, model.RawPosted{
				Amount:      amount,
				Date:        time.Unix(tx.Posted, 0).In(c.location).Format(model.PostedDateLayout),
				Description: description,
			})
		}

		c.logger.Debug("Fetched SimpleFIN account",
			"account", a.Name,
			"posted", len(feed.Posted),
			"pending", len(feed.Pending))
		accounts = append(accounts, feed)
	}

	return accounts, nil
}

func (c *Client) fetch(ctx context.Context, start time.Time) (*accountSet, error) {
	u, err := url.Parse(c.accessURL + "/accounts")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("start-date", strconv.FormatInt(start.Unix(), 10))
	q.Set("pending", "1")
	u.RawQuery = q.Encode()

	var set accountSet
	err = common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		c.logger.Debug("Requesting SimpleFIN transactions", "start_date", start.Format(model.DateLayout))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &common.RetryableError{Err: fmt.Errorf("failed to fetch data: %w", err), Retryable: true}
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := fmt.Errorf("SimpleFIN API error: %d - %s", resp.StatusCode, string(body))
			if resp.StatusCode >= http.StatusInternalServerError {
				return &common.RetryableError{Err: apiErr, Retryable: true}
			}
			return apiErr
		}

		if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}

	return &set, nil
}

// spend converts a SimpleFIN amount, where debits are negative, into the
// feed convention, where spending is positive.
func spend(raw string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidAmount, err)
	}
	return d.Neg().String(), nil
}
