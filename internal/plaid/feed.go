package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLookbackDays is the window fetched when none is configured.
const DefaultLookbackDays = 30

// Feed adapts a TransactionFetcher into a bank feed. Plaid amounts are
// already positive for money leaving the account.
type Feed struct {
	fetcher      TransactionFetcher
	logger       *slog.Logger
	now          func() time.Time
	lookbackDays int
}

// Ensure Feed implements service.FeedSource.
var _ service.FeedSource = (*Feed)(nil)

// NewFeed creates a feed over fetcher covering the last lookbackDays days.
func NewFeed(fetcher TransactionFetcher, lookbackDays int) *Feed {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Feed{
		fetcher:      fetcher,
		lookbackDays: lookbackDays,
		now:          time.Now,
		logger:       slog.Default().With("component", "plaid-feed"),
	}
}

// FetchAccounts groups the item's transactions by account name.
func (f *Feed) FetchAccounts(ctx context.Context) ([]model.FeedAccount, error) {
	accounts, err := f.fetcher.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	end := f.now()
	start := end.AddDate(0, 0, -f.lookbackDays)
	txs, err := f.fetcher.GetTransactions(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	feeds := make([]model.FeedAccount, 0, len(accounts))
	index := make(map[string]int, len(accounts))
	for _, a := range accounts {
		index[a.ID] = len(feeds)
		feeds = append(feeds, model.FeedAccount{Name: a.Name})
	}

	for _, tx := range txs {
		i, ok := index[tx.AccountID]
		if !ok {
			f.logger.Warn("Transaction for unknown account", "account_id", tx.AccountID, "transaction_id", tx.ID)
			continue
		}
		feed := &feeds[i]

		amount := decimal.NewFromFloat(tx.Amount).String()
		description := tx.MerchantName
		if description == "" {
			description = tx.Name
		}
		description = cleanMerchantName(description)

		if tx.Pending {
			when := tx.AuthorizedDate
			if when == "" {
				when = tx.Date
			}
			feed.Pending = append(feed.Pending, model.RawPending{
				Amount:      amount,
				ChargeDate:  when,
				Description: description,
			})
			continue
		}

		date, err := time.Parse(model.DateLayout, tx.Date)
		if err != nil {
			return nil, &common.InputError{Account: feed.Name, Field: "date", Value: tx.Date, Err: err}
		}
		feed.Posted = append(feed.Posted, model.RawPosted{
			Amount:      amount,
			Date:        date.Format(model.PostedDateLayout),
			Description: description,
		})
	}

	f.logger.Info("Fetched Plaid feed", "accounts", len(feeds), "transactions", len(txs))
	return feeds, nil
}

var merchantSuffixes = []string{
	" llc",
	" inc",
	" corp",
	" corporation",
	" company",
	" co",
	" ltd",
	" limited",
}

// cleanMerchantName drops trailing transaction IDs and corporate suffixes.
func cleanMerchantName(name string) string {
	parts := strings.Fields(name)
	if len(parts) > 1 {
		lastPart := parts[len(parts)-1]
		// Long digit runs are transaction IDs.
		if len(lastPart) > 5 && isAllDigits(lastPart) {
			parts = parts[:len(parts)-1]
		}
	}
	name = strings.Join(parts, " ")

	// Keep removing suffixes until none are found.
	changed := true
	for changed {
		changed = false
		lower := strings.ToLower(name)
		for _, suffix := range merchantSuffixes {
			if strings.HasSuffix(lower, suffix) && len(name) > len(suffix) {
				name = strings.TrimSpace(name[:len(name)-len(suffix)])
				changed = true
				break
			}
		}
	}

	return cases.Title(language.Und).String(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
