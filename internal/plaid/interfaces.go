package plaid

import (
	"context"
	"time"
)

// TransactionFetcher defines the contract for fetching Plaid data.
// This interface allows for easy mocking in tests.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]Transaction, error)
	GetAccounts(ctx context.Context) ([]Account, error)
}

// Account is a Plaid account reduced to what the feed needs.
type Account struct {
	ID   string
	Name string
}

// Transaction is a Plaid transaction reduced to what the feed needs.
// Amount is positive for money leaving the account.
type Transaction struct {
	ID             string
	AccountID      string
	Name           string
	MerchantName   string
	Date           string // YYYY-MM-DD
	AuthorizedDate string // YYYY-MM-DD, may be empty
	Amount         float64
	Pending        bool
}
