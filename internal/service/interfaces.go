// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/settle/internal/model"
)

// Ledger is the target budgeting ledger the plan is applied to.
type Ledger interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
	ListTransactions(ctx context.Context) ([]model.ExistingTransaction, error)
	// CreateTransactions must deduplicate on import ID.
	CreateTransactions(ctx context.Context, transactions []model.CandidateTransaction) (CreateResult, error)
	UpdateTransaction(ctx context.Context, id string, update model.TransactionUpdate) error
	DeleteTransaction(ctx context.Context, id string) error
}

// CreateResult reports what the ledger did with a bulk create.
type CreateResult struct {
	CreatedIDs         []string
	DuplicateImportIDs []string
}

// FeedSource yields every account of the bank feed with its records fully read.
type FeedSource interface {
	FetchAccounts(ctx context.Context) ([]model.FeedAccount, error)
}

// Journal records the outcome of finished runs.
type Journal interface {
	RecordRun(ctx context.Context, run model.RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	GetRunMutations(ctx context.Context, runID string) ([]model.MutationRecord, error)
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
