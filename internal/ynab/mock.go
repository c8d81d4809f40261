package ynab

import (
	"context"
	"sync"

	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/service"
)

// MockClient is a mock implementation of service.Ledger for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	ListAccountsFn       func(ctx context.Context) ([]model.Account, error)
	ListTransactionsFn   func(ctx context.Context) ([]model.ExistingTransaction, error)
	CreateTransactionsFn func(ctx context.Context, transactions []model.CandidateTransaction) (service.CreateResult, error)
	UpdateTransactionFn  func(ctx context.Context, id string, update model.TransactionUpdate) error
	DeleteTransactionFn  func(ctx context.Context, id string) error

	// Call tracking
	CreateCalls [][]model.CandidateTransaction
	UpdateCalls []UpdateCall
	DeleteCalls []string
	// Calls lists the invoked methods in order.
	Calls []string

	mu sync.Mutex
}

// UpdateCall records the parameters of an UpdateTransaction call.
type UpdateCall struct {
	Update model.TransactionUpdate
	ID     string
}

// NewMockClient creates a new mock ledger.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// ListAccounts implements service.Ledger.
func (m *MockClient) ListAccounts(ctx context.Context) ([]model.Account, error) {
	m.track("ListAccounts")
	if m.ListAccountsFn != nil {
		return m.ListAccountsFn(ctx)
	}
	return []model.Account{}, nil
}

// ListTransactions implements service.Ledger.
func (m *MockClient) ListTransactions(ctx context.Context) ([]model.ExistingTransaction, error) {
	m.track("ListTransactions")
	if m.ListTransactionsFn != nil {
		return m.ListTransactionsFn(ctx)
	}
	return []model.ExistingTransaction{}, nil
}

// CreateTransactions implements service.Ledger. By default every candidate
// is reported as created.
func (m *MockClient) CreateTransactions(ctx context.Context, transactions []model.CandidateTransaction) (service.CreateResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, "CreateTransactions")
	m.CreateCalls = append(m.CreateCalls, append([]model.CandidateTransaction(nil), transactions...))
	m.mu.Unlock()

	if m.CreateTransactionsFn != nil {
		return m.CreateTransactionsFn(ctx, transactions)
	}

	result := service.CreateResult{}
	for _, t := range transactions {
		result.CreatedIDs = append(result.CreatedIDs, "created-"+t.ImportID)
	}
	return result, nil
}

// UpdateTransaction implements service.Ledger.
func (m *MockClient) UpdateTransaction(ctx context.Context, id string, update model.TransactionUpdate) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, "UpdateTransaction")
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{ID: id, Update: update})
	m.mu.Unlock()

	if m.UpdateTransactionFn != nil {
		return m.UpdateTransactionFn(ctx, id, update)
	}
	return nil
}

// DeleteTransaction implements service.Ledger.
func (m *MockClient) DeleteTransaction(ctx context.Context, id string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, "DeleteTransaction")
	m.DeleteCalls = append(m.DeleteCalls, id)
	m.mu.Unlock()

	if m.DeleteTransactionFn != nil {
		return m.DeleteTransactionFn(ctx, id)
	}
	return nil
}

// MutationCount returns how many mutating calls were made.
func (m *MockClient) MutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CreateCalls) + len(m.UpdateCalls) + len(m.DeleteCalls)
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = nil
	m.UpdateCalls = nil
	m.DeleteCalls = nil
	m.Calls = nil
}

func (m *MockClient) track(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Ensure MockClient implements service.Ledger.
var _ service.Ledger = (*MockClient)(nil)
