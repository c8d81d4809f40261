package plaid

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	plaidapi "github.com/plaid/plaid-go/v20/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		ClientID:    "test-client-id",
		Secret:      "test-secret",
		Environment: "sandbox",
		AccessToken: "test-token",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		name    string
		errMsg  string
		wantErr error
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing client ID", mutate: func(c *Config) { c.ClientID = "" }, wantErr: common.ErrMissingConfig, errMsg: "plaid client ID is required"},
		{name: "missing secret", mutate: func(c *Config) { c.Secret = "" }, wantErr: common.ErrMissingConfig, errMsg: "plaid secret is required"},
		{name: "missing access token", mutate: func(c *Config) { c.AccessToken = "" }, wantErr: common.ErrMissingConfig, errMsg: "plaid access token is required"},
		{name: "missing environment", mutate: func(c *Config) { c.Environment = "" }, wantErr: common.ErrMissingConfig, errMsg: "plaid environment is required"},
		{name: "invalid environment", mutate: func(c *Config) { c.Environment = "development" }, wantErr: common.ErrInvalidConfig, errMsg: "invalid Plaid environment"},
		{name: "production environment", mutate: func(c *Config) { c.Environment = "production" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(validConfig())
	require.NoError(t, err)
	assert.NotNil(t, client.client)
	assert.Equal(t, "test-token", client.accessToken)
	assert.NotNil(t, client.retryOpts)

	client, err = NewClient(Config{ClientID: "test-client-id"})
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_GetTransactions_Validation(t *testing.T) {
	client := &Client{
		accessToken: "test-token",
		logger:      slog.Default().With("component", "plaid-test"),
	}

	//nolint:staticcheck // nil context is the case under test
	_, err := client.GetTransactions(nil, time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cannot be nil")

	_, err = client.GetTransactions(context.Background(), time.Now(), time.Now().AddDate(0, -1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start date must be before end date")
}

func TestFromPlaidTransaction(t *testing.T) {
	var pt plaidapi.Transaction
	pt.SetTransactionId("tx-1")
	pt.SetAccountId("acc-1")
	pt.SetName("STARBUCKS STORE 1234567")
	pt.SetMerchantName("Starbucks")
	pt.SetDate("2024-05-02")
	pt.SetAuthorizedDate("2024-05-01")
	pt.SetAmount(5.5)
	pt.SetPending(true)

	assert.Equal(t, Transaction{
		ID:             "tx-1",
		AccountID:      "acc-1",
		Name:           "STARBUCKS STORE 1234567",
		MerchantName:   "Starbucks",
		Date:           "2024-05-02",
		AuthorizedDate: "2024-05-01",
		Amount:         5.5,
		Pending:        true,
	}, fromPlaidTransaction(pt))

	var acct plaidapi.AccountBase
	acct.SetAccountId("acc-1")
	acct.SetName("Amex")
	assert.Equal(t, Account{ID: "acc-1", Name: "Amex"}, fromPlaidAccount(acct))
}

func TestFeed_FetchAccounts(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	mock := NewMockClient()
	mock.GetAccountsFn = func(context.Context) ([]Account, error) {
		return []Account{{ID: "acc-1", Name: "Amex"}, {ID: "acc-2", Name: "Checking"}}, nil
	}
	mock.GetTransactionsFn = func(context.Context, time.Time, time.Time) ([]Transaction, error) {
		return []Transaction{
			{ID: "t1", AccountID: "acc-1", Name: "AMAZON MKTPL 123456789", Date: "2024-05-01", Amount: 20},
			{ID: "t2", AccountID: "acc-1", MerchantName: "Uber", Name: "UBER TRIP", Date: "2024-05-03", AuthorizedDate: "2024-05-02", Amount: 12.34, Pending: true},
			{ID: "t3", AccountID: "acc-2", Name: "Payroll", Date: "2024-05-04", Amount: -1500},
			{ID: "t4", AccountID: "acc-9", Name: "Ghost", Date: "2024-05-04", Amount: 1},
		}, nil
	}

	feed := NewFeed(mock, 14)
	feed.now = func() time.Time { return now }

	accounts, err := feed.FetchAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	amex := accounts[0]
	assert.Equal(t, "Amex", amex.Name)
	assert.Equal(t, []model.RawPosted{{Amount: "20", Date: "01/05/2024", Description: "Amazon Mktpl"}}, amex.Posted)
	assert.Equal(t, []model.RawPending{{Amount: "12.34", ChargeDate: "2024-05-02", Description: "Uber"}}, amex.Pending)

	checking := accounts[1]
	require.Len(t, checking.Posted, 1)
	assert.Equal(t, "-1500", checking.Posted[0].Amount)
	assert.Empty(t, checking.Pending)

	require.Len(t, mock.GetTransactionsCalls, 1)
	assert.Equal(t, now.AddDate(0, 0, -14), mock.GetTransactionsCalls[0].StartDate)
	assert.Equal(t, now, mock.GetTransactionsCalls[0].EndDate)
	assert.Equal(t, 1, mock.GetAccountsCalls)
}

func TestFeed_FetchAccountsErrors(t *testing.T) {
	t.Run("accounts", func(t *testing.T) {
		mock := NewMockClient()
		mock.GetAccountsFn = func(context.Context) ([]Account, error) { return nil, errors.New("boom") }
		_, err := NewFeed(mock, 0).FetchAccounts(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get accounts")
		assert.Empty(t, mock.GetTransactionsCalls)
	})

	t.Run("bad posted date", func(t *testing.T) {
		mock := NewMockClient()
		mock.GetAccountsFn = func(context.Context) ([]Account, error) { return []Account{{ID: "a", Name: "Amex"}}, nil }
		mock.GetTransactionsFn = func(context.Context, time.Time, time.Time) ([]Transaction, error) {
			return []Transaction{{AccountID: "a", Name: "X", Date: "05/01/2024", Amount: 1}}, nil
		}
		_, err := NewFeed(mock, 0).FetchAccounts(context.Background())
		var inputErr *common.InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "Amex", inputErr.Account)
	})
}

func TestNewFeed_DefaultLookback(t *testing.T) {
	assert.Equal(t, DefaultLookbackDays, NewFeed(NewMockClient(), 0).lookbackDays)
	assert.Equal(t, 7, NewFeed(NewMockClient(), 7).lookbackDays)
}

func TestCleanMerchantName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "basic name", input: "Starbucks", expected: "Starbucks"},
		{name: "lowercase to title case", input: "starbucks coffee", expected: "Starbucks Coffee"},
		{name: "remove LLC suffix", input: "Amazon LLC", expected: "Amazon"},
		{name: "remove Inc suffix", input: "Apple Inc", expected: "Apple"},
		{name: "remove Corp suffix", input: "Microsoft Corp", expected: "Microsoft"},
		{name: "remove transaction ID", input: "PAYPAL 123456789", expected: "Paypal"},
		{name: "preserve short numbers", input: "SHELL 2345", expected: "Shell 2345"},
		{name: "multiple cleanups", input: "acme co llc 987654321", expected: "Acme"},
		{name: "extra spaces", input: "  Google   Cloud   ", expected: "Google Cloud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanMerchantName(tt.input))
		})
	}
}

func TestIsAllDigits(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"123456", true},
		{"000000", true},
		{"12a456", false},
		{"", true},
		{"ABC123", false},
		{"12.34", false},
		{"12 34", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, isAllDigits(tt.input))
		})
	}
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient()

	txs, err := mock.GetTransactions(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Len(t, mock.GetTransactionsCalls, 1)

	accounts, err := mock.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.Equal(t, 1, mock.GetAccountsCalls)

	mock.Reset()
	assert.Empty(t, mock.GetTransactionsCalls)
	assert.Equal(t, 0, mock.GetAccountsCalls)
}
