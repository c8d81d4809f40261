package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/ynab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFeed struct {
	err      error
	accounts []model.FeedAccount
}

func (f staticFeed) FetchAccounts(_ context.Context) ([]model.FeedAccount, error) {
	return f.accounts, f.err
}

func amexAccounts() []model.Account {
	return []model.Account{{ID: "acct-1", Name: "Amex"}}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountScale = 0

	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestEngine_PostedReplacesPending(t *testing.T) {
	e := testEngine(t)

	existing := []model.ExistingTransaction{existingPending("e1", "Amazon", -2000, day(2024, 5, 1))}
	feeds := []model.FeedAccount{{
		Name:   "Amex",
		Posted: []model.RawPosted{{Amount: "20.00", Date: "01/05/2024", Description: "AMAZON.COM"}},
	}}

	plan, err := e.Plan(feeds, amexAccounts(), existing)
	require.NoError(t, err)

	require.Len(t, plan.Posted, 1)
	assert.Equal(t, "e1", plan.Posted[0].ID)
	assert.Empty(t, plan.Stale)

	require.Len(t, plan.Create, 1)
	created := plan.Create[0]
	assert.Equal(t, int64(-2000), created.Amount)
	assert.Equal(t, "2024-05-01", created.DateString())
	assert.Equal(t, model.Cleared, created.Cleared)
	assert.Equal(t, model.FlagGreen, created.Flag)
	assert.Equal(t, "Amazon", created.PayeeName)
	assert.Equal(t, "acct-1", created.AccountID)
	assert.Equal(t, "YNAB:-2000:2024-05-01:1", created.ImportID)
}

func TestEngine_Run(t *testing.T) {
	e := testEngine(t)

	ledger := ynab.NewMockClient()
	ledger.ListAccountsFn = func(context.Context) ([]model.Account, error) {
		return amexAccounts(), nil
	}
	ledger.ListTransactionsFn = func(context.Context) ([]model.ExistingTransaction, error) {
		return []model.ExistingTransaction{existingPending("e1", "Amazon", -2000, day(2024, 5, 1))}, nil
	}
	feed := staticFeed{accounts: []model.FeedAccount{{
		Name:   "Amex",
		Posted: []model.RawPosted{{Amount: "20.00", Date: "01/05/2024", Description: "AMAZON.COM"}},
	}}}

	var planned *Plan
	var callsBeforeApply []string
	result, err := e.Run(context.Background(), ledger, feed, ApplyOptions{
		Planned: func(p *Plan) {
			planned = p
			callsBeforeApply = append([]string(nil), ledger.Calls...)
		},
	})
	require.NoError(t, err)

	assert.Same(t, result.Plan, planned)
	assert.Equal(t, []string{"ListAccounts", "ListTransactions"}, callsBeforeApply, "the plan is handed over before any mutation")
	assert.Equal(t, []string{"ListAccounts", "ListTransactions", "DeleteTransaction", "CreateTransactions"}, ledger.Calls)
	assert.Equal(t, []string{"e1"}, ledger.DeleteCalls)
	require.Len(t, ledger.CreateCalls, 1)
	assert.Equal(t, "Amazon", ledger.CreateCalls[0][0].PayeeName)
	assert.Zero(t, result.Report.FailureCount())
}

func TestEngine_RunFetchErrors(t *testing.T) {
	e := testEngine(t)
	boom := errors.New("boom")

	t.Run("ledger", func(t *testing.T) {
		ledger := ynab.NewMockClient()
		ledger.ListAccountsFn = func(context.Context) ([]model.Account, error) { return nil, boom }

		_, err := e.Run(context.Background(), ledger, staticFeed{}, ApplyOptions{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("feed", func(t *testing.T) {
		ledger := ynab.NewMockClient()

		_, err := e.Run(context.Background(), ledger, staticFeed{err: boom}, ApplyOptions{})
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, ledger.MutationCount())
	})

	t.Run("empty feed", func(t *testing.T) {
		ledger := ynab.NewMockClient()

		_, err := e.Run(context.Background(), ledger, staticFeed{}, ApplyOptions{})
		assert.ErrorIs(t, err, common.ErrEmptyFeed)
		assert.Zero(t, ledger.MutationCount())
	})
}

func TestEngine_EmptyFeed(t *testing.T) {
	e := testEngine(t)

	_, err := e.Plan(nil, amexAccounts(), nil)
	assert.ErrorIs(t, err, common.ErrEmptyFeed)
}

func TestEngine_InputErrorIsFatal(t *testing.T) {
	e := testEngine(t)

	feeds := []model.FeedAccount{{
		Name:   "Amex",
		Posted: []model.RawPosted{{Amount: "20.00", Date: "2024-05-01", Description: "AMAZON"}},
	}}

	_, err := e.Plan(feeds, amexAccounts(), nil)
	var inputErr *common.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "Amex", inputErr.Account)
}

func TestEngine_UnmatchedAccountIsSkipped(t *testing.T) {
	e := testEngine(t)

	feeds := []model.FeedAccount{{
		Name:   "Mystery Card",
		Posted: []model.RawPosted{{Amount: "20.00", Date: "01/05/2024", Description: "AMAZON"}},
	}}

	plan, err := e.Plan(feeds, amexAccounts(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mystery Card"}, plan.SkippedAccounts)
	assert.True(t, plan.IsEmpty())
}

func TestEngine_DeletedAccountsAreNotLinked(t *testing.T) {
	e := testEngine(t)

	accounts := []model.Account{{ID: "acct-1", Name: "Amex", Deleted: true}}
	feeds := []model.FeedAccount{{
		Name:   "Amex",
		Posted: []model.RawPosted{{Amount: "20.00", Date: "01/05/2024", Description: "AMAZON"}},
	}}

	plan, err := e.Plan(feeds, accounts, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amex"}, plan.SkippedAccounts)
	assert.Empty(t, plan.Create)
}

func TestEngine_OnlyAccountsWithRecordsAreReconciled(t *testing.T) {
	e := testEngine(t)

	accounts := []model.Account{
		{ID: "acct-1", Name: "Amex"},
		{ID: "acct-2", Name: "Visa"},
	}
	visaPending := existingPending("v1", "Gas Station", -4000, day(2024, 5, 1))
	visaPending.AccountID = "acct-2"

	feeds := []model.FeedAccount{
		{Name: "Amex", Posted: []model.RawPosted{{Amount: "5.00", Date: "01/05/2024", Description: "CAFE"}}},
		{Name: "Visa"},
	}

	plan, err := e.Plan(feeds, accounts, []model.ExistingTransaction{visaPending})
	require.NoError(t, err)
	assert.Empty(t, plan.Stale, "an account with no feed records is left alone")
	assert.Len(t, plan.Create, 1)
}

func TestEngine_StalePending(t *testing.T) {
	e := testEngine(t)

	gone := existingPending("e1", "Canceled Order", -3000, day(2024, 5, 1))
	split := existingPending("e2", "Costco", -5000, day(2024, 5, 1))
	split.SubTransactions = []model.SubTransaction{{Amount: -2500}, {Amount: -2500}}
	cleared := existingPending("e3", "Old", -100, day(2024, 5, 1))
	cleared.Cleared = model.Cleared

	feeds := []model.FeedAccount{{
		Name:   "Amex",
		Posted: []model.RawPosted{{Amount: "5.00", Date: "01/05/2024", Description: "CAFE"}},
	}}

	plan, err := e.Plan(feeds, amexAccounts(), []model.ExistingTransaction{gone, split, cleared})
	require.NoError(t, err)

	require.Len(t, plan.Stale, 2, "cleared transactions are never stale")
	assert.Equal(t, "e1", plan.Stale[0].Transaction.ID)
	assert.False(t, plan.Stale[0].Flag)
	assert.Equal(t, "e2", plan.Stale[1].Transaction.ID)
	assert.True(t, plan.Stale[1].Flag)
}

func TestEngine_VoidsNeverReachTheLedger(t *testing.T) {
	e := testEngine(t)

	feeds := []model.FeedAccount{{
		Name: "Amex",
		Pending: []model.RawPending{
			{Amount: "5.00", ChargeDate: "2024-05-01", Description: "HOTEL"},
			{Amount: "-5.00", ChargeDate: "2024-05-01", Description: "HOTEL"},
			{Amount: "7.00", ChargeDate: "2024-05-01", Description: "TAXI"},
		},
	}}

	plan, err := e.Plan(feeds, amexAccounts(), nil)
	require.NoError(t, err)

	assert.Len(t, plan.Voided, 2)
	require.Len(t, plan.Create, 1)
	assert.Equal(t, "Taxi", plan.Create[0].PayeeName)
}

func TestEngine_StillPendingIsResubmitted(t *testing.T) {
	e := testEngine(t)

	existing := existingPending("e1", "Taxi", -700, day(2024, 5, 1))
	existing.ImportID = "YNAB-pending:-700:2024-05-01:1"
	feeds := []model.FeedAccount{{
		Name:    "Amex",
		Pending: []model.RawPending{{Amount: "7.00", ChargeDate: "2024-05-01", Description: "TAXI"}},
	}}

	plan, err := e.Plan(feeds, amexAccounts(), []model.ExistingTransaction{existing})
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Summary().StillPending)
	assert.Empty(t, plan.Stale)
	assert.Empty(t, plan.Posted)
	require.Len(t, plan.Create, 1)
	assert.Equal(t, existing.ImportID, plan.Create[0].ImportID)
}

func TestEngine_ChangedPendingIsDropped(t *testing.T) {
	e := testEngine(t)

	existing := existingPending("e1", "Taxi", -700, day(2024, 5, 1))
	existing.ImportID = "YNAB-pending:-700:2024-05-01:1"
	feeds := []model.FeedAccount{{
		Name:    "Amex",
		Pending: []model.RawPending{{Amount: "7.00", ChargeDate: "2024-05-02", Description: "TAXI"}},
	}}

	plan, err := e.Plan(feeds, amexAccounts(), []model.ExistingTransaction{existing})
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Summary().ChangedPending)
	assert.Empty(t, plan.Create)
	assert.Len(t, plan.Dropped, 1)
	assert.True(t, plan.IsEmpty())
}

func TestEngine_DuplicateFeedAccountKeepsLast(t *testing.T) {
	e := testEngine(t)

	feeds := []model.FeedAccount{
		{Name: "Amex", Posted: []model.RawPosted{{Amount: "1.00", Date: "01/05/2024", Description: "FIRST"}}},
		{Name: "Amex", Posted: []model.RawPosted{{Amount: "2.00", Date: "01/05/2024", Description: "SECOND"}}},
	}

	plan, err := e.Plan(feeds, amexAccounts(), nil)
	require.NoError(t, err)
	require.Len(t, plan.Create, 1)
	assert.Equal(t, "Second", plan.Create[0].PayeeName)
}
