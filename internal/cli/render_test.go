package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func samplePlan() *reconcile.Plan {
	return &reconcile.Plan{
		Accounts: []model.Account{{ID: "acct-1", Name: "Amex"}},
		Stale: []reconcile.StaleAction{
			{Transaction: model.ExistingTransaction{ID: "s1", AccountName: "Amex", PayeeName: "Uber", Amount: -1200, Date: day}},
			{Transaction: model.ExistingTransaction{ID: "s2", AccountName: "Amex", PayeeName: "Costco", Amount: -9900, Date: day}, Flag: true},
		},
		Posted: []model.ExistingTransaction{
			{ID: "p1", AccountName: "Amex", PayeeName: "Starbucks", Amount: -450, Date: day},
		},
		Create: []model.CandidateTransaction{
			{AccountID: "acct-1", PayeeName: "Starbucks", Amount: -450, Date: day, Cleared: model.Cleared},
			{AccountID: "acct-1", PayeeName: "Lyft", Amount: -1500, Date: day, Cleared: model.Uncleared},
		},
		SkippedAccounts: []string{"Old Visa"},
	}
}

func TestRenderPlan(t *testing.T) {
	out := RenderPlan(samplePlan(), reconcile.DefaultConfig())

	for _, want := range []string{
		"Reconciliation Plan",
		"Stale flagged / deleted: 1 / 1",
		"To create: 2",
		"Old Visa",
		"Stale pending",
		"Costco",
		"Pending now posted",
		"New transactions",
		"Lyft",
		"$4.50",
		"$15.00",
		"2024-03-05",
		"pending",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "already matches")
}

func TestRenderPlan_Empty(t *testing.T) {
	out := RenderPlan(&reconcile.Plan{}, reconcile.DefaultConfig())
	assert.Contains(t, out, "Ledger already matches the feed")
	assert.NotContains(t, out, "New transactions")
}

func TestRenderReport(t *testing.T) {
	report := &reconcile.ApplyReport{
		Mutations: []model.MutationRecord{
			{Kind: model.MutationFlagStale, TransactionID: "s2"},
			{Kind: model.MutationDeleteStale, TransactionID: "s1", Error: "boom"},
			{Kind: model.MutationCreate, ImportID: "YNAB:-450:2024-03-05:1"},
		},
		Failures:   []error{errors.New("delete_stale s1: boom")},
		Duplicates: []string{"YNAB:-1:2024-03-05:1"},
	}

	t.Run("with failures", func(t *testing.T) {
		out := RenderReport(report, false)
		assert.Contains(t, out, "Flagged stale: 1")
		assert.Contains(t, out, "Deleted stale: 0")
		assert.Contains(t, out, "Created: 1")
		assert.Contains(t, out, "Skipped as duplicates: 1")
		assert.Contains(t, out, "1 ledger calls failed")
		assert.Contains(t, out, "delete_stale s1: boom")
	})

	t.Run("dry run", func(t *testing.T) {
		out := RenderReport(report, true)
		assert.Contains(t, out, "Dry run")
		assert.NotContains(t, out, "ledger calls failed")
	})

	t.Run("success", func(t *testing.T) {
		out := RenderReport(&reconcile.ApplyReport{}, false)
		assert.Contains(t, out, "Ledger updated")
	})
}

func TestRenderRuns(t *testing.T) {
	assert.Contains(t, RenderRuns(nil), "No runs recorded yet")

	out := RenderRuns([]model.RunRecord{
		{ID: "run-ok", Source: "csv", StartedAt: day, Created: 3},
		{ID: "run-dry", Source: "ofx", StartedAt: day, DryRun: true},
		{ID: "run-bad", Source: "plaid", StartedAt: day, Failures: 2},
	})
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run-ok")
	assert.Contains(t, out, "(dry run)")
	assert.Contains(t, out, "plaid")
}

func TestRenderMutations(t *testing.T) {
	cfg := reconcile.DefaultConfig()

	empty := RenderMutations(model.RunRecord{ID: "r1"}, cfg)
	assert.Contains(t, empty, "Run r1")
	assert.Contains(t, empty, "No mutations")

	out := RenderMutations(model.RunRecord{ID: "r2", Mutations: []model.MutationRecord{
		{Kind: model.MutationCreate, ImportID: "YNAB:-450:2024-03-05:1", PayeeName: "Starbucks", Amount: -450, Date: day},
		{Kind: model.MutationDeleteStale, TransactionID: "t1", PayeeName: "Uber", Amount: -1200, Date: day, Error: "not found"},
	}}, cfg)
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "Starbucks")
	assert.Contains(t, out, "not found")
}

func TestLinkAccounts(t *testing.T) {
	feeds := []model.FeedAccount{{Name: "Amex"}, {Name: "Old Visa"}, {Name: "Amex"}, {Name: "Savings"}}
	accounts := []model.Account{
		{ID: "a1", Name: "Amex"},
		{ID: "a2", Name: "Checking"},
		{ID: "a3", Name: "Old Visa", Deleted: true},
		{ID: "a4", Name: "Savings", Closed: true},
	}

	links := LinkAccounts(feeds, accounts)
	require.Len(t, links, 4)

	assert.Equal(t, AccountLink{FeedName: "Amex", LedgerName: "Amex", LedgerID: "a1"}, links[0])
	assert.True(t, links[0].Linked())

	assert.Equal(t, "Old Visa", links[1].FeedName)
	assert.False(t, links[1].Linked())

	assert.True(t, links[2].Linked())
	assert.True(t, links[2].Closed)

	assert.Equal(t, AccountLink{LedgerName: "Checking", LedgerID: "a2"}, links[3])

	out := RenderAccounts(links)
	assert.Contains(t, out, "linked")
	assert.Contains(t, out, "no ledger account")
	assert.Contains(t, out, "ledger account closed")
	assert.Contains(t, out, "no feed")
}

func TestProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, 3)

	p.Record(model.MutationRecord{Kind: model.MutationDeleteStale})
	p.Record(model.MutationRecord{Kind: model.MutationDeletePosted, Error: "boom"})
	p.Finish()

	assert.Equal(t, 1, p.Failures())
	assert.Contains(t, buf.String(), "Updating ledger")
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), "done")
	assert.Contains(t, FormatError("bad"), ErrorIcon)
	assert.Contains(t, FormatWarning("careful"), "careful")
	assert.Contains(t, FormatInfo("fyi"), "fyi")
	assert.Contains(t, FormatTitle("Settle"), "Settle")
	assert.Contains(t, RenderBox("Title", "body"), "body")
}
