package reconcile

import (
	"testing"
	"time"

	"github.com/Veraticus/settle/internal/model"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func posted(payee string, amount int64, date time.Time) model.CandidateTransaction {
	return model.CandidateTransaction{
		AccountID: "acct-1",
		PayeeName: payee,
		Amount:    amount,
		Date:      date,
		Cleared:   model.Cleared,
		Flag:      model.FlagGreen,
	}
}

func pending(payee string, amount int64, date time.Time) model.CandidateTransaction {
	return model.CandidateTransaction{
		AccountID: "acct-1",
		PayeeName: payee,
		Amount:    amount,
		Date:      date,
		Cleared:   model.Uncleared,
		Flag:      model.FlagYellow,
	}
}

func existingPending(id, payee string, amount int64, date time.Time) model.ExistingTransaction {
	return model.ExistingTransaction{
		ID:          id,
		AccountID:   "acct-1",
		AccountName: "Amex",
		PayeeName:   payee,
		Amount:      amount,
		Date:        date,
		Cleared:     model.Uncleared,
		Flag:        model.FlagYellow,
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	return e
}
