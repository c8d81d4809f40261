package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExistingTransaction_OriginalAmount(t *testing.T) {
	tests := []struct {
		name     string
		importID string
		amount   int64
		want     int64
	}{
		{name: "from import id", importID: "YNAB-pending:-2000:2024-05-01:1", amount: -2500, want: -2000},
		{name: "no import id", importID: "", amount: -2500, want: -2500},
		{name: "foreign import id", importID: "YNAB:abc:2024-05-01:1", amount: -2500, want: -2500},
		{name: "single field", importID: "manual", amount: -2500, want: -2500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ExistingTransaction{ImportID: tt.importID, Amount: tt.amount}
			assert.Equal(t, tt.want, e.OriginalAmount())
		})
	}
}

func TestExistingTransaction_EffectivePayee(t *testing.T) {
	e := ExistingTransaction{PayeeName: "Groceries"}
	assert.Equal(t, "Groceries", e.EffectivePayee())

	e.ImportPayeeName = "WHOLE FOODS"
	assert.Equal(t, "WHOLE FOODS", e.EffectivePayee())
}

func TestExistingTransaction_IsPending(t *testing.T) {
	assert.True(t, (&ExistingTransaction{Cleared: Uncleared}).IsPending())
	assert.False(t, (&ExistingTransaction{Cleared: Cleared}).IsPending())
	assert.False(t, (&ExistingTransaction{Cleared: Reconciled}).IsPending())
	assert.False(t, (&ExistingTransaction{Cleared: Uncleared, Deleted: true}).IsPending())
}

func TestFlagColor_IsPalette(t *testing.T) {
	for _, f := range []FlagColor{FlagRed, FlagOrange, FlagYellow, FlagGreen, FlagBlue, FlagPurple} {
		assert.True(t, f.IsPalette(), f)
	}
	assert.False(t, FlagNone.IsPalette())
	assert.False(t, FlagColor("magenta").IsPalette())
}

func TestDateString(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c := CandidateTransaction{Date: d}
	e := ExistingTransaction{Date: d}

	assert.Equal(t, "2024-05-01", c.DateString())
	assert.Equal(t, "2024-05-01", e.DateString())
}

func TestFeedAccount_RecordCount(t *testing.T) {
	f := FeedAccount{
		Posted:  []RawPosted{{}, {}},
		Pending: []RawPending{{}},
	}
	assert.Equal(t, 3, f.RecordCount())
}
