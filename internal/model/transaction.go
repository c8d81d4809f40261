package model

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the ledger and in import IDs.
const DateLayout = "2006-01-02"

// Clearance is the settlement state of a transaction.
type Clearance string

// Clearance states.
const (
	Uncleared  Clearance = "uncleared"
	Cleared    Clearance = "cleared"
	Reconciled Clearance = "reconciled"
)

// FlagColor is the review flag attached to a ledger transaction.
type FlagColor string

// Flag colors accepted by the ledger. FlagNone clears the flag.
const (
	FlagNone   FlagColor = ""
	FlagRed    FlagColor = "red"
	FlagOrange FlagColor = "orange"
	FlagYellow FlagColor = "yellow"
	FlagGreen  FlagColor = "green"
	FlagBlue   FlagColor = "blue"
	FlagPurple FlagColor = "purple"
)

// IsPalette reports whether the flag is one of the ledger's named colors.
func (f FlagColor) IsPalette() bool {
	switch f {
	case FlagRed, FlagOrange, FlagYellow, FlagGreen, FlagBlue, FlagPurple:
		return true
	}
	return false
}

// SubTransaction is one line of a split transaction.
type SubTransaction struct {
	PayeeID    string
	PayeeName  string
	CategoryID string
	Memo       string
	Amount     int64
}

// CandidateTransaction is a normalized feed record queued for the ledger.
// It only lives for the duration of a run; ImportID is its identity.
type CandidateTransaction struct {
	Date            time.Time
	AccountID       string
	PayeeName       string
	ImportID        string
	Memo            string
	CategoryID      string
	Cleared         Clearance
	Flag            FlagColor
	SubTransactions []SubTransaction
	Amount          int64 // minor units, negative is an outflow
	Approved        bool
}

// DateString returns the candidate's date in ledger form.
func (c *CandidateTransaction) DateString() string {
	return c.Date.Format(DateLayout)
}

// ExistingTransaction is a transaction already recorded in the ledger.
type ExistingTransaction struct {
	Date            time.Time
	ID              string
	AccountID       string
	AccountName     string
	PayeeName       string
	ImportPayeeName string
	ImportID        string
	Memo            string
	CategoryID      string
	Cleared         Clearance
	Flag            FlagColor
	SubTransactions []SubTransaction
	Amount          int64
	Approved        bool
	Deleted         bool
}

// DateString returns the transaction's date in ledger form.
func (e *ExistingTransaction) DateString() string {
	return e.Date.Format(DateLayout)
}

// EffectivePayee is the payee name the feed originally reported, when the
// ledger kept it, otherwise the displayed payee.
func (e *ExistingTransaction) EffectivePayee() string {
	if e.ImportPayeeName != "" {
		return e.ImportPayeeName
	}
	return e.PayeeName
}

// OriginalAmount returns the amount encoded in the import ID. Ledgers may
// rewrite the displayed amount after matching; the import ID keeps the amount
// the transaction was first imported with.
func (e *ExistingTransaction) OriginalAmount() int64 {
	if e.ImportID == "" {
		return e.Amount
	}
	parts := strings.Split(e.ImportID, ":")
	if len(parts) < 2 {
		return e.Amount
	}
	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return e.Amount
	}
	return amount
}

// IsPending reports whether the transaction is a live, unsettled entry.
func (e *ExistingTransaction) IsPending() bool {
	return e.Cleared == Uncleared && !e.Deleted
}

// TransactionUpdate carries the fields of a partial ledger update.
// Nil fields are left unchanged.
type TransactionUpdate struct {
	Flag *FlagColor
	Memo *string
}

// Account is a ledger account. Queued is filled during a run only.
type Account struct {
	ID      string
	Name    string
	Queued  []CandidateTransaction
	Deleted bool
	Closed  bool
}
