package model

import "time"

// MutationKind identifies a ledger mutation issued during a run.
type MutationKind string

// Mutation kinds in application order.
const (
	MutationFlagStale    MutationKind = "flag_stale"
	MutationDeleteStale  MutationKind = "delete_stale"
	MutationDeletePosted MutationKind = "delete_posted"
	MutationCreate       MutationKind = "create"
)

// MutationRecord is the journal entry for one ledger mutation.
type MutationRecord struct {
	Date          time.Time
	RunID         string
	Kind          MutationKind
	TransactionID string
	ImportID      string
	PayeeName     string
	Error         string
	Amount        int64
}

// Failed reports whether the mutation was rejected by the ledger.
func (m MutationRecord) Failed() bool {
	return m.Error != ""
}

// RunRecord is the journal entry for one reconciliation run.
type RunRecord struct {
	StartedAt      time.Time
	FinishedAt     time.Time
	ID             string
	Source         string
	Mutations      []MutationRecord
	Voided         int
	StillPending   int
	ChangedPending int
	Posted         int
	StaleFlagged   int
	StaleDeleted   int
	Created        int
	Duplicates     int
	Failures       int
	DryRun         bool
}
