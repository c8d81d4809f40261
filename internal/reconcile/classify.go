package reconcile

import (
	"strings"

	"github.com/Veraticus/settle/internal/model"
)

// State is the lifecycle outcome of an existing pending transaction.
type State int

// Lifecycle states. Every existing pending transaction starts Unmatched and
// ends in exactly one of the others.
const (
	StateUnmatched State = iota
	StateStillPending
	StateChangedPending
	StatePosted
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUnmatched:
		return "unmatched"
	case StateStillPending:
		return "still_pending"
	case StateChangedPending:
		return "changed_pending"
	case StatePosted:
		return "posted"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Outcome records how one existing pending transaction was classified.
// Candidate is the matched feed transaction as it leaves classification, nil
// for stale transactions.
type Outcome struct {
	Candidate *model.CandidateTransaction
	Existing  model.ExistingTransaction
	State     State
}

// Classifier assigns lifecycle states and carries curated ledger data over to
// transactions that posted.
type Classifier struct {
	protectedPayees []string
}

// NewClassifier creates a classifier from the engine configuration.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{protectedPayees: cfg.ProtectedPayeePrefixes}
}

// Classify decides the state of every existing transaction in matches and
// returns the outcomes together with the batch that should still be created.
// Candidates matched to a posted transaction are enriched in the returned
// batch; candidates of a changed pending transaction are left out of it.
func (c *Classifier) Classify(existing []model.ExistingTransaction, batch []model.CandidateTransaction, matches []Match) (outcomes []Outcome, kept, dropped []model.CandidateTransaction) {
	working := make([]model.CandidateTransaction, len(batch))
	copy(working, batch)
	drop := make(map[int]struct{})

	outcomes = make([]Outcome, 0, len(matches))
	for _, m := range matches {
		e := existing[m.Existing]
		outcome := Outcome{Existing: e, State: StateUnmatched}

		switch {
		case !m.Matched():
			outcome.State = StateStale
		case working[m.Candidate].Cleared == model.Uncleared:
			cand := working[m.Candidate]
			if !cand.Date.Equal(e.Date) || cand.ImportID != e.ImportID {
				outcome.State = StateChangedPending
				drop[m.Candidate] = struct{}{}
			} else {
				outcome.State = StateStillPending
			}
			outcome.Candidate = &cand
		default:
			c.enrichPosted(&working[m.Candidate], &e)
			cand := working[m.Candidate]
			outcome.State = StatePosted
			outcome.Candidate = &cand
		}

		outcomes = append(outcomes, outcome)
	}

	kept = make([]model.CandidateTransaction, 0, len(working))
	for i, cand := range working {
		if _, ok := drop[i]; ok {
			dropped = append(dropped, cand)
			continue
		}
		kept = append(kept, cand)
	}

	return outcomes, kept, dropped
}

// enrichPosted copies what the user curated on the pending entry onto the
// transaction that replaces it.
func (c *Classifier) enrichPosted(cand *model.CandidateTransaction, e *model.ExistingTransaction) {
	if e.PayeeName != "" && !c.isProtectedPayee(e.PayeeName) {
		cand.PayeeName = e.PayeeName
	}
	cand.Approved = e.Approved
	cand.CategoryID = e.CategoryID
	cand.Memo = e.Memo

	cand.SubTransactions = nil
	if len(e.SubTransactions) > 0 {
		cand.SubTransactions = make([]model.SubTransaction, len(e.SubTransactions))
		copy(cand.SubTransactions, e.SubTransactions)
	}

	// The posted entry keeps its own flag; the pending one marked the hold.
	if !cand.Flag.IsPalette() {
		cand.Flag = model.FlagNone
	}
}

// isProtectedPayee reports payees the ledger manages itself, such as transfers
// and balance adjustments.
func (c *Classifier) isProtectedPayee(payee string) bool {
	for _, prefix := range c.protectedPayees {
		if strings.HasPrefix(payee, prefix) {
			return true
		}
	}
	return false
}
