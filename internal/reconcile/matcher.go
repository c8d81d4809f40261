package reconcile

import (
	"time"

	"github.com/Veraticus/settle/internal/model"
)

// Match pairs an existing pending transaction with its feed counterpart.
// Both fields are indexes; Candidate is -1 when nothing matched.
type Match struct {
	Existing  int
	Candidate int
}

// Matched reports whether a candidate was found.
func (m Match) Matched() bool {
	return m.Candidate >= 0
}

// Matcher pairs existing pending transactions with feed candidates.
type Matcher struct {
	payees PayeeMatcher
	window time.Duration
}

// NewMatcher creates a matcher from the engine configuration.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{
		payees: NewPayeeMatcher(cfg.WalletPrefixes, cfg.PayeeSimilarity, cfg.PayeeDistinctSimilarity),
		window: time.Duration(cfg.DateWindowDays) * 24 * time.Hour,
	}
}

// Assign walks the existing transactions in ledger order and gives each the
// first unconsumed candidate that matches. A candidate is consumed by its
// first match, so the assignment is one-to-one.
func (m *Matcher) Assign(existing []model.ExistingTransaction, batch []model.CandidateTransaction) []Match {
	consumed := make(map[int]struct{}, len(existing))
	matches := make([]Match, 0, len(existing))

	for ei := range existing {
		match := Match{Existing: ei, Candidate: -1}
		for ci := range batch {
			if _, used := consumed[ci]; used {
				continue
			}
			if m.Matches(&existing[ei], &batch[ci]) {
				consumed[ci] = struct{}{}
				match.Candidate = ci
				break
			}
		}
		matches = append(matches, match)
	}

	return matches
}

// Matches applies the date, amount and payee rules to one pair.
func (m *Matcher) Matches(e *model.ExistingTransaction, c *model.CandidateTransaction) bool {
	return m.dateMatches(e.Date, c.Date) &&
		amountMatches(e, c) &&
		m.payees.Match(c.PayeeName, e.EffectivePayee())
}

func (m *Matcher) dateMatches(a, b time.Time) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= m.window
}

// amountMatches accepts the displayed amount, or for a still-pending candidate
// the amount the transaction was originally imported with.
func amountMatches(e *model.ExistingTransaction, c *model.CandidateTransaction) bool {
	if c.Amount == e.Amount {
		return true
	}
	return c.Cleared == model.Uncleared && c.Amount == e.OriginalAmount()
}
