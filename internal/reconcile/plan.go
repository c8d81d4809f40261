package reconcile

import "github.com/Veraticus/settle/internal/model"

// StaleAction is what happens to a pending transaction that vanished from the
// feed. Split transactions are flagged for review rather than deleted.
type StaleAction struct {
	Transaction model.ExistingTransaction
	Flag        bool
}

// Plan is the ordered set of ledger mutations for one run, plus the
// bookkeeping that explains it. Mutations apply in field order: Stale, Posted,
// Create.
type Plan struct {
	Stale           []StaleAction
	Posted          []model.ExistingTransaction
	Create          []model.CandidateTransaction
	Outcomes        []Outcome
	Voided          []model.CandidateTransaction
	Dropped         []model.CandidateTransaction
	Accounts        []model.Account
	SkippedAccounts []string
}

// Summary holds the counts of a plan.
type Summary struct {
	Voided         int
	StillPending   int
	ChangedPending int
	Posted         int
	StaleFlagged   int
	StaleDeleted   int
	Create         int
	Skipped        int
}

// Summary counts the plan's outcomes and mutations.
func (p *Plan) Summary() Summary {
	s := Summary{
		Voided:  len(p.Voided),
		Posted:  len(p.Posted),
		Create:  len(p.Create),
		Skipped: len(p.SkippedAccounts),
	}
	for _, o := range p.Outcomes {
		switch o.State {
		case StateStillPending:
			s.StillPending++
		case StateChangedPending:
			s.ChangedPending++
		}
	}
	for _, a := range p.Stale {
		if a.Flag {
			s.StaleFlagged++
		} else {
			s.StaleDeleted++
		}
	}
	return s
}

// MutationCount is the number of ledger calls Apply will issue.
// Creates go out as a single bulk call.
func (p *Plan) MutationCount() int {
	n := len(p.Stale) + len(p.Posted)
	if len(p.Create) > 0 {
		n++
	}
	return n
}

// IsEmpty reports whether applying the plan would change nothing.
func (p *Plan) IsEmpty() bool {
	return p.MutationCount() == 0
}

// Planner turns classification outcomes into a plan.
type Planner struct {
	staleFlag model.FlagColor
}

// NewPlanner creates a planner from the engine configuration.
func NewPlanner(cfg Config) *Planner {
	return &Planner{staleFlag: cfg.StaleFlag}
}

// Build assembles the mutation lists. batch is the set of candidates that
// survived void elimination and classification.
func (p *Planner) Build(outcomes []Outcome, batch []model.CandidateTransaction) *Plan {
	plan := &Plan{
		Outcomes: outcomes,
		Create:   batch,
	}

	for _, o := range outcomes {
		switch o.State {
		case StateStale:
			plan.Stale = append(plan.Stale, StaleAction{
				Transaction: o.Existing,
				Flag:        p.shouldFlag(&o.Existing),
			})
		case StatePosted:
			plan.Posted = append(plan.Posted, o.Existing)
		}
	}

	return plan
}

// shouldFlag keeps split transactions around for a human to look at, unless
// they were already flagged on a previous run.
func (p *Planner) shouldFlag(e *model.ExistingTransaction) bool {
	return e.Flag != p.staleFlag && len(e.SubTransactions) > 0
}
