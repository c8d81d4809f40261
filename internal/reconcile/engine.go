package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/service"
)

// Engine runs the reconciliation pipeline.
type Engine struct {
	logger     *slog.Logger
	normalizer *Normalizer
	matcher    *Matcher
	classifier *Classifier
	planner    *Planner
	cfg        Config
}

// RunResult is what a full fetch, plan and apply cycle produced.
type RunResult struct {
	Plan   *Plan
	Report *ApplyReport
}

// New creates an engine. A nil logger falls back to the default logger.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		cfg:        cfg,
		logger:     logger.With("component", "reconcile"),
		normalizer: NewNormalizer(cfg),
		matcher:    NewMatcher(cfg),
		classifier: NewClassifier(cfg),
		planner:    NewPlanner(cfg),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run fetches both sides, plans, and applies the plan.
func (e *Engine) Run(ctx context.Context, ledger service.Ledger, source service.FeedSource, opts ApplyOptions) (*RunResult, error) {
	accounts, err := ledger.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger accounts: %w", err)
	}
	existing, err := ledger.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger transactions: %w", err)
	}
	feeds, err := source.FetchAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	plan, err := e.Plan(feeds, accounts, existing)
	if err != nil {
		return nil, err
	}
	if opts.Planned != nil {
		opts.Planned(plan)
	}

	return &RunResult{
		Plan:   plan,
		Report: e.Apply(ctx, ledger, plan, opts),
	}, nil
}

// Plan reconciles the fetched feed against the ledger without touching it.
// An empty feed and a malformed record are fatal; a feed account without a
// same-named ledger account is skipped.
func (e *Engine) Plan(feeds []model.FeedAccount, accounts []model.Account, existing []model.ExistingTransaction) (*Plan, error) {
	if len(feeds) == 0 {
		return nil, common.ErrEmptyFeed
	}

	linked, skipped, err := e.queue(feeds, accounts)
	if err != nil {
		return nil, err
	}

	ready := make(map[string]struct{})
	var batch []model.CandidateTransaction
	for _, a := range linked {
		if len(a.Queued) == 0 {
			continue
		}
		ready[a.ID] = struct{}{}
		e.logger.Info("Account may have transactions to import", "account", a.Name, "queued", len(a.Queued))
		batch = append(batch, a.Queued...)
	}

	batch, voided := EliminateVoids(batch)
	for i := range voided {
		e.logger.Info("Dropping voided transaction", "transaction", e.cfg.DescribeCandidate(&voided[i]))
	}

	var pending []model.ExistingTransaction
	for _, t := range existing {
		if _, ok := ready[t.AccountID]; ok && t.IsPending() {
			pending = append(pending, t)
		}
	}

	matches := e.matcher.Assign(pending, batch)
	outcomes, batch, dropped := e.classifier.Classify(pending, batch, matches)
	e.logOutcomes(outcomes)

	plan := e.planner.Build(outcomes, batch)
	plan.Voided = voided
	plan.Dropped = dropped
	plan.Accounts = linked
	plan.SkippedAccounts = skipped

	return plan, nil
}

// queue normalizes each feed account into its ledger account's queue.
func (e *Engine) queue(feeds []model.FeedAccount, accounts []model.Account) ([]model.Account, []string, error) {
	linked := make([]model.Account, 0, len(accounts))
	byName := make(map[string]int, len(accounts))
	for _, a := range accounts {
		if a.Deleted {
			continue
		}
		a.Queued = nil
		byName[a.Name] = len(linked)
		linked = append(linked, a)
	}

	var skipped []string
	for _, feed := range feeds {
		idx, ok := byName[feed.Name]
		if !ok {
			e.logger.Warn("Skipping feed account; rename the matching ledger account to link it",
				"account", feed.Name,
				"error", common.ErrNoAccountMatch)
			skipped = append(skipped, feed.Name)
			continue
		}

		account := &linked[idx]
		if len(account.Queued) > 0 {
			e.logger.Warn("Feed account name appears twice, keeping the last one", "account", feed.Name)
		}

		posted, err := e.normalizer.NormalizePosted(*account, feed.Posted)
		if err != nil {
			return nil, nil, err
		}
		pending, err := e.normalizer.NormalizePending(*account, feed.Pending)
		if err != nil {
			return nil, nil, err
		}

		account.Queued = append(posted, pending...)
	}

	return linked, skipped, nil
}

func (e *Engine) logOutcomes(outcomes []Outcome) {
	for i := range outcomes {
		o := &outcomes[i]
		desc := e.cfg.DescribeExisting(&o.Existing)

		switch o.State {
		case StateStillPending:
			e.logger.Info("Transaction still pending", "transaction", desc)
		case StateChangedPending:
			e.logger.Warn("Pending transaction changed date or import ID, ignoring to prevent a duplicate",
				"transaction", desc,
				"import_id", o.Existing.ImportID,
				"feed_import_id", o.Candidate.ImportID)
		case StatePosted:
			e.logger.Info("Transaction posted, carrying data over to the new entry",
				"transaction", desc,
				"import_id", o.Candidate.ImportID)
		case StateStale:
			e.logger.Info("Transaction is stale", "transaction", desc)
		}
	}
}
