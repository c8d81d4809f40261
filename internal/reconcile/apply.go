package reconcile

import (
	"context"
	"time"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/service"
)

// ApplyOptions controls how a plan is applied.
type ApplyOptions struct {
	// Planned is called by Run with the finished plan, before any mutation.
	Planned func(*Plan)
	// Progress is called after every ledger call.
	Progress func(model.MutationRecord)
	// DryRun records the mutations without calling the ledger.
	DryRun bool
}

// ApplyReport is the outcome of applying a plan.
type ApplyReport struct {
	Mutations  []model.MutationRecord
	Failures   []error
	Duplicates []string
}

// FailureCount returns the number of failed ledger calls.
func (r *ApplyReport) FailureCount() int {
	return len(r.Failures)
}

// Count returns how many successful mutations of the given kind were applied.
func (r *ApplyReport) Count(kind model.MutationKind) int {
	n := 0
	for _, m := range r.Mutations {
		if m.Kind == kind && !m.Failed() {
			n++
		}
	}
	return n
}

// Apply issues the plan's mutations one at a time, in plan order. A failing
// call is logged and recorded and the remaining mutations still go out.
func (e *Engine) Apply(ctx context.Context, ledger service.Ledger, plan *Plan, opts ApplyOptions) *ApplyReport {
	report := &ApplyReport{}

	for _, action := range plan.Stale {
		t := action.Transaction
		e.logger.Info("Clearing out stale transaction", "transaction", e.cfg.DescribeExisting(&t), "flag", action.Flag)

		rec := existingRecord(&t, model.MutationDeleteStale)
		var err error
		if action.Flag {
			rec.Kind = model.MutationFlagStale
			if !opts.DryRun {
				flag, memo := e.cfg.StaleFlag, e.cfg.StaleMemo
				err = ledger.UpdateTransaction(ctx, t.ID, model.TransactionUpdate{
					Flag: &flag,
					Memo: &memo,
				})
			}
		} else if !opts.DryRun {
			err = ledger.DeleteTransaction(ctx, t.ID)
		}
		e.record(report, rec, err, opts)
	}

	for _, t := range plan.Posted {
		e.logger.Info("Clearing out pending transaction that posted", "transaction", e.cfg.DescribeExisting(&t))

		var err error
		if !opts.DryRun {
			err = ledger.DeleteTransaction(ctx, t.ID)
		}
		e.record(report, existingRecord(&t, model.MutationDeletePosted), err, opts)
	}

	if len(plan.Create) == 0 {
		return report
	}

	e.logger.Info("Importing transactions; the ledger ignores duplicate imports, so the created count may be lower",
		"count", len(plan.Create))

	var result service.CreateResult
	var err error
	if !opts.DryRun {
		result, err = ledger.CreateTransactions(ctx, plan.Create)
	}
	if err != nil {
		err = &common.MutationError{Op: "create transactions", Err: err}
		e.logger.Error("Failed to create transactions", "count", len(plan.Create), "error", err)
		report.Failures = append(report.Failures, err)
	}

	for i := range plan.Create {
		rec := candidateRecord(&plan.Create[i])
		if err != nil {
			rec.Error = err.Error()
		}
		report.Mutations = append(report.Mutations, rec)
	}
	if opts.Progress != nil {
		opts.Progress(report.Mutations[len(report.Mutations)-1])
	}

	if len(result.DuplicateImportIDs) > 0 {
		e.logger.Info("Ledger skipped duplicate imports", "count", len(result.DuplicateImportIDs))
		report.Duplicates = append(report.Duplicates, result.DuplicateImportIDs...)
	}

	return report
}

func (e *Engine) record(report *ApplyReport, rec model.MutationRecord, err error, opts ApplyOptions) {
	if err != nil {
		err = &common.MutationError{Op: string(rec.Kind), TransactionID: rec.TransactionID, Err: err}
		e.logger.Error("Ledger mutation failed", "kind", rec.Kind, "transaction_id", rec.TransactionID, "error", err)
		report.Failures = append(report.Failures, err)
		rec.Error = err.Error()
	}
	report.Mutations = append(report.Mutations, rec)
	if opts.Progress != nil {
		opts.Progress(rec)
	}
}

func existingRecord(t *model.ExistingTransaction, kind model.MutationKind) model.MutationRecord {
	return model.MutationRecord{
		Kind:          kind,
		TransactionID: t.ID,
		ImportID:      t.ImportID,
		PayeeName:     t.PayeeName,
		Amount:        t.Amount,
		Date:          t.Date,
	}
}

func candidateRecord(c *model.CandidateTransaction) model.MutationRecord {
	return model.MutationRecord{
		Kind:      model.MutationCreate,
		ImportID:  c.ImportID,
		PayeeName: c.PayeeName,
		Amount:    c.Amount,
		Date:      c.Date,
	}
}

// NewRunRecord summarizes a finished run for the journal.
func NewRunRecord(id, source string, startedAt time.Time, plan *Plan, report *ApplyReport, dryRun bool) model.RunRecord {
	s := plan.Summary()
	run := model.RunRecord{
		ID:             id,
		Source:         source,
		StartedAt:      startedAt,
		FinishedAt:     time.Now(),
		DryRun:         dryRun,
		Voided:         s.Voided,
		StillPending:   s.StillPending,
		ChangedPending: s.ChangedPending,
		Posted:         s.Posted,
		StaleFlagged:   s.StaleFlagged,
		StaleDeleted:   s.StaleDeleted,
		Created:        s.Create,
	}
	if report != nil {
		run.Duplicates = len(report.Duplicates)
		run.Failures = report.FailureCount()
		run.Mutations = make([]model.MutationRecord, len(report.Mutations))
		for i, m := range report.Mutations {
			m.RunID = id
			run.Mutations[i] = m
		}
	}
	return run
}
