package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/settle/internal/cli"
	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/reconcile"
	"github.com/Veraticus/settle/internal/service"
	"github.com/Veraticus/settle/internal/storage"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the bank feed into the budget",
		Long: `Fetch the feed and the budget, work out what changed, and update the budget.

The plan is printed before anything is sent. With --dry-run nothing is sent,
but the run is still recorded in the journal.`,
		RunE: runSyncCmd,
	}

	cmd.Flags().Bool("dry-run", false, "Show the plan without changing the budget")
	cmd.Flags().String("source", "", "Feed source: csv, ofx, simplefin or plaid (default from feed.source)")
	cmd.Flags().Bool("no-journal", false, "Do not record this run in the journal")

	return cmd
}

func runSyncCmd(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	sourceFlag, _ := cmd.Flags().GetString("source")
	noJournal, _ := cmd.Flags().GetBool("no-journal")

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupts.HandleInterrupts(cmd.Context())
	defer interrupts.Stop()

	engine, err := initEngine()
	if err != nil {
		return err
	}

	ledger, err := initLedger(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	name := sourceName(sourceFlag)
	source, err := initSource(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to set up %s feed: %w", name, err)
	}

	var journal service.Journal
	if !noJournal {
		j, err := initJournal(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }()
		journal = j
	}

	return runSync(ctx, syncDeps{
		engine:     engine,
		ledger:     ledger,
		source:     source,
		journal:    journal,
		out:        cmd.OutOrStdout(),
		interrupts: interrupts,
	}, syncOptions{source: name, dryRun: dryRun})
}

type syncDeps struct {
	engine     *reconcile.Engine
	ledger     service.Ledger
	source     service.FeedSource
	journal    service.Journal // nil disables journaling
	out        io.Writer
	interrupts *cli.InterruptHandler
}

type syncOptions struct {
	source string
	dryRun bool
}

// runSync fetches both sides, renders the plan, applies it and journals
// the outcome. Failed mutations are reported but do not fail the command.
func runSync(ctx context.Context, deps syncDeps, opts syncOptions) error {
	startedAt := time.Now()
	cfg := deps.engine.Config()

	var progress *cli.ProgressReporter
	applyOpts := reconcile.ApplyOptions{
		DryRun: opts.dryRun,
		Planned: func(plan *reconcile.Plan) {
			if _, err := fmt.Fprintln(deps.out, cli.RenderPlan(plan, cfg)); err != nil {
				slog.Warn("Failed to write plan", "error", err)
			}
			if !opts.dryRun && !plan.IsEmpty() {
				progress = cli.NewProgressReporter(deps.out, plan.MutationCount())
			}
			if deps.interrupts != nil {
				deps.interrupts.SetApplying(!opts.dryRun)
			}
		},
		Progress: func(m model.MutationRecord) {
			if progress != nil {
				progress.Record(m)
			}
		},
	}

	slog.Info("Starting sync", "source", opts.source, "dry_run", opts.dryRun)
	result, err := deps.engine.Run(ctx, deps.ledger, deps.source, applyOpts)
	if deps.interrupts != nil {
		deps.interrupts.SetApplying(false)
	}
	if err != nil {
		return friendly(err)
	}
	if progress != nil {
		progress.Finish()
	}

	if _, err := fmt.Fprintln(deps.out, cli.RenderReport(result.Report, opts.dryRun)); err != nil {
		slog.Warn("Failed to write report", "error", err)
	}

	if deps.journal == nil {
		return nil
	}

	run := reconcile.NewRunRecord(storage.NewRunID(), opts.source, startedAt, result.Plan, result.Report, opts.dryRun)
	// The ledger has already changed; journal with a fresh context so an
	// interrupt does not lose the record.
	if err := deps.journal.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		common.LogError(err, "Failed to record run", common.Fields{"run_id": run.ID})
		return nil
	}

	common.LogInfo("Run recorded", common.Fields{
		"run_id":    run.ID,
		"mutations": len(run.Mutations),
		"failures":  run.Failures,
	})
	return nil
}
