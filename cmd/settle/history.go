package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Veraticus/settle/internal/cli"
	"github.com/Veraticus/settle/internal/config"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/reconcile"
	"github.com/Veraticus/settle/internal/storage"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past sync runs from the journal",
		Long: `List recent runs, or the mutations of one run with --run.

--import-id shows every run that touched one imported transaction.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			runID, _ := cmd.Flags().GetString("run")
			importID, _ := cmd.Flags().GetString("import-id")
			ctx := cmd.Context()

			journal, err := initJournal(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = journal.Close() }()

			cfg, err := config.LoadReconcileConfig()
			if err != nil {
				return err
			}

			return showHistory(ctx, journal, *cfg, historyOptions{
				limit:    limit,
				runID:    runID,
				importID: importID,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int("limit", storage.DefaultListLimit, "Number of runs to show")
	cmd.Flags().String("run", "", "Show the mutations of this run")
	cmd.Flags().String("import-id", "", "Show the journaled mutations of this import ID")
	cmd.MarkFlagsMutuallyExclusive("run", "import-id")

	return cmd
}

type historyOptions struct {
	runID    string
	importID string
	limit    int
}

func showHistory(ctx context.Context, journal *storage.SQLiteStorage, cfg reconcile.Config, opts historyOptions, out io.Writer) error {
	var rendered string

	switch {
	case opts.runID != "":
		run, err := journal.GetRun(ctx, opts.runID)
		if err != nil {
			return err
		}
		rendered = cli.RenderMutations(*run, cfg)
	case opts.importID != "":
		mutations, err := journal.FindMutationsByImportID(ctx, opts.importID)
		if err != nil {
			return err
		}
		rendered = cli.RenderMutations(model.RunRecord{ID: "history of " + opts.importID, Mutations: mutations}, cfg)
	default:
		runs, err := journal.ListRuns(ctx, opts.limit)
		if err != nil {
			return err
		}
		rendered = cli.RenderRuns(runs)
	}

	_, err := fmt.Fprintln(out, rendered)
	return err
}
