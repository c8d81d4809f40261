package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Veraticus/settle/internal/cli"
	"github.com/Veraticus/settle/internal/service"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Show which feed accounts reconcile into which budget accounts",
		Long: `List the feed's accounts next to the budget's accounts.

Feed accounts are matched to budget accounts by exact name; unmatched feed
accounts are skipped by sync.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sourceFlag, _ := cmd.Flags().GetString("source")
			ctx := cmd.Context()

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

			return showAccounts(ctx, ledger, source, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("source", "", "Feed source: csv, ofx, simplefin or plaid (default from feed.source)")

	return cmd
}

func showAccounts(ctx context.Context, ledger service.Ledger, source service.FeedSource, out io.Writer) error {
	accounts, err := ledger.ListAccounts(ctx)
	if err != nil {
		return friendly(fmt.Errorf("failed to list budget accounts: %w", err))
	}
	feeds, err := source.FetchAccounts(ctx)
	if err != nil {
		return friendly(fmt.Errorf("failed to fetch feed: %w", err))
	}

	_, err = fmt.Fprintln(out, cli.RenderAccounts(cli.LinkAccounts(feeds, accounts)))
	return err
}
