package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/config"
	"github.com/Veraticus/settle/internal/csvfeed"
	"github.com/Veraticus/settle/internal/ofx"
	"github.com/Veraticus/settle/internal/plaid"
	"github.com/Veraticus/settle/internal/reconcile"
	"github.com/Veraticus/settle/internal/service"
	"github.com/Veraticus/settle/internal/simplefin"
	"github.com/Veraticus/settle/internal/storage"
	"github.com/Veraticus/settle/internal/ynab"
	"github.com/spf13/viper"
)

// Feed source names accepted by --source.
const (
	sourceCSV       = "csv"
	sourceOFX       = "ofx"
	sourceSimpleFIN = "simplefin"
	sourcePlaid     = "plaid"
)

var sourceNames = []string{sourceCSV, sourceOFX, sourceSimpleFIN, sourcePlaid}

// initLedger builds the YNAB client from configuration.
func initLedger(ctx context.Context) (*ynab.Client, error) {
	cfg, err := config.LoadYNABConfig()
	if err != nil {
		return nil, common.NewUserError("YNAB is not configured: set ynab.token and ynab.budget_id, or YNAB_API_KEY and BUDGET_ID", err)
	}
	return ynab.NewClient(ctx, *cfg)
}

// initSource builds the named feed source.
func initSource(ctx context.Context, name string) (service.FeedSource, error) {
	switch name {
	case sourceCSV:
		cfg, err := config.LoadCSVConfig()
		if err != nil {
			return nil, err
		}
		return csvfeed.New(*cfg)
	case sourceOFX:
		cfg, err := config.LoadOFXConfig()
		if err != nil {
			return nil, err
		}
		return ofx.NewFeed(cfg.Files, cfg.AccountNames)
	case sourceSimpleFIN:
		return simplefin.NewClient(ctx, *config.LoadSimpleFINConfig())
	case sourcePlaid:
		cfg, err := config.LoadPlaidConfig()
		if err != nil {
			return nil, err
		}
		client, err := plaid.NewClient(*cfg)
		if err != nil {
			return nil, err
		}
		return plaid.NewFeed(client, cfg.LookbackDays), nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q (want one of %v)", common.ErrInvalidConfig, name, sourceNames)
	}
}

// initJournal opens and migrates the run journal.
func initJournal(ctx context.Context) (*storage.SQLiteStorage, error) {
	path, err := config.JournalPath()
	if err != nil {
		return nil, err
	}

	journal, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := journal.Migrate(ctx); err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return journal, nil
}

// initEngine builds the reconciliation engine from configuration.
func initEngine() (*reconcile.Engine, error) {
	cfg, err := config.LoadReconcileConfig()
	if err != nil {
		return nil, err
	}
	return reconcile.New(*cfg, nil)
}

// sourceName resolves --source against the configured default.
func sourceName(flag string) string {
	if flag != "" {
		return flag
	}
	return viper.GetString("feed.source")
}

// friendly turns fatal run errors into messages that say what to fix.
func friendly(err error) error {
	var inputErr *common.InputError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &inputErr):
		return common.NewUserError(fmt.Sprintf("The feed for %q has a record settle cannot read (%s %q); nothing was changed", inputErr.Account, inputErr.Field, inputErr.Value), err)
	case errors.Is(err, common.ErrEmptyFeed):
		return common.NewUserError("The feed returned no accounts; nothing was changed", err)
	case ynab.IsAuthError(err):
		return common.NewUserError("YNAB rejected the API token", err)
	default:
		return err
	}
}
