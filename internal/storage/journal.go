package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/settle/internal/model"
	"github.com/google/uuid"
)

// DefaultListLimit bounds ListRuns when no limit is given.
const DefaultListLimit = 20

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// RecordRun stores a finished run and its mutations in one transaction.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run model.RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(&run); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var finishedAt any
	if !run.FinishedAt.IsZero() {
		finishedAt = run.FinishedAt.UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, source, started_at, finished_at, dry_run,
			voided, still_pending, changed_pending, posted,
			stale_flagged, stale_deleted, created, duplicates, failures
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Source, run.StartedAt.UTC(), finishedAt, run.DryRun,
		run.Voided, run.StillPending, run.ChangedPending, run.Posted,
		run.StaleFlagged, run.StaleDeleted, run.Created, run.Duplicates, run.Failures,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateRun, run.ID)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(run.Mutations) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO mutations (
				run_id, kind, transaction_id, import_id, payee_name, amount, date, error
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, m := range run.Mutations {
			if _, err := stmt.ExecContext(ctx,
				run.ID, string(m.Kind), m.TransactionID, m.ImportID,
				m.PayeeName, m.Amount, m.Date.UTC(), m.Error,
			); err != nil {
				return fmt.Errorf("failed to insert mutation: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Debug("Recorded run", "run_id", run.ID, "mutations", len(run.Mutations))
	return nil
}

// ListRuns returns the most recent runs first, without their mutations.
// A zero limit uses DefaultListLimit.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit == 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetRun returns one run with its mutations.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	run.Mutations, err = s.mutations(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunMutations returns a run's mutations in the order they were applied.
func (s *SQLiteStorage) GetRunMutations(ctx context.Context, runID string) ([]model.MutationRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM runs WHERE id = ?)`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return s.mutations(ctx, runID)
}

// FindMutationsByImportID returns every journaled mutation touching importID,
// newest first.
func (s *SQLiteStorage) FindMutationsByImportID(ctx context.Context, importID string) ([]model.MutationRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(importID, "importID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mutationColumns+`
		FROM mutations
		WHERE import_id = ?
		ORDER BY id DESC
	`, importID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMutations(rows)
}

func (s *SQLiteStorage) mutations(ctx context.Context, runID string) ([]model.MutationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mutationColumns+`
		FROM mutations
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMutations(rows)
}

const runColumns = `id, source, started_at, finished_at, dry_run,
	voided, still_pending, changed_pending, posted,
	stale_flagged, stale_deleted, created, duplicates, failures`

const mutationColumns = `run_id, kind, transaction_id, import_id, payee_name, amount, date, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.RunRecord, error) {
	var run model.RunRecord
	var finishedAt sql.NullTime
	err := row.Scan(
		&run.ID, &run.Source, &run.StartedAt, &finishedAt, &run.DryRun,
		&run.Voided, &run.StillPending, &run.ChangedPending, &run.Posted,
		&run.StaleFlagged, &run.StaleDeleted, &run.Created, &run.Duplicates, &run.Failures,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return run, nil
}

func scanMutations(rows *sql.Rows) ([]model.MutationRecord, error) {
	var records []model.MutationRecord
	for rows.Next() {
		var m model.MutationRecord
		var kind string
		if err := rows.Scan(
			&m.RunID, &kind, &m.TransactionID, &m.ImportID,
			&m.PayeeName, &m.Amount, &m.Date, &m.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}
		m.Kind = model.MutationKind(kind)
		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mutations: %w", err)
	}
	return records, nil
}
