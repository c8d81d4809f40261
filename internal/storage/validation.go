package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/settle/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrInvalidRun    = errors.New("invalid run")
	ErrInvalidLimit  = errors.New("limit cannot be negative")
	ErrRunNotFound   = errors.New("run not found")
	ErrDuplicateRun  = errors.New("run already recorded")
	ErrInvalidRecord = errors.New("invalid mutation record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks a run before it is journaled.
func validateRun(run *model.RunRecord) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	if !run.FinishedAt.IsZero() && run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("%w: finished before it started", ErrInvalidRun)
	}

	for i, m := range run.Mutations {
		if err := validateMutation(run.ID, &m); err != nil {
			return fmt.Errorf("mutation at index %d: %w", i, err)
		}
	}
	return nil
}

func validateMutation(runID string, m *model.MutationRecord) error {
	if m.RunID != "" && m.RunID != runID {
		return fmt.Errorf("%w: belongs to run %s", ErrInvalidRecord, m.RunID)
	}
	switch m.Kind {
	case model.MutationFlagStale, model.MutationDeleteStale, model.MutationDeletePosted:
		if m.TransactionID == "" {
			return fmt.Errorf("%w: %s without transaction ID", ErrInvalidRecord, m.Kind)
		}
	case model.MutationCreate:
		if m.ImportID == "" {
			return fmt.Errorf("%w: create without import ID", ErrInvalidRecord)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, m.Kind)
	}
	return nil
}
