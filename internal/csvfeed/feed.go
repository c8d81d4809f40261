// Package csvfeed reads issuer CSV exports from a directory. Each
// "<Account Name>.csv" holds the posted records of one account and an
// optional "<Account Name>.pending.json" holds its pending authorizations.
package csvfeed

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/service"
)

const (
	postedExt  = ".csv"
	pendingExt = ".pending.json"
)

// ErrMissingColumn is returned when a CSV header lacks a configured column.
var ErrMissingColumn = errors.New("missing CSV column")

// Config describes where the exports live and how their columns are named.
type Config struct {
	Dir               string
	DateColumn        string
	AmountColumn      string
	DescriptionColumn string
	Delimiter         rune
}

// DefaultConfig matches the German American Express export.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:               dir,
		DateColumn:        "Datum",
		AmountColumn:      "Betrag",
		DescriptionColumn: "Beschreibung",
		Delimiter:         ',',
	}
}

// Validate checks that the config can be used to read a directory.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: CSV feed directory is required", common.ErrMissingConfig)
	}
	if c.DateColumn == "" || c.AmountColumn == "" || c.DescriptionColumn == "" {
		return fmt.Errorf("%w: CSV column names are required", common.ErrMissingConfig)
	}
	return nil
}

// Feed is a service.FeedSource backed by a directory of exports.
type Feed struct {
	logger *slog.Logger
	cfg    Config
}

// Ensure Feed implements service.FeedSource.
var _ service.FeedSource = (*Feed)(nil)

// New creates a feed over the configured directory.
func New(cfg Config) (*Feed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &Feed{
		cfg:    cfg,
		logger: slog.Default().With("component", "csvfeed"),
	}, nil
}

type pendingRecord struct {
	Amount      json.Number `json:"amount"`
	ChargeDate  string      `json:"charge_date"`
	Description string      `json:"description"`
}

// FetchAccounts reads every export in the directory, sorted by account name.
func (f *Feed) FetchAccounts(ctx context.Context) ([]model.FeedAccount, error) {
	entries, err := os.ReadDir(f.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed directory: %w", err)
	}

	names := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := accountName(entry.Name()); ok {
			names[name] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	accounts := make([]model.FeedAccount, 0, len(sorted))
	for _, name := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		account, err := f.readAccount(name)
		if err != nil {
			return nil, err
		}
		f.logger.Debug("Read feed account", "account", name, "posted", len(account.Posted), "pending", len(account.Pending))
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func accountName(file string) (string, bool) {
	switch {
	case strings.HasSuffix(file, pendingExt):
		return strings.TrimSuffix(file, pendingExt), true
	case strings.HasSuffix(file, postedExt):
		return strings.TrimSuffix(file, postedExt), true
	default:
		return "", false
	}
}

func (f *Feed) readAccount(name string) (model.FeedAccount, error) {
	account := model.FeedAccount{Name: name}

	posted, err := f.readPosted(filepath.Join(f.cfg.Dir, name+postedExt))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return account, fmt.Errorf("account %q: %w", name, err)
	}
	account.Posted = posted

	pending, err := readPending(filepath.Join(f.cfg.Dir, name+pendingExt))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return account, fmt.Errorf("account %q: %w", name, err)
	}
	account.Pending = pending

	return account, nil
}

func (f *Feed) readPosted(path string) ([]model.RawPosted, error) {
	file, err := os.Open(path) // #nosec G304 -- path is built from the configured feed directory
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			f.logger.Debug("Failed to close export", "path", path, "error", closeErr)
		}
	}()

	return ParsePosted(file, f.cfg)
}

// ParsePosted reads posted records from a CSV export with a header row.
func ParsePosted(r io.Reader, cfg Config) ([]model.RawPosted, error) {
	reader := csv.NewReader(r)
	if cfg.Delimiter != 0 {
		reader.Comma = cfg.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	dateIdx, ok := cols[cfg.DateColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cfg.DateColumn)
	}
	amountIdx, ok := cols[cfg.AmountColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cfg.AmountColumn)
	}
	descIdx, ok := cols[cfg.DescriptionColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cfg.DescriptionColumn)
	}
	width := max(dateIdx, amountIdx, descIdx) + 1

	var records []model.RawPosted
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if isBlank(row) {
			continue
		}
		if len(row) < width {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("CSV line %d has %d fields, need %d", line, len(row), width)
		}

		records = append(records, model.RawPosted{
			Date:        strings.TrimSpace(row[dateIdx]),
			Amount:      strings.TrimSpace(row[amountIdx]),
			Description: row[descIdx],
		})
	}

	return records, nil
}

func readPending(path string) ([]model.RawPending, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from the configured feed directory
	if err != nil {
		return nil, err
	}
	return ParsePending(data)
}

// ParsePending decodes a JSON array of pending authorizations.
func ParsePending(data []byte) ([]model.RawPending, error) {
	var raw []pendingRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode pending records: %w", err)
	}

	records := make([]model.RawPending, 0, len(raw))
	for _, r := range raw {
		records = append(records, model.RawPending{
			Amount:      r.Amount.String(),
			ChargeDate:  r.ChargeDate,
			Description: r.Description,
		})
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
