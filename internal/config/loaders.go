package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/csvfeed"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/plaid"
	"github.com/Veraticus/settle/internal/reconcile"
	"github.com/Veraticus/settle/internal/simplefin"
	"github.com/Veraticus/settle/internal/ynab"
	"github.com/spf13/viper"
)

// LoadYNABConfig loads the ledger configuration. It follows this precedence:
// 1. Viper configuration (from config file or SETTLE_ env vars)
// 2. Direct environment variables (YNAB_API_KEY, BUDGET_ID)
// 3. Default values
func LoadYNABConfig() (*ynab.Config, error) {
	config := ynab.Config{
		Token:           viper.GetString("ynab.token"),
		BudgetID:        viper.GetString("ynab.budget_id"),
		BaseURL:         viper.GetString("ynab.base_url"),
		RequestsPerHour: viper.GetInt("ynab.requests_per_hour"),
		Timeout:         viper.GetDuration("ynab.timeout"),
		LookbackDays:    viper.GetInt("ynab.lookback_days"),
	}

	if config.Token == "" {
		config.Token = os.Getenv("YNAB_API_KEY")
	}
	if config.BudgetID == "" {
		config.BudgetID = os.Getenv("BUDGET_ID")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadReconcileConfig overlays configured values on the engine defaults.
func LoadReconcileConfig() (*reconcile.Config, error) {
	config := reconcile.DefaultConfig()

	if v := viper.GetString("reconcile.posted_tag"); v != "" {
		config.PostedTag = v
	}
	if v := viper.GetString("reconcile.pending_tag"); v != "" {
		config.PendingTag = v
	}
	if v := viper.GetString("reconcile.currency"); v != "" {
		config.Currency = v
	}
	if v := viper.GetString("reconcile.stale_memo"); v != "" {
		config.StaleMemo = v
	}
	if viper.IsSet("reconcile.posted_flag") {
		config.PostedFlag = model.FlagColor(viper.GetString("reconcile.posted_flag"))
	}
	if viper.IsSet("reconcile.pending_flag") {
		config.PendingFlag = model.FlagColor(viper.GetString("reconcile.pending_flag"))
	}
	if viper.IsSet("reconcile.stale_flag") {
		config.StaleFlag = model.FlagColor(viper.GetString("reconcile.stale_flag"))
	}
	if viper.IsSet("reconcile.wallet_prefixes") {
		config.WalletPrefixes = viper.GetStringSlice("reconcile.wallet_prefixes")
	}
	if viper.IsSet("reconcile.protected_payee_prefixes") {
		config.ProtectedPayeePrefixes = viper.GetStringSlice("reconcile.protected_payee_prefixes")
	}
	if v := viper.GetInt64("reconcile.amount_scale"); v != 0 {
		config.AmountScale = v
	}
	if viper.IsSet("reconcile.date_window_days") {
		config.DateWindowDays = viper.GetInt("reconcile.date_window_days")
	}
	if viper.IsSet("reconcile.payee_similarity") {
		config.PayeeSimilarity = viper.GetFloat64("reconcile.payee_similarity")
	}
	if viper.IsSet("reconcile.payee_distinct_similarity") {
		config.PayeeDistinctSimilarity = viper.GetFloat64("reconcile.payee_distinct_similarity")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadCSVConfig loads the CSV export directory settings.
func LoadCSVConfig() (*csvfeed.Config, error) {
	config := csvfeed.DefaultConfig(ExpandPath(viper.GetString("csv.dir")))

	if v := viper.GetString("csv.date_column"); v != "" {
		config.DateColumn = v
	}
	if v := viper.GetString("csv.amount_column"); v != "" {
		config.AmountColumn = v
	}
	if v := viper.GetString("csv.description_column"); v != "" {
		config.DescriptionColumn = v
	}
	if v := viper.GetString("csv.delimiter"); v != "" {
		r, size := utf8.DecodeRuneInString(v)
		if size != len(v) {
			return nil, fmt.Errorf("%w: csv delimiter must be a single character, got %q", common.ErrInvalidConfig, v)
		}
		config.Delimiter = r
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// OFXConfig lists the statements to read and how to name their accounts.
type OFXConfig struct {
	// AccountNames maps ACCTID to the ledger account name.
	AccountNames map[string]string
	Files        []string
}

// LoadOFXConfig resolves ofx.files, which may contain glob patterns.
func LoadOFXConfig() (*OFXConfig, error) {
	var files []string
	for _, pattern := range viper.GetStringSlice("ofx.files") {
		pattern = ExpandPath(pattern)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: bad OFX file pattern %q: %v", common.ErrInvalidConfig, pattern, err)
		}
		if matches == nil {
			// Not a glob, or nothing matched; the feed reports missing files.
			matches = []string{pattern}
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: ofx.files is required", common.ErrMissingConfig)
	}

	return &OFXConfig{
		Files:        files,
		AccountNames: viper.GetStringMapString("ofx.accounts"),
	}, nil
}

// LoadSimpleFINConfig loads SimpleFIN settings, falling back to SIMPLEFIN_TOKEN.
func LoadSimpleFINConfig() *simplefin.Config {
	config := simplefin.Config{
		Token:        viper.GetString("simplefin.token"),
		AccessURL:    viper.GetString("simplefin.access_url"),
		StatePath:    ExpandPath(viper.GetString("simplefin.state_path")),
		LookbackDays: viper.GetInt("simplefin.lookback_days"),
		Timeout:      viper.GetDuration("simplefin.timeout"),
	}

	if config.Token == "" {
		config.Token = os.Getenv("SIMPLEFIN_TOKEN")
	}
	if config.AccessURL == "" {
		config.AccessURL = os.Getenv("SIMPLEFIN_ACCESS_URL")
	}

	return &config
}

// LoadPlaidConfig loads Plaid credentials, falling back to PLAID_* variables.
func LoadPlaidConfig() (*plaid.Config, error) {
	config := plaid.Config{
		ClientID:     viper.GetString("plaid.client_id"),
		Secret:       viper.GetString("plaid.secret"),
		Environment:  viper.GetString("plaid.environment"),
		AccessToken:  viper.GetString("plaid.access_token"),
		LookbackDays: viper.GetInt("plaid.lookback_days"),
	}

	if config.ClientID == "" {
		config.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if config.Secret == "" {
		config.Secret = os.Getenv("PLAID_SECRET")
	}
	if config.AccessToken == "" {
		config.AccessToken = os.Getenv("PLAID_ACCESS_TOKEN")
	}
	if config.Environment == "" {
		config.Environment = os.Getenv("PLAID_ENV")
	}
	if config.Environment == "" {
		config.Environment = "sandbox"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// JournalPath returns the configured journal location, defaulting to
// settle/journal.db under XDG_DATA_HOME.
func JournalPath() (string, error) {
	if v := viper.GetString("journal.path"); v != "" {
		return ExpandPath(v), nil
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to find home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataDir, "settle", "journal.db"), nil
}
