package ynab

import (
	"fmt"
	"time"

	"github.com/Veraticus/settle/internal/common"
)

const (
	// DefaultBaseURL is the YNAB v1 API root.
	DefaultBaseURL = "https://api.ynab.com/v1"
	// DefaultRequestsPerHour matches the per-token limit YNAB enforces.
	DefaultRequestsPerHour = 200
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second
)

// Config holds what the YNAB client needs to reach one budget.
type Config struct {
	Token           string
	BudgetID        string
	BaseURL         string
	RequestsPerHour int
	Timeout         time.Duration
	// LookbackDays limits ListTransactions to recent transactions; zero lists all.
	LookbackDays int
}

// Validate checks that the config names a token and a budget.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: YNAB API token is required", common.ErrMissingConfig)
	}
	if c.BudgetID == "" {
		return fmt.Errorf("%w: YNAB budget ID is required", common.ErrMissingConfig)
	}
	if c.RequestsPerHour < 0 {
		return fmt.Errorf("%w: requests per hour must not be negative", common.ErrInvalidConfig)
	}
	if c.LookbackDays < 0 {
		return fmt.Errorf("%w: lookback days must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.RequestsPerHour == 0 {
		out.RequestsPerHour = DefaultRequestsPerHour
	}
	if out.Timeout == 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}
