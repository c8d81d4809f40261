// Package reconcile turns a fetched bank feed and the current ledger into an
// ordered plan of ledger mutations, and applies it.
//
// The pipeline runs once per invocation, strictly in order:
//
//	normalize -> eliminate voids -> match -> classify -> plan
//
// Nothing here talks to the network except Apply and Run, which go through
// the service.Ledger and service.FeedSource interfaces.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
)

// Config holds every tunable of the reconciliation engine.
type Config struct {
	PostedTag              string
	PendingTag             string
	Currency               string
	StaleMemo              string
	PostedFlag             model.FlagColor
	PendingFlag            model.FlagColor
	StaleFlag              model.FlagColor
	WalletPrefixes         []string
	ProtectedPayeePrefixes []string
	AmountScale            int64
	DateWindowDays         int
	// PayeeSimilarity is the floor for payees where one name starts with
	// the other, such as "Starbucks #123" and "Starbucks".
	PayeeSimilarity float64
	// PayeeDistinctSimilarity is the floor for every other pair. 0 applies
	// PayeeSimilarity to all pairs.
	PayeeDistinctSimilarity float64
}

// DefaultConfig returns the engine defaults. Amounts are in cents.
func DefaultConfig() Config {
	return Config{
		PostedTag:   "YNAB",
		PendingTag:  "YNAB-pending",
		Currency:    money.USD,
		StaleMemo:   "Stale! Please review and remove",
		PostedFlag:  model.FlagGreen,
		PendingFlag: model.FlagYellow,
		StaleFlag:   model.FlagRed,
		WalletPrefixes: []string{
			"Aplpay ",
			"Tst* ",
		},
		ProtectedPayeePrefixes: []string{
			"Transfer : ",
			"Starting Balance",
			"Manual Balance Adjustment",
			"Reconciliation Balance Adjustment",
		},
		AmountScale:             100,
		DateWindowDays:          3,
		PayeeSimilarity:         0.25,
		PayeeDistinctSimilarity: 0.7,
	}
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.AmountScale <= 0 {
		return fmt.Errorf("%w: amount scale must be positive", common.ErrInvalidConfig)
	}
	if c.DateWindowDays < 0 {
		return fmt.Errorf("%w: date window cannot be negative", common.ErrInvalidConfig)
	}
	if c.PayeeSimilarity < 0 || c.PayeeSimilarity > 1 {
		return fmt.Errorf("%w: payee similarity must be between 0 and 1", common.ErrInvalidConfig)
	}
	if c.PayeeDistinctSimilarity < 0 || c.PayeeDistinctSimilarity > 1 {
		return fmt.Errorf("%w: distinct payee similarity must be between 0 and 1", common.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.PostedTag) == "" || strings.TrimSpace(c.PendingTag) == "" {
		return fmt.Errorf("%w: import tags cannot be empty", common.ErrInvalidConfig)
	}
	if c.PostedTag == c.PendingTag {
		return fmt.Errorf("%w: posted and pending tags must differ", common.ErrInvalidConfig)
	}
	if money.GetCurrency(c.Currency) == nil {
		return fmt.Errorf("%w: unknown currency %q", common.ErrInvalidConfig, c.Currency)
	}
	if c.StaleFlag != model.FlagNone && !c.StaleFlag.IsPalette() {
		return fmt.Errorf("%w: stale flag %q is not a ledger color", common.ErrInvalidConfig, c.StaleFlag)
	}
	return nil
}
