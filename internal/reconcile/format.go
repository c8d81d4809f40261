package reconcile

import (
	"fmt"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/Veraticus/settle/internal/model"
)

// FormatAmount renders ledger minor units in the configured currency.
func (c *Config) FormatAmount(amount int64) string {
	m := money.New(0, c.Currency)
	fraction := m.Currency().Fraction

	units := amount * int64(math.Pow10(fraction)) / c.AmountScale
	return money.New(units, c.Currency).Display()
}

// DescribeCandidate is a one-line description for logs.
func (c *Config) DescribeCandidate(t *model.CandidateTransaction) string {
	return fmt.Sprintf("%s at %s on %s", c.FormatAmount(t.Amount), t.PayeeName, t.DateString())
}

// DescribeExisting is a one-line description for logs.
func (c *Config) DescribeExisting(t *model.ExistingTransaction) string {
	return fmt.Sprintf("%s: %s at %s on %s", t.AccountName, c.FormatAmount(t.Amount), t.PayeeName, t.DateString())
}
