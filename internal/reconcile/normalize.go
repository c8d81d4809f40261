package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer converts raw feed records into candidate transactions.
// It is not safe for concurrent use.
type Normalizer struct {
	title cases.Caser
	cfg   Config
}

// NewNormalizer creates a normalizer for the given configuration.
func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{
		cfg:   cfg,
		title: cases.Title(language.Und),
	}
}

type occurrenceKey struct {
	payee  string
	date   string
	amount int64
}

// NormalizePosted converts the settled records of one account.
func (n *Normalizer) NormalizePosted(account model.Account, records []model.RawPosted) ([]model.CandidateTransaction, error) {
	out := make([]model.CandidateTransaction, 0, len(records))
	seen := make(map[occurrenceKey]int)

	for _, r := range records {
		amount, err := ParseAmount(r.Amount, n.cfg.AmountScale)
		if err != nil {
			return nil, &common.InputError{Account: account.Name, Field: "amount", Value: r.Amount, Err: err}
		}
		date, err := ParsePostedDate(r.Date)
		if err != nil {
			return nil, &common.InputError{Account: account.Name, Field: "date", Value: r.Date, Err: err}
		}

		out = append(out, n.candidate(account.ID, amount, date, r.Description, model.Cleared, seen))
	}

	return out, nil
}

// NormalizePending converts the authorized, unsettled records of one account.
func (n *Normalizer) NormalizePending(account model.Account, records []model.RawPending) ([]model.CandidateTransaction, error) {
	out := make([]model.CandidateTransaction, 0, len(records))
	seen := make(map[occurrenceKey]int)

	for _, r := range records {
		amount, err := ParseAmount(r.Amount, n.cfg.AmountScale)
		if err != nil {
			return nil, &common.InputError{Account: account.Name, Field: "amount", Value: r.Amount, Err: err}
		}
		date, err := ParsePendingDate(r.ChargeDate)
		if err != nil {
			return nil, &common.InputError{Account: account.Name, Field: "charge date", Value: r.ChargeDate, Err: err}
		}

		out = append(out, n.candidate(account.ID, amount, date, r.Description, model.Uncleared, seen))
	}

	return out, nil
}

func (n *Normalizer) candidate(accountID string, amount int64, date time.Time, description string, cleared model.Clearance, seen map[occurrenceKey]int) model.CandidateTransaction {
	payee := n.CleanPayee(description)

	tag, flag := n.cfg.PostedTag, n.cfg.PostedFlag
	if cleared == model.Uncleared {
		tag, flag = n.cfg.PendingTag, n.cfg.PendingFlag
	}

	dateStr := date.Format(model.DateLayout)
	key := occurrenceKey{payee: payee, amount: amount, date: dateStr}
	seen[key]++

	return model.CandidateTransaction{
		AccountID: accountID,
		Amount:    amount,
		Date:      date,
		PayeeName: payee,
		Cleared:   cleared,
		Flag:      flag,
		ImportID:  fmt.Sprintf("%s:%d:%s:%d", tag, amount, dateStr, seen[key]),
	}
}

// CleanPayee titlecases a feed description and drops the merchant metadata
// some issuers append after a double space.
func (n *Normalizer) CleanPayee(description string) string {
	name := n.title.String(strings.TrimSpace(description))
	if i := strings.Index(name, "  "); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// ParseAmount converts a feed amount to signed ledger minor units.
// Feeds report spending as positive, the ledger as negative. Either '.' or ','
// may be the fractional separator; when both appear the right-most one is.
func ParseAmount(raw string, scale int64) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", common.ErrInvalidAmount)
	}
	if strings.ContainsAny(s, "eE") {
		return 0, fmt.Errorf("%w: exponent notation in %q", common.ErrInvalidAmount, raw)
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot > comma:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidAmount, err)
	}

	minor := d.Mul(decimal.NewFromInt(scale)).Truncate(0).IntPart()
	return -minor, nil
}

// ParsePostedDate parses the DD/MM/YYYY form of posted records.
func ParsePostedDate(raw string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: expected DD/MM/YYYY", common.ErrInvalidDate)
	}

	var nums [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidDate, err)
		}
		nums[i] = v
	}
	day, month, year := nums[0], nums[1], nums[2]

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month || date.Year() != year {
		return time.Time{}, fmt.Errorf("%w: %02d/%02d/%d does not exist", common.ErrInvalidDate, day, month, year)
	}

	return date, nil
}

// ParsePendingDate parses the YYYY-MM-DD charge date of pending records.
func ParsePendingDate(raw string) (time.Time, error) {
	date, err := time.Parse(model.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidDate, err)
	}
	return date, nil
}
