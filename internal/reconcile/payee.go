package reconcile

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Jaro-Winkler tuning: boost scores above 0.7 for a shared prefix of up to
// four characters.
const (
	winklerBoostThreshold = 0.7
	winklerPrefixSize     = 4
)

// PayeeMatcher decides whether a feed payee and a ledger payee name the same
// merchant. Names where one starts with the other need threshold; any other
// pair needs the higher of threshold and distinctThreshold.
type PayeeMatcher struct {
	walletPrefixes    []string
	threshold         float64
	distinctThreshold float64
}

// NewPayeeMatcher creates a matcher that strips the given wallet prefixes from
// ledger payees before comparing.
func NewPayeeMatcher(walletPrefixes []string, threshold, distinctThreshold float64) PayeeMatcher {
	return PayeeMatcher{
		walletPrefixes:    walletPrefixes,
		threshold:         threshold,
		distinctThreshold: distinctThreshold,
	}
}

// Similarity returns the case-insensitive Jaro-Winkler similarity in [0, 1].
func (m PayeeMatcher) Similarity(a, b string) float64 {
	return smetrics.JaroWinkler(strings.ToLower(a), strings.ToLower(b), winklerBoostThreshold, winklerPrefixSize)
}

// Match compares a candidate payee with an existing transaction's payee.
func (m PayeeMatcher) Match(candidatePayee, existingPayee string) bool {
	if candidatePayee == "" || existingPayee == "" {
		return false
	}

	c := strings.TrimSpace(candidatePayee)
	e := m.StripWalletPrefixes(existingPayee)

	if c == e {
		return true
	}
	if c == "" || e == "" {
		return false
	}
	return m.Similarity(c, e) >= m.floor(c, e)
}

func (m PayeeMatcher) floor(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
		return m.threshold
	}
	return max(m.threshold, m.distinctThreshold)
}

// StripWalletPrefixes removes mobile wallet markers such as "Aplpay ".
func (m PayeeMatcher) StripWalletPrefixes(payee string) string {
	for _, prefix := range m.walletPrefixes {
		payee = strings.TrimPrefix(payee, prefix)
	}
	return payee
}
