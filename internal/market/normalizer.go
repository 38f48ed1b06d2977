// Package market implements quote acquisition: the symbol normalizer, the
// provider REST clients, and the adapter that routes each symbol to exactly
// one upstream and maps its response into the canonical domain.Quote shape.
package market

import "strings"

// Normalizer maps a logical ticker to the provider-specific identifier
// required upstream. The mapping table is static configuration (regional
// suffixing, e.g. "INFY" -> "INFY.NS"); unmapped symbols pass through
// unchanged. Pure lookup, no I/O.
type Normalizer struct {
	table map[string]string
}

// DefaultSymbolTable routes the NSE-listed tickers the tracker ships with to
// their Yahoo Finance identifiers.
func DefaultSymbolTable() map[string]string {
	return map[string]string{
		"INFY":     "INFY.NS",
		"TCS":      "TCS.NS",
		"RELIANCE": "RELIANCE.NS",
	}
}

// NewNormalizer creates a Normalizer from the given mapping table. Keys are
// canonicalized to uppercase.
func NewNormalizer(table map[string]string) *Normalizer {
	t := make(map[string]string, len(table))
	for k, v := range table {
		t[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return &Normalizer{table: t}
}

// Normalize returns the provider symbol for the given ticker. The input is
// trimmed and uppercased before lookup.
func (n *Normalizer) Normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if mapped, ok := n.table[s]; ok {
		return mapped
	}
	return s
}

// Canonical returns the provider-independent form of a ticker: trimmed and
// uppercased, with no regional suffix applied.
func Canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
