// Package tokentable holds the static ticker -> display metadata mapping.
// Pure lookup data used for pair extraction and token summaries.
package tokentable

import (
	"sort"
	"strings"
)

// Meta is display metadata for one known token.
type Meta struct {
	Symbol         string
	Name           string
	Icon           string
	ReferencePrice float64 // ADA-denominated reference, used when no trades inform a price
}

// Known Cardano-ecosystem tokens the upstream feed trades in.
var tokens = []Meta{
	{Symbol: "ADA", Name: "Cardano", Icon: "🔷", ReferencePrice: 1},
	{Symbol: "SNEK", Name: "Snek", Icon: "🐍", ReferencePrice: 0.000892},
	{Symbol: "MIN", Name: "Minswap", Icon: "⚡", ReferencePrice: 0.030487},
	{Symbol: "HUNT", Name: "DexHunter", Icon: "🦌", ReferencePrice: 0.0215},
	{Symbol: "SUPERIOR", Name: "Superior", Icon: "👑", ReferencePrice: 0.000423},
	{Symbol: "WRT", Name: "WingRiders", Icon: "🪂", ReferencePrice: 0.15},
	{Symbol: "MILK", Name: "MuesliSwap", Icon: "🥛", ReferencePrice: 0.0045},
	{Symbol: "HOSKY", Name: "Hosky Token", Icon: "🐶", ReferencePrice: 0.000012},
	{Symbol: "SUNDAE", Name: "SundaeSwap", Icon: "🍨", ReferencePrice: 0.0095},
	{Symbol: "DJED", Name: "Djed", Icon: "💵", ReferencePrice: 2.2},
	{Symbol: "IAG", Name: "Iagon", Icon: "🗄️", ReferencePrice: 0.12},
	{Symbol: "WMT", Name: "World Mobile", Icon: "📱", ReferencePrice: 0.35},
	{Symbol: "AGIX", Name: "SingularityNET", Icon: "🤖", ReferencePrice: 0.9},
	{Symbol: "INDY", Name: "Indigo", Icon: "🫐", ReferencePrice: 1.4},
	{Symbol: "LENFI", Name: "Lenfi", Icon: "🏦", ReferencePrice: 4.8},
}

var bySymbol = func() map[string]Meta {
	m := make(map[string]Meta, len(tokens))
	for _, t := range tokens {
		m[t.Symbol] = t
	}
	return m
}()

// Lookup returns metadata for a ticker symbol. Matching is case-insensitive.
func Lookup(symbol string) (Meta, bool) {
	m, ok := bySymbol[strings.ToUpper(symbol)]
	return m, ok
}

// Symbols returns all known tickers, longest first so that scanning free text
// matches SUPERIOR before matching a shorter ticker embedded in it.
func Symbols() []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Symbol)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i]) > len(out[j])
	})
	return out
}

// All returns the full table in declaration order.
func All() []Meta {
	out := make([]Meta, len(tokens))
	copy(out, tokens)
	return out
}
