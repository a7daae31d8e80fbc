package normalize

import (
	"strconv"
	"strings"
)

var magnitudes = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
}

// CleanAmount strips the currency suffix from a raw amount string and keeps
// any magnitude suffix: "2.9K ADA" -> "2.9K", "1,250 ADA" -> "1250".
// Missing amounts become "0", never empty.
func CleanAmount(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0"
	}

	// The numeric part is the leading field; a trailing ticker is dropped.
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ",", "")

	if _, err := ParseAmount(s); err != nil {
		return "0"
	}
	return strings.ToUpper(s)
}

// ParseAmount parses a decimal amount with an optional K/M/B magnitude
// multiplier into a number: "2.9K" -> 2900, "95.7K" -> 95700.
func ParseAmount(s string) (float64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, strconv.ErrSyntax
	}

	mult := 1.0
	if m, ok := magnitudes[s[len(s)-1]]; ok {
		mult = m
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	return v * mult, nil
}

// cleanPrice strips a currency suffix from a price string, leaving a plain
// decimal: "0.000423 ADA" -> "0.000423". A missing or unparseable price stays
// empty; the frontend renders the explicit placeholder for it.
func cleanPrice(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ",", "")
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return ""
	}
	return s
}
