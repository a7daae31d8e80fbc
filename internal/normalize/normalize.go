// Package normalize converts heterogeneous raw trade rows into canonical
// TradeRecords. Normalization is pure: a row either yields a valid record or
// is rejected with ErrSkipRecord. Field values are never invented for rows
// that lack them.
package normalize

import (
	"errors"
	"strings"
	"time"

	"dexy/internal/domain"
	"dexy/internal/idhash"
	"dexy/internal/tokentable"
)

// ErrSkipRecord signals that a raw row is missing a mandatory field and must
// be dropped. Sibling rows in the same batch continue processing.
var ErrSkipRecord = errors.New("skip record: mandatory field missing")

// Normalize converts one raw row into a TradeRecord.
// Mandatory inputs: a recognizable side indicator and a token pair. A missing
// or unparseable time indicator defaults to now; everything else is optional.
func Normalize(raw domain.RawTrade, now time.Time) (*domain.TradeRecord, error) {
	side, ok := parseSide(raw.Type)
	if !ok {
		return nil, ErrSkipRecord
	}

	tokenIn, tokenOut, ok := extractPair(raw.Pair)
	if !ok {
		tokenIn, tokenOut, ok = extractPair(raw.Text)
	}
	if !ok || tokenIn == tokenOut {
		return nil, ErrSkipRecord
	}

	ts := raw.TimestampMs
	if ts <= 0 {
		ts = ParseRelativeTime(raw.Time, now)
	}

	amountIn := CleanAmount(raw.AmountIn)
	amountOut := CleanAmount(raw.AmountOut)

	id := raw.ID
	if id == "" {
		id = idhash.ComputeTradeID(raw.Venue, tokenIn, tokenOut, ts, amountIn)
	}

	rec := &domain.TradeRecord{
		ID:          id,
		TimestampMs: ts,
		Type:        side,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		Price:       cleanPrice(raw.Price),
		Status:      parseStatus(raw.Status),
		Venue:       strings.TrimSpace(raw.Venue),
		MakerRef:    strings.TrimSpace(raw.Maker),
		Source:      raw.Source,
	}
	return rec, nil
}

// Batch normalizes a slice of raw rows, dropping the ones that reject.
// Returns the normalized records and the number of dropped rows.
func Batch(raws []domain.RawTrade, now time.Time) ([]domain.TradeRecord, int) {
	records := make([]domain.TradeRecord, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		rec, err := Normalize(raw, now)
		if err != nil {
			dropped++
			continue
		}
		records = append(records, *rec)
	}
	return records, dropped
}

func parseSide(s string) (domain.Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return domain.SideBuy, true
	case "sell":
		return domain.SideSell, true
	}
	return "", false
}

func parseStatus(s string) domain.Status {
	if strings.EqualFold(strings.TrimSpace(s), "pending") {
		return domain.StatusPending
	}
	// Venues only ever surface settled or pending rows.
	return domain.StatusSuccess
}

// pairSeparators in probing order. Whitespace is the last resort because
// extraction sources produce whitespace-delimited layout columns.
var pairSeparators = []string{">", "→", "/"}

// extractPair locates an ordered token pair inside s.
// Known tickers from the token table win; if fewer than two are present the
// text is split on a separator and both sides must look like tickers.
func extractPair(s string) (string, string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", "", false
	}
	upper := strings.ToUpper(s)

	// First pass: scan for known tickers in order of appearance.
	type hit struct {
		symbol string
		pos    int
	}
	var hits []hit
	for _, sym := range tokentable.Symbols() {
		pos := indexToken(upper, sym)
		if pos < 0 {
			continue
		}
		dup := false
		for _, h := range hits {
			if h.symbol == sym {
				dup = true
				break
			}
		}
		if !dup {
			hits = append(hits, hit{symbol: sym, pos: pos})
		}
	}
	if len(hits) >= 2 {
		first, second := hits[0], hits[1]
		if second.pos < first.pos {
			first, second = second, first
		}
		for _, h := range hits[2:] {
			if h.pos < first.pos {
				second = first
				first = h
			} else if h.pos < second.pos {
				second = h
			}
		}
		return first.symbol, second.symbol, true
	}

	// Fallback: separator split.
	for _, sep := range pairSeparators {
		parts := strings.SplitN(s, sep, 2)
		if len(parts) != 2 {
			continue
		}
		in := tickerLike(parts[0])
		out := tickerLike(parts[1])
		if in != "" && out != "" {
			return in, out, true
		}
	}

	// Whitespace columns: exactly two ticker-shaped fields.
	fields := strings.Fields(upper)
	var syms []string
	for _, f := range fields {
		if t := tickerLike(f); t != "" {
			syms = append(syms, t)
		}
	}
	if len(syms) == 2 {
		return syms[0], syms[1], true
	}

	return "", "", false
}

// indexToken finds sym in s at a token boundary (not embedded in a longer
// alphabetic run), returning its position or -1.
func indexToken(s, sym string) int {
	from := 0
	for {
		i := strings.Index(s[from:], sym)
		if i < 0 {
			return -1
		}
		pos := from + i
		beforeOK := pos == 0 || !isLetter(s[pos-1])
		after := pos + len(sym)
		afterOK := after >= len(s) || !isLetter(s[after])
		if beforeOK && afterOK {
			return pos
		}
		from = pos + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// tickerLike trims s and returns it uppercased when it is shaped like a
// ticker symbol (2-10 letters), or "" otherwise.
func tickerLike(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || len(s) > 10 {
		return ""
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return ""
		}
	}
	return s
}
