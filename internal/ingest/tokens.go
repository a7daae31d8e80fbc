package ingest

import (
	"context"
	"strconv"
	"time"

	"dexy/internal/domain"
	"dexy/internal/normalize"
	"dexy/internal/tokentable"
)

// computeTokens derives token summaries from the retained trade set.
// trades are newest first. Prices come from observed trades where possible
// and fall back to the static table's reference price; 24h volumes come from
// the analytics backend when configured, otherwise from the retained window.
func (r *Runner) computeTokens(ctx context.Context, trades []domain.TradeRecord) []domain.TokenSummary {
	seen := make(map[string]bool)
	for _, t := range trades {
		seen[t.TokenIn] = true
		seen[t.TokenOut] = true
	}

	cutoff := time.Now().Add(-24 * time.Hour).UnixMilli()

	var tokens []domain.TokenSummary
	for _, meta := range tokentable.All() {
		if !seen[meta.Symbol] && meta.Symbol != "ADA" {
			continue
		}

		summary := domain.TokenSummary{
			Symbol: meta.Symbol,
			Name:   meta.Name,
			Icon:   meta.Icon,
			Price:  meta.ReferencePrice,
		}

		latest, oldest := observedPrices(trades, meta.Symbol)
		if latest > 0 {
			summary.Price = latest
		}
		if latest > 0 && oldest > 0 && oldest != latest {
			summary.Change24h = (latest - oldest) / oldest * 100
		}

		summary.Volume24h = r.volume24h(ctx, trades, meta.Symbol, cutoff)

		tokens = append(tokens, summary)
	}

	return tokens
}

// observedPrices returns the newest and oldest parseable trade price for a
// symbol in the retained set, or zeros when the symbol was never priced.
// Prices are quoted per unit of tokenOut, so only that leg counts.
func observedPrices(trades []domain.TradeRecord, symbol string) (latest, oldest float64) {
	for _, t := range trades {
		if t.TokenOut != symbol || t.Price == "" {
			continue
		}
		p, err := strconv.ParseFloat(t.Price, 64)
		if err != nil || p <= 0 {
			continue
		}
		if latest == 0 {
			latest = p
		}
		oldest = p
	}
	return latest, oldest
}

// volume24h prefers the analytics backend; without one it sums the retained
// window, which undercounts once the cap evicts older trades but never
// invents volume.
func (r *Runner) volume24h(ctx context.Context, trades []domain.TradeRecord, symbol string, cutoff int64) float64 {
	if r.opts.Analytics != nil {
		if v, err := r.opts.Analytics.Volume24h(ctx, symbol); err == nil {
			return v
		} else {
			r.logger.Printf("analytics volume for %s: %v", symbol, err)
		}
	}

	var total float64
	for _, t := range trades {
		if t.TimestampMs < cutoff {
			continue
		}
		var amount string
		switch symbol {
		case t.TokenIn:
			amount = t.AmountIn
		case t.TokenOut:
			amount = t.AmountOut
		default:
			continue
		}
		if v, err := normalize.ParseAmount(amount); err == nil {
			total += v
		}
	}
	return total
}
