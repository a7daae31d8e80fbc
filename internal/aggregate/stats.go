package aggregate

import (
	"dexy/internal/domain"
	"dexy/internal/normalize"
)

// ComputeStats derives the headline summary from the current retained set.
// Amount parsing is best-effort: unparseable entries contribute nothing.
func ComputeStats(trades []domain.TradeRecord, tokens []domain.TokenSummary) domain.Stats {
	stats := domain.Stats{TotalTrades: len(trades)}

	makers := make(map[string]struct{})
	for _, t := range trades {
		if v, err := normalize.ParseAmount(t.AmountIn); err == nil {
			stats.TotalVolume += v
		}
		if t.MakerRef != "" {
			makers[t.MakerRef] = struct{}{}
		}
	}
	stats.ActiveMakers = len(makers)

	for _, tok := range tokens {
		stats.TotalLiquidity += tok.Volume24h
	}

	return stats
}
