package source

import (
	"context"
	"fmt"

	"dexy/internal/domain"
	"dexy/internal/storage"
)

// Persisted re-seeds the pipeline from the trade archive, e.g. after a
// restart with an empty KV backend.
type Persisted struct {
	archive storage.TradeArchive
	limit   int
}

// NewPersisted creates a Persisted adapter reading up to limit archived
// records per fetch.
func NewPersisted(archive storage.TradeArchive, limit int) *Persisted {
	if limit <= 0 {
		limit = 150
	}
	return &Persisted{archive: archive, limit: limit}
}

// Name implements Source.
func (p *Persisted) Name() string { return "persisted" }

// Fetch implements Source. Archived records pass back through the normalizer
// like any other origin; their stored fields survive the round trip
// unchanged because ids and timestamps are already absolute.
func (p *Persisted) Fetch(ctx context.Context) ([]domain.RawTrade, error) {
	trades, err := p.archive.GetRecent(ctx, p.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: read archive: %v", ErrSourceUnavailable, err)
	}

	rows := make([]domain.RawTrade, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, domain.RawTrade{
			ID:          t.ID,
			TimestampMs: t.TimestampMs,
			Type:        string(t.Type),
			Pair:        t.Pair(),
			AmountIn:    t.AmountIn,
			AmountOut:   t.AmountOut,
			Price:       t.Price,
			Status:      string(t.Status),
			Venue:       t.Venue,
			Maker:       t.MakerRef,
			Source:      domain.SourceDatabase,
		})
	}

	return rows, nil
}

var _ Source = (*Persisted)(nil)
