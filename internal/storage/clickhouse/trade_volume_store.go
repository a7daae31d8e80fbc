package clickhouse

import (
	"context"
	"fmt"
	"time"

	"dexy/internal/domain"
	"dexy/internal/normalize"
	"dexy/internal/storage"
)

// TradeVolumeStore implements storage.TradeAnalytics using ClickHouse.
// Each trade becomes one volume row per side of the pair; 24h token volumes
// are summed from these rows when token summaries are recomputed.
type TradeVolumeStore struct {
	conn *Conn
}

// NewTradeVolumeStore creates a new TradeVolumeStore.
func NewTradeVolumeStore(conn *Conn) *TradeVolumeStore {
	return &TradeVolumeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeAnalytics = (*TradeVolumeStore)(nil)

// RecordTrades appends volume rows for the given records. Rows with
// unparseable amounts contribute nothing for that side.
func (s *TradeVolumeStore) RecordTrades(ctx context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_volume (trade_id, timestamp_ms, symbol, venue, side, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		for _, leg := range []struct {
			symbol string
			amount string
		}{
			{t.TokenIn, t.AmountIn},
			{t.TokenOut, t.AmountOut},
		} {
			v, err := normalize.ParseAmount(leg.amount)
			if err != nil || v <= 0 {
				continue
			}
			if err := batch.Append(t.ID, uint64(t.TimestampMs), leg.symbol, t.Venue, string(t.Type), v); err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Volume24h returns the summed volume for a token over the last 24 hours.
func (s *TradeVolumeStore) Volume24h(ctx context.Context, symbol string) (float64, error) {
	since := time.Now().Add(-24 * time.Hour).UnixMilli()

	query := `
		SELECT sum(volume)
		FROM trade_volume
		WHERE symbol = ? AND timestamp_ms >= ?
	`

	var total float64
	if err := s.conn.QueryRow(ctx, query, symbol, uint64(since)).Scan(&total); err != nil {
		return 0, fmt.Errorf("query 24h volume for %s: %w", symbol, err)
	}

	return total, nil
}
