// Package storage defines the persistence interfaces for the aggregate
// snapshot, the trade archive, and the analytics sink, with implementations
// in the memory, redis, postgres and clickhouse subpackages.
package storage

import (
	"context"

	"dexy/internal/domain"
)

// Logical keys for the aggregate snapshot. The KV backend holds exactly
// these three values, each a JSON document.
const (
	KeyTrades = "dexy:trades"
	KeyTokens = "dexy:tokens"
	KeyStats  = "dexy:stats"
)

// KV is the minimal key-value contract the aggregate store persists through.
type KV interface {
	// Get returns the value for key. Returns ErrNotFound if the key has
	// never been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the value for key. Last write wins.
	Set(ctx context.Context, key string, value []byte) error
}

// TradeArchive keeps the full append-only trade history, unbounded by the
// aggregate store's retention cap.
type TradeArchive interface {
	// InsertBulk appends records, silently skipping ids already archived.
	InsertBulk(ctx context.Context, trades []domain.TradeRecord) error

	// GetRecent returns up to limit archived records, newest first.
	GetRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error)
}

// TradeAnalytics receives per-trade volume rows for time-windowed queries.
type TradeAnalytics interface {
	// RecordTrades appends volume rows for the given records.
	RecordTrades(ctx context.Context, trades []domain.TradeRecord) error

	// Volume24h returns the summed trade volume for a token over the last
	// 24 hours, in input-amount units.
	Volume24h(ctx context.Context, symbol string) (float64, error)
}
