// Package aggregate holds the current best-known set of trades, token
// summaries and stats behind a pluggable KV backend. It is constructed once
// per process; the write path is serialized so concurrent adapters can never
// interleave partial merges.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"dexy/internal/domain"
	"dexy/internal/observability"
	"dexy/internal/storage"
)

// MaxTrades is the retention cap: the store keeps only this many records,
// newest first by timestamp.
const MaxTrades = 150

// Store is the aggregate store. Reads degrade to the last in-memory snapshot
// when the backend is unreachable; writes surface backend errors to the
// caller while still updating the snapshot with the merged set.
type Store struct {
	kv     storage.KV
	logger *log.Logger

	// writeMu serializes the read-merge-write cycle of UpsertTrades and the
	// plain setters. Snapshot reads take only snapMu.
	writeMu sync.Mutex

	snapMu sync.RWMutex
	trades []domain.TradeRecord
	tokens []domain.TokenSummary
	stats  domain.Stats
}

// New creates a Store over the given KV backend.
func New(kv storage.KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// UpsertTrades merges newRecords with the existing set: dedup by id (first
// occurrence wins, new records ahead of existing ones), sort descending by
// timestamp, truncate to MaxTrades, persist, return the resulting set.
//
// The merged set always lands in the snapshot. A persistence failure is
// returned to the caller so confirmed data is never dropped silently.
func (s *Store) UpsertTrades(ctx context.Context, newRecords []domain.TradeRecord) ([]domain.TradeRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing := s.loadTrades(ctx)

	combined := make([]domain.TradeRecord, 0, len(newRecords)+len(existing))
	combined = append(combined, newRecords...)
	combined = append(combined, existing...)

	seen := make(map[string]struct{}, len(combined))
	merged := combined[:0]
	for _, t := range combined {
		if t.ID == "" {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].TimestampMs > merged[j].TimestampMs
	})
	if len(merged) > MaxTrades {
		merged = merged[:MaxTrades]
	}

	s.snapMu.Lock()
	s.trades = append([]domain.TradeRecord(nil), merged...)
	s.snapMu.Unlock()

	if err := s.setJSON(ctx, storage.KeyTrades, merged); err != nil {
		observability.DefaultMetrics.StoreWriteErrors.Inc()
		return copyTrades(merged), fmt.Errorf("persist trades: %w", err)
	}

	return copyTrades(merged), nil
}

// GetTrades returns the current retained set, newest first. A backend
// failure degrades to the last in-memory snapshot; callers treat an empty
// result as "unknown", not "zero".
func (s *Store) GetTrades(ctx context.Context) []domain.TradeRecord {
	var trades []domain.TradeRecord
	if err := s.getJSON(ctx, storage.KeyTrades, &trades); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			observability.DefaultMetrics.StoreReadErrors.Inc()
			s.logger.Printf("trades read degraded to snapshot: %v", err)
		}
		s.snapMu.RLock()
		defer s.snapMu.RUnlock()
		return copyTrades(s.trades)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].TimestampMs > trades[j].TimestampMs
	})

	s.snapMu.Lock()
	s.trades = append([]domain.TradeRecord(nil), trades...)
	s.snapMu.Unlock()

	return trades
}

// GetTokens returns the current token summaries. Degrades like GetTrades.
func (s *Store) GetTokens(ctx context.Context) []domain.TokenSummary {
	var tokens []domain.TokenSummary
	if err := s.getJSON(ctx, storage.KeyTokens, &tokens); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			observability.DefaultMetrics.StoreReadErrors.Inc()
			s.logger.Printf("tokens read degraded to snapshot: %v", err)
		}
		s.snapMu.RLock()
		defer s.snapMu.RUnlock()
		return append([]domain.TokenSummary(nil), s.tokens...)
	}

	s.snapMu.Lock()
	s.tokens = append([]domain.TokenSummary(nil), tokens...)
	s.snapMu.Unlock()

	return tokens
}

// SetTokens replaces the token summaries. Last write wins.
func (s *Store) SetTokens(ctx context.Context, tokens []domain.TokenSummary) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.snapMu.Lock()
	s.tokens = append([]domain.TokenSummary(nil), tokens...)
	s.snapMu.Unlock()

	if err := s.setJSON(ctx, storage.KeyTokens, tokens); err != nil {
		observability.DefaultMetrics.StoreWriteErrors.Inc()
		return fmt.Errorf("persist tokens: %w", err)
	}
	return nil
}

// GetStats returns the current stats summary. Degrades like GetTrades.
func (s *Store) GetStats(ctx context.Context) domain.Stats {
	var stats domain.Stats
	if err := s.getJSON(ctx, storage.KeyStats, &stats); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			observability.DefaultMetrics.StoreReadErrors.Inc()
			s.logger.Printf("stats read degraded to snapshot: %v", err)
		}
		s.snapMu.RLock()
		defer s.snapMu.RUnlock()
		return s.stats
	}

	s.snapMu.Lock()
	s.stats = stats
	s.snapMu.Unlock()

	return stats
}

// SetStats replaces the stats summary. Last write wins.
func (s *Store) SetStats(ctx context.Context, stats domain.Stats) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.snapMu.Lock()
	s.stats = stats
	s.snapMu.Unlock()

	if err := s.setJSON(ctx, storage.KeyStats, stats); err != nil {
		observability.DefaultMetrics.StoreWriteErrors.Inc()
		return fmt.Errorf("persist stats: %w", err)
	}
	return nil
}

// loadTrades returns the best-known existing set for a merge: the persisted
// value when readable, otherwise the snapshot.
func (s *Store) loadTrades(ctx context.Context) []domain.TradeRecord {
	var trades []domain.TradeRecord
	if err := s.getJSON(ctx, storage.KeyTrades, &trades); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			observability.DefaultMetrics.StoreReadErrors.Inc()
			s.logger.Printf("trades load degraded to snapshot: %v", err)
		}
		s.snapMu.RLock()
		defer s.snapMu.RUnlock()
		return copyTrades(s.trades)
	}
	return trades
}

func (s *Store) getJSON(ctx context.Context, key string, out any) error {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, data)
}

func copyTrades(in []domain.TradeRecord) []domain.TradeRecord {
	return append([]domain.TradeRecord(nil), in...)
}
