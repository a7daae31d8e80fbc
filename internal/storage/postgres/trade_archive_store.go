package postgres

import (
	"context"
	"fmt"

	"dexy/internal/domain"
	"dexy/internal/storage"
)

// TradeArchiveStore implements storage.TradeArchive using PostgreSQL.
// The archive keeps every observed trade, unbounded by the aggregate store's
// retention cap.
type TradeArchiveStore struct {
	pool *Pool
}

// NewTradeArchiveStore creates a new TradeArchiveStore.
func NewTradeArchiveStore(pool *Pool) *TradeArchiveStore {
	return &TradeArchiveStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeArchive = (*TradeArchiveStore)(nil)

// InsertBulk appends records in one transaction. Already-archived ids are
// skipped rather than failing the batch: re-observing a trade is normal when
// adapters overlap.
func (s *TradeArchiveStore) InsertBulk(ctx context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trade_archive (
			id, timestamp_ms, side, token_in, token_out,
			amount_in, amount_out, price, status, venue, maker_ref, source
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (id) DO NOTHING
	`

	for _, t := range trades {
		_, err := tx.Exec(ctx, query,
			t.ID, t.TimestampMs, string(t.Type), t.TokenIn, t.TokenOut,
			t.AmountIn, t.AmountOut, t.Price, string(t.Status), t.Venue, t.MakerRef, t.Source,
		)
		if err != nil {
			return fmt.Errorf("insert trade archive row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetRecent returns up to limit archived records, newest first.
func (s *TradeArchiveStore) GetRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	query := `
		SELECT
			id, timestamp_ms, side, token_in, token_out,
			amount_in, amount_out, price, status, venue, maker_ref, source
		FROM trade_archive
		ORDER BY timestamp_ms DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query trade archive: %w", err)
	}
	defer rows.Close()

	var result []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var side, status string
		err := rows.Scan(
			&t.ID, &t.TimestampMs, &side, &t.TokenIn, &t.TokenOut,
			&t.AmountIn, &t.AmountOut, &t.Price, &status, &t.Venue, &t.MakerRef, &t.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade archive row: %w", err)
		}
		t.Type = domain.Side(side)
		t.Status = domain.Status(status)
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade archive rows: %w", err)
	}

	return result, nil
}

// GetByID retrieves one archived trade. Returns ErrNotFound if not archived.
func (s *TradeArchiveStore) GetByID(ctx context.Context, id string) (*domain.TradeRecord, error) {
	query := `
		SELECT
			id, timestamp_ms, side, token_in, token_out,
			amount_in, amount_out, price, status, venue, maker_ref, source
		FROM trade_archive
		WHERE id = $1
	`

	var t domain.TradeRecord
	var side, status string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.TimestampMs, &side, &t.TokenIn, &t.TokenOut,
		&t.AmountIn, &t.AmountOut, &t.Price, &status, &t.Venue, &t.MakerRef, &t.Source,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade archive row: %w", err)
	}
	t.Type = domain.Side(side)
	t.Status = domain.Status(status)

	return &t, nil
}

// Count returns the total number of archived trades.
func (s *TradeArchiveStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trade_archive`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trade archive: %w", err)
	}
	return n, nil
}
