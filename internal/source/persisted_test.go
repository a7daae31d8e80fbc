package source

import (
	"context"
	"errors"
	"testing"

	"dexy/internal/domain"
)

type fakeArchive struct {
	trades []domain.TradeRecord
	err    error
}

func (f *fakeArchive) InsertBulk(_ context.Context, trades []domain.TradeRecord) error {
	f.trades = append(f.trades, trades...)
	return nil
}

func (f *fakeArchive) GetRecent(_ context.Context, limit int) ([]domain.TradeRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.trades) {
		limit = len(f.trades)
	}
	return f.trades[:limit], nil
}

func TestPersisted_Fetch(t *testing.T) {
	archive := &fakeArchive{trades: []domain.TradeRecord{
		{ID: "a1", TimestampMs: 2000, Type: domain.SideBuy, TokenIn: "ADA", TokenOut: "SNEK", AmountIn: "100", AmountOut: "112K", Venue: "Minswap", MakerRef: "addr1"},
	}}

	src := NewPersisted(archive, 10)

	rows, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.ID != "a1" || row.TimestampMs != 2000 {
		t.Errorf("Unexpected identity: %+v", row)
	}
	if row.Pair != "ADA > SNEK" {
		t.Errorf("Expected pair preserved, got %q", row.Pair)
	}
	if row.Source != domain.SourceDatabase {
		t.Errorf("Expected database provenance, got %q", row.Source)
	}
}

func TestPersisted_ArchiveDownIsUnavailable(t *testing.T) {
	src := NewPersisted(&fakeArchive{err: errors.New("connection refused")}, 10)

	if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
}
