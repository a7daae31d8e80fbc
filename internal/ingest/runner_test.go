package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"dexy/internal/aggregate"
	"dexy/internal/domain"
	"dexy/internal/source"
	"dexy/internal/source/stub"
	"dexy/internal/storage"
	"dexy/internal/storage/memory"
)

func newTestRunner(sources ...source.Source) (*Runner, *aggregate.Store) {
	store := aggregate.New(memory.NewKV(), nil)
	runner := NewRunner(RunnerOptions{
		Sources: sources,
		Store:   store,
	})
	return runner, store
}

func TestRefresh_HappyPath(t *testing.T) {
	src := stub.New("stub", []domain.RawTrade{
		{Type: "Buy", Pair: "ADA > SNEK", AmountIn: "2.9K ADA", AmountOut: "3.3M SNEK", Time: "5m", Venue: "Minswap", Maker: "addr1"},
		{Type: "Sell", Pair: "MIN/ADA", AmountIn: "500 MIN", AmountOut: "15 ADA", Time: "12m", Venue: "Minswap", Maker: "addr2"},
		{Type: "???", Pair: "ADA > SNEK"}, // rejected by the normalizer
	})
	runner, store := newTestRunner(src)
	ctx := context.Background()

	result, err := runner.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if result.Fetched != 3 {
		t.Errorf("Expected 3 fetched, got %d", result.Fetched)
	}
	if result.Dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", result.Dropped)
	}
	if result.Retained != 2 {
		t.Errorf("Expected 2 retained, got %d", result.Retained)
	}

	trades := store.GetTrades(ctx)
	if len(trades) != 2 {
		t.Fatalf("Expected 2 stored trades, got %d", len(trades))
	}
	// Newest first: the 5m-old buy before the 12m-old sell
	if trades[0].Type != domain.SideBuy || trades[1].Type != domain.SideSell {
		t.Errorf("Unexpected order: %+v", trades)
	}

	// Token summaries and stats follow the pass
	tokens := store.GetTokens(ctx)
	if len(tokens) == 0 {
		t.Fatal("Expected token summaries after refresh")
	}
	seen := make(map[string]bool)
	for _, tok := range tokens {
		seen[tok.Symbol] = true
	}
	for _, sym := range []string{"ADA", "SNEK", "MIN"} {
		if !seen[sym] {
			t.Errorf("Expected %s in token summaries", sym)
		}
	}

	stats := store.GetStats(ctx)
	if stats.TotalTrades != 2 || stats.ActiveMakers != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestRefresh_PartialSourceFailure(t *testing.T) {
	good := stub.New("good", []domain.RawTrade{
		{Type: "Buy", Pair: "ADA > SNEK", Time: "1m"},
	})
	bad := stub.NewFailing("bad", fmt.Errorf("%w: scrape blocked", source.ErrSourceUnavailable))
	runner, store := newTestRunner(good, bad)
	ctx := context.Background()

	result, err := runner.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh should survive one failing source: %v", err)
	}
	if result.Retained != 1 {
		t.Errorf("Expected 1 retained, got %d", result.Retained)
	}
	if _, ok := result.SourceErrors["bad"]; !ok {
		t.Errorf("Expected bad source recorded in errors, got %+v", result.SourceErrors)
	}
	if len(store.GetTrades(ctx)) != 1 {
		t.Error("Good source's trades should still land")
	}
}

func TestRefresh_AllSourcesFailed(t *testing.T) {
	bad1 := stub.NewFailing("bad1", errors.New("boom"))
	bad2 := stub.NewFailing("bad2", errors.New("boom"))
	runner, store := newTestRunner(bad1, bad2)
	ctx := context.Background()

	// Seed existing data, then fail a pass: the retained set must survive
	src := stub.New("seed", []domain.RawTrade{{Type: "Buy", Pair: "ADA > SNEK", Time: "1m"}})
	seedRunner := NewRunner(RunnerOptions{Sources: []source.Source{src}, Store: store})
	if _, err := seedRunner.Refresh(ctx); err != nil {
		t.Fatalf("Seed refresh failed: %v", err)
	}

	_, err := runner.Refresh(ctx)
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}

	if len(store.GetTrades(ctx)) != 1 {
		t.Error("Failed pass must not clear previously retained trades")
	}
}

func TestRefresh_MergesAcrossPasses(t *testing.T) {
	src := stub.New("stub", []domain.RawTrade{
		{ID: "1", Type: "Buy", Pair: "ADA > SNEK", TimestampMs: 4000},
		{ID: "3", Type: "Buy", Pair: "ADA > SNEK", TimestampMs: 2000},
	})
	runner, store := newTestRunner(src)
	ctx := context.Background()

	if _, err := runner.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	src.SetRows([]domain.RawTrade{
		{ID: "2", Type: "Sell", Pair: "MIN/ADA", TimestampMs: 3000},
		{ID: "3", Type: "Buy", Pair: "ADA > SNEK", TimestampMs: 2000}, // overlap
		{ID: "4", Type: "Sell", Pair: "MIN/ADA", TimestampMs: 1000},
	})
	if _, err := runner.Refresh(ctx); err != nil {
		t.Fatalf("Refresh (2) failed: %v", err)
	}

	trades := store.GetTrades(ctx)
	wantOrder := []string{"1", "2", "3", "4"}
	if len(trades) != len(wantOrder) {
		t.Fatalf("Expected %d trades, got %d", len(wantOrder), len(trades))
	}
	for i, id := range wantOrder {
		if trades[i].ID != id {
			t.Errorf("Position %d: expected id %s, got %s", i, id, trades[i].ID)
		}
	}
}

func TestStatus(t *testing.T) {
	src := stub.New("stub", []domain.RawTrade{{Type: "Buy", Pair: "ADA > SNEK", Time: "1m"}})
	runner, _ := newTestRunner(src)

	running, lastRun, runs := runner.Status()
	if running || runs != 0 || !lastRun.IsZero() {
		t.Errorf("Unexpected initial status: running=%v runs=%d", running, runs)
	}

	if _, err := runner.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	running, lastRun, runs = runner.Status()
	if running {
		t.Error("Runner should be idle after Refresh returns")
	}
	if runs != 1 || lastRun.IsZero() {
		t.Errorf("Expected 1 completed run, got runs=%d lastRun=%v", runs, lastRun)
	}
}

// recordingAnalytics captures analytics writes and serves canned volumes.
type recordingAnalytics struct {
	recorded []domain.TradeRecord
	volumes  map[string]float64
}

func (a *recordingAnalytics) RecordTrades(_ context.Context, trades []domain.TradeRecord) error {
	a.recorded = append(a.recorded, trades...)
	return nil
}

func (a *recordingAnalytics) Volume24h(_ context.Context, symbol string) (float64, error) {
	v, ok := a.volumes[symbol]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return v, nil
}

func TestRefresh_AnalyticsWiring(t *testing.T) {
	analytics := &recordingAnalytics{volumes: map[string]float64{"SNEK": 12345}}
	store := aggregate.New(memory.NewKV(), nil)
	src := stub.New("stub", []domain.RawTrade{
		{Type: "Buy", Pair: "ADA > SNEK", AmountIn: "100 ADA", Time: "1m"},
	})
	runner := NewRunner(RunnerOptions{
		Sources:   []source.Source{src},
		Store:     store,
		Analytics: analytics,
	})
	ctx := context.Background()

	if _, err := runner.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if len(analytics.recorded) != 1 {
		t.Errorf("Expected 1 analytics row batch, got %d", len(analytics.recorded))
	}

	for _, tok := range store.GetTokens(ctx) {
		if tok.Symbol == "SNEK" && tok.Volume24h != 12345 {
			t.Errorf("Expected SNEK volume from analytics backend, got %v", tok.Volume24h)
		}
	}
}
