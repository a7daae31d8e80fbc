package main

import (
	"strings"
	"testing"
	"time"

	"dexy/internal/domain"
	"dexy/internal/poll"
)

func TestPrintSnapshot_Ready(t *testing.T) {
	snap := poll.Snapshot{
		State:       poll.StateReady,
		LastUpdated: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Payload: &poll.Payload{
			Trades: []domain.TradeRecord{
				{ID: "1", Type: domain.SideBuy, TokenIn: "ADA", TokenOut: "SNEK", AmountIn: "2.9K", AmountOut: "3.3M", Venue: "Minswap"},
				{ID: "2", Type: domain.SideSell, TokenIn: "MIN", TokenOut: "ADA", AmountIn: "500", AmountOut: "15", Venue: "SundaeSwap"},
			},
			Stats:       domain.Stats{TotalVolume: 3400, ActiveMakers: 2},
			TradesCount: 2,
			TokensCount: 3,
		},
	}

	var b strings.Builder
	printSnapshot(&b, snap, 5)
	out := b.String()

	if !strings.Contains(out, "trades=2 tokens=3") {
		t.Errorf("Missing header counts in output:\n%s", out)
	}
	if !strings.Contains(out, "ADA > SNEK") {
		t.Errorf("Missing pair in output:\n%s", out)
	}
	// Venue column comes from the record's venue field
	if !strings.Contains(out, "Minswap") || !strings.Contains(out, "SundaeSwap") {
		t.Errorf("Missing venue in output:\n%s", out)
	}
}

func TestPrintSnapshot_TradeLimit(t *testing.T) {
	snap := poll.Snapshot{
		State: poll.StateReady,
		Payload: &poll.Payload{
			Trades: []domain.TradeRecord{
				{ID: "1", TokenIn: "ADA", TokenOut: "SNEK", Venue: "Minswap"},
				{ID: "2", TokenIn: "ADA", TokenOut: "MIN", Venue: "Minswap"},
				{ID: "3", TokenIn: "ADA", TokenOut: "HOSKY", Venue: "Minswap"},
			},
			TradesCount: 3,
		},
	}

	var b strings.Builder
	printSnapshot(&b, snap, 1)

	if strings.Count(b.String(), "Minswap") != 1 {
		t.Errorf("Expected a single trade line, got:\n%s", b.String())
	}
}

func TestPrintSnapshot_ErrorKeepsStaleMarker(t *testing.T) {
	snap := poll.Snapshot{
		State:       poll.StateError,
		LastUpdated: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Failures:    2,
		LastError:   "status 503",
		Payload:     &poll.Payload{TradesCount: 1},
	}

	var b strings.Builder
	printSnapshot(&b, snap, 5)
	out := b.String()

	if !strings.Contains(out, "poll error #2: status 503") {
		t.Errorf("Missing error line in output:\n%s", out)
	}
	if !strings.Contains(out, "showing data from") {
		t.Errorf("Expected stale-data marker when a payload is retained:\n%s", out)
	}
}
