// Package main tails a running aggregator from the terminal using the same
// polling loop the frontend runs: poll /data every interval, keep the last
// good payload through transient failures, print each transition.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dexy/internal/poll"
)

func main() {
	baseURL := flag.String("base-url", envOr("DEXY_BASE_URL", "http://localhost:8080"), "Aggregator base URL")
	interval := flag.Duration("interval", 5*time.Second, "Poll interval")
	showTrades := flag.Int("trades", 5, "Number of recent trades to print per update")

	flag.Parse()

	logger := log.New(os.Stderr, "[watch] ", log.LstdFlags)

	cfg := poll.DefaultConfig(*baseURL)
	cfg.Interval = *interval

	client := poll.New(cfg, logger, func(snap poll.Snapshot) {
		printSnapshot(os.Stdout, snap, *showTrades)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	client.Start(ctx)
	logger.Printf("Watching %s every %v", *baseURL, *interval)

	<-sigCh
	logger.Println("Stopping...")
	client.Stop()
}

// printSnapshot renders one state transition. Loading transitions are
// silent; Ready prints the freshest trades, Error reports staleness.
func printSnapshot(w io.Writer, snap poll.Snapshot, trades int) {
	switch snap.State {
	case poll.StateReady:
		p := snap.Payload
		fmt.Fprintf(w, "%s  trades=%d tokens=%d volume=%.0f makers=%d\n",
			snap.LastUpdated.Format("15:04:05"),
			p.TradesCount, p.TokensCount, p.Stats.TotalVolume, p.Stats.ActiveMakers)
		for i, t := range p.Trades {
			if i >= trades {
				break
			}
			fmt.Fprintf(w, "  %-4s %-16s in=%-10s out=%-10s %s\n",
				t.Type, t.Pair(), t.AmountIn, t.AmountOut, t.Venue)
		}
	case poll.StateError:
		stale := ""
		if snap.Payload != nil {
			stale = fmt.Sprintf(" (showing data from %s)", snap.LastUpdated.Format("15:04:05"))
		}
		fmt.Fprintf(w, "poll error #%d: %s%s\n", snap.Failures, snap.LastError, stale)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
