// Package main runs the full aggregator: scheduled ingestion from the
// configured adapters, the aggregate store on top of a KV backend, and the
// HTTP API the frontend polls.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dexy/internal/aggregate"
	"dexy/internal/api"
	"dexy/internal/ingest"
	"dexy/internal/source"
	"dexy/internal/storage"
	chstore "dexy/internal/storage/clickhouse"
	"dexy/internal/storage/memory"
	"dexy/internal/storage/migrations"
	pgstore "dexy/internal/storage/postgres"
	redisstore "dexy/internal/storage/redis"
)

func main() {
	// .env is optional; system env vars win.
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("DEXY_ADDR", ":8080"), "HTTP listen address")
	redisURL := flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis connection URL (empty for in-memory KV)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for the trade archive (optional)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for volume analytics (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory KV storage regardless of --redis-url")
	scrapeURL := flag.String("scrape-url", os.Getenv("DEXY_SCRAPE_URL"), "DEX trade page URL for the extraction adapter")
	scrapeVenue := flag.String("scrape-venue", envOr("DEXY_SCRAPE_VENUE", "Minswap"), "Venue label for scraped trades")
	upstreamURL := flag.String("upstream-url", os.Getenv("DEXY_UPSTREAM_URL"), "Upstream aggregator JSON endpoint (optional)")
	feedURL := flag.String("feed-url", os.Getenv("DEXY_FEED_URL"), "WebSocket live trade feed URL (optional)")
	refreshInterval := flag.Duration("refresh-interval", envDurationOr("DEXY_REFRESH_INTERVAL", 30*time.Second), "Scheduled refresh interval")
	sourceTimeout := flag.Duration("source-timeout", envDurationOr("DEXY_SOURCE_TIMEOUT", 15*time.Second), "Per-adapter fetch timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// KV backend for the retained set
	var kv storage.KV
	if *useMemory || *redisURL == "" {
		logger.Println("Using in-memory KV storage")
		kv = memory.NewKV()
	} else {
		rkv, err := redisstore.NewKV(ctx, *redisURL)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rkv.Close()
		kv = rkv
		logger.Println("Connected to redis")
	}

	// Optional archive and analytics backends
	var archive storage.TradeArchive
	var analytics storage.TradeAnalytics

	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Failed to run postgres migrations: %v", err)
		}
		archive = pgstore.NewTradeArchiveStore(pool)
		logger.Println("Trade archive enabled (postgres)")
	}

	if *clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to clickhouse: %v", err)
		}
		defer conn.Close()
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			logger.Fatalf("Failed to run clickhouse migrations: %v", err)
		}
		analytics = chstore.NewTradeVolumeStore(conn)
		logger.Println("Volume analytics enabled (clickhouse)")
	}

	sources, feed := buildSources(*scrapeURL, *scrapeVenue, *upstreamURL, *feedURL, *sourceTimeout, archive)
	if len(sources) == 0 {
		logger.Fatal("No sources configured. Set --scrape-url, --upstream-url or --feed-url")
	}
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	logger.Printf("Sources: %s", strings.Join(names, ", "))

	store := aggregate.New(kv, log.New(os.Stdout, "[aggregate] ", log.LstdFlags))

	runner := ingest.NewRunner(ingest.RunnerOptions{
		Sources:       sources,
		Store:         store,
		Archive:       archive,
		Analytics:     analytics,
		Interval:      *refreshInterval,
		SourceTimeout: *sourceTimeout,
		Logger:        log.New(os.Stdout, "[ingest] ", log.LstdFlags),
	})

	server := &http.Server{
		Addr:         *addr,
		Handler:      api.NewServer(store, runner, log.New(os.Stdout, "[api] ", log.LstdFlags)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan error, 1)

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown: %v", err)
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	if feed != nil {
		feed.Start(ctx)
		defer feed.Stop()
	}

	go func() {
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("Refresh runner stopped: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *addr)
	err := server.ListenAndServe()
	done <- err

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// buildSources assembles the adapter list from the configured endpoints. The
// live feed is returned separately because it has its own lifecycle.
func buildSources(scrapeURL, scrapeVenue, upstreamURL, feedURL string, timeout time.Duration, archive storage.TradeArchive) ([]source.Source, *source.LiveFeed) {
	var sources []source.Source
	var feed *source.LiveFeed

	if scrapeURL != "" {
		sources = append(sources, source.NewWebExtraction(source.ExtractionConfig{
			URL:     scrapeURL,
			Venue:   scrapeVenue,
			Timeout: timeout,
		}))
	}
	if upstreamURL != "" {
		sources = append(sources, source.NewUpstreamAPI(upstreamURL, timeout))
	}
	if feedURL != "" {
		feed = source.NewLiveFeed(feedURL, log.New(os.Stdout, "[livefeed] ", log.LstdFlags))
		sources = append(sources, feed)
	}
	if archive != nil {
		sources = append(sources, source.NewPersisted(archive, aggregate.MaxTrades))
	}

	return sources, feed
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s=%q, using %v\n", key, v, fallback)
		return fallback
	}
	return d
}
