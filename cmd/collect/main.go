// Package main runs a single refresh pass: fetch the configured adapters,
// normalize, merge into the KV store, and print the result. Useful for cron
// jobs and for checking adapter health without running the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"dexy/internal/aggregate"
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
	_ = godotenv.Load()

	redisURL := flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis connection URL (empty for in-memory KV)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for the trade archive (optional)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for volume analytics (optional)")
	scrapeURL := flag.String("scrape-url", os.Getenv("DEXY_SCRAPE_URL"), "DEX trade page URL for the extraction adapter")
	scrapeVenue := flag.String("scrape-venue", "Minswap", "Venue label for scraped trades")
	upstreamURL := flag.String("upstream-url", os.Getenv("DEXY_UPSTREAM_URL"), "Upstream aggregator JSON endpoint (optional)")
	sourceTimeout := flag.Duration("source-timeout", 15*time.Second, "Per-adapter fetch timeout")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall pass deadline")

	flag.Parse()

	logger := log.New(os.Stdout, "[collect] ", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var kv storage.KV
	if *redisURL == "" {
		kv = memory.NewKV()
	} else {
		rkv, err := redisstore.NewKV(ctx, *redisURL)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rkv.Close()
		kv = rkv
	}

	var archive storage.TradeArchive
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
	}

	var analytics storage.TradeAnalytics
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
	}

	var sources []source.Source
	if *scrapeURL != "" {
		sources = append(sources, source.NewWebExtraction(source.ExtractionConfig{
			URL:     *scrapeURL,
			Venue:   *scrapeVenue,
			Timeout: *sourceTimeout,
		}))
	}
	if *upstreamURL != "" {
		sources = append(sources, source.NewUpstreamAPI(*upstreamURL, *sourceTimeout))
	}
	if len(sources) == 0 {
		logger.Fatal("No sources configured. Set --scrape-url or --upstream-url")
	}

	store := aggregate.New(kv, logger)
	runner := ingest.NewRunner(ingest.RunnerOptions{
		Sources:       sources,
		Store:         store,
		Archive:       archive,
		Analytics:     analytics,
		SourceTimeout: *sourceTimeout,
		Logger:        logger,
	})

	result, err := runner.Refresh(ctx)
	if err != nil {
		logger.Fatalf("Refresh failed: %v", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	os.Stdout.Write(append(out, '\n'))
}
