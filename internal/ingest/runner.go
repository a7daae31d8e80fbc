// Package ingest drives refresh passes: fetch every adapter, normalize,
// merge into the aggregate store, recompute token summaries and stats.
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"dexy/internal/aggregate"
	"dexy/internal/domain"
	"dexy/internal/normalize"
	"dexy/internal/observability"
	"dexy/internal/source"
	"dexy/internal/storage"
)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Sources       []source.Source
	Store         *aggregate.Store
	Archive       storage.TradeArchive   // optional full-history sink
	Analytics     storage.TradeAnalytics // optional 24h volume source/sink
	Interval      time.Duration          // scheduled refresh interval, default 30s
	SourceTimeout time.Duration          // per-adapter fetch budget, default 15s
	Logger        *log.Logger
}

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	RunID        string            `json:"runId"`
	Fetched      int               `json:"fetched"`
	Dropped      int               `json:"dropped"`
	Stored       int               `json:"stored"`
	Retained     int               `json:"retained"`
	SourceErrors map[string]string `json:"sourceErrors,omitempty"`
	Duration     time.Duration     `json:"-"`
}

// Runner executes refresh passes on a schedule and on demand. Passes are
// serialized: a manual trigger overlapping a scheduled tick waits its turn
// instead of interleaving writes.
type Runner struct {
	opts   RunnerOptions
	logger *log.Logger

	refreshMu sync.Mutex // serializes passes
	stateMu   sync.Mutex
	running   bool
	lastRun   time.Time
	runs      int
}

// NewRunner creates a refresh runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[ingest] ", log.LstdFlags)
	}
	return &Runner{opts: opts, logger: logger}
}

// Run executes an immediate pass and then refreshes on the configured
// interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.tryRefresh(ctx)

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tryRefresh(ctx)
		}
	}
}

// tryRefresh runs a scheduled pass unless one is already in flight.
func (r *Runner) tryRefresh(ctx context.Context) {
	r.stateMu.Lock()
	if r.running {
		r.stateMu.Unlock()
		r.logger.Println("refresh already running, skipping scheduled pass")
		return
	}
	r.stateMu.Unlock()

	if _, err := r.Refresh(ctx); err != nil {
		r.logger.Printf("scheduled refresh failed: %v", err)
	}
}

// Refresh executes one full pass. It blocks until any in-flight pass
// completes, then runs its own; the aggregate store therefore only ever sees
// whole batches.
func (r *Runner) Refresh(ctx context.Context) (*RefreshResult, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	r.setRunning(true)
	defer r.setRunning(false)

	start := time.Now()
	result := &RefreshResult{
		RunID:        uuid.NewString(),
		SourceErrors: make(map[string]string),
	}

	var records []domain.TradeRecord
	succeeded := 0
	for _, src := range r.opts.Sources {
		rows, err := r.fetchOne(ctx, src)
		observability.RecordFetch(src.Name(), len(rows), err)
		if err != nil {
			r.logger.Printf("run %s: source %s unavailable: %v", result.RunID, src.Name(), err)
			result.SourceErrors[src.Name()] = err.Error()
			continue
		}
		succeeded++
		result.Fetched += len(rows)

		recs, dropped := normalize.Batch(rows, time.Now())
		observability.RecordDropped(src.Name(), dropped)
		result.Dropped += dropped
		records = append(records, recs...)
	}

	if succeeded == 0 {
		observability.RecordRefresh("error", time.Since(start).Seconds(), 0)
		return result, fmt.Errorf("refresh %s: all sources failed: %w", result.RunID, source.ErrSourceUnavailable)
	}

	result.Stored = len(records)
	retained, err := r.opts.Store.UpsertTrades(ctx, records)
	if err != nil {
		// Snapshot holds the merged set; the persistence failure stays loud.
		observability.RecordRefresh("error", time.Since(start).Seconds(), len(retained))
		return result, fmt.Errorf("refresh %s: %w", result.RunID, err)
	}
	result.Retained = len(retained)

	r.archiveBestEffort(ctx, result.RunID, records)

	tokens := r.computeTokens(ctx, retained)
	if err := r.opts.Store.SetTokens(ctx, tokens); err != nil {
		r.logger.Printf("run %s: persist tokens: %v", result.RunID, err)
	}
	stats := aggregate.ComputeStats(retained, tokens)
	if err := r.opts.Store.SetStats(ctx, stats); err != nil {
		r.logger.Printf("run %s: persist stats: %v", result.RunID, err)
	}

	result.Duration = time.Since(start)
	observability.RecordRefresh("success", result.Duration.Seconds(), result.Retained)
	observability.DefaultMetrics.RecordsStored.Add(float64(result.Stored))
	observability.DefaultMetrics.LastSuccessfulRefresh.SetToCurrentTime()

	r.logger.Printf("run %s: fetched=%d dropped=%d stored=%d retained=%d in %v",
		result.RunID, result.Fetched, result.Dropped, result.Stored, result.Retained, result.Duration)

	return result, nil
}

// Status reports scheduler state for the /health payload.
func (r *Runner) Status() (running bool, lastRun time.Time, runs int) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.running, r.lastRun, r.runs
}

func (r *Runner) setRunning(v bool) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	r.running = v
	if !v {
		r.lastRun = time.Now()
		r.runs++
	}
}

// fetchOne runs a single adapter under the per-source budget. A timed-out
// fetch is dropped whole; nothing partial reaches the store.
func (r *Runner) fetchOne(ctx context.Context, src source.Source) ([]domain.RawTrade, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.opts.SourceTimeout)
	defer cancel()
	return src.Fetch(fetchCtx)
}

// archiveBestEffort appends the batch to the archive and analytics sinks.
// Sink failures are logged, not fatal: the retained set is already merged
// and served.
func (r *Runner) archiveBestEffort(ctx context.Context, runID string, records []domain.TradeRecord) {
	if len(records) == 0 {
		return
	}
	if r.opts.Archive != nil {
		if err := r.opts.Archive.InsertBulk(ctx, records); err != nil {
			r.logger.Printf("run %s: archive write: %v", runID, err)
		}
	}
	if r.opts.Analytics != nil {
		if err := r.opts.Analytics.RecordTrades(ctx, records); err != nil {
			r.logger.Printf("run %s: analytics write: %v", runID, err)
		}
	}
}
