// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Refresh pipeline metrics
	RawRowsFetched   *prometheus.CounterVec
	RecordsDropped   *prometheus.CounterVec
	RecordsStored    prometheus.Counter
	SourceErrors     *prometheus.CounterVec
	RefreshRunsTotal *prometheus.CounterVec
	RefreshDuration  prometheus.Histogram

	// Store metrics
	RetainedTrades   prometheus.Gauge
	StoreReadErrors  prometheus.Counter
	StoreWriteErrors prometheus.Counter

	// Poll client metrics
	PollFailures prometheus.Counter

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dexy"
	}

	return &Metrics{
		RawRowsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "raw_rows_fetched_total",
			Help:      "Total number of raw rows fetched by source",
		}, []string{"source"}),
		RecordsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_dropped_total",
			Help:      "Total number of raw rows rejected by the normalizer, by source",
		}, []string{"source"}),
		RecordsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_stored_total",
			Help:      "Total number of normalized records merged into the store",
		}),
		SourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "source_errors_total",
			Help:      "Total number of failed adapter fetches by source",
		}, []string{"source"}),
		RefreshRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "refresh_runs_total",
			Help:      "Total number of refresh passes by status",
		}, []string{"status"}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "refresh_duration_seconds",
			Help:      "Refresh pass duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		RetainedTrades: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "retained_trades",
			Help:      "Current number of trades in the retained set",
		}),
		StoreReadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "read_errors_total",
			Help:      "Total number of degraded reads from the KV backend",
		}),
		StoreWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "write_errors_total",
			Help:      "Total number of failed writes to the KV backend",
		}),

		PollFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "failures_total",
			Help:      "Total number of failed poll fetches",
		}),

		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of the last successful refresh pass",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetch records an adapter fetch outcome.
func RecordFetch(source string, rows int, err error) {
	if err != nil {
		DefaultMetrics.SourceErrors.WithLabelValues(source).Inc()
		return
	}
	DefaultMetrics.RawRowsFetched.WithLabelValues(source).Add(float64(rows))
}

// RecordDropped records rows rejected by the normalizer.
func RecordDropped(source string, n int) {
	if n > 0 {
		DefaultMetrics.RecordsDropped.WithLabelValues(source).Add(float64(n))
	}
}

// RecordRefresh records one refresh pass.
func RecordRefresh(status string, seconds float64, retained int) {
	DefaultMetrics.RefreshRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RefreshDuration.Observe(seconds)
	DefaultMetrics.RetainedTrades.Set(float64(retained))
}

// RecordPollFailure counts one failed poll fetch.
func RecordPollFailure() {
	DefaultMetrics.PollFailures.Inc()
}
