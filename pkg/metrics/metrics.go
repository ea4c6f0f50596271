// Package metrics defines the Prometheus metric collectors used by the
// indexing and query subsystems and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the search subsystem.
type Metrics struct {
	PostsIndexedTotal  prometheus.Counter
	PostsSkippedTotal  *prometheus.CounterVec
	PostsDeletedTotal  prometheus.Counter
	IndexCommitsTotal  *prometheus.CounterVec
	IndexBatchSize     prometheus.Histogram
	IndexBatchDuration prometheus.Histogram
	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      prometheus.Histogram
	SearchResultsCount prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		PostsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "posts_indexed_total",
				Help: "Total posts added to the search index.",
			},
		),
		PostsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posts_skipped_total",
				Help: "Total posts skipped during indexing by reason (missing_root, deleted).",
			},
			[]string{"reason"},
		),
		PostsDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "posts_deleted_total",
				Help: "Total stale documents removed by delete-before-reindex.",
			},
		),
		IndexCommitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_commits_total",
				Help: "Total index batch commits by status (ok, error).",
			},
			[]string{"status"},
		),
		IndexBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_batch_size",
				Help:    "Number of add/delete operations per committed batch.",
				Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
		),
		IndexBatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_batch_duration_seconds",
				Help:    "Wall-clock duration of an indexing run including commit.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by outcome (hit, zero_result, error).",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Index search latency in seconds, cache excluded.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total query cache misses.",
			},
		),
	}

	prometheus.MustRegister(
		m.PostsIndexedTotal,
		m.PostsSkippedTotal,
		m.PostsDeletedTotal,
		m.IndexCommitsTotal,
		m.IndexBatchSize,
		m.IndexBatchDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
