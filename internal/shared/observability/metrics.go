package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ngasync_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	TransformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ngasync_transform_seconds",
		Help:    "Time spent rewriting a parsed unit.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	SitesTransformedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ngasync_sites_transformed_total",
		Help: "Async functions lowered to generators, by syntactic form.",
	}, []string{"form"})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ngasync_diagnostics_total",
		Help: "Diagnostics reported by the transform, by code and kind.",
	}, []string{"code", "kind"})

	FilesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ngasync_files_processed_total",
		Help: "Files handled by the pipeline, by outcome.",
	}, []string{"outcome"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ngasync_cache_lookups_total",
		Help: "Transform cache lookups, by result.",
	}, []string{"result"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ngasync_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ngasync_rebuilds_throttled_total",
		Help: "Watch rebuilds delayed by the rebuild limiter.",
	})
)
