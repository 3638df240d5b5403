// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync Operation Metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of library synchronizations in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600}, // Large libraries take minutes
		},
	)

	SyncSectionsRebuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_sections_rebuilt_total",
			Help: "Total number of sections whose artist subtree was rebuilt",
		},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of failed synchronizations",
		},
		[]string{"error_type"}, // "fetch", "canceled", "in_progress", "other"
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of last successful synchronization",
		},
	)

	SyncSkippedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_skipped_records_total",
			Help: "Total number of remote records skipped during synchronization",
		},
		[]string{"kind", "reason"}, // reason: "malformed", "filtered"
	)

	// Library Metrics
	LibraryEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "library_entities",
			Help: "Number of indexed entities in the cached library",
		},
		[]string{"kind"}, // "section", "artist", "album", "track"
	)

	IndexRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "library_index_rebuild_duration_seconds",
			Help:    "Duration of library index rebuilds in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_lookups_total",
			Help: "Total number of library lookups by key",
		},
		[]string{"kind", "result"}, // result: "hit", "miss"
	)

	ProgressDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_progress_dropped_total",
			Help: "Total number of progress messages dropped because the feed was full",
		},
	)

	// Snapshot Metrics
	SnapshotDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapshot_duration_seconds",
			Help:    "Duration of snapshot save and load operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "save", "load"
	)

	SnapshotBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_size_bytes",
			Help: "Size of the last saved or loaded snapshot",
		},
		[]string{"stage"}, // "compressed", "uncompressed"
	)

	SnapshotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_errors_total",
			Help: "Total number of failed snapshot operations",
		},
		[]string{"operation"},
	)

	// Plex API Metrics
	PlexFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plex_fetch_duration_seconds",
			Help:    "Duration of Plex Media Server fetches in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"resource"},
	)

	PlexFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_fetch_errors_total",
			Help: "Total number of failed Plex Media Server fetches",
		},
		[]string{"resource", "status_code"},
	)

	PlexRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plex_rate_limited_total",
			Help: "Total number of HTTP 429 responses from Plex Media Server",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordSyncOperation records a synchronization and its outcome.
// errorType is only used when err is non-nil.
func RecordSyncOperation(duration time.Duration, sectionsRebuilt int, errorType string, err error) {
	SyncDuration.Observe(duration.Seconds())
	SyncSectionsRebuilt.Add(float64(sectionsRebuilt))
	if err != nil {
		if errorType == "" {
			errorType = "other"
		}
		SyncErrors.WithLabelValues(errorType).Inc()
		return
	}
	SyncLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordSkippedRecord counts a remote record the synchronizer did not keep.
func RecordSkippedRecord(kind, reason string) {
	SyncSkippedRecords.WithLabelValues(kind, reason).Inc()
}

// RecordIndexRebuild records an index rebuild and the resulting entity counts.
func RecordIndexRebuild(duration time.Duration, sections, artists, albums, tracks int) {
	IndexRebuildDuration.Observe(duration.Seconds())
	LibraryEntities.WithLabelValues("section").Set(float64(sections))
	LibraryEntities.WithLabelValues("artist").Set(float64(artists))
	LibraryEntities.WithLabelValues("album").Set(float64(albums))
	LibraryEntities.WithLabelValues("track").Set(float64(tracks))
}

// RecordLookup records a lookup by key
func RecordLookup(kind string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	LookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordSnapshot records a snapshot save or load.
func RecordSnapshot(operation string, duration time.Duration, compressedBytes, uncompressedBytes int, err error) {
	SnapshotDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		SnapshotErrors.WithLabelValues(operation).Inc()
		return
	}
	SnapshotBytes.WithLabelValues("compressed").Set(float64(compressedBytes))
	SnapshotBytes.WithLabelValues("uncompressed").Set(float64(uncompressedBytes))
}

// RecordPlexFetch records a fetch against Plex Media Server.
// statusCode is 0 when no HTTP response was received.
func RecordPlexFetch(path string, duration time.Duration, statusCode int, err error) {
	resource := ResourceLabel(path)
	PlexFetchDuration.WithLabelValues(resource).Observe(duration.Seconds())
	if err != nil {
		code := "none"
		if statusCode > 0 {
			code = strconv.Itoa(statusCode)
		}
		PlexFetchErrors.WithLabelValues(resource, code).Inc()
	}
}

// ResourceLabel collapses a Plex resource path into a low-cardinality label.
//
//	library/sections               -> sections
//	library/sections/3/all         -> section_items
//	/library/metadata/100/children -> metadata_children
func ResourceLabel(path string) string {
	p := strings.Trim(path, "/")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	switch {
	case p == "library/sections":
		return "sections"
	case strings.HasPrefix(p, "library/sections/"):
		return "section_items"
	case strings.HasPrefix(p, "library/metadata/") && strings.HasSuffix(p, "/children"):
		return "metadata_children"
	case strings.HasPrefix(p, "library/metadata/"):
		return "metadata"
	default:
		return "other"
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
