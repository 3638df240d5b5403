// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

/*
Package metrics provides Prometheus metrics collection and export for observability.

All instruments are registered on the default registry through promauto and are
exposed at /metrics by the API router.

# Available Metrics

Sync Metrics:
  - sync_duration_seconds: Synchronization duration (histogram)
  - sync_sections_rebuilt_total: Sections whose subtree was rebuilt (counter)
  - sync_errors_total: Failed synchronizations (counter)
    Labels: error_type
  - sync_last_success_timestamp: Unix timestamp of last successful sync (gauge)
  - sync_skipped_records_total: Remote records not kept (counter)
    Labels: kind, reason

Library Metrics:
  - library_entities: Indexed entities (gauge)
    Labels: kind (section, artist, album, track)
  - library_index_rebuild_duration_seconds: Index rebuild time (histogram)
  - library_lookups_total: Lookups by key (counter)
    Labels: kind, result (hit, miss)
  - library_progress_dropped_total: Progress messages dropped on a full feed (counter)

Snapshot Metrics:
  - snapshot_duration_seconds: Save/load time (histogram)
    Labels: operation
  - snapshot_size_bytes: Size of the last snapshot (gauge)
    Labels: stage (compressed, uncompressed)
  - snapshot_errors_total: Failed snapshot operations (counter)

Plex Metrics:
  - plex_fetch_duration_seconds: Fetch latency (histogram)
    Labels: resource
  - plex_fetch_errors_total: Failed fetches (counter)
    Labels: resource, status_code
  - plex_rate_limited_total: HTTP 429 responses (counter)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests by result (counter)
  - circuit_breaker_consecutive_failures: Consecutive failures (gauge)
  - circuit_breaker_state_transitions_total: State transitions (counter)

API and WebSocket Metrics:
  - api_requests_total, api_request_duration_seconds, api_active_requests,
    api_rate_limit_hits_total
  - websocket_connections, websocket_messages_sent_total, websocket_errors_total

# Cardinality Management

Plex resource paths embed rating keys, so fetch metrics are labelled with
ResourceLabel(path) rather than the raw path. API metrics use the chi route
pattern, never the request URL.

# Thread Safety

All recording functions are safe for concurrent use.
*/
package metrics
