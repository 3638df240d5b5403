// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

/*
Package api exposes the cached music library over HTTP.

The router is built on go-chi/chi with go-chi/cors and go-chi/httprate
middleware. Every JSON response uses the models.APIResponse envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "NOT_FOUND", "message": "..."}}

# Endpoints

	GET  /api/v1/health/live            liveness
	GET  /api/v1/health/ready           503 until the library was loaded or synchronized
	GET  /api/v1/health                 readiness, Plex circuit breaker state and uptime
	GET  /api/v1/sections               section summaries
	GET  /api/v1/library/last-updated   newest section update time, from the cache
	POST /api/v1/library/sync           synchronize with Plex, blocking until done
	POST /api/v1/library/snapshot/save  write the configured snapshot
	POST /api/v1/library/snapshot/load  replace the cache with the configured snapshot
	GET  /api/v1/tracks/{key}           track by key
	GET  /api/v1/albums/{key}           album by key
	GET  /api/v1/artists/{key}          artist by key
	GET  /api/v1/ws                     websocket progress feed
	GET  /metrics                       Prometheus metrics

Keys are Plex paths such as /library/metadata/42 and must be sent
URL-escaped: GET /api/v1/tracks/%2Flibrary%2Fmetadata%2F42.

# Errors

	NOT_FOUND           404  unknown key
	VALIDATION_ERROR    400  malformed key
	SYNC_IN_PROGRESS    409  another synchronization is running
	NO_SECTIONS         503  nothing cached yet
	CIRCUIT_OPEN        503  Plex calls are suspended after repeated failures
	FETCH_ERROR         502  Plex request failed; partial results were kept
	PERSISTENCE_ERROR   500  snapshot could not be read or written
*/
package api
