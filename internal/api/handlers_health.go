// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/plexmirror/internal/plex"
)

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status        string  `json:"status"` // healthy, degraded, starting
	Version       string  `json:"version"`
	Ready         bool    `json:"ready"`
	Sections      int     `json:"sections"`
	PlexCircuit   string  `json:"plex_circuit,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Health reports readiness, the Plex circuit breaker state and uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	health := HealthStatus{
		Status:        "healthy",
		Version:       plex.Version,
		Ready:         h.svc.IsReady(),
		Sections:      len(h.svc.Sections()),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if h.breaker != nil {
		health.PlexCircuit = h.breaker.State()
	}

	switch {
	case !health.Ready:
		health.Status = "starting"
	case health.PlexCircuit == "open":
		health.Status = "degraded"
	}

	respondSuccess(w, health, start)
}

// HealthLive returns 200 while the process is alive
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, start)
}

// HealthReady returns 200 once the library was loaded or synchronized and
// 503 before that.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.svc.IsReady() {
		respondError(w, http.StatusServiceUnavailable, ErrCodeNotReady, "Library not loaded yet", nil)
		return
	}
	respondSuccess(w, map[string]interface{}{"ready": true}, start)
}
