// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/plexmirror/internal/library"
	"github.com/tomtom215/plexmirror/internal/logging"
	"github.com/tomtom215/plexmirror/internal/models"
	ws "github.com/tomtom215/plexmirror/internal/websocket"
)

// LibraryService is the part of library.Service the handlers use.
type LibraryService interface {
	TrySynchronize(ctx context.Context) (*library.SyncReport, error)
	EnsureSynchronized(ctx context.Context) error
	SaveMusicSectionDetails(path string) error
	LoadMusicSectionDetails(path string) error
	DetermineMusicLibraryLastUpdateDate() (time.Time, error)
	LookupTrack(key string) (*models.Track, error)
	LookupAlbum(key string) (*models.Album, error)
	LookupArtist(key string) (*models.Artist, error)
	Sections() []models.SectionSummary
	IsReady() bool
	SnapshotPath() string
}

// BreakerState reports the state of the Plex circuit breaker.
type BreakerState interface {
	State() string
}

// Handler serves the library endpoints.
type Handler struct {
	svc         LibraryService
	wsHub       *ws.Hub
	breaker     BreakerState
	corsOrigins []string
	startTime   time.Time
}

// HandlerOptions carries the optional collaborators of a Handler.
type HandlerOptions struct {
	// Hub receives sync results and websocket clients. Nil disables /ws.
	Hub *ws.Hub

	// Breaker is reported by the health endpoint when set.
	Breaker BreakerState

	// CORSOrigins restricts websocket origins; "*" allows any.
	CORSOrigins []string
}

// NewHandler creates a Handler for svc.
func NewHandler(svc LibraryService, opts HandlerOptions) *Handler {
	return &Handler{
		svc:         svc,
		wsHub:       opts.Hub,
		breaker:     opts.Breaker,
		corsOrigins: opts.CORSOrigins,
		startTime:   time.Now(),
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts requests without an Origin header (non-browser
// clients such as a playback daemon) and browser requests from configured
// origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}
