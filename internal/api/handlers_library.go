// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/plexmirror/internal/library"
	"github.com/tomtom215/plexmirror/internal/logging"
	"github.com/tomtom215/plexmirror/internal/models"
)

// ensureLibrary runs the first synchronization when the library has been
// neither loaded nor synchronized yet. Concurrent first readers share one
// synchronization. It reports false after writing an error response.
func (h *Handler) ensureLibrary(w http.ResponseWriter, r *http.Request) bool {
	if h.svc.IsReady() {
		return true
	}
	logging.Ctx(r.Context()).Info().Msg("Library not loaded yet, synchronizing before first read")
	if err := h.svc.EnsureSynchronized(context.WithoutCancel(r.Context())); err != nil {
		respondServiceError(w, err)
		return false
	}
	return true
}

// Sections lists the cached sections with subtree counts.
func (h *Handler) Sections(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.ensureLibrary(w, r) {
		return
	}
	respondSuccess(w, h.svc.Sections(), start)
}

// LastUpdated returns the newest LastUpdated of the cached sections.
func (h *Handler) LastUpdated(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lastUpdated, err := h.svc.DetermineMusicLibraryLastUpdateDate()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, models.LastUpdatedResult{LastUpdated: lastUpdated}, start)
}

// Sync synchronizes the library with Plex and answers when it is done.
// The synchronization is detached from the request, so a client hanging up
// does not abort it halfway.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := context.WithoutCancel(r.Context())

	report, err := h.svc.TrySynchronize(ctx)
	if errors.Is(err, library.ErrSyncInProgress) {
		respondServiceError(w, err)
		return
	}
	h.broadcastSyncResult(report, err)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, models.SyncResult{
		Sections:   h.svc.Sections(),
		DurationMS: report.Duration.Milliseconds(),
		Saved:      report.Saved,
	}, start)
}

func (h *Handler) broadcastSyncResult(report *library.SyncReport, err error) {
	if h.wsHub != nil {
		h.wsHub.BroadcastSyncReport(report, err)
	}
}

// SaveSnapshot writes the cached library to the configured snapshot path.
func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := h.svc.SnapshotPath()
	if path == "" {
		respondError(w, http.StatusServiceUnavailable, ErrCodeSnapshotUnavailable, "No snapshot path configured", nil)
		return
	}
	if err := h.svc.SaveMusicSectionDetails(path); err != nil {
		respondServiceError(w, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("path", path).Msg("Snapshot saved on request")
	respondSuccess(w, map[string]string{"path": path}, start)
}

// LoadSnapshot replaces the cached library with the configured snapshot.
func (h *Handler) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := h.svc.SnapshotPath()
	if path == "" {
		respondError(w, http.StatusServiceUnavailable, ErrCodeSnapshotUnavailable, "No snapshot path configured", nil)
		return
	}
	if err := h.svc.LoadMusicSectionDetails(path); err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, h.svc.Sections(), start)
}

// Track returns the track with the escaped key.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := keyParam(w, r)
	if !ok || !h.ensureLibrary(w, r) {
		return
	}
	track, err := h.svc.LookupTrack(key)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, track, start)
}

// Album returns the album with the escaped key, tracks included.
func (h *Handler) Album(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := keyParam(w, r)
	if !ok || !h.ensureLibrary(w, r) {
		return
	}
	album, err := h.svc.LookupAlbum(key)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, albumView{Album: album, Tracks: album.Tracks}, start)
}

// Artist returns the artist with the escaped key and its album list.
func (h *Handler) Artist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := keyParam(w, r)
	if !ok || !h.ensureLibrary(w, r) {
		return
	}
	artist, err := h.svc.LookupArtist(key)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	albums := make([]albumSummary, 0, len(artist.Albums))
	for _, album := range artist.Albums {
		albums = append(albums, albumSummary{Key: album.Key, Title: album.Title, Tracks: len(album.Tracks)})
	}
	respondSuccess(w, artistView{Artist: artist, Albums: albums}, start)
}

// albumView adds the track list the entity omits from JSON.
type albumView struct {
	*models.Album
	Tracks []*models.Track `json:"tracks"`
}

type albumSummary struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Tracks int    `json:"tracks"`
}

type artistView struct {
	*models.Artist
	Albums []albumSummary `json:"albums"`
}
