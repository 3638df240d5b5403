// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package main

import (
	"errors"
	"io/fs"

	"github.com/tomtom215/plexmirror/internal/api"
	"github.com/tomtom215/plexmirror/internal/config"
	"github.com/tomtom215/plexmirror/internal/library"
	"github.com/tomtom215/plexmirror/internal/logging"
	"github.com/tomtom215/plexmirror/internal/plex"
)

// newPlexFetcher builds the Plex client behind a circuit breaker. The server
// address is read from cfg once; changing it requires a restart.
func newPlexFetcher(cfg *config.Config) (*plex.CircuitBreakerClient, error) {
	client, err := plex.NewClient(plex.ClientConfig{
		BaseURL:           cfg.Plex.URL,
		Token:             cfg.Plex.Token,
		ClientIdentifier:  cfg.Plex.ClientIdentifier,
		Product:           cfg.Plex.Product,
		Device:            cfg.Plex.Device,
		Timeout:           cfg.Plex.Timeout,
		RequestsPerSecond: cfg.Plex.RequestsPerSecond,
		MaxConcurrent:     cfg.Plex.MaxConcurrentFetches,
	})
	if err != nil {
		return nil, err
	}
	return plex.NewCircuitBreakerClient(client, plex.BreakerSettings{}), nil
}

func newLibraryService(cfg *config.Config, fetcher library.Fetcher) *library.Service {
	return library.NewService(fetcher, library.ServiceConfig{
		ArtistLimit:    cfg.Library.ArtistLimit,
		ProgressBuffer: cfg.Library.ProgressBuffer,
		SnapshotPath:   cfg.Library.SnapshotPath,
		SaveAfterSync:  cfg.Library.SaveAfterSync,
	})
}

// restoreSnapshot loads the saved tree if there is one. A missing snapshot
// is the normal first start; an unreadable one is logged and the service
// starts empty, to be filled by the first synchronization.
func restoreSnapshot(svc *library.Service, path string) bool {
	if path == "" {
		return false
	}
	err := svc.LoadMusicSectionDetails(path)
	switch {
	case err == nil:
		return true
	case errors.Is(err, fs.ErrNotExist):
		logging.Info().Str("path", path).Msg("No snapshot found, starting with an empty library")
	default:
		logging.Warn().Err(err).Str("path", path).Msg("Snapshot could not be restored, starting with an empty library")
	}
	return false
}

// saveOnShutdown persists the tree a last time so a synchronization that
// was interrupted is resumed from its partial state on the next start.
func saveOnShutdown(svc *library.Service, path string) {
	if path == "" || !svc.IsReady() {
		return
	}
	if err := svc.SaveMusicSectionDetails(path); err != nil {
		logging.Error().Err(err).Msg("Failed to save snapshot on shutdown")
	}
}

func chiMiddlewareConfig(cfg *config.Config) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mw.RateLimitRequests = cfg.Server.RateLimitReqs
	mw.RateLimitWindow = cfg.Server.RateLimitWindow
	mw.RateLimitDisabled = cfg.Server.RateLimitReqs == 0
	return mw
}
