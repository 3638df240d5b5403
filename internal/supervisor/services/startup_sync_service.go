// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/plexmirror/internal/library"
	"github.com/tomtom215/plexmirror/internal/logging"
)

// LibrarySynchronizer is satisfied by *library.Service.
type LibrarySynchronizer interface {
	GetMusicSectionDetails(ctx context.Context) (*library.SyncReport, error)
}

// SyncReporter is satisfied by *websocket.Hub.
type SyncReporter interface {
	BroadcastSyncReport(report *library.SyncReport, err error)
}

// StartupSyncService synchronizes the library once after startup. A failed
// attempt returns an error so the supervisor retries it with backoff; the
// partial tree of the failed attempt is already committed and is resumed.
// After the first success the service leaves the tree.
type StartupSyncService struct {
	library  LibrarySynchronizer
	reporter SyncReporter
	name     string
}

// NewStartupSyncService creates the one-shot sync service. reporter may be nil.
func NewStartupSyncService(lib LibrarySynchronizer, reporter SyncReporter) *StartupSyncService {
	return &StartupSyncService{
		library:  lib,
		reporter: reporter,
		name:     "startup-sync",
	}
}

// Serve implements suture.Service.
func (s *StartupSyncService) Serve(ctx context.Context) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	report, err := s.library.GetMusicSectionDetails(ctx)

	// Cancellation is shutdown, not an outcome worth broadcasting.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if s.reporter != nil {
		s.reporter.BroadcastSyncReport(report, err)
	}
	if err != nil {
		return fmt.Errorf("startup synchronization: %w", err)
	}

	logging.Ctx(ctx).Info().
		Int("sections_rebuilt", report.SectionsRebuilt).
		Int("tracks", report.Tracks).
		Msg("Startup synchronization finished")
	return suture.ErrDoNotRestart
}

// String names the service in supervisor logs.
func (s *StartupSyncService) String() string {
	return s.name
}
