// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/plexmirror/internal/api"
	"github.com/tomtom215/plexmirror/internal/config"
	"github.com/tomtom215/plexmirror/internal/logging"
	"github.com/tomtom215/plexmirror/internal/plex"
	"github.com/tomtom215/plexmirror/internal/supervisor"
	"github.com/tomtom215/plexmirror/internal/supervisor/services"
	ws "github.com/tomtom215/plexmirror/internal/websocket"
)

func main() {
	// Configuration first: it carries the logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", plex.Version).
		Str("plex_url", cfg.Plex.URL).
		Str("snapshot_path", cfg.Library.SnapshotPath).
		Int("artist_limit", cfg.Library.ArtistLimit).
		Msg("Starting Plexmirror")

	breaker, err := newPlexFetcher(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create Plex client")
	}

	svc := newLibraryService(cfg, breaker)
	if restoreSnapshot(svc, cfg.Library.SnapshotPath) {
		logging.Info().Int("sections", len(svc.Sections())).Msg("Library restored from snapshot")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	wsHub := ws.NewHub()

	handler := api.NewHandler(svc, api.HandlerOptions{
		Hub:         wsHub,
		Breaker:     breaker,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	router := api.NewRouter(handler, chiMiddlewareConfig(cfg))

	// No WriteTimeout: POST /library/sync answers only once the
	// synchronization is done.
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree.AddLibraryService(services.NewProgressPumpService(svc.Progress(), wsHub))
	if cfg.Library.SyncOnStartup {
		tree.AddLibraryService(services.NewStartupSyncService(svc, wsHub))
		logging.Info().Msg("Startup synchronization scheduled")
	}
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, s := range unstopped {
		logging.Warn().Str("service", s.Name).Msg("Service failed to stop within timeout")
	}

	if cfg.Library.SaveAfterSync {
		saveOnShutdown(svc, cfg.Library.SnapshotPath)
	}

	logging.Info().Msg("Plexmirror stopped")
}
