// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

/*
Package supervisor provides process supervision for Plexmirror using suture v4.

Long-running components are organized into three layers so that a failure
in one does not take down the others:

	RootSupervisor ("plexmirror")
	├── LibrarySupervisor ("library-layer")
	│   ├── StartupSyncService (if SYNC_ON_STARTUP)
	│   └── ProgressPumpService
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The startup synchronization retries with suture's backoff while Plex is
unreachable and leaves the tree once it succeeds. Meanwhile the API serves
whatever the snapshot restored.

# Usage

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}

	tree.AddLibraryService(services.NewProgressPumpService(svc.Progress(), hub))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

Supervisor events (service start, failure, backoff) are logged through
sutureslog, which writes to zerolog via logging.NewSlogHandler.

# Service contract

Services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Returning an error restarts the service subject to backoff. Returning
suture.ErrDoNotRestart removes it from the tree. Services must return
promptly once ctx is canceled.

The library.Service itself is not supervised: it owns no goroutines and
is driven by the HTTP handlers and the services above.
*/
package supervisor
