// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

/*
Package main is the entry point for the Plexmirror server.

Plexmirror keeps a local mirror of the music sections of a Plex Media
Server (sections, artists, albums, tracks), persists it as a compressed
snapshot and serves lookups by Plex key to a playback or UI layer.

# Application Architecture

	RootSupervisor ("plexmirror")
	├── LibrarySupervisor ("library-layer")
	│   ├── StartupSyncService (SYNC_ON_STARTUP)
	│   └── ProgressPumpService
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Startup order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Plex client: rate limited, behind a circuit breaker
 4. Library service, restored from the snapshot when one exists
 5. Supervisor tree with the services above

Only sections whose remote updatedAt moved since the snapshot are fetched
again by the startup synchronization.

# Configuration

	PLEX_URL=http://localhost:32400
	PLEX_TOKEN=<token>
	SNAPSHOT_PATH=/data/library.snapshot
	LIBRARY_ARTIST_LIMIT=10      # 0 = every artist
	SYNC_ON_STARTUP=true
	SAVE_AFTER_SYNC=true
	HTTP_PORT=3858
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

A config file is read from CONFIG_PATH, ./config.yaml or
/etc/plexmirror/config.yaml; environment variables win.

# Signal Handling

On SIGINT or SIGTERM the supervisor tree is canceled: the HTTP server
drains in-flight requests (10s), websocket clients are closed and, with
SAVE_AFTER_SYNC, the library is saved a last time.

# Usage

	export PLEX_URL=http://plex:32400 PLEX_TOKEN=xxx
	go run ./cmd/server

	curl -X POST localhost:3858/api/v1/library/sync
	curl localhost:3858/api/v1/tracks/%2Flibrary%2Fmetadata%2F30
*/
package main
