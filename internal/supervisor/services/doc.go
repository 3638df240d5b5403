// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

// Package services adapts Plexmirror components to suture.Service.
//
//   - HTTPServerService: ListenAndServe/Shutdown with a drain timeout
//   - WebSocketHubService: websocket.Hub.RunWithContext
//   - ProgressPumpService: drains library.ProgressFeed into logs and the hub
//   - StartupSyncService: one synchronization after startup, retried with
//     supervisor backoff until it succeeds
//
// Each wrapper depends on a small interface rather than the concrete type,
// so tests drive them with fakes.
package services
