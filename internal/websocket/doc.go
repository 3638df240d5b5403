// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

/*
Package websocket pushes library synchronization progress to connected
clients.

A Hub owns the set of clients and fans messages out to them; each Client
runs a read and a write goroutine on its gorilla/websocket connection.
The hub runs under the supervisor via RunWithContext.

Message types:

  - sync_progress: one free-text progress line from a running sync
  - sync_completed / sync_failed: a sync finished
  - ping / pong: application-level keepalive sent by clients

Broadcasting never blocks the caller. When the hub's buffer is full the
message is dropped, and a client whose own buffer is full is disconnected.

Example:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	conn, _ := upgrader.Upgrade(w, r, nil)
	client := websocket.NewClient(hub, conn)
	hub.Register <- client
	client.Start()

	hub.BroadcastSyncProgress("Merging music data", time.Now())
*/
package websocket
