// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

/*
Package library mirrors the music libraries of a Plex Media Server.

The cached data is a tree: Section -> Artist -> Album -> Track. Each level
owns its children; parents are referenced by key only.

# Components

  - Entity builders (builder.go) turn one Plex record into a typed entity
    or a *MappingError.
  - Synchronizer reconciles the cached tree with the server. Sections are
    compared by LastUpdated; a section reported newer is rebuilt from
    scratch, an unchanged one is left alone without any fetch. Artists of
    a section are processed one at a time, the albums of an artist in
    parallel.
  - Index maps keys to artists, albums and tracks. It is rebuilt after
    every change of the tree.
  - SnapshotStore saves and loads the whole tree as one zstd-compressed
    gob file.
  - Service is the facade the HTTP layer and cmd/server use. It serializes
    synchronizations and guards the tree with a read/write lock.

# Progress

Synchronizations publish free-text progress lines to a ProgressFeed. The
feed never blocks the synchronizer; lines nobody consumes are dropped.

# Errors

A *FetchError aborts the running synchronization but the partial tree is
kept, with unfinished sections still pending. Lookups of unknown keys return
a *NotFoundError matching ErrNotFound. Snapshot failures are returned as
*PersistenceError and leave the cached tree unchanged.
*/
package library
