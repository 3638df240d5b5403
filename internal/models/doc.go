// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

/*
Package models defines data structures for the Plexmirror application.

This package is the single source of truth for three kinds of structures:

 1. Plex wire records: MediaContainer and Record decode the JSON returned by
    Plex Media Server library endpoints. They are the boundary type of the
    remote fetcher and never travel past the entity builder.

 2. The library tree: Section -> Artist -> Album -> Track. Each level owns the
    next through a slice; parent links are stored as keys (SectionKey,
    ArtistKey, AlbumKey) so the tree is acyclic and gob-encodable.

 3. API envelope: APIResponse, APIError and Metadata are shared by every HTTP
    endpoint.

Thread Safety:
Models carry no synchronization. The library service owns the tree and guards
it with a single whole-tree lock.
*/
package models
