// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

// Package middleware holds HTTP middleware that is independent of the API
// handlers. Compression gzips large JSON bodies such as the artist view of
// a big library:
//
//	r.Use(middleware.Compression(middleware.DefaultCompressionMinSize))
package middleware
