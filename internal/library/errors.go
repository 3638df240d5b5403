// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package library

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrNoSections is returned when the cached tree holds no sections.
	ErrNoSections = errors.New("no sections cached")

	// ErrSyncInProgress is returned by TrySynchronize and
	// LoadMusicSectionDetails while a synchronization is running.
	ErrSyncInProgress = errors.New("synchronization already in progress")
)

// FetchError reports a failed remote fetch or an unusable response.
// It aborts the synchronization that issued it.
type FetchError struct {
	Path string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MappingError reports a record that could not be turned into an entity.
// The record is skipped; siblings are still processed.
type MappingError struct {
	Kind  string // section, artist, album, track
	Field string // missing or invalid field
	Key   string // record key when known
}

func (e *MappingError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("malformed %s record: missing %s", e.Kind, e.Field)
	}
	return fmt.Sprintf("malformed %s record %q: missing %s", e.Kind, e.Key, e.Field)
}

// NotFoundError reports a lookup for an unknown key.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError reports a failed snapshot save or load. Nothing of a
// failed load is applied.
type PersistenceError struct {
	Op   string // save, load
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
