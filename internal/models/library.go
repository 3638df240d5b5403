// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package models

import "time"

// Section is a music library on the Plex server (e.g. "Music").
//
// Key is the section UUID and is stable across syncs; SectionID is the short
// id used to build the section's resource path. LastProcessed is nil while
// the section's artist subtree is pending a rebuild.
type Section struct {
	Key           string     `json:"key"`
	SectionID     string     `json:"section_id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	LastUpdated   time.Time  `json:"last_updated"`
	LastProcessed *time.Time `json:"last_processed,omitempty"`
	Artists       []*Artist  `json:"-"`
}

// IsPending reports whether the section's subtree still has to be built.
func (s *Section) IsPending() bool {
	return s.LastProcessed == nil
}

// Artist is owned by a Section and owns its albums.
type Artist struct {
	Key        string   `json:"key"`
	RatingKey  string   `json:"rating_key,omitempty"`
	Name       string   `json:"name"`
	SectionKey string   `json:"section_key"`
	Albums     []*Album `json:"-"`
}

// Album is owned by an Artist. ArtistKey is a back reference only.
type Album struct {
	Key       string   `json:"key"`
	RatingKey string   `json:"rating_key,omitempty"`
	Title     string   `json:"title"`
	ArtistKey string   `json:"artist_key"`
	Tracks    []*Track `json:"-"`
}

// Track is a playable leaf. Tracks with a non-positive Duration are never
// part of the tree.
type Track struct {
	Key       string        `json:"key"`
	RatingKey string        `json:"rating_key,omitempty"`
	Title     string        `json:"title"`
	AlbumKey  string        `json:"album_key"`
	Index     int           `json:"index,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// SectionSummary is the API view of a section with subtree counts.
type SectionSummary struct {
	Key           string     `json:"key"`
	SectionID     string     `json:"section_id"`
	Name          string     `json:"name"`
	LastUpdated   time.Time  `json:"last_updated"`
	LastProcessed *time.Time `json:"last_processed,omitempty"`
	Pending       bool       `json:"pending"`
	Artists       int        `json:"artists"`
	Albums        int        `json:"albums"`
	Tracks        int        `json:"tracks"`
}

// Summarize counts the section's subtree.
func (s *Section) Summarize() SectionSummary {
	summary := SectionSummary{
		Key:           s.Key,
		SectionID:     s.SectionID,
		Name:          s.Name,
		LastUpdated:   s.LastUpdated,
		LastProcessed: s.LastProcessed,
		Pending:       s.IsPending(),
		Artists:       len(s.Artists),
	}
	for _, artist := range s.Artists {
		summary.Albums += len(artist.Albums)
		for _, album := range artist.Albums {
			summary.Tracks += len(album.Tracks)
		}
	}
	return summary
}
