// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package models

import "time"

// Plex REST API Models
// These structures represent responses from Plex Media Server library endpoints
// requested with Accept: application/json.
// Documentation: https://plexapi.dev and https://www.plexopedia.com/plex-media-server/api/

// Plex record types relevant to music libraries
const (
	PlexTypeArtist = "artist" // Section type of music libraries, also the artist record type
	PlexTypeAlbum  = "album"
	PlexTypeTrack  = "track"
)

// MediaContainerResponse is the top-level envelope of every Plex JSON response
type MediaContainerResponse struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

// MediaContainer wraps the children of a Plex resource.
// Plex puts sections in Directory and library items in Metadata; a single
// container may carry either (or, for some agents, both).
type MediaContainer struct {
	Size                int      `json:"size"`
	TotalSize           int      `json:"totalSize,omitempty"`
	Offset              int      `json:"offset,omitempty"`
	Title1              string   `json:"title1,omitempty"`
	Title2              string   `json:"title2,omitempty"`
	ViewGroup           string   `json:"viewGroup,omitempty"`
	LibrarySectionID    int      `json:"librarySectionID,omitempty"`
	LibrarySectionTitle string   `json:"librarySectionTitle,omitempty"`
	LibrarySectionUUID  string   `json:"librarySectionUUID,omitempty"`
	Directory           []Record `json:"Directory,omitempty"`
	Metadata            []Record `json:"Metadata,omitempty"`
}

// Children returns the container's records in server order, directories first.
func (mc *MediaContainer) Children() []Record {
	if mc == nil {
		return nil
	}
	if len(mc.Metadata) == 0 {
		return mc.Directory
	}
	if len(mc.Directory) == 0 {
		return mc.Metadata
	}
	children := make([]Record, 0, len(mc.Directory)+len(mc.Metadata))
	children = append(children, mc.Directory...)
	return append(children, mc.Metadata...)
}

// Record is a single child of a MediaContainer: a library section, an artist,
// an album or a track. Only the fields the entity builder consumes are decoded.
type Record struct {
	// Identification
	Key                  string `json:"key"`                            // API path (section id for sections)
	RatingKey            string `json:"ratingKey,omitempty"`            // Unique item identifier
	UUID                 string `json:"uuid,omitempty"`                 // Section UUID (sections only)
	ParentRatingKey      string `json:"parentRatingKey,omitempty"`      // Album for tracks, artist for albums
	GrandparentRatingKey string `json:"grandparentRatingKey,omitempty"` // Artist for tracks
	Type                 string `json:"type"`                           // artist, album, track (or section type)

	// Titles
	Title       string `json:"title"`
	TitleSort   string `json:"titleSort,omitempty"`
	ParentTitle string `json:"parentTitle,omitempty"`

	// Ordering and playback
	Index    int   `json:"index,omitempty"`    // Track number within the album
	Duration int64 `json:"duration,omitempty"` // Duration in milliseconds

	// Timestamps (Unix seconds)
	AddedAt   int64 `json:"addedAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
	ScannedAt int64 `json:"scannedAt,omitempty"`
}

// UpdatedTime converts UpdatedAt into a UTC time. Zero stays the zero time.
func (r *Record) UpdatedTime() time.Time {
	if r.UpdatedAt == 0 {
		return time.Time{}
	}
	return time.Unix(r.UpdatedAt, 0).UTC()
}

// DurationValue converts the millisecond Duration into a time.Duration.
func (r *Record) DurationValue() time.Duration {
	return time.Duration(r.Duration) * time.Millisecond
}
