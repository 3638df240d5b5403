// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package library

import "github.com/tomtom215/plexmirror/internal/models"

// Entity builders convert one Plex record into a typed entity. They are pure;
// a record missing a required field yields a *MappingError.

// BuildSection converts a library/sections directory into a pending Section.
// Sections are identified by their UUID; the short key builds the item path.
func BuildSection(r *models.Record) (*models.Section, error) {
	if r.UUID == "" {
		return nil, &MappingError{Kind: "section", Field: "uuid", Key: r.Key}
	}
	if r.Key == "" {
		return nil, &MappingError{Kind: "section", Field: "key", Key: r.UUID}
	}
	return &models.Section{
		Key:         r.UUID,
		SectionID:   r.Key,
		Name:        r.Title,
		Type:        r.Type,
		LastUpdated: r.UpdatedTime(),
	}, nil
}

// BuildArtist converts an artist record found under section.
func BuildArtist(r *models.Record, section *models.Section) (*models.Artist, error) {
	if r.Key == "" {
		return nil, &MappingError{Kind: "artist", Field: "key", Key: r.RatingKey}
	}
	if r.Title == "" {
		return nil, &MappingError{Kind: "artist", Field: "title", Key: r.Key}
	}
	return &models.Artist{
		Key:        r.Key,
		RatingKey:  r.RatingKey,
		Name:       r.Title,
		SectionKey: section.Key,
	}, nil
}

// BuildAlbum converts an album record found under artist.
func BuildAlbum(r *models.Record, artist *models.Artist) (*models.Album, error) {
	if r.Key == "" {
		return nil, &MappingError{Kind: "album", Field: "key", Key: r.RatingKey}
	}
	return &models.Album{
		Key:       r.Key,
		RatingKey: r.RatingKey,
		Title:     r.Title,
		ArtistKey: artist.Key,
	}, nil
}

// BuildTrack converts a track record found under album. A track without a
// duration is still built; see PlayableTrack.
func BuildTrack(r *models.Record, album *models.Album) (*models.Track, error) {
	if r.Key == "" {
		return nil, &MappingError{Kind: "track", Field: "key", Key: r.RatingKey}
	}
	return &models.Track{
		Key:       r.Key,
		RatingKey: r.RatingKey,
		Title:     r.Title,
		AlbumKey:  album.Key,
		Index:     r.Index,
		Duration:  r.DurationValue(),
	}, nil
}

// PlayableTrack reports whether a track may enter the tree. Plex lists
// placeholders for missing media with no duration.
func PlayableTrack(t *models.Track) bool {
	return t.Duration > 0
}

// IsMusicSection reports whether a section directory is a music library.
func IsMusicSection(r *models.Record) bool {
	return r.Type == models.PlexTypeArtist
}

// SectionItemsPath is the resource listing a section's artists.
func SectionItemsPath(section *models.Section) string {
	return "library/sections/" + section.SectionID + "/all"
}
