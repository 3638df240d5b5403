// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package library

import "github.com/tomtom215/plexmirror/internal/models"

// Index maps keys to the entities of one section tree. It is built from
// scratch after every tree change and never patched; an Index is read-only
// once built.
type Index struct {
	sections int
	artists  map[string]*models.Artist
	albums   map[string]*models.Album
	tracks   map[string]*models.Track
}

// BuildIndex flattens sections into lookup tables. When a key occurs twice
// the first occurrence in tree order wins.
func BuildIndex(sections []*models.Section) *Index {
	ix := &Index{
		sections: len(sections),
		artists:  make(map[string]*models.Artist),
		albums:   make(map[string]*models.Album),
		tracks:   make(map[string]*models.Track),
	}
	for _, section := range sections {
		for _, artist := range section.Artists {
			if _, dup := ix.artists[artist.Key]; !dup {
				ix.artists[artist.Key] = artist
			}
			for _, album := range artist.Albums {
				if _, dup := ix.albums[album.Key]; !dup {
					ix.albums[album.Key] = album
				}
				for _, track := range album.Tracks {
					if _, dup := ix.tracks[track.Key]; !dup {
						ix.tracks[track.Key] = track
					}
				}
			}
		}
	}
	return ix
}

// LookupTrack returns the track with key or a *NotFoundError.
func (ix *Index) LookupTrack(key string) (*models.Track, error) {
	if t, ok := ix.tracks[key]; ok {
		return t, nil
	}
	return nil, &NotFoundError{Kind: "track", Key: key}
}

// LookupAlbum returns the album with key or a *NotFoundError.
func (ix *Index) LookupAlbum(key string) (*models.Album, error) {
	if a, ok := ix.albums[key]; ok {
		return a, nil
	}
	return nil, &NotFoundError{Kind: "album", Key: key}
}

// LookupArtist returns the artist with key or a *NotFoundError.
func (ix *Index) LookupArtist(key string) (*models.Artist, error) {
	if a, ok := ix.artists[key]; ok {
		return a, nil
	}
	return nil, &NotFoundError{Kind: "artist", Key: key}
}

// Counts returns the number of indexed sections, artists, albums and tracks.
func (ix *Index) Counts() (sections, artists, albums, tracks int) {
	return ix.sections, len(ix.artists), len(ix.albums), len(ix.tracks)
}
