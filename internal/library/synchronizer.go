// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package library

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/plexmirror/internal/logging"
	"github.com/tomtom215/plexmirror/internal/metrics"
	"github.com/tomtom215/plexmirror/internal/models"
)

// SectionsPath lists the server's library sections.
const SectionsPath = "library/sections"

// DefaultArtistLimit caps the artists processed per section.
const DefaultArtistLimit = 10

// Fetcher retrieves the children of a Plex resource path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*models.MediaContainer, error)
}

// Synchronizer reconciles a cached section tree with the Plex server.
//
// Sections are compared by key and LastUpdated only. A section whose remote
// LastUpdated is newer is rebuilt from scratch, artists through tracks; there
// is no diffing below section level. Sections that disappear remotely are
// kept.
type Synchronizer struct {
	fetcher     Fetcher
	progress    *ProgressFeed
	artistLimit int
	now         func() time.Time
}

// NewSynchronizer creates a synchronizer. artistLimit <= 0 processes every
// artist of a section. progress may be nil.
func NewSynchronizer(fetcher Fetcher, progress *ProgressFeed, artistLimit int) *Synchronizer {
	return &Synchronizer{
		fetcher:     fetcher,
		progress:    progress,
		artistLimit: artistLimit,
		now:         time.Now,
	}
}

// Synchronize merges the server's music sections into previous and rebuilds
// every pending section. previous is modified in place and returned, with
// new sections appended.
//
// The first fetch failure aborts the run with a *FetchError. The returned
// tree is still valid: sections finished before the failure are marked
// processed, the rest stay pending for the next run.
func (s *Synchronizer) Synchronize(ctx context.Context, previous []*models.Section) ([]*models.Section, error) {
	log := logging.Ctx(ctx)

	s.progress.Publish("Getting music section details")
	fresh, err := s.fetchSections(ctx)
	if err != nil {
		return previous, err
	}

	tree := previous
	if len(previous) == 0 {
		s.progress.Publish("No existing data; rebuilding from scratch")
		tree = fresh
	} else {
		s.progress.Publish("Merging music data")
		tree = mergeSections(previous, fresh)
	}

	for _, section := range tree {
		if !section.IsPending() {
			log.Debug().Str("section", section.Name).Msg("Section unchanged, keeping cached artists")
			continue
		}
		if err := s.rebuildSection(ctx, section); err != nil {
			return tree, err
		}
	}

	return tree, nil
}

// mergeSections folds freshly fetched sections into the cached ones.
func mergeSections(cached, fresh []*models.Section) []*models.Section {
	byKey := make(map[string]*models.Section, len(cached))
	for _, section := range cached {
		byKey[section.Key] = section
	}

	for _, remote := range fresh {
		local, ok := byKey[remote.Key]
		if !ok {
			cached = append(cached, remote)
			byKey[remote.Key] = remote
			continue
		}
		if remote.LastUpdated.After(local.LastUpdated) {
			// Adopt the new timestamp so the next run does not rebuild again.
			local.LastUpdated = remote.LastUpdated
			local.Name = remote.Name
			local.SectionID = remote.SectionID
			local.LastProcessed = nil
		}
	}
	return cached
}

// fetchSections returns the server's music sections, each pending.
func (s *Synchronizer) fetchSections(ctx context.Context) ([]*models.Section, error) {
	mc, err := s.fetch(ctx, SectionsPath)
	if err != nil {
		return nil, err
	}

	children := mc.Children()
	var sections []*models.Section
	for i := range children {
		record := &children[i]
		if !IsMusicSection(record) {
			continue
		}
		section, err := BuildSection(record)
		if err != nil {
			skipRecord(ctx, err)
			continue
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// rebuildSection replaces the section's artist subtree. Artists are handled
// one after another; the albums of one artist are fetched in parallel.
func (s *Synchronizer) rebuildSection(ctx context.Context, section *models.Section) error {
	log := logging.Ctx(ctx).With().Str("section", section.Name).Str("section_key", section.Key).Logger()

	mc, err := s.fetch(ctx, SectionItemsPath(section))
	if err != nil {
		return err
	}

	records := mc.Children()
	if s.artistLimit > 0 && len(records) > s.artistLimit {
		log.Debug().Int("available", len(records)).Int("limit", s.artistLimit).Msg("Artist limit reached, ignoring remaining artists")
		records = records[:s.artistLimit]
	}

	artists := make([]*models.Artist, 0, len(records))
	for i := range records {
		artist, err := BuildArtist(&records[i], section)
		if err != nil {
			skipRecord(ctx, err)
			continue
		}

		s.progress.Publishf("Adding '%s'", artist.Name)
		albums, err := s.buildAlbums(ctx, artist)
		if err != nil {
			return err
		}
		s.progress.Publishf("...%d albums", len(albums))
		if len(albums) == 0 {
			metrics.RecordSkippedRecord("artist", "filtered")
			log.Debug().Str("artist", artist.Name).Msg("Artist has no playable albums, skipping")
			continue
		}
		artist.Albums = albums
		artists = append(artists, artist)
	}

	processed := s.now().UTC()
	section.Artists = artists
	section.LastProcessed = &processed

	s.progress.Publishf("Added section '%s', %d artists", section.Name, len(artists))
	log.Info().Int("artists", len(artists)).Msg("Section rebuilt")
	return nil
}

// positionedAlbum remembers the fetch order of an album built concurrently.
type positionedAlbum struct {
	position int
	album    *models.Album
}

// buildAlbums fetches the artist's albums, then all album track lists in
// parallel. Albums left without playable tracks are dropped; the rest keep
// the server's order.
func (s *Synchronizer) buildAlbums(ctx context.Context, artist *models.Artist) ([]*models.Album, error) {
	mc, err := s.fetch(ctx, artist.Key)
	if err != nil {
		return nil, err
	}

	records := mc.Children()
	candidates := make([]*models.Album, 0, len(records))
	for i := range records {
		album, err := BuildAlbum(&records[i], artist)
		if err != nil {
			skipRecord(ctx, err)
			continue
		}
		candidates = append(candidates, album)
	}

	var (
		mu    sync.Mutex
		built = make([]positionedAlbum, 0, len(candidates))
	)
	g, gctx := errgroup.WithContext(ctx)
	for position, album := range candidates {
		g.Go(func() error {
			tracks, err := s.buildTracks(gctx, album)
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				metrics.RecordSkippedRecord("album", "filtered")
				return nil
			}
			album.Tracks = tracks

			mu.Lock()
			built = append(built, positionedAlbum{position: position, album: album})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(built, func(i, j int) bool { return built[i].position < built[j].position })
	albums := make([]*models.Album, len(built))
	for i, b := range built {
		albums[i] = b.album
	}
	return albums, nil
}

// buildTracks fetches an album's tracks and keeps the playable ones.
func (s *Synchronizer) buildTracks(ctx context.Context, album *models.Album) ([]*models.Track, error) {
	mc, err := s.fetch(ctx, album.Key)
	if err != nil {
		return nil, err
	}

	records := mc.Children()
	tracks := make([]*models.Track, 0, len(records))
	for i := range records {
		track, err := BuildTrack(&records[i], album)
		if err != nil {
			skipRecord(ctx, err)
			continue
		}
		if !PlayableTrack(track) {
			metrics.RecordSkippedRecord("track", "filtered")
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// fetch calls the fetcher and wraps failures in a *FetchError.
func (s *Synchronizer) fetch(ctx context.Context, path string) (*models.MediaContainer, error) {
	mc, err := s.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, &FetchError{Path: path, Err: err}
	}
	if mc == nil {
		return nil, &FetchError{Path: path, Err: errors.New("empty response")}
	}
	return mc, nil
}

// skipRecord logs and counts a malformed record.
func skipRecord(ctx context.Context, err error) {
	var mappingErr *MappingError
	if errors.As(err, &mappingErr) {
		metrics.RecordSkippedRecord(mappingErr.Kind, "malformed")
	}
	logging.Ctx(ctx).Warn().Err(err).Msg("Skipping malformed record")
}
