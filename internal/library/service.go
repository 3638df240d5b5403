// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package library

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/plexmirror/internal/logging"
	"github.com/tomtom215/plexmirror/internal/metrics"
	"github.com/tomtom215/plexmirror/internal/models"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// ArtistLimit caps the artists processed per section; 0 means no cap.
	ArtistLimit int

	// ProgressBuffer is the progress feed capacity.
	ProgressBuffer int

	// SnapshotPath is used by SaveAfterSync and the HTTP snapshot endpoints.
	SnapshotPath string

	// SaveAfterSync writes a snapshot after every successful synchronization.
	SaveAfterSync bool
}

// SyncReport summarizes one synchronization.
type SyncReport struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration_ns"`
	Sections        int           `json:"sections"`
	SectionsRebuilt int           `json:"sections_rebuilt"`
	Artists         int           `json:"artists"`
	Albums          int           `json:"albums"`
	Tracks          int           `json:"tracks"`
	Saved           bool          `json:"saved"`
}

// Service owns the cached section tree and its index. It is constructed
// once by the caller and shared; all methods are safe for concurrent use.
//
// Readers never observe a tree while it is being synchronized: a sync works
// on a copy of the section list and swaps the result in, together with a
// freshly built index, under the write lock. Only one synchronization runs
// at a time.
type Service struct {
	cfg      ServiceConfig
	sync     *Synchronizer
	store    *SnapshotStore
	progress *ProgressFeed

	mu       sync.RWMutex
	sections []*models.Section
	index    *Index

	syncMu      sync.Mutex
	initialized atomic.Bool
}

// NewService creates a Service with an empty tree.
func NewService(fetcher Fetcher, cfg ServiceConfig) *Service {
	progress := NewProgressFeed(cfg.ProgressBuffer)
	return &Service{
		cfg:      cfg,
		sync:     NewSynchronizer(fetcher, progress, cfg.ArtistLimit),
		store:    NewSnapshotStore(),
		progress: progress,
		index:    BuildIndex(nil),
	}
}

// LoadMusicSectionDetails replaces the cached tree with the snapshot at path
// and rebuilds the index. On failure the current tree is kept. It returns
// ErrSyncInProgress while a synchronization is running, since that
// synchronization would commit over the loaded tree.
func (s *Service) LoadMusicSectionDetails(path string) error {
	if !s.syncMu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.syncMu.Unlock()

	sections, meta, err := s.store.Load(path)
	if err != nil {
		return err
	}

	s.commit(sections)
	s.initialized.Store(true)

	logging.Info().
		Str("path", path).
		Int("sections", meta.Sections).
		Int("tracks", meta.Tracks).
		Time("saved_at", meta.SavedAt).
		Msg("Loaded library snapshot")
	return nil
}

// GetMusicSectionDetails synchronizes the cached tree with the server and
// blocks until done, waiting for a running synchronization to finish first.
// On a fetch failure the partially synchronized tree is kept and the error
// returned; a later call resumes with the sections still pending.
func (s *Service) GetMusicSectionDetails(ctx context.Context) (*SyncReport, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.synchronize(ctx)
}

// TrySynchronize is GetMusicSectionDetails without waiting: it returns
// ErrSyncInProgress when another synchronization is running.
func (s *Service) TrySynchronize(ctx context.Context) (*SyncReport, error) {
	if !s.syncMu.TryLock() {
		metrics.SyncErrors.WithLabelValues("in_progress").Inc()
		return nil, ErrSyncInProgress
	}
	defer s.syncMu.Unlock()
	return s.synchronize(ctx)
}

// EnsureSynchronized synchronizes once if the tree has been neither loaded
// nor synchronized yet. Concurrent callers wait for the first one and share
// its outcome; a failed first attempt is retried by the next caller.
func (s *Service) EnsureSynchronized(ctx context.Context) error {
	if s.initialized.Load() {
		return nil
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if s.initialized.Load() {
		return nil
	}
	_, err := s.synchronize(ctx)
	return err
}

// synchronize runs one synchronization. syncMu must be held.
func (s *Service) synchronize(ctx context.Context) (*SyncReport, error) {
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	log := logging.Ctx(ctx)
	start := time.Now()

	s.mu.RLock()
	working := cloneSections(s.sections)
	s.mu.RUnlock()

	tree, syncErr := s.sync.Synchronize(ctx, working)

	// Commit partial results too, so finished sections are not rebuilt.
	ix := s.commit(tree)

	report := &SyncReport{
		StartedAt: start.UTC(),
		Duration:  time.Since(start),
	}
	report.Sections, report.Artists, report.Albums, report.Tracks = ix.Counts()
	for _, section := range tree {
		if section.LastProcessed != nil && !section.LastProcessed.Before(start) {
			report.SectionsRebuilt++
		}
	}

	metrics.RecordSyncOperation(report.Duration, report.SectionsRebuilt, syncErrorType(syncErr), syncErr)

	if syncErr != nil {
		log.Error().Err(syncErr).
			Int("sections_rebuilt", report.SectionsRebuilt).
			Dur("duration", report.Duration).
			Msg("Library synchronization failed")
		return report, syncErr
	}

	s.initialized.Store(true)
	log.Info().
		Int("sections", report.Sections).
		Int("sections_rebuilt", report.SectionsRebuilt).
		Int("tracks", report.Tracks).
		Dur("duration", report.Duration).
		Msg("Library synchronized")

	if s.cfg.SaveAfterSync && s.cfg.SnapshotPath != "" {
		if err := s.SaveMusicSectionDetails(s.cfg.SnapshotPath); err != nil {
			log.Warn().Err(err).Msg("Failed to save snapshot after synchronization")
		} else {
			report.Saved = true
		}
	}
	return report, nil
}

// commit swaps in tree and a freshly built index.
func (s *Service) commit(tree []*models.Section) *Index {
	start := time.Now()
	ix := BuildIndex(tree)
	sections, artists, albums, tracks := ix.Counts()
	metrics.RecordIndexRebuild(time.Since(start), sections, artists, albums, tracks)

	s.mu.Lock()
	s.sections = tree
	s.index = ix
	s.mu.Unlock()
	return ix
}

// cloneSections copies the section structs so a synchronization can update
// them without touching the tree readers see. Artist subtrees are shared;
// they are only ever replaced, never modified.
func cloneSections(sections []*models.Section) []*models.Section {
	if len(sections) == 0 {
		return nil
	}
	clones := make([]*models.Section, len(sections))
	for i, section := range sections {
		c := *section
		clones[i] = &c
	}
	return clones
}

func syncErrorType(err error) string {
	var fetchErr *FetchError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &fetchErr):
		return "fetch"
	default:
		return "other"
	}
}

// SaveMusicSectionDetails writes the cached tree to path.
func (s *Service) SaveMusicSectionDetails(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.store.Save(s.sections, path)
	if err != nil {
		return err
	}
	logging.Info().
		Str("path", path).
		Int("sections", meta.Sections).
		Int64("bytes", meta.CompressedBytes).
		Msg("Saved library snapshot")
	return nil
}

// DetermineMusicLibraryLastUpdateDate returns the newest LastUpdated of the
// cached sections without contacting the server.
func (s *Service) DetermineMusicLibraryLastUpdateDate() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.sections) == 0 {
		return time.Time{}, ErrNoSections
	}
	var latest time.Time
	for _, section := range s.sections {
		if section.LastUpdated.After(latest) {
			latest = section.LastUpdated
		}
	}
	return latest, nil
}

// LookupTrack returns the cached track with key.
func (s *Service) LookupTrack(key string) (*models.Track, error) {
	track, err := s.currentIndex().LookupTrack(key)
	metrics.RecordLookup("track", err == nil)
	return track, err
}

// LookupAlbum returns the cached album with key.
func (s *Service) LookupAlbum(key string) (*models.Album, error) {
	album, err := s.currentIndex().LookupAlbum(key)
	metrics.RecordLookup("album", err == nil)
	return album, err
}

// LookupArtist returns the cached artist with key.
func (s *Service) LookupArtist(key string) (*models.Artist, error) {
	artist, err := s.currentIndex().LookupArtist(key)
	metrics.RecordLookup("artist", err == nil)
	return artist, err
}

func (s *Service) currentIndex() *Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Sections summarizes the cached sections in tree order.
func (s *Service) Sections() []models.SectionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.SectionSummary, 0, len(s.sections))
	for _, section := range s.sections {
		summaries = append(summaries, section.Summarize())
	}
	return summaries
}

// Progress returns the feed synchronizations publish to.
func (s *Service) Progress() *ProgressFeed {
	return s.progress
}

// IsReady reports whether the tree was loaded or synchronized successfully.
func (s *Service) IsReady() bool {
	return s.initialized.Load()
}

// SnapshotPath returns the configured snapshot location.
func (s *Service) SnapshotPath() string {
	return s.cfg.SnapshotPath
}
