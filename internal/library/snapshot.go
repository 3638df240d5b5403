// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package library

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/tomtom215/plexmirror/internal/metrics"
	"github.com/tomtom215/plexmirror/internal/models"
)

// snapshotFormatVersion is bumped whenever the encoded entity layout changes.
const snapshotFormatVersion = 1

// maxSnapshotMemory bounds the decompressed payload size.
const maxSnapshotMemory = 1 << 30

// SnapshotMetadata describes a saved snapshot.
type SnapshotMetadata struct {
	Version           int
	SavedAt           time.Time
	Sections          int
	Artists           int
	Albums            int
	Tracks            int
	UncompressedBytes int64
	CompressedBytes   int64
	Checksum          string // SHA-256 of the uncompressed payload
}

// snapshotFile is the on-disk format.
type snapshotFile struct {
	Metadata       SnapshotMetadata
	CompressedData []byte
}

// SnapshotStore persists a whole section tree as one file: a gob-encoded
// snapshotFile whose payload is the gob-encoded tree compressed with zstd.
// Saves write a temporary file next to the destination and rename it into
// place, so a crash never leaves a truncated snapshot behind.
type SnapshotStore struct {
	level zstd.EncoderLevel
}

// NewSnapshotStore creates a store compressing at the best zstd level.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{level: zstd.SpeedBestCompression}
}

// Save writes sections to path. Failures are returned as *PersistenceError.
func (s *SnapshotStore) Save(sections []*models.Section, path string) (meta *SnapshotMetadata, err error) {
	start := time.Now()
	defer func() {
		var compressed, raw int
		if meta != nil {
			compressed, raw = int(meta.CompressedBytes), int(meta.UncompressedBytes)
		}
		metrics.RecordSnapshot("save", time.Since(start), compressed, raw, err)
	}()

	fail := func(err error) (*SnapshotMetadata, error) {
		return nil, &PersistenceError{Op: "save", Path: path, Err: err}
	}

	if sections == nil {
		sections = []*models.Section{}
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(sections); err != nil {
		return fail(fmt.Errorf("encode tree: %w", err))
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(s.level))
	if err != nil {
		return fail(fmt.Errorf("create compressor: %w", err))
	}
	compressed := encoder.EncodeAll(raw.Bytes(), nil)
	if err := encoder.Close(); err != nil {
		return fail(fmt.Errorf("finalize compression: %w", err))
	}

	hash := sha256.Sum256(raw.Bytes())
	m := SnapshotMetadata{
		Version:           snapshotFormatVersion,
		SavedAt:           time.Now().UTC(),
		UncompressedBytes: int64(raw.Len()),
		CompressedBytes:   int64(len(compressed)),
		Checksum:          hex.EncodeToString(hash[:]),
	}
	m.Sections, m.Artists, m.Albums, m.Tracks = BuildIndex(sections).Counts()

	if err := writeFileAtomic(path, snapshotFile{Metadata: m, CompressedData: compressed}); err != nil {
		return fail(err)
	}
	return &m, nil
}

// writeFileAtomic gob-encodes sf into a temp file beside path and renames it.
func writeFileAtomic(path string, sf snapshotFile) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load reads the tree saved at path. Failures, including a checksum or
// version mismatch, are returned as *PersistenceError.
func (s *SnapshotStore) Load(path string) (sections []*models.Section, meta *SnapshotMetadata, err error) {
	start := time.Now()
	defer func() {
		var compressed, raw int
		if meta != nil {
			compressed, raw = int(meta.CompressedBytes), int(meta.UncompressedBytes)
		}
		metrics.RecordSnapshot("load", time.Since(start), compressed, raw, err)
	}()

	fail := func(err error) ([]*models.Section, *SnapshotMetadata, error) {
		return nil, nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}

	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fail(err)
	}
	defer func() { _ = f.Close() }()

	var sf snapshotFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return fail(fmt.Errorf("read snapshot file: %w", err))
	}
	if sf.Metadata.Version != snapshotFormatVersion {
		return fail(fmt.Errorf("unsupported snapshot version %d (want %d)", sf.Metadata.Version, snapshotFormatVersion))
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSnapshotMemory))
	if err != nil {
		return fail(fmt.Errorf("create decompressor: %w", err))
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(sf.CompressedData, nil)
	if err != nil {
		return fail(fmt.Errorf("decompress snapshot: %w", err))
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return fail(fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum))
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&sections); err != nil {
		return fail(fmt.Errorf("decode tree: %w", err))
	}
	for i, section := range sections {
		if section == nil {
			return fail(fmt.Errorf("snapshot contains a nil section at position %d", i))
		}
	}

	return sections, &sf.Metadata, nil
}
