// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestResourceLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"library/sections", "sections"},
		{"/library/sections", "sections"},
		{"library/sections/3/all", "section_items"},
		{"/library/metadata/100/children", "metadata_children"},
		{"/library/metadata/100", "metadata"},
		{"/library/metadata/100/children?X-Plex-Container-Start=0", "metadata_children"},
		{"status/sessions", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ResourceLabel(tt.path); got != tt.want {
				t.Errorf("ResourceLabel(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRecordSyncOperation(t *testing.T) {
	beforeRebuilt := testutil.ToFloat64(SyncSectionsRebuilt)
	beforeFetch := testutil.ToFloat64(SyncErrors.WithLabelValues("fetch"))
	beforeOther := testutil.ToFloat64(SyncErrors.WithLabelValues("other"))

	RecordSyncOperation(2*time.Second, 3, "", nil)
	if got := testutil.ToFloat64(SyncSectionsRebuilt) - beforeRebuilt; got != 3 {
		t.Errorf("sections rebuilt delta = %v, want 3", got)
	}
	if testutil.ToFloat64(SyncLastSuccess) == 0 {
		t.Error("SyncLastSuccess not set after successful sync")
	}

	RecordSyncOperation(time.Second, 0, "fetch", errors.New("boom"))
	if got := testutil.ToFloat64(SyncErrors.WithLabelValues("fetch")) - beforeFetch; got != 1 {
		t.Errorf("fetch errors delta = %v, want 1", got)
	}

	RecordSyncOperation(time.Second, 0, "", errors.New("boom"))
	if got := testutil.ToFloat64(SyncErrors.WithLabelValues("other")) - beforeOther; got != 1 {
		t.Errorf("other errors delta = %v, want 1", got)
	}
}

func TestRecordIndexRebuild(t *testing.T) {
	RecordIndexRebuild(time.Millisecond, 1, 2, 3, 4)

	want := map[string]float64{"section": 1, "artist": 2, "album": 3, "track": 4}
	for kind, n := range want {
		if got := testutil.ToFloat64(LibraryEntities.WithLabelValues(kind)); got != n {
			t.Errorf("library_entities{kind=%q} = %v, want %v", kind, got, n)
		}
	}
}

func TestRecordLookup(t *testing.T) {
	hits := testutil.ToFloat64(LookupsTotal.WithLabelValues("track", "hit"))
	misses := testutil.ToFloat64(LookupsTotal.WithLabelValues("track", "miss"))

	RecordLookup("track", true)
	RecordLookup("track", false)
	RecordLookup("track", false)

	if got := testutil.ToFloat64(LookupsTotal.WithLabelValues("track", "hit")) - hits; got != 1 {
		t.Errorf("hit delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(LookupsTotal.WithLabelValues("track", "miss")) - misses; got != 2 {
		t.Errorf("miss delta = %v, want 2", got)
	}
}

func TestRecordSnapshot(t *testing.T) {
	errs := testutil.ToFloat64(SnapshotErrors.WithLabelValues("load"))

	RecordSnapshot("save", time.Millisecond, 100, 400, nil)
	if got := testutil.ToFloat64(SnapshotBytes.WithLabelValues("compressed")); got != 100 {
		t.Errorf("compressed bytes = %v, want 100", got)
	}
	if got := testutil.ToFloat64(SnapshotBytes.WithLabelValues("uncompressed")); got != 400 {
		t.Errorf("uncompressed bytes = %v, want 400", got)
	}

	RecordSnapshot("load", time.Millisecond, 0, 0, errors.New("corrupt"))
	if got := testutil.ToFloat64(SnapshotErrors.WithLabelValues("load")) - errs; got != 1 {
		t.Errorf("load errors delta = %v, want 1", got)
	}
	// A failed operation must not clobber the last good sizes.
	if got := testutil.ToFloat64(SnapshotBytes.WithLabelValues("compressed")); got != 100 {
		t.Errorf("compressed bytes after failure = %v, want 100", got)
	}
}

func TestRecordPlexFetch(t *testing.T) {
	before429 := testutil.ToFloat64(PlexFetchErrors.WithLabelValues("section_items", "429"))
	beforeNone := testutil.ToFloat64(PlexFetchErrors.WithLabelValues("sections", "none"))

	RecordPlexFetch("library/sections/3/all", time.Millisecond, 429, errors.New("rate limited"))
	RecordPlexFetch("library/sections", time.Millisecond, 0, errors.New("dial tcp: refused"))
	RecordPlexFetch("library/sections", time.Millisecond, 200, nil)

	if got := testutil.ToFloat64(PlexFetchErrors.WithLabelValues("section_items", "429")) - before429; got != 1 {
		t.Errorf("429 errors delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(PlexFetchErrors.WithLabelValues("sections", "none")) - beforeNone; got != 1 {
		t.Errorf("transport errors delta = %v, want 1", got)
	}
}

func TestTrackActiveRequestConcurrent(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			TrackActiveRequest(true)
			TrackActiveRequest(false)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}
