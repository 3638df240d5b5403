// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/plexmirror/internal/library"
	"github.com/tomtom215/plexmirror/internal/models"
	ws "github.com/tomtom215/plexmirror/internal/websocket"
)

// mapFetcher serves canned containers by resource path.
type mapFetcher map[string]*models.MediaContainer

func (m mapFetcher) Fetch(_ context.Context, path string) (*models.MediaContainer, error) {
	if c, ok := m[path]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unexpected path %s", path)
}

func plexLibrary() mapFetcher {
	return mapFetcher{
		library.SectionsPath: {Size: 1, Directory: []models.Record{
			{Key: "1", UUID: "uuid-music", Type: models.PlexTypeArtist, Title: "Music", UpdatedAt: 1700000000},
		}},
		"library/sections/1/all": {Size: 1, Metadata: []models.Record{
			{Key: "/library/metadata/10/children", RatingKey: "10", Type: "artist", Title: "Artist"},
		}},
		"/library/metadata/10/children": {Size: 1, Metadata: []models.Record{
			{Key: "/library/metadata/20/children", RatingKey: "20", Type: "album", Title: "Album"},
		}},
		"/library/metadata/20/children": {Size: 1, Metadata: []models.Record{
			{Key: "/library/metadata/30", RatingKey: "30", Type: "track", Title: "Playable", Index: 1, Duration: 120},
		}},
	}
}

func TestRouter_SyncThenLookup(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "library.snapshot")
	svc := library.NewService(plexLibrary(), library.ServiceConfig{
		ArtistLimit:  library.DefaultArtistLimit,
		SnapshotPath: snapshot,
	})
	srv := newTestServer(t, svc, HandlerOptions{})

	rec, _ := doRequest(t, srv, http.MethodGet, "/api/v1/health/ready")
	assertStatus(t, rec, http.StatusServiceUnavailable)

	rec, _ = doRequest(t, srv, http.MethodPost, "/api/v1/library/sync")
	assertStatus(t, rec, http.StatusOK)

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/health/ready")
	assertStatus(t, rec, http.StatusOK)

	rec, resp := doRequest(t, srv, http.MethodGet, escapedKeyPath("/api/v1/tracks/", "/library/metadata/30"))
	assertStatus(t, rec, http.StatusOK)
	var track models.Track
	if err := json.Unmarshal(resp.Data, &track); err != nil {
		t.Fatalf("decode track: %v", err)
	}
	if track.AlbumKey != "/library/metadata/20/children" || track.Duration != 120*time.Millisecond {
		t.Errorf("unexpected track: %+v", track)
	}

	rec, resp = doRequest(t, srv, http.MethodGet, "/api/v1/sections")
	assertStatus(t, rec, http.StatusOK)
	var sections []models.SectionSummary
	if err := json.Unmarshal(resp.Data, &sections); err != nil {
		t.Fatalf("decode sections: %v", err)
	}
	if len(sections) != 1 || sections[0].Key != "uuid-music" || sections[0].Tracks != 1 {
		t.Errorf("unexpected sections: %+v", sections)
	}

	rec, _ = doRequest(t, srv, http.MethodPost, "/api/v1/library/snapshot/save")
	assertStatus(t, rec, http.StatusOK)

	restored := library.NewService(mapFetcher{}, library.ServiceConfig{SnapshotPath: snapshot})
	restoredSrv := newTestServer(t, restored, HandlerOptions{})
	rec, _ = doRequest(t, restoredSrv, http.MethodPost, "/api/v1/library/snapshot/load")
	assertStatus(t, rec, http.StatusOK)
	rec, _ = doRequest(t, restoredSrv, http.MethodGet, escapedKeyPath("/api/v1/albums/", "/library/metadata/20/children"))
	assertStatus(t, rec, http.StatusOK)
}

func TestRouter_LookupBeforeSyncSynchronizesOnce(t *testing.T) {
	svc := library.NewService(plexLibrary(), library.ServiceConfig{ArtistLimit: library.DefaultArtistLimit})
	srv := newTestServer(t, svc, HandlerOptions{})

	rec, _ := doRequest(t, srv, http.MethodGet, escapedKeyPath("/api/v1/tracks/", "/library/metadata/30"))
	assertStatus(t, rec, http.StatusOK)

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/health/ready")
	assertStatus(t, rec, http.StatusOK)

	rec, resp := doRequest(t, srv, http.MethodGet, escapedKeyPath("/api/v1/tracks/", "/library/metadata/31"))
	assertStatus(t, rec, http.StatusNotFound)
	assertErrorCode(t, resp, ErrCodeNotFound)
}

func TestRouter_NotFoundAndRequestID(t *testing.T) {
	srv := newTestServer(t, newStubService(), HandlerOptions{})

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/nope")
	assertStatus(t, rec, http.StatusNotFound)
	assertErrorCode(t, resp, ErrCodeNotFound)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	srv := newTestServer(t, newStubService(), HandlerOptions{})
	rec, _ := doRequest(t, srv, http.MethodGet, "/api/v1/sections")
	assertStatus(t, rec, http.StatusOK)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("expected ETag header")
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestRouter_CompressesLargeResponses(t *testing.T) {
	svc := newStubService()
	for i := 0; i < 50; i++ {
		svc.sections = append(svc.sections, models.SectionSummary{Key: fmt.Sprintf("uuid-%d", i), Name: "Music", Artists: i})
	}
	srv := newTestServer(t, svc, HandlerOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sections", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assertStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	srv := newTestServer(t, newStubService(), HandlerOptions{})
	doRequest(t, srv, http.MethodGet, "/api/v1/sections")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assertStatus(t, rec, http.StatusOK)

	body := rec.Body.String()
	if !strings.Contains(body, `api_requests_total{endpoint="/api/v1/sections"`) {
		t.Error("metrics should label requests by route pattern")
	}
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	srv := NewRouter(NewHandler(newStubService(), HandlerOptions{}), cfg).SetupChi()

	for i := 0; i < 2; i++ {
		rec, _ := doRequest(t, srv, http.MethodGet, "/api/v1/sections")
		assertStatus(t, rec, http.StatusOK)
	}
	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/sections")
	assertStatus(t, rec, http.StatusTooManyRequests)
	assertErrorCode(t, resp, ErrCodeTooManyRequests)

	// Health probes have their own budget.
	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/health/live")
	assertStatus(t, rec, http.StatusOK)
}

func TestRouter_CORSPreflight(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"http://player.local"}
	srv := NewRouter(NewHandler(newStubService(), HandlerOptions{}), cfg).SetupChi()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/library/sync", nil)
	req.Header.Set("Origin", "http://player.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://player.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/library/sync", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin got Access-Control-Allow-Origin %q", got)
	}
}

func TestRouter_WebSocketReceivesSyncResult(t *testing.T) {
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	svc := newStubService()
	server := httptest.NewServer(newTestServer(t, svc, HandlerOptions{Hub: hub}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	syncResp, err := http.Post(server.URL+"/api/v1/library/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("sync request: %v", err)
	}
	syncResp.Body.Close()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	var msg struct {
		Type string            `json:"type"`
		Data ws.SyncResultData `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != ws.MessageTypeSyncCompleted || msg.Data.SectionsRebuilt != 1 || msg.Data.DurationMs != 1500 {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestRouter_WebSocketRejectsOrigin(t *testing.T) {
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	server := httptest.NewServer(newTestServer(t, newStubService(), HandlerOptions{Hub: hub}))
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		conn.Close()
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
}
