// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/plexmirror/internal/library"
	"github.com/tomtom215/plexmirror/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func createTestClient(hub *Hub, buffer int) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, buffer)}
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-client.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := startHub(t)
	client := createTestClient(hub, 4)

	hub.Register <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.Unregister <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })

	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed after unregister")
	}

	// Unregistering twice is harmless.
	hub.Unregister <- client
}

func TestHub_BroadcastSyncProgress(t *testing.T) {
	hub := startHub(t)
	first, second := createTestClient(hub, 4), createTestClient(hub, 4)
	hub.Register <- first
	hub.Register <- second
	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	hub.BroadcastSyncProgress("Adding 'Artist'", at)

	for _, client := range []*Client{first, second} {
		msg := receive(t, client)
		if msg.Type != MessageTypeSyncProgress {
			t.Errorf("Type = %q, want %q", msg.Type, MessageTypeSyncProgress)
		}
		data, ok := msg.Data.(SyncProgressData)
		if !ok {
			t.Fatalf("Data is %T, want SyncProgressData", msg.Data)
		}
		if data.Message != "Adding 'Artist'" || data.Timestamp != "2026-05-01T10:00:00Z" {
			t.Errorf("unexpected data: %+v", data)
		}
	}
}

func TestHub_BroadcastSyncResult(t *testing.T) {
	hub := startHub(t)
	client := createTestClient(hub, 4)
	hub.Register <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.BroadcastSyncResult(SyncResultData{DurationMs: 1500, SectionsRebuilt: 2, Tracks: 40})
	hub.BroadcastSyncResult(SyncResultData{Error: "fetch library/sections: unauthorized"})

	completed := receive(t, client)
	if completed.Type != MessageTypeSyncCompleted {
		t.Errorf("first message type = %q, want %q", completed.Type, MessageTypeSyncCompleted)
	}
	if data := completed.Data.(SyncResultData); data.Timestamp == "" || data.Tracks != 40 {
		t.Errorf("unexpected completed data: %+v", data)
	}

	failed := receive(t, client)
	if failed.Type != MessageTypeSyncFailed {
		t.Errorf("second message type = %q, want %q", failed.Type, MessageTypeSyncFailed)
	}
}

func TestHub_BroadcastSyncReport(t *testing.T) {
	hub := startHub(t)
	client := createTestClient(hub, 4)
	hub.Register <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.BroadcastSyncReport(&library.SyncReport{Duration: 2 * time.Second, SectionsRebuilt: 1, Tracks: 7}, nil)
	hub.BroadcastSyncReport(nil, errors.New("circuit breaker is open"))

	completed := receive(t, client)
	data := completed.Data.(SyncResultData)
	if completed.Type != MessageTypeSyncCompleted || data.DurationMs != 2000 || data.Tracks != 7 {
		t.Errorf("unexpected completed message: %s %+v", completed.Type, data)
	}

	failed := receive(t, client)
	data = failed.Data.(SyncResultData)
	if failed.Type != MessageTypeSyncFailed || data.Error != "circuit breaker is open" {
		t.Errorf("unexpected failed message: %s %+v", failed.Type, data)
	}
}

func TestHub_DropsSlowClients(t *testing.T) {
	hub := startHub(t)
	slow, fast := createTestClient(hub, 1), createTestClient(hub, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	hub.BroadcastJSON(MessageTypeSyncProgress, "one")
	hub.BroadcastJSON(MessageTypeSyncProgress, "two")

	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	if got := receive(t, fast); got.Data != "one" {
		t.Errorf("fast client got %v first", got.Data)
	}
	if got := receive(t, fast); got.Data != "two" {
		t.Errorf("fast client got %v second", got.Data)
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub() // not running

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.broadcast)+10; i++ {
			hub.BroadcastJSON(MessageTypeSyncProgress, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastJSON blocked on a full buffer")
	}
}

func TestHub_RunWithContextClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- hub.RunWithContext(ctx) }()

	client := createTestClient(hub, 4)
	hub.Register <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	cancel()
	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	if hub.GetClientCount() != 0 {
		t.Error("clients left after shutdown")
	}
	if _, ok := <-client.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
}

func TestGetShutdownReason(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(canceled); got != ShutdownReasonContextCanceled {
		t.Errorf("canceled reason = %q", got)
	}

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("deadline reason = %q", got)
	}
}

func TestMarshalMessage(t *testing.T) {
	data, err := MarshalMessage(Message{Type: MessageTypeSyncProgress, Data: SyncProgressData{Message: "hi", Timestamp: "t"}})
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	want := `{"type":"sync_progress","data":{"message":"hi","timestamp":"t"}}`
	if string(data) != want {
		t.Errorf("MarshalMessage() = %s, want %s", data, want)
	}
}

func TestClient_EndToEnd(t *testing.T) {
	hub := startHub(t)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = conn.Close() }()
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	// Application-level ping.
	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON(ping) error = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong Message
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("ReadJSON(pong) error = %v", err)
	}
	if pong.Type != MessageTypePong {
		t.Errorf("reply type = %q, want pong", pong.Type)
	}

	hub.BroadcastSyncProgress("Merging music data", time.Now())
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var got struct {
		Type string           `json:"type"`
		Data SyncProgressData `json:"data"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Type != MessageTypeSyncProgress || got.Data.Message != "Merging music data" {
		t.Errorf("unexpected frame: %s", raw)
	}

	_ = conn.Close()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
}
