// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package plex

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/plexmirror/internal/models"
)

// stubFetcher returns err for every call and counts calls.
type stubFetcher struct {
	err   error
	calls int
}

func (s *stubFetcher) Fetch(ctx context.Context, path string) (*models.MediaContainer, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.MediaContainer{Size: 1}, nil
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	stub := &stubFetcher{err: errors.New("connection refused")}
	cbc := NewCircuitBreakerClient(stub, BreakerSettings{Name: "test-opens", Timeout: time.Hour})

	if cbc.State() != "closed" {
		t.Fatalf("initial state = %s, want closed", cbc.State())
	}

	for i := 0; i < 10; i++ {
		_, _ = cbc.Fetch(context.Background(), "library/sections")
	}

	if cbc.State() != "open" {
		t.Fatalf("state after 10 failures = %s, want open", cbc.State())
	}

	calls := stub.calls
	_, err := cbc.Fetch(context.Background(), "library/sections")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Fetch() on open circuit = %v, want ErrOpenState", err)
	}
	if stub.calls != calls {
		t.Error("open circuit should not call the wrapped client")
	}
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", &StatusError{StatusCode: http.StatusNotFound, Path: "/library/metadata/1"}},
		{"canceled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubFetcher{err: tt.err}
			cbc := NewCircuitBreakerClient(stub, BreakerSettings{Name: "test-ignore-" + tt.name})

			for i := 0; i < 20; i++ {
				if _, err := cbc.Fetch(context.Background(), "x"); !errors.Is(err, tt.err) {
					t.Fatalf("Fetch() error = %v, want %v", err, tt.err)
				}
			}
			if cbc.State() != "closed" {
				t.Errorf("state = %s, want closed", cbc.State())
			}
		})
	}
}

func TestCircuitBreakerPassesResults(t *testing.T) {
	cbc := NewCircuitBreakerClient(&stubFetcher{}, BreakerSettings{Name: "test-pass"})

	mc, err := cbc.Fetch(context.Background(), "library/sections")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if mc.Size != 1 {
		t.Errorf("Size = %d, want 1", mc.Size)
	}
}

func TestStateConversions(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		str   string
		val   float64
	}{
		{gobreaker.StateClosed, "closed", 0},
		{gobreaker.StateHalfOpen, "half-open", 1},
		{gobreaker.StateOpen, "open", 2},
	}
	for _, tt := range tests {
		if got := stateToString(tt.state); got != tt.str {
			t.Errorf("stateToString(%v) = %q, want %q", tt.state, got, tt.str)
		}
		if got := stateToFloat(tt.state); got != tt.val {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.val)
		}
	}
}
