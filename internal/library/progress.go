// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package library

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tomtom215/plexmirror/internal/metrics"
)

// DefaultProgressBuffer is the feed capacity used when none is configured.
const DefaultProgressBuffer = 256

// ProgressEvent is one human-readable status line from a synchronization.
type ProgressEvent struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressFeed is a bounded stream of progress events. Publishing never
// blocks: when nobody drains the feed and the buffer is full, events are
// dropped and counted. The feed is never closed.
type ProgressFeed struct {
	events  chan ProgressEvent
	dropped atomic.Uint64
}

// NewProgressFeed creates a feed holding up to buffer undelivered events.
func NewProgressFeed(buffer int) *ProgressFeed {
	if buffer <= 0 {
		buffer = DefaultProgressBuffer
	}
	return &ProgressFeed{events: make(chan ProgressEvent, buffer)}
}

// Publish queues message. A nil feed discards it.
func (f *ProgressFeed) Publish(message string) {
	if f == nil {
		return
	}
	select {
	case f.events <- ProgressEvent{Message: message, Timestamp: time.Now().UTC()}:
	default:
		f.dropped.Add(1)
		metrics.ProgressDropped.Inc()
	}
}

// Publishf formats and queues a message.
func (f *ProgressFeed) Publishf(format string, args ...interface{}) {
	if f == nil {
		return
	}
	f.Publish(fmt.Sprintf(format, args...))
}

// Events returns the channel consumers drain.
func (f *ProgressFeed) Events() <-chan ProgressEvent {
	return f.events
}

// Dropped returns how many events were discarded on a full buffer.
func (f *ProgressFeed) Dropped() uint64 {
	return f.dropped.Load()
}
