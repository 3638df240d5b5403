// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package services

import (
	"context"
	"time"

	"github.com/tomtom215/plexmirror/internal/library"
	"github.com/tomtom215/plexmirror/internal/logging"
)

// ProgressSource is satisfied by *library.ProgressFeed.
type ProgressSource interface {
	Events() <-chan library.ProgressEvent
}

// ProgressBroadcaster is satisfied by *websocket.Hub.
type ProgressBroadcaster interface {
	BroadcastSyncProgress(message string, at time.Time)
}

// ProgressPumpService drains the synchronizer's progress feed. Every event
// is logged and, when a broadcaster is set, pushed to websocket clients.
// Without a running pump the feed fills up and further events are dropped.
type ProgressPumpService struct {
	source      ProgressSource
	broadcaster ProgressBroadcaster
	name        string
}

// NewProgressPumpService creates a pump from source to broadcaster.
// broadcaster may be nil.
func NewProgressPumpService(source ProgressSource, broadcaster ProgressBroadcaster) *ProgressPumpService {
	return &ProgressPumpService{
		source:      source,
		broadcaster: broadcaster,
		name:        "progress-pump",
	}
}

// Serve implements suture.Service.
func (p *ProgressPumpService) Serve(ctx context.Context) error {
	log := logging.WithComponent("sync")
	events := p.source.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-events:
			log.Info().Time("at", event.Timestamp).Msg(event.Message)
			if p.broadcaster != nil {
				p.broadcaster.BroadcastSyncProgress(event.Message, event.Timestamp)
			}
		}
	}
}

// String names the service in supervisor logs.
func (p *ProgressPumpService) String() string {
	return p.name
}
