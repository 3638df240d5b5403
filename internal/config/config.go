// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional config file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	client, err := plex.NewClient(plex.ClientConfig{BaseURL: cfg.Plex.URL, Token: cfg.Plex.Token})
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from multiple goroutines.
type Config struct {
	Plex    PlexConfig    `koanf:"plex"`
	Library LibraryConfig `koanf:"library"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// PlexConfig holds the Plex Media Server connection settings. The server
// address is read once at startup.
//
// Environment Variables:
//   - PLEX_URL: Plex Media Server URL (e.g., http://localhost:32400)
//   - PLEX_TOKEN: X-Plex-Token used for every request
//   - PLEX_CLIENT_IDENTIFIER: X-Plex-Client-Identifier (generated UUID when empty)
//   - PLEX_REQUESTS_PER_SECOND: client-side request rate (0 = unlimited)
type PlexConfig struct {
	URL                  string        `koanf:"url" validate:"required,url"`
	Token                string        `koanf:"token"`
	ClientIdentifier     string        `koanf:"client_identifier"`
	Product              string        `koanf:"product" validate:"required"`
	Device               string        `koanf:"device"`
	Timeout              time.Duration `koanf:"timeout"`
	RequestsPerSecond    float64       `koanf:"requests_per_second" validate:"min=0"`
	MaxConcurrentFetches int           `koanf:"max_concurrent_fetches" validate:"min=1,max=64"`
}

// LibraryConfig holds synchronization and snapshot settings.
type LibraryConfig struct {
	// SnapshotPath is the file the library tree is saved to and restored from.
	SnapshotPath string `koanf:"snapshot_path" validate:"required"`

	// ArtistLimit caps how many artists are processed per section.
	// 0 processes every artist. Default: 10
	ArtistLimit int `koanf:"artist_limit" validate:"min=0"`

	// SyncOnStartup synchronizes with Plex once the snapshot is restored.
	SyncOnStartup bool `koanf:"sync_on_startup"`

	// SaveAfterSync writes a snapshot after every successful synchronization.
	SaveAfterSync bool `koanf:"save_after_sync"`

	// ProgressBuffer is the capacity of the progress message feed.
	ProgressBuffer int `koanf:"progress_buffer" validate:"min=1"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Load reads configuration from all sources in order of increasing priority:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
