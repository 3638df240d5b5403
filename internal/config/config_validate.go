// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package config

import (
	"strings"
	"time"

	"github.com/tomtom215/plexmirror/internal/validation"
)

// ConfigError reports a single invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + ": " + e.Message
}

// Validate checks that required configuration is present and valid.
// Struct tags are checked first, then cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validatePlex(); err != nil {
		return err
	}

	if err := c.validateLibrary(); err != nil {
		return err
	}

	return c.validateServer()
}

// validatePlex validates the Plex connection settings
func (c *Config) validatePlex() error {
	if err := validateHTTPURL(c.Plex.URL, "PLEX_URL"); err != nil {
		return &ConfigError{Field: "plex.url", Message: err.Error()}
	}
	if c.Plex.Timeout <= 0 {
		return &ConfigError{Field: "plex.timeout", Message: "must be positive"}
	}
	if strings.ContainsAny(c.Plex.Token, " \t\r\n") {
		return &ConfigError{Field: "plex.token", Message: "must not contain whitespace"}
	}
	return nil
}

// validateLibrary validates snapshot and synchronization settings
func (c *Config) validateLibrary() error {
	if strings.HasSuffix(c.Library.SnapshotPath, "/") {
		return &ConfigError{Field: "library.snapshot_path", Message: "must be a file path, not a directory"}
	}
	return nil
}

// validateServer validates HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Timeout <= 0 {
		return &ConfigError{Field: "server.timeout", Message: "must be positive"}
	}
	if c.Server.RateLimitReqs > 0 && c.Server.RateLimitWindow < time.Second {
		return &ConfigError{Field: "server.rate_limit_window", Message: "must be at least 1s when rate limiting is enabled"}
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin, "CORS_ORIGINS"); err != nil {
			return &ConfigError{Field: "server.cors_origins", Message: err.Error()}
		}
	}
	return nil
}
