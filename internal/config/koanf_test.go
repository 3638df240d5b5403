// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/plexmirror/internal/validation"
)

// isolateEnv unsets every mapped environment variable for the duration of the
// test and moves into an empty directory so no config.yaml is picked up.
func isolateEnv(t *testing.T) {
	t.Helper()
	for key := range envMappings {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	t.Setenv(ConfigPathEnvVar, "")
	t.Chdir(t.TempDir())
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Plex.URL != "http://localhost:32400" {
		t.Errorf("Plex.URL = %q, want http://localhost:32400", cfg.Plex.URL)
	}
	if cfg.Plex.Timeout != 30*time.Second {
		t.Errorf("Plex.Timeout = %v, want 30s", cfg.Plex.Timeout)
	}
	if cfg.Library.ArtistLimit != 10 {
		t.Errorf("Library.ArtistLimit = %d, want 10", cfg.Library.ArtistLimit)
	}
	if !cfg.Library.SyncOnStartup || !cfg.Library.SaveAfterSync {
		t.Error("SyncOnStartup and SaveAfterSync should default to true")
	}
	if cfg.Library.SnapshotPath != "/data/library.snapshot" {
		t.Errorf("Library.SnapshotPath = %q", cfg.Library.SnapshotPath)
	}
	if cfg.Server.Port != 3858 {
		t.Errorf("Server.Port = %d, want 3858", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"PLEX_URL", "plex.url"},
		{"PLEX_TOKEN", "plex.token"},
		{"SNAPSHOT_PATH", "library.snapshot_path"},
		{"LIBRARY_ARTIST_LIMIT", "library.artist_limit"},
		{"HTTP_PORT", "server.port"},
		{"CORS_ORIGINS", "server.cors_origins"},
		{"LOG_LEVEL", "logging.level"},
		{"HOME", ""},
		{"PATH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	isolateEnv(t)

	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty string", got)
	}

	if err := os.WriteFile("config.yaml", []byte("plex: {}"), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	if got := findConfigFile(); got != "config.yaml" {
		t.Errorf("findConfigFile() = %q, want config.yaml", got)
	}

	custom := writeConfigFile(t, "plex: {}")
	t.Setenv(ConfigPathEnvVar, custom)
	if got := findConfigFile(); got != custom {
		t.Errorf("findConfigFile() = %q, want %q", got, custom)
	}

	t.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
	if got := findConfigFile(); got != "config.yaml" {
		t.Errorf("findConfigFile() with missing CONFIG_PATH = %q, want fallback config.yaml", got)
	}
}

func TestLoadWithKoanfDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Plex.ClientIdentifier == "" {
		t.Error("ClientIdentifier should be generated when empty")
	}
	if cfg.Plex.Device == "" {
		t.Error("Device should default to the hostname")
	}
	if cfg.Server.Addr() != "0.0.0.0:3858" {
		t.Errorf("Server.Addr() = %q, want 0.0.0.0:3858", cfg.Server.Addr())
	}
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PLEX_URL", "http://plex.local:32400/")
	t.Setenv("PLEX_TOKEN", "abc123")
	t.Setenv("PLEX_TIMEOUT", "5s")
	t.Setenv("LIBRARY_ARTIST_LIMIT", "0")
	t.Setenv("SYNC_ON_STARTUP", "false")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CORS_ORIGINS", "http://a.local, http://b.local")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Plex.URL != "http://plex.local:32400" {
		t.Errorf("Plex.URL = %q, want trailing slash trimmed", cfg.Plex.URL)
	}
	if cfg.Plex.Token != "abc123" {
		t.Errorf("Plex.Token = %q, want abc123", cfg.Plex.Token)
	}
	if cfg.Plex.Timeout != 5*time.Second {
		t.Errorf("Plex.Timeout = %v, want 5s", cfg.Plex.Timeout)
	}
	if cfg.Library.ArtistLimit != 0 {
		t.Errorf("Library.ArtistLimit = %d, want 0", cfg.Library.ArtistLimit)
	}
	if cfg.Library.SyncOnStartup {
		t.Error("Library.SyncOnStartup = true, want false")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.local" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	// Unset values keep their defaults
	if cfg.Library.ProgressBuffer != 256 {
		t.Errorf("Library.ProgressBuffer = %d, want 256 (default)", cfg.Library.ProgressBuffer)
	}
}

func TestLoadWithKoanfConfigFileAndEnvOverride(t *testing.T) {
	isolateEnv(t)
	path := writeConfigFile(t, `
plex:
  url: "http://file.local:32400"
  token: "file-token"
library:
  snapshot_path: "/tmp/mirror.snapshot"
  artist_limit: 25
server:
  port: 8888
  cors_origins:
    - "http://ui.local"
logging:
  level: "warn"
`)
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PLEX_TOKEN", "env-token")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Plex.URL != "http://file.local:32400" {
		t.Errorf("Plex.URL = %q, want value from file", cfg.Plex.URL)
	}
	if cfg.Plex.Token != "env-token" {
		t.Errorf("Plex.Token = %q, env should override file", cfg.Plex.Token)
	}
	if cfg.Library.ArtistLimit != 25 {
		t.Errorf("Library.ArtistLimit = %d, want 25", cfg.Library.ArtistLimit)
	}
	if cfg.Library.SnapshotPath != "/tmp/mirror.snapshot" {
		t.Errorf("Library.SnapshotPath = %q", cfg.Library.SnapshotPath)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://ui.local" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.applyDerivedDefaults()
		return cfg
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		wantConfigErr string // expected ConfigError.Field
		wantTagErr    bool   // expected validator error
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "missing plex url", mutate: func(c *Config) { c.Plex.URL = "" }, wantTagErr: true},
		{name: "plex url with path", mutate: func(c *Config) { c.Plex.URL = "http://plex.local:32400/web" }, wantConfigErr: "plex.url"},
		{name: "ftp plex url", mutate: func(c *Config) { c.Plex.URL = "ftp://plex.local" }, wantConfigErr: "plex.url"},
		{name: "zero plex timeout", mutate: func(c *Config) { c.Plex.Timeout = 0 }, wantConfigErr: "plex.timeout"},
		{name: "token with whitespace", mutate: func(c *Config) { c.Plex.Token = "abc def" }, wantConfigErr: "plex.token"},
		{name: "negative artist limit", mutate: func(c *Config) { c.Library.ArtistLimit = -1 }, wantTagErr: true},
		{name: "zero progress buffer", mutate: func(c *Config) { c.Library.ProgressBuffer = 0 }, wantTagErr: true},
		{name: "empty snapshot path", mutate: func(c *Config) { c.Library.SnapshotPath = "" }, wantTagErr: true},
		{name: "directory snapshot path", mutate: func(c *Config) { c.Library.SnapshotPath = "/data/" }, wantConfigErr: "library.snapshot_path"},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 0 }, wantTagErr: true},
		{name: "tiny rate limit window", mutate: func(c *Config) { c.Server.RateLimitWindow = time.Millisecond }, wantConfigErr: "server.rate_limit_window"},
		{name: "rate limiting disabled ignores window", mutate: func(c *Config) { c.Server.RateLimitReqs = 0; c.Server.RateLimitWindow = 0 }},
		{name: "bad cors origin", mutate: func(c *Config) { c.Server.CORSOrigins = []string{"not-a-url"} }, wantConfigErr: "server.cors_origins"},
		{name: "wildcard cors origin", mutate: func(c *Config) { c.Server.CORSOrigins = []string{"*"} }},
		{name: "unknown log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantTagErr: true},
		{name: "unknown log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantTagErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			switch {
			case tt.wantConfigErr != "":
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("Validate() = %v, want *ConfigError", err)
				}
				if cfgErr.Field != tt.wantConfigErr {
					t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.wantConfigErr)
				}
			case tt.wantTagErr:
				var verr *validation.RequestValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Validate() = %v, want *validation.RequestValidationError", err)
				}
			default:
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
			}
		})
	}
}

func TestLoadWithKoanfRejectsInvalidEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LOG_FORMAT", "xml")

	if _, err := LoadWithKoanf(); err == nil {
		t.Fatal("LoadWithKoanf() succeeded with LOG_FORMAT=xml")
	}
}
