// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

/*
Package config loads and validates application configuration.

Configuration is layered with Koanf v2: struct defaults, then an optional YAML
file (CONFIG_PATH, ./config.yaml or /etc/plexmirror/config.yaml), then a fixed
set of environment variables. Unknown environment variables are ignored.

Example config.yaml:

	plex:
	  url: http://192.168.1.10:32400
	  token: xxxxxxxx
	library:
	  snapshot_path: /data/library.snapshot
	  artist_limit: 0
	server:
	  port: 3858
	logging:
	  level: debug
	  format: console

Validation runs go-playground/validator struct tags through the validation
package and then cross-field checks that return *ConfigError.
*/
package config
