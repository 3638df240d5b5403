// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package plex

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned when Plex answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Path       string
	Retries    int // retries spent on HTTP 429 before giving up
}

func (e *StatusError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests && e.Retries > 0 {
		return fmt.Sprintf("plex %s: rate limit exceeded after %d retries", e.Path, e.Retries)
	}
	return fmt.Sprintf("plex %s: unexpected status %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsClientError reports whether err is a 4xx response other than 429.
// Such responses mean the request was wrong, not that the server is unhealthy.
func IsClientError(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 &&
		statusErr.StatusCode != http.StatusTooManyRequests
}
