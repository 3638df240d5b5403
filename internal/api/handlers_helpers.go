// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/plexmirror/internal/library"
	"github.com/tomtom215/plexmirror/internal/logging"
	"github.com/tomtom215/plexmirror/internal/models"
	"github.com/tomtom215/plexmirror/internal/validation"
)

// Error codes for API responses
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeSyncInProgress      = "SYNC_IN_PROGRESS"
	ErrCodeNoSections          = "NO_SECTIONS"
	ErrCodeCircuitOpen         = "CIRCUIT_OPEN"
	ErrCodeFetch               = "FETCH_ERROR"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodePersistence         = "PERSISTENCE_ERROR"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeNotReady            = "NOT_READY"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeSnapshotUnavailable = "SNAPSHOT_NOT_CONFIGURED"
)

// sanitizeLogValue escapes control characters so request data cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag creates a weak validator from data using FNV-1a
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// respondSuccess wraps data in a success envelope.
func respondSuccess(w http.ResponseWriter, data interface{}, start time.Time) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Data:   nil,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondServiceError maps library and plex errors to HTTP responses.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		fetchErr       *library.FetchError
		persistenceErr *library.PersistenceError
	)
	switch {
	case errors.Is(err, library.ErrNotFound):
		// Expected outcome; not logged.
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
	case errors.Is(err, library.ErrSyncInProgress):
		respondError(w, http.StatusConflict, ErrCodeSyncInProgress, "A library synchronization is already running", nil)
	case errors.Is(err, library.ErrNoSections):
		respondError(w, http.StatusServiceUnavailable, ErrCodeNoSections, "No music sections cached yet", nil)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, ErrCodeCircuitOpen, "Plex requests are temporarily suspended", err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "Plex did not answer in time", err)
	case errors.As(err, &fetchErr):
		respondError(w, http.StatusBadGateway, ErrCodeFetch, "Failed to fetch library data from Plex", err)
	case errors.As(err, &persistenceErr):
		respondError(w, http.StatusInternalServerError, ErrCodePersistence, "Snapshot "+persistenceErr.Op+" failed", err)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", err)
	}
}

// respondValidationError sends a 400 for a failed parameter validation.
func respondValidationError(w http.ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
		Error: &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// keyParam reads and validates the URL-escaped {key} route parameter.
// It writes the error response and returns false when the key is unusable.
func keyParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "key")
	key, err := url.PathUnescape(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "key is not properly escaped", nil)
		return "", false
	}
	if verr := validation.ValidateVar("key", key, "required,plexpath"); verr != nil {
		respondValidationError(w, verr)
		return "", false
	}
	return key, true
}
