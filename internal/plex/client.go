// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

/*
Package plex is a read-only client for the Plex Media Server library API.

Client.Fetch takes a resource path ("library/sections",
"library/sections/3/all", "/library/metadata/100/children") and returns the
decoded MediaContainer. Every request carries the X-Plex identification
headers and the X-Plex-Token, asks for JSON, waits on a client-side rate
limiter, and retries HTTP 429 responses with exponential backoff.

CircuitBreakerClient wraps a Client with sony/gobreaker so a Plex server that
is down fails fast instead of stalling every synchronization.
*/
package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tomtom215/plexmirror/internal/models"
)

// Version is sent as X-Plex-Version.
var Version = "dev"

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL          string // e.g. http://localhost:32400
	Token            string // X-Plex-Token
	ClientIdentifier string // X-Plex-Client-Identifier
	Product          string // X-Plex-Product
	Device           string // X-Plex-Device
	Timeout          time.Duration

	// RequestsPerSecond throttles outgoing requests. 0 disables throttling.
	RequestsPerSecond float64

	// MaxConcurrent caps in-flight requests. 0 means unbounded.
	MaxConcurrent int

	// HTTPClient overrides the default client (Timeout is ignored then).
	HTTPClient *http.Client
}

// Client handles communication with the Plex Media Server API
type Client struct {
	baseURL    *url.URL
	token      string
	headers    http.Header
	httpClient *http.Client
	limiter    *rate.Limiter
	inflight   *semaphore.Weighted

	maxRetries int
	baseDelay  time.Duration
}

// NewClient creates a Plex API client. BaseURL must be an absolute http(s) URL.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) URL: %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	var inflight *semaphore.Weighted
	if cfg.MaxConcurrent > 0 {
		inflight = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}

	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		headers:    identificationHeaders(cfg),
		httpClient: httpClient,
		limiter:    limiter,
		inflight:   inflight,
		maxRetries: 5,
		baseDelay:  time.Second,
	}, nil
}

// identificationHeaders builds the X-Plex-* headers Plex uses to identify
// the calling client.
func identificationHeaders(cfg ClientConfig) http.Header {
	product := cfg.Product
	if product == "" {
		product = "plexmirror"
	}
	device := cfg.Device
	if device == "" {
		device = product
	}

	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("X-Plex-Platform", runtime.GOOS)
	h.Set("X-Plex-Platform-Version", runtime.Version())
	h.Set("X-Plex-Provides", "player")
	h.Set("X-Plex-Product", product)
	h.Set("X-Plex-Version", Version)
	h.Set("X-Plex-Device", device)
	if cfg.ClientIdentifier != "" {
		h.Set("X-Plex-Client-Identifier", cfg.ClientIdentifier)
	}
	return h
}

// Fetch retrieves the MediaContainer at path. The path may be relative
// ("library/sections") or absolute ("/library/metadata/1/children") and may
// carry a query string.
func (c *Client) Fetch(ctx context.Context, path string) (*models.MediaContainer, error) {
	var resp models.MediaContainerResponse
	if err := c.doJSONRequest(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp.MediaContainer, nil
}

// resolve joins a resource path with the base URL.
func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse resource path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("resource path %q must be relative to the server", path)
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + ref.Path
	u.RawQuery = ref.RawQuery
	return &u, nil
}
