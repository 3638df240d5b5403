// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package plex

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/plexmirror/internal/logging"
	"github.com/tomtom215/plexmirror/internal/metrics"
)

// requestConfig holds configuration for building HTTP requests
type requestConfig struct {
	method   string
	path     string
	expectOK bool // if true, check for 200 OK status
}

// doRequest executes a Plex API request and decodes the JSON response into result.
func (c *Client) doRequest(ctx context.Context, cfg requestConfig, result interface{}) (err error) {
	start := time.Now()
	statusCode := 0
	defer func() {
		metrics.RecordPlexFetch(cfg.path, time.Since(start), statusCode, err)
	}()

	reqURL, err := c.resolve(cfg.path)
	if err != nil {
		return err
	}

	if c.inflight != nil {
		if err := c.inflight.Acquire(ctx, 1); err != nil {
			return err
		}
		defer c.inflight.Release(1)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.method, reqURL.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for name, values := range c.headers {
		req.Header[name] = values
	}
	if c.token != "" {
		req.Header.Set("X-Plex-Token", c.token)
	}

	resp, err := c.doRequestWithRateLimit(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	if cfg.expectOK && resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Path: cfg.path}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// doJSONRequest is a convenience wrapper for JSON API requests
func (c *Client) doJSONRequest(ctx context.Context, path string, result interface{}) error {
	return c.doRequest(ctx, requestConfig{
		method:   http.MethodGet,
		path:     path,
		expectOK: true,
	}, result)
}

// doRequestWithRateLimit waits on the client-side limiter and executes the
// request, retrying HTTP 429 with exponential backoff:
//   - Max maxRetries retry attempts
//   - Backoff baseDelay * 2^attempt (1s, 2s, 4s, 8s, 16s by default)
//   - Retry-After (seconds) overrides the computed delay
//
// The caller must close the returned response body.
func (c *Client) doRequestWithRateLimit(req *http.Request) (*http.Response, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		resp.Body.Close()
		metrics.PlexRateLimited.Inc()

		if attempt == c.maxRetries {
			return nil, &StatusError{StatusCode: http.StatusTooManyRequests, Path: req.URL.Path, Retries: c.maxRetries}
		}

		retryDelay := c.baseDelay * (1 << attempt)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				retryDelay = time.Duration(seconds) * time.Second
			}
		}

		logging.Warn().
			Str("path", req.URL.Path).
			Dur("retry_delay", retryDelay).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Plex API rate limited (HTTP 429), retrying")

		timer := time.NewTimer(retryDelay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("unreachable code: retry loop should return or error")
}
