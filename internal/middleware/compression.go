// Plexmirror - Plex Music Library Mirror
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexmirror

package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// DefaultCompressionMinSize is the smallest body worth compressing.
const DefaultCompressionMinSize = 1024

// gzipWriterPool pools gzip writers to reduce allocations
var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// gzipResponseWriter buffers the body until minSize bytes are known. Bodies
// that stay smaller are sent as they are.
type gzipResponseWriter struct {
	http.ResponseWriter
	minSize int
	status  int
	buf     []byte
	gz      *gzip.Writer
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.gz != nil {
		return w.gz.Write(b)
	}

	w.buf = append(w.buf, b...)
	if len(w.buf) < w.minSize {
		return len(b), nil
	}
	if err := w.startGzip(); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (w *gzipResponseWriter) startGzip() error {
	h := w.ResponseWriter.Header()
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
	w.ResponseWriter.WriteHeader(w.status)

	w.gz = gzipWriterPool.Get().(*gzip.Writer)
	w.gz.Reset(w.ResponseWriter)
	_, err := w.gz.Write(w.buf)
	w.buf = nil
	return err
}

// finish flushes whatever the handler left: the gzip trailer, or the small
// body uncompressed.
func (w *gzipResponseWriter) finish() {
	if w.gz != nil {
		_ = w.gz.Close() // best-effort, the response is already on its way
		gzipWriterPool.Put(w.gz)
		w.gz = nil
		return
	}
	if w.status == 0 {
		return
	}
	w.ResponseWriter.WriteHeader(w.status)
	if len(w.buf) > 0 {
		_, _ = w.ResponseWriter.Write(w.buf)
	}
}

// Compression gzips response bodies of at least minSize bytes for clients
// that accept gzip. WebSocket upgrades and responses that already carry a
// Content-Encoding pass through untouched.
func Compression(minSize int) func(http.Handler) http.Handler {
	if minSize <= 0 {
		minSize = DefaultCompressionMinSize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
				strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}

			gzw := &gzipResponseWriter{ResponseWriter: w, minSize: minSize}
			defer gzw.finish()
			next.ServeHTTP(gzw, r)
		})
	}
}
