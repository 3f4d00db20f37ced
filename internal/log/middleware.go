// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tombee/flowsmith/internal/tracing"
)

// RequestRecord describes one served HTTP request for logging purposes.
type RequestRecord struct {
	// Method and Path identify the route.
	Method string
	Path   string

	// Status is the response status code.
	Status int

	// Bytes is the number of response body bytes written.
	Bytes int

	// DurationMs is the duration of the request in milliseconds.
	DurationMs int64

	// CorrelationID is the correlation ID for tracing the request.
	CorrelationID string

	// RemoteAddr is the remote address of the client.
	RemoteAddr string
}

// LogRequest logs a completed HTTP request. Server errors log at error
// level, client errors at warn, everything else at info.
func LogRequest(logger *slog.Logger, rec *RequestRecord) {
	attrs := []any{
		EventKey, "http_request",
		"method", rec.Method,
		"path", rec.Path,
		"status", rec.Status,
		"bytes", rec.Bytes,
		DurationKey, rec.DurationMs,
		"remote", rec.RemoteAddr,
	}
	if rec.CorrelationID != "" {
		attrs = append(attrs, CorrelationIDKey, rec.CorrelationID)
	}

	level := slog.LevelInfo
	message := "request completed"
	switch {
	case rec.Status >= 500:
		level = slog.LevelError
		message = "request failed"
	case rec.Status >= 400:
		level = slog.LevelWarn
		message = "request rejected"
	}

	logger.Log(context.Background(), level, message, attrs...)
}

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// HTTPMiddleware logs every request once it completes. It must run inside
// tracing.CorrelationMiddleware to pick up the correlation ID.
func HTTPMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			LogRequest(logger, &RequestRecord{
				Method:        r.Method,
				Path:          r.URL.Path,
				Status:        status,
				Bytes:         rec.bytes,
				DurationMs:    time.Since(start).Milliseconds(),
				CorrelationID: tracing.FromContextOrEmpty(r.Context()).String(),
				RemoteAddr:    r.RemoteAddr,
			})
		})
	}
}
