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
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tombee/flowsmith/internal/tracing"
)

func TestHTTPMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
		wantMsg   string
	}{
		{"ok", http.StatusOK, "INFO", "request completed"},
		{"client error", http.StatusUnprocessableEntity, "WARN", "request rejected"},
		{"server error", http.StatusBadGateway, "ERROR", "request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

			handler := tracing.CorrelationMiddleware(HTTPMiddleware(logger)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte("{}"))
				}),
			))

			req := httptest.NewRequest(http.MethodPost, "/api/generate-workflow", nil)
			req.Header.Set(tracing.HeaderCorrelationID, "550e8400-e29b-41d4-a716-446655440000")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			entry := decodeLine(t, &buf)
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %s", entry["msg"], tt.wantMsg)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if entry["bytes"] != float64(2) {
				t.Errorf("bytes = %v, want 2", entry["bytes"])
			}
			if entry[CorrelationIDKey] != "550e8400-e29b-41d4-a716-446655440000" {
				t.Errorf("correlation_id = %v", entry[CorrelationIDKey])
			}
			if entry["path"] != "/api/generate-workflow" {
				t.Errorf("path = %v", entry["path"])
			}
		})
	}
}

func TestHTTPMiddleware_ImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	handler := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	entry := decodeLine(t, &buf)
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if _, ok := entry[CorrelationIDKey]; ok {
		t.Error("correlation_id should be absent outside the correlation middleware")
	}
}
