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
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/tombee/flowsmith/pkg/secrets"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\n%s", err, buf.String())
	}
	return entry
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected level info, got %s", cfg.Level)
	}
	if cfg.Format != FormatJSON {
		t.Errorf("expected format json, got %s", cfg.Format)
	}
	if cfg.AddSource {
		t.Error("expected AddSource false")
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantLevel  string
		wantFormat Format
		wantSource bool
	}{
		{
			name:       "defaults",
			env:        map[string]string{},
			wantLevel:  "info",
			wantFormat: FormatJSON,
		},
		{
			name:       "debug flag wins",
			env:        map[string]string{"FLOWSMITH_DEBUG": "1", "LOG_LEVEL": "error"},
			wantLevel:  "debug",
			wantFormat: FormatJSON,
			wantSource: true,
		},
		{
			name:       "flowsmith level over LOG_LEVEL",
			env:        map[string]string{"FLOWSMITH_LOG_LEVEL": "WARN", "LOG_LEVEL": "error"},
			wantLevel:  "warn",
			wantFormat: FormatJSON,
		},
		{
			name:       "LOG_LEVEL and format",
			env:        map[string]string{"LOG_LEVEL": "error", "LOG_FORMAT": "TEXT", "LOG_SOURCE": "1"},
			wantLevel:  "error",
			wantFormat: FormatText,
			wantSource: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"FLOWSMITH_DEBUG", "FLOWSMITH_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := FromEnv()
			if cfg.Level != tt.wantLevel {
				t.Errorf("level = %s, want %s", cfg.Level, tt.wantLevel)
			}
			if cfg.Format != tt.wantFormat {
				t.Errorf("format = %s, want %s", cfg.Format, tt.wantFormat)
			}
			if cfg.AddSource != tt.wantSource {
				t.Errorf("AddSource = %v, want %v", cfg.AddSource, tt.wantSource)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   LevelTrace,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatText, Output: &buf})
	logger.Info("hello", "stage", "strict")

	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "stage=strict") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatJSON, Output: &buf})
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %s", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn should be logged, got %s", buf.String())
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	WithGeneration(WithComponent(WithCorrelationID(logger, "corr-1"), "generator"), "groq", "openai/gpt-oss-20b").
		Info("attempt")

	entry := decodeLine(t, &buf)
	want := map[string]string{
		CorrelationIDKey: "corr-1",
		ComponentKey:     "generator",
		ProviderKey:      "groq",
		ModelKey:         "openai/gpt-oss-20b",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %s", k, entry[k], v)
		}
	}
}

func TestNew_RedactsSecretPatterns(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Info("calling with Bearer abc.def-123",
		"body", "key sk-abcdefghijklmnopqrstuvwxyz leaked",
		"error", errors.New("token ghp_abcdefghijkl rejected"),
		slog.Group("req", slog.String("auth", "xoxb-1234-abcd")),
		"payload", map[string]any{"nested": []any{"sk-zzzzzzzzzzzz"}},
	)

	out := buf.String()
	for _, secret := range []string{"abc.def-123", "abcdefghijklmnopqrstuvwxyz", "ghp_abcdefghijkl", "xoxb-1234-abcd", "sk-zzzzzzzzzzzz"} {
		if strings.Contains(out, secret) {
			t.Errorf("log output leaked %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "Bearer ***") || !strings.Contains(out, "sk-***") {
		t.Errorf("expected redaction markers, got %s", out)
	}
}

func TestNew_MasksRegisteredSecrets(t *testing.T) {
	var buf bytes.Buffer
	masker := secrets.NewMasker()
	masker.AddSecret("n8n-super-secret")

	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf, Masker: masker})
	logger.With("api_key", "n8n-super-secret").Info("import", "header", "X-N8N-API-KEY: n8n-super-secret")

	if strings.Contains(buf.String(), "n8n-super-secret") {
		t.Errorf("registered secret leaked: %s", buf.String())
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "trace", Format: FormatJSON, Output: &buf})
	Trace(logger, "prompt", String("model", "m"))
	if !strings.Contains(buf.String(), "prompt") {
		t.Errorf("trace record missing: %s", buf.String())
	}

	buf.Reset()
	Trace(New(&Config{Level: "debug", Format: FormatJSON, Output: &buf}), "prompt")
	if buf.Len() != 0 {
		t.Errorf("trace should be filtered at debug, got %s", buf.String())
	}
}
