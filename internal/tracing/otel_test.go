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

package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewProvider_ConsoleExporter(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	p, err := NewProvider(ctx, Config{Enabled: true, Exporter: ExporterConsole, ServiceName: "flowsmith-test"}, WithConsoleWriter(&buf))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	_, span := p.Tracer("test").Start(ctx, "generate.workflow")
	span.End()

	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "generate.workflow") {
		t.Errorf("console output missing span name: %s", buf.String())
	}
}

func TestNewProvider_DisabledExportsNothing(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	p, err := NewProvider(ctx, Config{Exporter: ExporterConsole}, WithConsoleWriter(&buf))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	_, span := p.Tracer("test").Start(ctx, "ignored")
	span.End()
	_ = p.Shutdown(ctx)

	if buf.Len() != 0 {
		t.Errorf("expected no console output, got %s", buf.String())
	}
	if p.Metrics() == nil || p.MetricsHandler() == nil {
		t.Error("metrics should be available even when tracing is disabled")
	}
}
