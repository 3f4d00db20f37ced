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
	"fmt"
)

// Exporter names accepted in Config.Exporter.
const (
	ExporterNone     = "none"
	ExporterConsole  = "console"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config holds observability configuration.
type Config struct {
	// Enabled controls whether spans are exported. Metrics are always
	// collected.
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this service in traces.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the application version.
	ServiceVersion string `yaml:"-"`

	// Exporter is one of console, otlp-http, otlp-grpc or none.
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP receiver (host:port).
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for OTLP exporters.
	Insecure bool `yaml:"insecure"`

	// Headers are sent with every OTLP export request.
	Headers map[string]string `yaml:"headers"`

	// SampleRate is the fraction of traces to record (0.0 - 1.0).
	// Zero means sample everything.
	SampleRate float64 `yaml:"sample_rate"`
}

// Validate checks exporter settings.
func (c Config) Validate() error {
	switch c.Exporter {
	case "", ExporterNone, ExporterConsole:
	case ExporterOTLPHTTP, ExporterOTLPGRPC:
		if c.Enabled && c.Endpoint == "" {
			return fmt.Errorf("tracing exporter %s requires an endpoint", c.Exporter)
		}
	default:
		return fmt.Errorf("unknown tracing exporter %q (want console, otlp-http, otlp-grpc or none)", c.Exporter)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("tracing sample_rate must be between 0 and 1, got %v", c.SampleRate)
	}
	return nil
}
