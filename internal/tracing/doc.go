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
/*
Package tracing provides correlation IDs, OpenTelemetry tracing and
Prometheus metrics for flowsmith.

# Overview

  - Correlation IDs are accepted from X-Correlation-ID or X-Request-ID,
    generated when absent, stored in the request context and forwarded
    on outbound calls.
  - Spans cover generation attempts, pipeline runs and HTTP requests. The
    exporter is selected by configuration: console, otlp-http, otlp-grpc or
    none.
  - Metrics are recorded through OpenTelemetry and exposed in Prometheus
    text format on /metrics.

# Quick Start

	provider, err := tracing.NewProvider(ctx, tracing.Config{
	    Enabled:     true,
	    ServiceName: "flowsmith",
	    Exporter:    tracing.ExporterConsole,
	})
	if err != nil {
	    return err
	}
	defer provider.Shutdown(ctx)

	pipeline := extract.New(extract.WithObserver(provider.Metrics()))

# Metrics

  - flowsmith_generations_total{outcome,stage}
  - flowsmith_pipeline_stage_total{stage}
  - flowsmith_lint_issues_total{rule,severity}
  - flowsmith_http_requests_total{route,status}
  - flowsmith_generation_duration_ms
*/
package tracing
