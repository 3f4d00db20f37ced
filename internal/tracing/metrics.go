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
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Generation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// MetricsCollector records flowsmith's Prometheus-compatible metrics.
// A nil collector is valid and records nothing.
type MetricsCollector struct {
	generationsTotal   metric.Int64Counter
	pipelineStageTotal metric.Int64Counter
	lintIssuesTotal    metric.Int64Counter
	httpRequestsTotal  metric.Int64Counter
	generationDuration metric.Float64Histogram
}

// NewMetricsCollector creates a collector using the given meter provider.
func NewMetricsCollector(meterProvider metric.MeterProvider) (*MetricsCollector, error) {
	meter := meterProvider.Meter("flowsmith")
	mc := &MetricsCollector{}

	var err error
	mc.generationsTotal, err = meter.Int64Counter(
		"flowsmith_generations_total",
		metric.WithDescription("Total number of workflow generations by outcome and pipeline stage"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	mc.pipelineStageTotal, err = meter.Int64Counter(
		"flowsmith_pipeline_stage_total",
		metric.WithDescription("Total number of extraction pipeline runs by final stage"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	mc.lintIssuesTotal, err = meter.Int64Counter(
		"flowsmith_lint_issues_total",
		metric.WithDescription("Total number of lint issues reported"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		return nil, err
	}

	mc.httpRequestsTotal, err = meter.Int64Counter(
		"flowsmith_http_requests_total",
		metric.WithDescription("Total number of API requests by route and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	mc.generationDuration, err = meter.Float64Histogram(
		"flowsmith_generation_duration_ms",
		metric.WithDescription("Workflow generation latency including provider calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return mc, nil
}

// RecordPipelineStage counts a pipeline run that ended at stage.
func (mc *MetricsCollector) RecordPipelineStage(ctx context.Context, stage string) {
	if mc == nil {
		return
	}
	mc.pipelineStageTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordGeneration counts a generation and observes its duration.
func (mc *MetricsCollector) RecordGeneration(ctx context.Context, outcome, stage string, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.generationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("stage", stage),
	))
	mc.generationDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordLintIssue counts one lint finding.
func (mc *MetricsCollector) RecordLintIssue(ctx context.Context, rule, severity string) {
	if mc == nil {
		return
	}
	mc.lintIssuesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", rule),
		attribute.String("severity", severity),
	))
}

// RecordHTTPRequest counts one API request.
func (mc *MetricsCollector) RecordHTTPRequest(ctx context.Context, route string, status int) {
	if mc == nil {
		return
	}
	mc.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	))
}
