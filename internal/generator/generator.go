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

// Package generator turns a natural-language request into a validated
// workflow: it prompts the text generation provider, falls back across
// models when a call fails, and runs the extraction pipeline and linter on
// the response.
package generator

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	internallog "github.com/tombee/flowsmith/internal/log"
	"github.com/tombee/flowsmith/internal/tracing"
	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/llm"
	"github.com/tombee/flowsmith/pkg/secrets"
	"github.com/tombee/flowsmith/pkg/workflow"
	"github.com/tombee/flowsmith/pkg/workflow/extract"
	"github.com/tombee/flowsmith/pkg/workflow/lint"
)

//go:embed system_prompt.txt
var systemPrompt string

// SystemPrompt returns the instructions sent ahead of every request.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

const (
	// DefaultMaxNodes is the advisory node limit when a request gives none.
	DefaultMaxNodes = 20

	// MaxContextSnippets bounds the snippets appended to a prompt.
	MaxContextSnippets = 5
)

// Config holds generation defaults.
type Config struct {
	Model         string
	FallbackModel string
	Temperature   float64
	MaxTokens     int

	// Timeout bounds each completion attempt. Zero means no per-attempt
	// limit beyond the caller's context.
	Timeout time.Duration
}

// Request is one generation request.
type Request struct {
	Prompt          string
	Model           string
	MaxNodes        int
	TriggerType     string
	Temperature     *float64
	MaxTokens       *int
	ForceJSON       bool
	ContextSnippets []string
}

// Result is a generated workflow with its diagnostics.
type Result struct {
	Workflow     *workflow.Workflow
	Stage        extract.Stage
	Issues       []lint.Issue
	Placeholders []string

	// Model is the model that produced the accepted response.
	Model string

	// Attempts is the number of completion calls made.
	Attempts int
	Duration time.Duration
}

// Service generates workflows. It is safe for concurrent use.
type Service struct {
	provider llm.Provider
	cfg      Config
	pipeline *extract.Pipeline
	linter   *lint.Linter
	metrics  *tracing.MetricsCollector
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records generation outcomes and pipeline stages.
func WithMetrics(mc *tracing.MetricsCollector) Option {
	return func(s *Service) {
		s.metrics = mc
	}
}

// WithLinter replaces the default linter, e.g. one carrying custom rules.
func WithLinter(l *lint.Linter) Option {
	return func(s *Service) {
		if l != nil {
			s.linter = l
		}
	}
}

// WithTracer overrides the tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New creates a generation service backed by provider.
func New(provider llm.Provider, cfg Config, opts ...Option) *Service {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}

	s := &Service{
		provider: provider,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/tombee/flowsmith/internal/generator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.linter == nil {
		s.linter, _ = lint.New()
	}
	s.logger = s.logger.With(slog.String("component", "generator"))
	s.pipeline = extract.New(
		extract.WithLogger(s.logger),
		extract.WithObserver(s.metrics),
		extract.WithTracer(s.tracer),
	)
	return s
}

// BuildUserMessage formats the user turn. At most MaxContextSnippets
// snippets are appended after a "Context:" marker.
func BuildUserMessage(prompt string, maxNodes int, snippets []string) string {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	if len(snippets) > MaxContextSnippets {
		snippets = snippets[:MaxContextSnippets]
	}
	final := prompt
	if len(snippets) > 0 {
		final += "\n\nContext:\n" + strings.Join(snippets, "\n---\n")
	}
	return fmt.Sprintf("Generate a workflow with max %d nodes: %s", maxNodes, final)
}

// attempt is one entry of the fallback chain.
type attempt struct {
	model    string
	jsonMode bool
}

// attempts lists the completion calls to try in order: the requested model
// as asked, the same model without JSON mode, then the fallback model
// without JSON mode. Duplicates are dropped.
func (s *Service) attempts(req Request) []attempt {
	model := req.Model
	if model == "" {
		model = s.cfg.Model
	}
	chain := []attempt{
		{model: model, jsonMode: req.ForceJSON},
		{model: model, jsonMode: false},
	}
	if s.cfg.FallbackModel != "" {
		chain = append(chain, attempt{model: s.cfg.FallbackModel, jsonMode: false})
	}

	out := chain[:0:0]
	seen := make(map[attempt]bool, len(chain))
	for _, a := range chain {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// Generate runs a request end to end. A blank prompt is a ValidationError.
// When every completion attempt fails the last provider error is returned;
// when the response cannot be turned into a workflow the error is an
// *extract.Error.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, &pkgerrors.ValidationError{Field: "prompt", Message: "Prompt is required"}
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "generator.Generate", trace.WithAttributes(
		attribute.String("llm.provider", s.provider.Name()),
		attribute.Int("prompt.length", len(req.Prompt)),
		attribute.Int("context.snippets", len(req.ContextSnippets)),
	))
	defer span.End()

	s.logger.InfoContext(ctx, "generate_workflow_request",
		slog.String("provider", s.provider.Name()),
		slog.String("model", req.Model),
		slog.Int("max_nodes", req.MaxNodes),
		slog.String("trigger_type", req.TriggerType),
		slog.Int("prompt_length", len(req.Prompt)),
		slog.Bool("force_json", req.ForceJSON),
		slog.Int("context_len", len(req.ContextSnippets)),
	)

	resp, calls, err := s.complete(ctx, req)
	if err != nil {
		s.fail(ctx, span, tracing.OutcomeError, string(extract.StageFailed), start, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.model", resp.Model), attribute.Int("llm.attempts", calls))

	res, err := s.pipeline.Run(ctx, resp.Content)
	if err != nil {
		s.fail(ctx, span, tracing.OutcomeInvalid, string(extract.StageFailed), start, err)
		return nil, err
	}

	issues := s.linter.Lint(res.Workflow)
	for _, issue := range issues {
		s.metrics.RecordLintIssue(ctx, issue.RuleID, string(issue.Severity))
	}

	out := &Result{
		Workflow:     res.Workflow,
		Stage:        res.Stage,
		Issues:       issues,
		Placeholders: secrets.ExtractPlaceholders(res.Workflow),
		Model:        resp.Model,
		Attempts:     calls,
		Duration:     time.Since(start),
	}

	s.metrics.RecordGeneration(ctx, tracing.OutcomeSuccess, string(res.Stage), out.Duration)
	if res.Lenient {
		s.logger.WarnContext(ctx, "generate_workflow_lenient", slog.Int("nodes", len(res.Workflow.Nodes)))
	}
	s.logger.InfoContext(ctx, "generate_workflow_success",
		slog.Int("nodes", len(res.Workflow.Nodes)),
		slog.Bool("has_notes", len(res.Workflow.Notes) > 0),
		slog.String("stage", string(res.Stage)),
		slog.Int("lint_issues", len(issues)),
		slog.Int64("duration_ms", out.Duration.Milliseconds()),
	)
	return out, nil
}

// complete walks the fallback chain and returns the first successful
// response along with the number of calls made.
func (s *Service) complete(ctx context.Context, req Request) (*llm.CompletionResponse, int, error) {
	temperature := s.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := s.cfg.MaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	messages := []llm.Message{
		{Role: llm.MessageRoleSystem, Content: SystemPrompt()},
		{Role: llm.MessageRoleUser, Content: BuildUserMessage(req.Prompt, req.MaxNodes, req.ContextSnippets)},
	}

	var lastErr error
	calls := 0
	for _, a := range s.attempts(req) {
		if err := ctx.Err(); err != nil {
			return nil, calls, err
		}
		calls++
		logger := internallog.WithGeneration(s.logger, s.provider.Name(), a.model)
		if id := tracing.FromContextOrEmpty(ctx); id != "" {
			logger = internallog.WithCorrelationID(logger, id.String())
		}

		resp, err := s.call(ctx, llm.CompletionRequest{
			Messages:    messages,
			Model:       a.model,
			Temperature: llm.Float64(temperature),
			MaxTokens:   llm.Int(maxTokens),
			JSONMode:    a.jsonMode,
		})
		if err == nil {
			internallog.Trace(logger, "completion response",
				slog.String("finish_reason", string(resp.FinishReason)),
				slog.String("content", resp.Content),
			)
			return resp, calls, nil
		}
		lastErr = err
		logger.WarnContext(ctx, "completion attempt failed",
			slog.Bool("json_mode", a.jsonMode),
			slog.Int("attempt", calls),
			slog.String("error", err.Error()),
		)
	}
	return nil, calls, lastErr
}

func (s *Service) call(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.provider.Complete(ctx, req)
}

func (s *Service) fail(ctx context.Context, span trace.Span, outcome, stage string, start time.Time, err error) {
	span.SetStatus(codes.Error, secrets.Redact(err.Error()))
	s.metrics.RecordGeneration(ctx, outcome, stage, time.Since(start))

	var extractErr *extract.Error
	if errors.As(err, &extractErr) {
		s.logger.WarnContext(ctx, "generate_workflow_rejected", slog.String("code", string(extractErr.Code)))
		return
	}
	s.logger.ErrorContext(ctx, "generate_workflow_failed", slog.String("error", err.Error()))
}
