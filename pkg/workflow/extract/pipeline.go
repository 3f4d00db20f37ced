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

// Package extract turns raw model output into a validated workflow.
//
// Run tries progressively more forgiving stages:
//
//  1. strict: parse, coerce, validate, sanitize
//  2. repaired: the same after rewriting relaxed JSON into strict JSON
//  3. lenient: accept any object that parses, with a caveat note
//
// Every failure is absorbed until all stages are exhausted; only then is a
// structured *Error returned.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	fserrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/secrets"
	"github.com/tombee/flowsmith/pkg/workflow"
	"github.com/tombee/flowsmith/pkg/workflow/schema"
)

// Stage names the pipeline stage that produced a result.
type Stage string

const (
	StageStrict   Stage = "strict"
	StageRepaired Stage = "repaired"
	StageLenient  Stage = "lenient"
	StageFailed   Stage = "failed"
)

// LenientNote is appended to workflows accepted by the lenient stage.
const LenientNote = "Server validation failed; structure was coerced leniently. Review lints before import."

// Result is a successfully extracted workflow.
type Result struct {
	Workflow *workflow.Workflow
	Stage    Stage

	// Lenient is true when the workflow did not pass schema validation.
	Lenient bool
}

// Observer is notified of each pipeline outcome.
type Observer interface {
	RecordPipelineStage(ctx context.Context, stage string)
}

// Pipeline runs the extraction stages. The zero value is not usable; call New.
// A Pipeline holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver sets the stage observer, typically a metrics collector.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithTracer overrides the tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/tombee/flowsmith/pkg/workflow/extract"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "extract"))
	return p
}

// Run extracts, repairs and validates a workflow from raw model output.
// Errors are always *Error.
func (p *Pipeline) Run(ctx context.Context, raw string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "extract.Run", trace.WithAttributes(
		attribute.Int("raw.length", len(raw)),
	))
	defer span.End()

	res, err := p.run(ctx, raw)

	stage := StageFailed
	if res != nil {
		stage = res.Stage
	}
	span.SetAttributes(attribute.String("extract.stage", string(stage)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	if p.observer != nil {
		p.observer.RecordPipelineStage(ctx, string(stage))
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, raw string) (*Result, error) {
	extracted, ok := ExtractJSON(raw)
	if !ok {
		p.logger.DebugContext(ctx, "no json candidate in response", slog.Int("raw_length", len(raw)))
		return nil, &Error{Code: fserrors.CodeJSONMissing, Message: MsgJSONMissing}
	}

	wf, err := validate(extracted)
	if err == nil {
		p.logger.DebugContext(ctx, "workflow accepted", slog.String("stage", string(StageStrict)))
		return &Result{Workflow: wf, Stage: StageStrict}, nil
	}
	lastErr := err
	p.logger.DebugContext(ctx, "strict stage failed", slog.String("error", secrets.Redact(err.Error())))

	if repaired, rerr := Repair(extracted); rerr != nil {
		p.logger.DebugContext(ctx, "repair failed", slog.String("error", secrets.Redact(rerr.Error())))
	} else {
		wf, err = validate(repaired)
		if err == nil {
			p.logger.DebugContext(ctx, "workflow accepted", slog.String("stage", string(StageRepaired)))
			return &Result{Workflow: wf, Stage: StageRepaired}, nil
		}
		lastErr = err
		p.logger.DebugContext(ctx, "repaired stage failed", slog.String("error", secrets.Redact(err.Error())))
	}

	if wf := lenient(extracted); wf != nil {
		p.logger.WarnContext(ctx, "workflow accepted leniently", slog.String("stage", string(StageLenient)))
		return &Result{Workflow: wf, Stage: StageLenient, Lenient: true}, nil
	}

	out := &Error{
		Code:       fserrors.CodeJSONInvalid,
		Message:    MsgJSONInvalid,
		Hint:       HintJSONMode,
		RawPreview: secrets.RedactPreview(extracted, rawPreviewLimit),
		Cause:      lastErr,
	}
	var violations schema.Violations
	if errors.As(lastErr, &violations) {
		out.Violations = violations
	}
	return nil, out
}

// validate is the strict path: parse, coerce, validate, sanitize.
func validate(text string) (*workflow.Workflow, error) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	wf, err := schema.ValidateWorkflow(workflow.Coerce(doc))
	if err != nil {
		return nil, err
	}
	return secrets.SanitizeWorkflow(wf), nil
}

// lenient accepts any strictly parseable object. It returns nil when the
// text is not one.
func lenient(text string) *workflow.Workflow {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil
	}
	obj, ok := workflow.Coerce(doc).(map[string]any)
	if !ok {
		return nil
	}
	wf := secrets.SanitizeWorkflow(workflow.FromLenient(obj))
	wf.AddNote(LenientNote)
	return wf
}
