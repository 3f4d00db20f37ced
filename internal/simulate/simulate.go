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

// Package simulate produces synthetic test executions for generated
// workflows. Nothing is sent to a workflow engine; the result only echoes
// the workflow's test payload with plausible execution metadata.
package simulate

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/workflow"
)

const (
	// DefaultDelay is how long a simulated execution takes to answer.
	DefaultDelay = time.Second

	// MinDuration and MaxDuration bound the reported duration in
	// milliseconds. MaxDuration is exclusive.
	MinDuration = 500
	MaxDuration = 2500

	// CompletedMessage is reported for every simulated execution.
	CompletedMessage = "Test execution completed successfully"

	// StatusCompleted is the output sample status.
	StatusCompleted = "completed"

	// ExecutionIDPrefix starts every execution id.
	ExecutionIDPrefix = "test-"

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// Result is the synthetic outcome of a test execution.
type Result struct {
	Success       bool           `json:"success"`
	ExecutionID   string         `json:"executionId"`
	Duration      int            `json:"duration"`
	NodesExecuted int            `json:"nodesExecuted"`
	TestPayload   map[string]any `json:"testPayload"`
	Results       Output         `json:"results"`
}

// Output summarizes what the execution did.
type Output struct {
	Message       string       `json:"message"`
	DataProcessed bool         `json:"dataProcessed"`
	OutputSample  OutputSample `json:"outputSample"`
}

// OutputSample is a stand-in for the last node's output.
type OutputSample struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// Simulator runs synthetic executions. The zero value is not usable; call
// New.
type Simulator struct {
	intN   func(n int) int
	now    func() time.Time
	newID  func() string
	delay  time.Duration
	logger *slog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand replaces the source of the random duration. intN must return a
// value in [0, n).
func WithRand(intN func(n int) int) Option {
	return func(s *Simulator) {
		if intN != nil {
			s.intN = intN
		}
	}
}

// WithDelay sets the artificial latency. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(s *Simulator) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithClock replaces time.Now for the output timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the execution id suffix generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Simulator) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Simulator.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		intN:   rand.IntN,
		now:    time.Now,
		newID:  uuid.NewString,
		delay:  DefaultDelay,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run simulates executing wf with its test payload. A workflow without a
// non-empty test payload is rejected with a validation error. Run returns
// early with ctx's error when ctx ends during the artificial delay.
func (s *Simulator) Run(ctx context.Context, wf *workflow.Workflow) (*Result, error) {
	if wf == nil || len(wf.TestPayload) == 0 {
		return nil, &pkgerrors.ValidationError{
			Field:      "__testPayload",
			Message:    "No test payload available for this workflow",
			Suggestion: "regenerate the workflow or add a __testPayload object",
		}
	}

	result := &Result{
		Success:       true,
		ExecutionID:   ExecutionIDPrefix + s.newID(),
		Duration:      MinDuration + s.intN(MaxDuration-MinDuration),
		NodesExecuted: len(wf.Nodes),
		TestPayload:   wf.TestPayload,
		Results: Output{
			Message:       CompletedMessage,
			DataProcessed: true,
			OutputSample: OutputSample{
				Timestamp: s.now().UTC().Format(timestampLayout),
				Status:    StatusCompleted,
			},
		},
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	s.logger.InfoContext(ctx, "test_workflow_success",
		"execution_id", result.ExecutionID,
		"nodes_executed", result.NodesExecuted,
	)
	return result, nil
}
