// Package jq evaluates jq expressions over workflow documents, backing the
// CLI's query command.
package jq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/itchyny/gojq"

	"github.com/tombee/flowsmith/pkg/workflow"
)

const (
	// DefaultTimeout is the default execution time for jq expressions (1 second)
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the default maximum input size (10MB)
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// ErrTimeout is returned when an expression runs past the executor timeout.
var ErrTimeout = errors.New("jq execution timed out")

// Executor handles jq expression evaluation with timeout and size limits.
type Executor struct {
	timeout      time.Duration
	maxInputSize int64
}

// NewExecutor creates a new jq executor. Zero values select the defaults.
func NewExecutor(timeout time.Duration, maxInputSize int64) *Executor {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}

	return &Executor{
		timeout:      timeout,
		maxInputSize: maxInputSize,
	}
}

// Execute runs expression against data and returns every emitted value.
// An empty expression yields data itself. The workflow's placeholder names
// are not known here; use QueryWorkflow for the $placeholders variable.
func (e *Executor) Execute(ctx context.Context, expression string, data any) ([]any, error) {
	return e.run(ctx, expression, data, nil, nil)
}

// QueryWorkflow runs expression against the JSON form of wf. The
// expression may reference $placeholders, the list of credential
// placeholder names found in the workflow.
func (e *Executor) QueryWorkflow(ctx context.Context, expression string, wf *workflow.Workflow, placeholders []string) ([]any, error) {
	raw, err := json.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}

	names := make([]any, len(placeholders))
	for i, p := range placeholders {
		names[i] = p
	}
	return e.run(ctx, expression, doc, []string{"$placeholders"}, []any{names})
}

func (e *Executor) run(ctx context.Context, expression string, data any, varNames []string, varValues []any) ([]any, error) {
	if expression == "" {
		return []any{data}, nil
	}
	if err := e.validateInputSize(data); err != nil {
		return nil, err
	}

	code, err := compile(expression, varNames)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	results := []any{}
	iter := code.RunWithContext(execCtx, data, varValues...)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %v", ErrTimeout, e.timeout)
			}
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}

// Validate checks that expression parses and compiles.
func (e *Executor) Validate(expression string) error {
	if expression == "" {
		return nil
	}
	_, err := compile(expression, []string{"$placeholders"})
	return err
}

func compile(expression string, varNames []string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query, gojq.WithVariables(varNames))
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}
	return code, nil
}

// validateInputSize checks if the data size is within limits.
func (e *Executor) validateInputSize(data any) error {
	// Estimate size by marshaling to JSON
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if int64(len(jsonData)) > e.maxInputSize {
		return fmt.Errorf("data size (%d bytes) exceeds maximum (%d bytes)",
			len(jsonData), e.maxInputSize)
	}

	return nil
}
