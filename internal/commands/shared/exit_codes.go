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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/workflow/extract"
	"github.com/tombee/flowsmith/pkg/workflow/schema"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitFailed          = 1
	ExitInvalidWorkflow = 2
	ExitMissingInput    = 3
	ExitProviderError   = 4
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error

	// Reported is set when the command already wrote its outcome to
	// stdout, so no JSON error envelope follows it.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewFailedError creates an error for general failures
func NewFailedError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitFailed, Message: msg, Cause: cause}
}

// NewInvalidWorkflowError creates an error for workflows or JSON that do
// not validate
func NewInvalidWorkflowError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidWorkflow, Message: msg, Cause: cause}
}

// NewMissingInputError creates an error for missing required inputs
func NewMissingInputError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitMissingInput, Message: msg, Cause: cause}
}

// NewProviderError creates an error for generation service or n8n failures
func NewProviderError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitProviderError, Message: msg, Cause: cause}
}

// Classify wraps err in an ExitError chosen from its type. Errors that
// already carry an exit code are returned unchanged.
func Classify(msg string, err error) error {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var (
		extractErr    *extract.Error
		violations    schema.Violations
		validationErr *pkgerrors.ValidationError
		configErr     *pkgerrors.ConfigError
		providerErr   *pkgerrors.ProviderError
		timeoutErr    *pkgerrors.TimeoutError
		apiErr        *pkgerrors.APIError
	)
	switch {
	case errors.As(err, &extractErr), errors.As(err, &violations):
		return NewInvalidWorkflowError(msg, err)
	case errors.As(err, &validationErr), errors.As(err, &configErr):
		return NewMissingInputError(msg, err)
	case errors.As(err, &providerErr), errors.As(err, &timeoutErr):
		return NewProviderError(msg, err)
	case errors.As(err, &apiErr) && apiErr.Code == pkgerrors.CodeUpstream:
		return NewProviderError(msg, err)
	}
	return NewFailedError(msg, err)
}

// Reported marks err as already written to stdout. Errors that are not
// an *ExitError are returned unchanged.
func Reported(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		exitErr.Reported = true
	}
	return err
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailed
}

// HandleExitError prints err and exits with its exit code. Under --json
// the failure is also written to stdout as an error envelope.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	var exitErr *ExitError
	if GetJSON() && !(errors.As(err, &exitErr) && exitErr.Reported) {
		_ = EmitJSONError(os.Stdout, "flowsmith", err)
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// PrintError writes err and, when one exists, its suggestion.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err.Error())
	printUserVisibleSuggestion(w, err)
}

// printUserVisibleSuggestion prints the suggestion of the first
// UserVisibleError in the chain.
func printUserVisibleSuggestion(w io.Writer, err error) {
	for err != nil {
		if userErr, ok := err.(pkgerrors.UserVisibleError); ok {
			if userErr.IsUserVisible() {
				if suggestion := userErr.Suggestion(); suggestion != "" {
					fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
				}
			}
			return
		}
		err = errors.Unwrap(err)
	}
}
