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

package extract

import (
	"fmt"

	"github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/workflow/schema"
)

const (
	// MsgJSONMissing is reported when the response holds no JSON candidate.
	MsgJSONMissing = "No valid JSON found in LLM response"

	// MsgJSONInvalid is reported when every stage has been exhausted.
	MsgJSONInvalid = "Failed to parse or repair workflow JSON"

	// HintJSONMode is the suggestion attached to MsgJSONInvalid.
	HintJSONMode = "Enable JSON mode / function calling"

	// rawPreviewLimit bounds the raw text echoed back to callers.
	rawPreviewLimit = 4000
)

// Error is returned once the pipeline has given up.
type Error struct {
	Code    errors.Code
	Message string
	Hint    string

	// RawPreview is the redacted start of the extracted text.
	RawPreview string

	// Violations holds the last schema failure, if validation was reached.
	Violations schema.Violations

	// Cause is the last parse or validation error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements errors.UserVisibleError.
func (e *Error) IsUserVisible() bool { return true }

// UserMessage implements errors.UserVisibleError.
func (e *Error) UserMessage() string { return e.Message }

// Suggestion implements errors.UserVisibleError.
func (e *Error) Suggestion() string { return e.Hint }

// APIError converts e into the caller-facing error with diagnostic details.
func (e *Error) APIError() *errors.APIError {
	apiErr := &errors.APIError{Code: e.Code, Message: e.Message, Cause: e}
	if e.Code != errors.CodeJSONInvalid {
		return apiErr
	}

	details := map[string]any{
		"hint":       e.Hint,
		"rawPreview": e.RawPreview,
	}
	switch {
	case len(e.Violations) > 0:
		details["validation"] = map[string]any{"issues": e.Violations.List()}
	case e.Cause != nil:
		details["validation"] = e.Cause.Error()
	}
	return apiErr.WithDetails(details)
}
