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

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error category returned to callers.
type Code string

const (
	CodeInvalidRequest   Code = "invalid_request"
	CodeMethodNotAllowed Code = "method_not_allowed"
	CodeUnauthorized     Code = "unauthorized"
	CodeRateLimited      Code = "rate_limited"
	CodeJSONMissing      Code = "json_missing"
	CodeJSONInvalid      Code = "json_invalid"
	CodeUpstream         Code = "upstream_error"
	CodeInternal         Code = "internal_error"
)

// Status returns the default HTTP status for the code.
func (c Code) Status() int {
	switch c {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeJSONMissing, CodeJSONInvalid:
		return http.StatusUnprocessableEntity
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// APIError is an error destined for an external caller. It always carries
// a code and a message; Details is optional structured context.
type APIError struct {
	// Status is the HTTP status. Zero means Code.Status().
	Status int

	Code    Code
	Message string
	Details map[string]any

	// Cause is kept for logging and errors.Is/As; it is never serialized.
	Cause error
}

// NewAPIError creates an APIError with the code's default status.
func NewAPIError(code Code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status to send for this error.
func (e *APIError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Code.Status()
}

// WithDetails returns e after setting Details.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	e.Details = details
	return e
}

// IsUserVisible implements UserVisibleError.
func (e *APIError) IsUserVisible() bool {
	return e.Code != CodeInternal
}

// UserMessage implements UserVisibleError.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Suggestion implements UserVisibleError.
func (e *APIError) Suggestion() string {
	if hint, ok := e.Details["hint"].(string); ok {
		return hint
	}
	return ""
}

// ToAPIError classifies an arbitrary error into an APIError. Errors that
// already carry a code are returned as-is; typed domain errors map to their
// natural code; anything else becomes internal_error.
func ToAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return &APIError{Code: CodeInvalidRequest, Message: validationErr.Message, Cause: err}
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		out := &APIError{Code: CodeUpstream, Message: providerErr.Message, Cause: err}
		if providerErr.Body != "" {
			out.Details = map[string]any{"body": providerErr.Body}
		}
		return out
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return &APIError{
			Status:  http.StatusGatewayTimeout,
			Code:    CodeUpstream,
			Message: timeoutErr.Error(),
			Cause:   err,
		}
	}

	return &APIError{Code: CodeInternal, Message: "internal server error", Cause: err}
}
