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

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/workflow"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 2 << 20

// errorBody is the "error" member of a failure envelope.
type errorBody struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", slog.Any("error", err))
	}
}

// apiErrorer is implemented by errors that carry their own caller-facing
// form, such as extraction failures with diagnostic details.
type apiErrorer interface {
	APIError() *pkgerrors.APIError
}

// writeError classifies err and writes the failure envelope. Internal
// errors are logged with their cause and reported without it.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var apiErr *pkgerrors.APIError
	var conv apiErrorer
	if errors.As(err, &conv) {
		apiErr = conv.APIError()
	} else {
		apiErr = pkgerrors.ToAPIError(err)
	}
	status := apiErr.HTTPStatus()
	if status >= 500 {
		logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"code", string(apiErr.Code),
			"error", err,
		)
	}
	writeJSON(w, status, errorEnvelope{
		Error: errorBody{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details},
	})
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.NewAPIError(pkgerrors.CodeInvalidRequest, "Request body too large")
		}
		if errors.Is(err, io.EOF) {
			return pkgerrors.NewAPIError(pkgerrors.CodeInvalidRequest, "Request body is required")
		}
		return &pkgerrors.APIError{Code: pkgerrors.CodeInvalidRequest, Message: "Invalid JSON body", Cause: err}
	}
	return nil
}

// decodeWorkflow accepts any JSON object as a workflow. Shapes are
// coerced the same way generated output is, so a workflow that came back
// from a lenient generation round-trips. Absent or null yields nil.
func decodeWorkflow(raw json.RawMessage) (*workflow.Workflow, error) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &pkgerrors.APIError{Code: pkgerrors.CodeInvalidRequest, Message: "Invalid workflow", Cause: err}
	}
	obj, ok := workflow.Coerce(doc).(map[string]any)
	if !ok {
		return nil, pkgerrors.NewAPIError(pkgerrors.CodeInvalidRequest, "Workflow must be a JSON object")
	}
	return workflow.FromLenient(obj), nil
}
