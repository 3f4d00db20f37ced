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
	"encoding/json"
	"errors"
	"io"

	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
)

// JSONVersion is the envelope version of --json output.
const JSONVersion = "1.0"

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// NewJSONResponse returns a successful envelope for command.
func NewJSONResponse(command string) JSONResponse {
	return JSONResponse{Version: JSONVersion, Command: command, Success: true}
}

// JSONError is a structured error in --json output.
type JSONError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	ExitCode   int            `json:"exit_code"`
	Suggestion string         `json:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// EmitJSON writes response as indented JSON.
func EmitJSON(w io.Writer, response any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// EmitJSONError writes a failed envelope describing err.
func EmitJSONError(w io.Writer, command string, err error) error {
	type errorResponse struct {
		JSONResponse
		Error JSONError `json:"error"`
	}

	apiErr := pkgerrors.ToAPIError(err)
	var conv interface{ APIError() *pkgerrors.APIError }
	if errors.As(err, &conv) {
		apiErr = conv.APIError()
	}

	jerr := JSONError{
		Code:     string(apiErr.Code),
		Message:  err.Error(),
		ExitCode: ExitCode(err),
		Details:  apiErr.Details,
	}
	var userErr pkgerrors.UserVisibleError
	if errors.As(err, &userErr) && userErr.IsUserVisible() {
		jerr.Suggestion = userErr.Suggestion()
	}

	return EmitJSON(w, errorResponse{
		JSONResponse: JSONResponse{Version: JSONVersion, Command: command},
		Error:        jerr,
	})
}
