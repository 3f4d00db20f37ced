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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/tombee/flowsmith/internal/app"
	"github.com/tombee/flowsmith/pkg/workflow"
	"github.com/tombee/flowsmith/pkg/workflow/schema"
)

// StdinArg names standard input as a workflow source.
const StdinArg = "-"

// ReadInput reads the file named by arg, or in when arg is StdinArg.
func ReadInput(arg string, in io.Reader) ([]byte, error) {
	if arg == StdinArg {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, NewFailedError("failed to read stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(arg)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NewMissingInputError(fmt.Sprintf("file not found: %s", arg), nil)
	}
	if err != nil {
		return nil, NewFailedError("failed to read "+arg, err)
	}
	return data, nil
}

// ParseWorkflow decodes data as a workflow, coercing its shape and
// checking it against the workflow schema.
func ParseWorkflow(data []byte) (*workflow.Workflow, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewInvalidWorkflowError("invalid JSON", err)
	}
	wf, err := schema.ValidateWorkflow(workflow.Coerce(doc))
	if err != nil {
		return nil, NewInvalidWorkflowError("invalid workflow", err)
	}
	return wf, nil
}

// LoadWorkflow returns the workflow named by arg. An empty arg loads the
// last generated workflow from the state store.
func LoadWorkflow(ctx context.Context, a *app.App, arg string, in io.Reader) (*workflow.Workflow, error) {
	if arg == "" {
		wf, err := a.Store.LastWorkflow(ctx)
		if err != nil {
			return nil, NewFailedError("failed to load the last workflow", err)
		}
		if wf == nil {
			return nil, NewMissingInputError("no workflow given and none generated yet", nil)
		}
		return wf, nil
	}
	data, err := ReadInput(arg, in)
	if err != nil {
		return nil, err
	}
	return ParseWorkflow(data)
}

// WriteOutput writes data to path, or to w when path is empty or
// StdinArg.
func WriteOutput(path string, data []byte, w io.Writer) error {
	if path == "" || path == StdinArg {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewFailedError("failed to write "+path, err)
	}
	return nil
}

// MarshalWorkflow encodes wf as indented JSON with a trailing newline.
func MarshalWorkflow(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
