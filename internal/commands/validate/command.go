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

// Package validate implements the validate command.
package validate

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/pkg/workflow"
	"github.com/tombee/flowsmith/pkg/workflow/extract"
)

type options struct {
	strict bool
	output string
	save   bool
}

// Response is the --json output of validate.
type Response struct {
	shared.JSONResponse
	Stage    string             `json:"stage"`
	Lenient  bool               `json:"lenient"`
	Notes    []string           `json:"notes"`
	Workflow *workflow.Workflow `json:"workflow"`
}

// NewCommand creates the validate command.
func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Extract and validate a workflow from JSON or model output",
		Long: `Validate runs the extraction pipeline on a file: the first JSON object
is located, repaired if needed, coerced into workflow shape, checked
against the workflow schema and sanitized.

The input may be a workflow document or a raw model response with text
around the JSON. The reported stage is strict, repaired or lenient.

Exit codes:
  0  the workflow is valid (or accepted leniently without --strict)
  2  no usable workflow, or a lenient result with --strict
  3  the file does not exist`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when the workflow only passes leniently")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the cleaned workflow to a file (- for stdout)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Remember the workflow as the last workflow")
	return cmd
}

func run(cmd *cobra.Command, arg string, opts *options) error {
	raw, err := shared.ReadInput(arg, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := shared.OpenApp(cmd)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)

	pipeline := extract.New(
		extract.WithLogger(a.Logger),
		extract.WithObserver(a.Tracing.Metrics()),
	)
	res, err := pipeline.Run(cmd.Context(), string(raw))
	if err != nil {
		return shared.Classify("validation failed", err)
	}
	if opts.strict && res.Lenient {
		return shared.NewInvalidWorkflowError("workflow does not match the schema", nil)
	}

	if opts.save {
		if err := a.Store.SaveLastWorkflow(cmd.Context(), res.Workflow); err != nil {
			return shared.NewFailedError("failed to save workflow", err)
		}
	}
	if opts.output != "" {
		data, err := shared.MarshalWorkflow(res.Workflow)
		if err != nil {
			return shared.NewFailedError("failed to encode workflow", err)
		}
		if err := shared.WriteOutput(opts.output, data, cmd.OutOrStdout()); err != nil {
			return err
		}
		if opts.output == shared.StdinArg {
			return nil
		}
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), Response{
			JSONResponse: shared.NewJSONResponse("validate"),
			Stage:        string(res.Stage),
			Lenient:      res.Lenient,
			Notes:        res.Workflow.Notes,
			Workflow:     res.Workflow,
		})
	}

	w := cmd.OutOrStdout()
	summary := fmt.Sprintf("%s: %q with %d nodes (%s)", arg, res.Workflow.Name, len(res.Workflow.Nodes), res.Stage)
	if res.Lenient {
		fmt.Fprintln(w, shared.RenderWarn(summary))
	} else {
		fmt.Fprintln(w, shared.RenderOK(summary))
	}
	if len(res.Workflow.Notes) > 0 {
		fmt.Fprintf(w, "  %s\n    %s\n", shared.RenderLabel("notes:"), strings.Join(res.Workflow.Notes, "\n    "))
	}
	return nil
}
