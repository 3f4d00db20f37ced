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

// Package simulate implements the simulate command.
package simulate

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/simulate"
)

// Response is the --json output of simulate.
type Response struct {
	shared.JSONResponse
	TestResults *simulate.Result `json:"testResults"`
}

// NewCommand creates the simulate command.
func NewCommand() *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:     "simulate [file|-]",
		Aliases: []string{"test"},
		Short:   "Run a synthetic test execution of a workflow",
		Long: `Simulate performs a dry test execution using the workflow's
__testPayload. Nothing is sent to n8n; the result reports the nodes that
would run and a synthetic duration.

Without an argument the last generated workflow is used. --payload
replaces the workflow's test payload with a JSON object.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			return run(cmd, arg, payload)
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "Test payload as a JSON object")
	return cmd
}

func run(cmd *cobra.Command, arg, payload string) error {
	a, err := shared.OpenApp(cmd)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)

	wf, err := shared.LoadWorkflow(cmd.Context(), a, arg, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if payload != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(payload), &obj); err != nil {
			return shared.NewMissingInputError("--payload must be a JSON object", err)
		}
		wf.TestPayload = obj
	}

	res, err := a.Simulator.Run(cmd.Context(), wf)
	if err != nil {
		return shared.Classify("test execution failed", err)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), Response{
			JSONResponse: shared.NewJSONResponse("simulate"),
			TestResults:  res,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, shared.RenderOK(res.Results.Message))
	fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("execution:"), res.ExecutionID)
	fmt.Fprintf(w, "  %s %d\n", shared.RenderLabel("nodes executed:"), res.NodesExecuted)
	fmt.Fprintf(w, "  %s %dms\n", shared.RenderLabel("duration:"), res.Duration)
	return nil
}
