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

// Package query implements the query command.
package query

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/pkg/secrets"
)

// Response is the --json output of query.
type Response struct {
	shared.JSONResponse
	Expression string `json:"expression"`
	Results    []any  `json:"results"`
}

// NewCommand creates the query command.
func NewCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "query <expression> [file|-]",
		Short: "Run a jq expression against a workflow",
		Long: `Query evaluates a jq expression against a workflow document and prints
each result on its own line.

The variable $placeholders holds the credential placeholder names found
in the workflow. Without a file the last generated workflow is queried.`,
		Example: `  flowsmith query '.nodes[].type'
  flowsmith query -r '.nodes[] | select(.type | test("slack")) | .name' wf.json
  flowsmith query '$placeholders | length'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 1 {
				arg = args[1]
			}
			return run(cmd, args[0], arg, raw)
		},
	}

	cmd.Flags().BoolVarP(&raw, "raw-output", "r", false, "Print string results without quotes")
	return cmd
}

func run(cmd *cobra.Command, expression, arg string, raw bool) error {
	a, err := shared.OpenApp(cmd)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)

	if err := a.Query.Validate(expression); err != nil {
		return shared.NewMissingInputError(err.Error(), nil)
	}

	wf, err := shared.LoadWorkflow(cmd.Context(), a, arg, cmd.InOrStdin())
	if err != nil {
		return err
	}

	results, err := a.Query.QueryWorkflow(cmd.Context(), expression, wf, secrets.ExtractPlaceholders(wf))
	if err != nil {
		return shared.NewFailedError("query failed", err)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), Response{
			JSONResponse: shared.NewJSONResponse("query"),
			Expression:   expression,
			Results:      results,
		})
	}

	w := cmd.OutOrStdout()
	for _, v := range results {
		if s, ok := v.(string); ok && raw {
			fmt.Fprintln(w, s)
			continue
		}
		line, err := json.Marshal(v)
		if err != nil {
			return shared.NewFailedError("failed to encode result", err)
		}
		fmt.Fprintln(w, string(line))
	}
	return nil
}
