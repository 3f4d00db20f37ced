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

// Package lint implements the lint command.
package lint

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/pkg/secrets"
	wflint "github.com/tombee/flowsmith/pkg/workflow/lint"
)

// Response is the --json output of lint.
type Response struct {
	shared.JSONResponse
	Issues       []wflint.Issue          `json:"issues"`
	Counts       map[wflint.Severity]int `json:"counts"`
	Placeholders []string                `json:"placeholders"`
}

var severityRank = map[wflint.Severity]int{
	wflint.SeverityInfo:  0,
	wflint.SeverityWarn:  1,
	wflint.SeverityError: 2,
}

// NewCommand creates the lint command.
func NewCommand() *cobra.Command {
	var failOn string
	cmd := &cobra.Command{
		Use:   "lint [file|-]",
		Short: "Check a workflow for structural problems",
		Long: `Lint reports missing triggers, unreachable nodes, dead ends, weak
node names, dangling connections and any custom rules from the
configuration file.

Without an argument the last generated workflow is linted.

Exit codes:
  0  no issue at or above the --fail-on severity
  2  the workflow is invalid or has failing issues
  3  no workflow was given and none has been generated`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold := wflint.Severity(failOn)
			if !threshold.Valid() {
				return shared.NewMissingInputError(fmt.Sprintf("invalid --fail-on %q: want error, warn or info", failOn), nil)
			}
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			return run(cmd, arg, threshold)
		},
	}

	cmd.Flags().StringVar(&failOn, "fail-on", string(wflint.SeverityError), "Lowest severity that fails the command (error, warn, info)")
	return cmd
}

func run(cmd *cobra.Command, arg string, threshold wflint.Severity) error {
	a, err := shared.OpenApp(cmd)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)

	wf, err := shared.LoadWorkflow(cmd.Context(), a, arg, cmd.InOrStdin())
	if err != nil {
		return err
	}

	issues := a.Linter.Lint(wf)
	counts := wflint.Count(issues)
	for _, issue := range issues {
		a.Tracing.Metrics().RecordLintIssue(cmd.Context(), issue.RuleID, string(issue.Severity))
	}

	if shared.GetJSON() {
		resp := Response{
			JSONResponse: shared.NewJSONResponse("lint"),
			Issues:       issues,
			Counts:       counts,
			Placeholders: secrets.ExtractPlaceholders(wf),
		}
		failing := failingCount(issues, threshold)
		resp.Success = failing == 0
		if err := shared.EmitJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		return shared.Reported(failure(failing))
	}

	shared.PrintIssues(cmd.OutOrStdout(), issues)
	return failure(failingCount(issues, threshold))
}

func failingCount(issues []wflint.Issue, threshold wflint.Severity) int {
	var n int
	for _, issue := range issues {
		if severityRank[issue.Severity] >= severityRank[threshold] {
			n++
		}
	}
	return n
}

func failure(n int) error {
	if n == 0 {
		return nil
	}
	return shared.NewInvalidWorkflowError(fmt.Sprintf("%d lint issue(s) at or above the failure threshold", n), nil)
}
