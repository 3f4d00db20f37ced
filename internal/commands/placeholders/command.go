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

// Package placeholders implements the placeholders command.
package placeholders

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/pkg/secrets"
)

type options struct {
	mapping    map[string]string
	output     string
	requireAll bool
}

// Entry is one credential placeholder.
type Entry struct {
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Mapped      bool   `json:"mapped"`
}

// Response is the --json output of placeholders.
type Response struct {
	shared.JSONResponse
	Placeholders []Entry  `json:"placeholders"`
	Unmapped     []string `json:"unmapped"`
}

// NewCommand creates the placeholders command.
func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "placeholders [file|-]",
		Short: "List and map credential placeholders",
		Long: `Placeholders lists the {{CRED:name}} references in a workflow.

With --map, each name is paired with an n8n credential id and --output
writes the workflow with mapped placeholders replaced. Unmapped
placeholders are left in place.

Without an argument the last generated workflow is used.`,
		Example: `  flowsmith placeholders
  flowsmith placeholders wf.json --map slack_token=12 -o mapped.json
  flowsmith placeholders wf.json --map slack_token=12 --require-all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			return run(cmd, arg, opts)
		},
	}

	cmd.Flags().StringToStringVarP(&opts.mapping, "map", "m", nil, "Credential mapping as name=credentialId (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the mapped workflow to a file (- for stdout)")
	cmd.Flags().BoolVar(&opts.requireAll, "require-all", false, "Fail when any placeholder is unmapped")
	return cmd
}

func run(cmd *cobra.Command, arg string, opts *options) error {
	a, err := shared.OpenApp(cmd)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)

	wf, err := shared.LoadWorkflow(cmd.Context(), a, arg, cmd.InOrStdin())
	if err != nil {
		return err
	}

	names := secrets.ExtractPlaceholders(wf)
	unmapped := secrets.Unmapped(wf, opts.mapping)
	if unmapped == nil {
		unmapped = []string{}
	}

	if opts.output != "" {
		data, err := shared.MarshalWorkflow(secrets.ReplacePlaceholders(wf, opts.mapping).Export())
		if err != nil {
			return shared.NewFailedError("failed to encode workflow", err)
		}
		if err := shared.WriteOutput(opts.output, data, cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	var missing error
	if opts.requireAll && len(unmapped) > 0 {
		missing = shared.NewMissingInputError(fmt.Sprintf("%d placeholder(s) unmapped", len(unmapped)), nil)
	}

	// Stdout already holds the workflow.
	if opts.output == shared.StdinArg {
		return shared.Reported(missing)
	}

	if shared.GetJSON() {
		resp := Response{
			JSONResponse: shared.NewJSONResponse("placeholders"),
			Placeholders: make([]Entry, 0, len(names)),
			Unmapped:     unmapped,
		}
		for _, name := range names {
			_, ok := opts.mapping[name]
			resp.Placeholders = append(resp.Placeholders, Entry{Name: name, Placeholder: secrets.Placeholder(name), Mapped: ok})
		}
		resp.Success = missing == nil
		if err := shared.EmitJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		return shared.Reported(missing)
	}

	w := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(w, shared.RenderOK("No credential placeholders"))
		return nil
	}
	for _, name := range names {
		if id, ok := opts.mapping[name]; ok {
			fmt.Fprintln(w, "  "+shared.RenderOK(secrets.Placeholder(name)+" -> "+id))
		} else {
			fmt.Fprintln(w, "  "+shared.RenderWarn(secrets.Placeholder(name)))
		}
	}
	if len(unmapped) > 0 {
		fmt.Fprintf(w, "\n%d of %d placeholder(s) unmapped\n", len(unmapped), len(names))
	}
	return missing
}
