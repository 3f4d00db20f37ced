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

// Package export implements the export command.
package export

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/cli/prompt"
	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/n8n"
	"github.com/tombee/flowsmith/pkg/secrets"
)

type options struct {
	apiURL   string
	apiKey   string
	mappings []string
	output   string
	yes      bool
}

// Response is the --json output of export.
type Response struct {
	shared.JSONResponse
	*n8n.ImportResult
	Output   string   `json:"output,omitempty"`
	Unmapped []string `json:"unmapped"`
}

// newPrompter is replaced in tests.
var newPrompter = func(interactive bool) prompt.Prompter {
	return prompt.NewTerminalPrompter(interactive)
}

// NewCommand creates the export command.
func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:     "export [file|-]",
		Aliases: []string{"import"},
		Short:   "Import a workflow into n8n or write it for manual import",
		Long: `Export maps credential placeholders to n8n credential ids, strips the
advisory fields and creates the workflow through the n8n API.

With --output the workflow is written to a file instead, ready for the
n8n "Import from file" menu.

Credential ids come from --map. In an interactive terminal, unmapped
placeholders are asked for and the import is confirmed first. The n8n
URL and key default to N8N_API_URL and N8N_API_KEY.

Without an argument the last generated workflow is exported.`,
		Example: `  flowsmith export --map slack_token=12
  flowsmith export wf.json --n8n-url https://n8n.example.com/api/v1 --yes
  flowsmith export -o workflow.n8n.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			return run(cmd, arg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.apiURL, "n8n-url", "", "n8n API URL, e.g. https://host/api/v1")
	cmd.Flags().StringVar(&opts.apiKey, "n8n-key", "", "n8n API key")
	cmd.Flags().StringArrayVarP(&opts.mappings, "map", "m", nil, "Credential mapping as name=credentialId (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the export document to a file instead of importing")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Import without confirmation")
	return cmd
}

func run(cmd *cobra.Command, arg string, opts *options) error {
	ctx := cmd.Context()
	mapping, err := prompt.ParseMapping(opts.mappings)
	if err != nil {
		return shared.NewMissingInputError(err.Error(), nil)
	}

	a, err := shared.OpenApp(cmd)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)

	wf, err := shared.LoadWorkflow(ctx, a, arg, cmd.InOrStdin())
	if err != nil {
		return err
	}

	p := newPrompter(!shared.IsNonInteractive() && !shared.GetJSON())
	mapping, err = prompt.MapMissing(ctx, p, secrets.ExtractPlaceholders(wf), mapping)
	if err != nil {
		return shared.NewFailedError("credential mapping cancelled", err)
	}

	unmapped := secrets.Unmapped(wf, mapping)
	if unmapped == nil {
		unmapped = []string{}
	}
	if len(unmapped) > 0 {
		a.Logger.Warn("exporting with unmapped credential placeholders", "placeholders", unmapped)
	}
	mapped := secrets.ReplacePlaceholders(wf, mapping)

	resp := Response{JSONResponse: shared.NewJSONResponse("export"), Unmapped: unmapped}

	if opts.output != "" {
		data, err := shared.MarshalWorkflow(mapped.Export())
		if err != nil {
			return shared.NewFailedError("failed to encode workflow", err)
		}
		if err := shared.WriteOutput(opts.output, data, cmd.OutOrStdout()); err != nil {
			return err
		}
		if opts.output == shared.StdinArg {
			return nil
		}
		resp.Output = opts.output
		return report(cmd, resp)
	}

	client, err := a.N8N(ctx, opts.apiURL, opts.apiKey)
	if err != nil {
		return shared.Classify("cannot reach n8n", err)
	}

	if p.IsInteractive() && !opts.yes {
		ok, err := p.Confirm(ctx, fmt.Sprintf("Import %q into %s?", wf.Name, client.APIURL()), true)
		if err != nil {
			return shared.NewFailedError("confirmation cancelled", err)
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "Import cancelled")
			return nil
		}
	}

	result, err := client.Import(ctx, mapped)
	if err != nil {
		return shared.Classify("import failed", err)
	}
	resp.ImportResult = result
	return report(cmd, resp)
}

func report(cmd *cobra.Command, resp Response) error {
	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), resp)
	}

	w := cmd.OutOrStdout()
	if resp.ImportResult != nil {
		fmt.Fprintln(w, shared.RenderOK(fmt.Sprintf("%s (id %s)", resp.Message, resp.WorkflowID)))
		fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("open:"), resp.URL)
	} else {
		fmt.Fprintln(w, shared.RenderOK("Wrote "+resp.Output))
	}
	if len(resp.Unmapped) > 0 {
		fmt.Fprintln(w, shared.RenderWarn("Unmapped credentials: "+strings.Join(resp.Unmapped, ", ")))
	}
	return nil
}
