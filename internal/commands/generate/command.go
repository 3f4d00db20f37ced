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

// Package generate implements the generate command.
package generate

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/flowsmith/internal/app"
	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/generator"
	"github.com/tombee/flowsmith/internal/store"
	"github.com/tombee/flowsmith/pkg/workflow"
	"github.com/tombee/flowsmith/pkg/workflow/extract"
	"github.com/tombee/flowsmith/pkg/workflow/lint"
)

type options struct {
	promptFile     string
	output         string
	model          string
	maxNodes       int
	triggerType    string
	temperature    float64
	maxTokens      int
	forceJSON      bool
	catalogContext int
	snippets       []string
	noSave         bool
}

// Response is the --json output of generate.
type Response struct {
	shared.JSONResponse
	Workflow     *workflow.Workflow `json:"workflow"`
	Lint         []lint.Issue       `json:"lint"`
	Placeholders []string           `json:"placeholders"`
	Stage        string             `json:"stage"`
	Model        string             `json:"model"`
	Attempts     int                `json:"attempts"`
	DurationMs   int64              `json:"duration_ms"`
}

// NewCommand creates the generate command.
func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "generate [prompt...]",
		Short: "Generate an n8n workflow from a description",
		Long: `Generate asks the configured text generation service for an n8n
workflow matching the prompt, then extracts, repairs, validates and lints
the result.

Flags left unset fall back to the saved settings. The generated workflow is
remembered as the last workflow, so later commands can omit the file
argument.

Examples:
  flowsmith generate "When a GitHub issue is opened, post it to Slack"
  flowsmith generate -f prompt.txt -o workflow.json
  flowsmith generate --catalog-context 3 "nightly HTTP report by email"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.promptFile, "prompt-file", "f", "", "Read the prompt from a file (- for stdin)")
	f.StringVarP(&opts.output, "output", "o", "", "Write the workflow to a file instead of stdout")
	f.StringVar(&opts.model, "model", "", "Model identifier")
	f.IntVar(&opts.maxNodes, "max-nodes", generator.DefaultMaxNodes, "Advisory node cap")
	f.StringVar(&opts.triggerType, "trigger", "", "Preferred trigger type")
	f.Float64Var(&opts.temperature, "temperature", 0.3, "Sampling temperature")
	f.IntVar(&opts.maxTokens, "max-tokens", 2000, "Completion token limit")
	f.BoolVar(&opts.forceJSON, "force-json", false, "Request JSON-only output")
	f.IntVar(&opts.catalogContext, "catalog-context", 0, "Add this many catalog snippets as context")
	f.StringArrayVar(&opts.snippets, "context", nil, "Context snippet to include (repeatable)")
	f.BoolVar(&opts.noSave, "no-save", false, "Do not remember the prompt or workflow")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	prompt, err := readPrompt(cmd, args, opts.promptFile)
	if err != nil {
		return err
	}

	a, err := shared.OpenApp(cmd)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)
	ctx := cmd.Context()

	settings, err := a.Store.Settings(ctx)
	if err != nil {
		a.Logger.Warn("failed to load settings, using defaults", "error", err)
		settings = store.DefaultSettings()
	}
	req := buildRequest(cmd, prompt, opts, settings)

	if opts.catalogContext > 0 {
		cat, err := a.Catalog.Get(ctx)
		if err != nil {
			return shared.Classify("failed to load catalog", err)
		}
		req.ContextSnippets = append(req.ContextSnippets, cat.ContextSnippets(opts.catalogContext)...)
	}

	gen, err := a.Generator(ctx)
	if err != nil {
		return shared.Classify("generation unavailable", err)
	}

	spinner := newSpinner(cmd)
	spinner.Start("Generating workflow")
	res, err := gen.Generate(ctx, req)
	spinner.Stop()
	if err != nil {
		return shared.Classify("generation failed", err)
	}

	if !opts.noSave {
		remember(cmd, a, prompt, res.Workflow)
	}
	return report(cmd, opts, res)
}

func readPrompt(cmd *cobra.Command, args []string, promptFile string) (string, error) {
	var prompt string
	if promptFile != "" {
		data, err := shared.ReadInput(promptFile, cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		prompt = string(data)
	} else {
		prompt = strings.Join(args, " ")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", shared.NewMissingInputError("Prompt is required", nil)
	}
	return prompt, nil
}

// buildRequest prefers flags the user set, then saved settings.
func buildRequest(cmd *cobra.Command, prompt string, opts *options, settings store.Settings) generator.Request {
	changed := cmd.Flags().Changed
	req := generator.Request{
		Prompt:          prompt,
		Model:           settings.Model,
		MaxNodes:        settings.MaxNodes,
		TriggerType:     settings.TriggerType,
		ForceJSON:       settings.ForceJSON,
		ContextSnippets: append([]string(nil), opts.snippets...),
	}
	temperature, maxTokens := settings.Temperature, settings.MaxTokens

	if changed("model") {
		req.Model = opts.model
	}
	if changed("max-nodes") || req.MaxNodes <= 0 {
		req.MaxNodes = opts.maxNodes
	}
	if changed("trigger") {
		req.TriggerType = opts.triggerType
	}
	if changed("force-json") {
		req.ForceJSON = opts.forceJSON
	}
	if changed("temperature") {
		temperature = opts.temperature
	}
	if changed("max-tokens") {
		maxTokens = opts.maxTokens
	}
	req.Temperature = &temperature
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	return req
}

func remember(cmd *cobra.Command, a *app.App, prompt string, wf *workflow.Workflow) {
	ctx := cmd.Context()
	if err := a.Store.AddRecentPrompt(ctx, prompt); err != nil {
		a.Logger.Warn("failed to record prompt", "error", err)
	}
	if err := a.Store.SaveLastWorkflow(ctx, wf); err != nil {
		a.Logger.Warn("failed to record workflow", "error", err)
	}
}

func report(cmd *cobra.Command, opts *options, res *generator.Result) error {
	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), Response{
			JSONResponse: shared.NewJSONResponse("generate"),
			Workflow:     res.Workflow,
			Lint:         nonNil(res.Issues),
			Placeholders: nonNil(res.Placeholders),
			Stage:        string(res.Stage),
			Model:        res.Model,
			Attempts:     res.Attempts,
			DurationMs:   res.Duration.Milliseconds(),
		})
	}

	data, err := shared.MarshalWorkflow(res.Workflow)
	if err != nil {
		return shared.NewFailedError("failed to encode workflow", err)
	}
	if err := shared.WriteOutput(opts.output, data, cmd.OutOrStdout()); err != nil {
		return err
	}
	if shared.GetQuiet() {
		return nil
	}

	// The summary goes to stderr so stdout stays a clean workflow document.
	w := cmd.ErrOrStderr()
	summary := fmt.Sprintf("Generated %q (%d nodes, %s) in %s",
		res.Workflow.Name, len(res.Workflow.Nodes), res.Stage, shared.FormatElapsed(res.Duration))
	if res.Stage == extract.StageLenient {
		fmt.Fprintln(w, shared.RenderWarn(summary))
	} else {
		fmt.Fprintln(w, shared.RenderOK(summary))
	}
	if opts.output != "" {
		fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("written to"), opts.output)
	}
	for _, note := range res.Workflow.Notes {
		fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("note:"), note)
	}
	if len(res.Placeholders) > 0 {
		fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("credentials needed:"), strings.Join(res.Placeholders, ", "))
	}
	if len(res.Issues) > 0 {
		fmt.Fprintln(w)
		shared.PrintIssues(w, res.Issues)
	}
	return nil
}

func newSpinner(cmd *cobra.Command) *shared.Spinner {
	w := cmd.ErrOrStderr()
	if shared.GetQuiet() || shared.GetJSON() {
		w = io.Discard
	}
	isTTY := false
	if f, ok := w.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return shared.NewSpinner(w, isTTY)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
