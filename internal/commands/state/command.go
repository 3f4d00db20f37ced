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

// Package state implements the state command.
package state

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/store"
	"github.com/tombee/flowsmith/pkg/workflow"
)

// Response is the --json output of state show.
type Response struct {
	shared.JSONResponse
	Settings      store.Settings     `json:"settings"`
	LastWorkflow  *workflow.Workflow `json:"lastWorkflow"`
	RecentPrompts []string           `json:"recentPrompts"`
}

// NewCommand creates the state command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show or change saved settings and session state",
		Long: `State manages what flowsmith remembers between runs: generation
settings, recent prompts and the last generated workflow.`,
		Args: cobra.NoArgs,
		RunE: runShow,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show settings, recent prompts and the last workflow",
			Args:  cobra.NoArgs,
			RunE:  runShow,
		},
		newClearCommand(),
		newSetCommand(),
	)
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := shared.OpenApp(cmd)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)

	ctx := cmd.Context()
	settings, err := a.Store.Settings(ctx)
	if err != nil {
		return shared.NewFailedError("failed to load settings", err)
	}
	wf, err := a.Store.LastWorkflow(ctx)
	if err != nil {
		return shared.NewFailedError("failed to load the last workflow", err)
	}
	recent, err := a.Store.RecentPrompts(ctx)
	if err != nil {
		return shared.NewFailedError("failed to load recent prompts", err)
	}
	if recent == nil {
		recent = []string{}
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), Response{
			JSONResponse:  shared.NewJSONResponse("state"),
			Settings:      settings,
			LastWorkflow:  wf,
			RecentPrompts: recent,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, shared.Header.Render("Settings"))
	for _, f := range settingFields {
		fmt.Fprintf(w, "  %-16s %s\n", f.name, f.get(settings))
	}

	fmt.Fprintln(w, "\n"+shared.Header.Render("Last workflow"))
	if wf == nil {
		fmt.Fprintln(w, "  "+shared.RenderLabel("none"))
	} else {
		fmt.Fprintf(w, "  %s (%d nodes)\n", wf.Name, len(wf.Nodes))
	}

	fmt.Fprintln(w, "\n"+shared.Header.Render("Recent prompts"))
	if len(recent) == 0 {
		fmt.Fprintln(w, "  "+shared.RenderLabel("none"))
	}
	for i, p := range recent {
		fmt.Fprintf(w, "  %d. %s\n", i+1, p)
	}
	return nil
}

func newClearCommand() *cobra.Command {
	var workflowOnly bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget saved state",
		Long:  "Clear removes the settings, recent prompts and last workflow. With --workflow only the last workflow is removed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := shared.OpenApp(cmd)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer shared.CloseApp(cmd, a)

			if workflowOnly {
				err = a.Store.ClearLastWorkflow(cmd.Context())
			} else {
				err = a.Store.Clear(cmd.Context())
			}
			if err != nil {
				return shared.NewFailedError("failed to clear state", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), shared.NewJSONResponse("state clear"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("State cleared"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&workflowOnly, "workflow", false, "Only forget the last workflow")
	return cmd
}

func newSetCommand() *cobra.Command {
	names := make([]string, len(settingFields))
	for i, f := range settingFields {
		names[i] = f.name
	}
	return &cobra.Command{
		Use:       "set <setting> <value>",
		Short:     "Change a saved generation setting",
		Long:      "Set changes one saved setting. Settings: " + strings.Join(names, ", ") + ".",
		Example:   "  flowsmith state set model llama-3.3-70b-versatile\n  flowsmith state set forceJson false",
		Args:      cobra.ExactArgs(2),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := lookupField(args[0])
			if !ok {
				return shared.NewMissingInputError(fmt.Sprintf("unknown setting %q (want one of %s)", args[0], strings.Join(names, ", ")), nil)
			}

			a, err := shared.OpenApp(cmd)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer shared.CloseApp(cmd, a)

			settings, err := a.Store.Settings(cmd.Context())
			if err != nil {
				return shared.NewFailedError("failed to load settings", err)
			}
			if err := f.set(&settings, args[1]); err != nil {
				return shared.NewMissingInputError(fmt.Sprintf("invalid value for %s: %v", f.name, err), nil)
			}
			if err := a.Store.SaveSettings(cmd.Context(), settings); err != nil {
				return shared.NewFailedError("failed to save settings", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Settings store.Settings `json:"settings"`
				}{shared.NewJSONResponse("state set"), settings})
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("%s = %s", f.name, f.get(settings))))
			return nil
		},
	}
}

// settingField reads and writes one Settings field by its JSON name.
type settingField struct {
	name string
	get  func(store.Settings) string
	set  func(*store.Settings, string) error
}

var settingFields = []settingField{
	{
		name: "llmProvider",
		get:  func(s store.Settings) string { return s.Provider },
		set:  func(s *store.Settings, v string) error { s.Provider = v; return nil },
	},
	{
		name: "model",
		get:  func(s store.Settings) string { return s.Model },
		set: func(s *store.Settings, v string) error {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("must not be empty")
			}
			s.Model = v
			return nil
		},
	},
	{
		name: "maxNodes",
		get:  func(s store.Settings) string { return strconv.Itoa(s.MaxNodes) },
		set:  func(s *store.Settings, v string) error { return setPositive(&s.MaxNodes, v) },
	},
	{
		name: "triggerType",
		get:  func(s store.Settings) string { return s.TriggerType },
		set:  func(s *store.Settings, v string) error { s.TriggerType = v; return nil },
	},
	{
		name: "temperature",
		get:  func(s store.Settings) string { return strconv.FormatFloat(s.Temperature, 'f', -1, 64) },
		set: func(s *store.Settings, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			if f < 0 || f > 2 {
				return fmt.Errorf("must be between 0 and 2")
			}
			s.Temperature = f
			return nil
		},
	},
	{
		name: "maxTokens",
		get:  func(s store.Settings) string { return strconv.Itoa(s.MaxTokens) },
		set:  func(s *store.Settings, v string) error { return setPositive(&s.MaxTokens, v) },
	},
	{
		name: "forceJson",
		get:  func(s store.Settings) string { return strconv.FormatBool(s.ForceJSON) },
		set:  func(s *store.Settings, v string) error { return setBool(&s.ForceJSON, v) },
	},
	{
		name: "autoValidate",
		get:  func(s store.Settings) string { return strconv.FormatBool(s.AutoValidate) },
		set:  func(s *store.Settings, v string) error { return setBool(&s.AutoValidate, v) },
	},
	{
		name: "enableTestMode",
		get:  func(s store.Settings) string { return strconv.FormatBool(s.EnableTestMode) },
		set:  func(s *store.Settings, v string) error { return setBool(&s.EnableTestMode, v) },
	},
}

func lookupField(name string) (settingField, bool) {
	for _, f := range settingFields {
		if strings.EqualFold(f.name, name) {
			return f, true
		}
	}
	return settingField{}, false
}

func setPositive(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
