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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/commands/catalog"
	"github.com/tombee/flowsmith/internal/commands/daemon"
	"github.com/tombee/flowsmith/internal/commands/examples"
	"github.com/tombee/flowsmith/internal/commands/export"
	"github.com/tombee/flowsmith/internal/commands/generate"
	"github.com/tombee/flowsmith/internal/commands/lint"
	"github.com/tombee/flowsmith/internal/commands/placeholders"
	"github.com/tombee/flowsmith/internal/commands/query"
	"github.com/tombee/flowsmith/internal/commands/secrets"
	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/commands/simulate"
	"github.com/tombee/flowsmith/internal/commands/state"
	"github.com/tombee/flowsmith/internal/commands/validate"
	versioncmd "github.com/tombee/flowsmith/internal/commands/version"
)

// Command groups shown in help output.
const (
	groupWorkflow = "workflow"
	groupN8N      = "n8n"
	groupServer   = "server"
	groupConfig   = "config"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for flowsmith with every
// subcommand registered.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flowsmith",
		Short: "flowsmith - natural language to n8n workflows",
		Long: `flowsmith turns a plain-language description into an importable n8n
workflow. Generated workflows are repaired, validated, linted and
sanitized so credentials never leave as literal values.

Run 'flowsmith generate "..."' to create a workflow.
Run 'flowsmith examples list' to see bundled example workflows.
Run 'flowsmith serve' to start the HTTP API.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	// Get flag pointers from shared package
	verbose, quiet, json, config := shared.RegisterFlagPointers()

	// Add global flags
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ~/.config/flowsmith/config.yaml)")

	cmd.AddGroup(
		&cobra.Group{ID: groupWorkflow, Title: "Workflow Commands:"},
		&cobra.Group{ID: groupN8N, Title: "n8n Commands:"},
		&cobra.Group{ID: groupServer, Title: "Server Commands:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration Commands:"},
	)

	add := func(group string, cmds ...*cobra.Command) {
		for _, c := range cmds {
			c.GroupID = group
			if c.Annotations == nil {
				c.Annotations = map[string]string{}
			}
			c.Annotations["group"] = group
			cmd.AddCommand(c)
		}
	}
	add(groupWorkflow,
		generate.NewCommand(),
		validate.NewCommand(),
		lint.NewCommand(),
		placeholders.NewCommand(),
		simulate.NewCommand(),
		query.NewCommand(),
		examples.NewCommand(),
	)
	add(groupN8N, export.NewCommand(), catalog.NewCommand())
	add(groupServer, daemon.NewServeCommand(), daemon.NewCommand())
	add(groupConfig, state.NewCommand(), secrets.NewCommand(), versioncmd.NewVersionCommand())

	// Custom help command with JSON support
	cmd.SetHelpCommand(NewHelpCommand(cmd))

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
