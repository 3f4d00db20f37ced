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

// Package examples implements the examples command.
package examples

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/examples"
)

// NewCommand creates the examples command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "List and copy the bundled example workflows",
		Long: `Examples manages the workflows shipped with flowsmith. They seed the
catalog when no directory is configured and are handy starting points
for validate, lint, simulate and export.`,
	}
	cmd.AddCommand(newListCommand(), newShowCommand(), newCopyCommand())
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the bundled examples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := examples.List()
			if err != nil {
				return shared.NewFailedError("failed to list examples", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Examples []examples.Example `json:"examples"`
				}{shared.NewJSONResponse("examples list"), list})
			}

			w := cmd.OutOrStdout()
			for _, ex := range list {
				fmt.Fprintf(w, "%s\n  %s\n", shared.Bold.Render(ex.Name), shared.RenderLabel(ex.Description))
			}
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print an example workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := get(args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(content)
			return err
		},
	}
}

func newCopyCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "copy <name> [dest]",
		Short: "Copy an example workflow to a file",
		Long:  "Copy writes an example to dest, or to <name>.json in the current directory.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !examples.Exists(name) {
				return notFound(name)
			}
			dest := name + ".json"
			if len(args) > 1 {
				dest = args[1]
			}
			if info, err := os.Stat(dest); err == nil && info.IsDir() {
				dest = filepath.Join(dest, name+".json")
			}
			if _, err := os.Stat(dest); err == nil && !force {
				return shared.NewFailedError(dest+" already exists (use --force to overwrite)", nil)
			}

			if err := examples.CopyTo(name, dest); err != nil {
				return shared.NewFailedError("failed to copy example", err)
			}
			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Path string `json:"path"`
				}{shared.NewJSONResponse("examples copy"), dest})
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("Wrote "+dest))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func get(name string) ([]byte, error) {
	content, err := examples.Get(name)
	if err != nil {
		return nil, notFound(name)
	}
	return content, nil
}

func notFound(name string) error {
	return shared.NewMissingInputError(fmt.Sprintf("example %q not found (see \"flowsmith examples list\")", name), nil)
}
