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

// Package catalog implements the catalog command.
package catalog

import (
	"cmp"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/catalog"
	"github.com/tombee/flowsmith/internal/commands/shared"
)

// Response is the --json output of catalog.
type Response struct {
	shared.JSONResponse
	*catalog.Catalog
	Dir             string   `json:"dir"`
	ContextSnippets []string `json:"contextSnippets,omitempty"`
}

// NewCommand creates the catalog command.
func NewCommand() *cobra.Command {
	var snippets, top int
	cmd := &cobra.Command{
		Use:   "catalog [dir]",
		Short: "Summarize the local workflow catalog",
		Long: `Catalog scans a workflow directory and reports node type counts,
trigger types and sample workflows. The directory defaults to
FLOWSMITH_CATALOG_DIR or catalog.dir in the config file; without either
the bundled examples are used.

--snippets prints the context lines that generate --catalog-context
would send to the model.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) > 0 {
				dir = args[0]
			}
			return run(cmd, dir, snippets, top)
		},
	}

	cmd.Flags().IntVar(&snippets, "snippets", 0, "Show N generation context snippets")
	cmd.Flags().IntVar(&top, "top", 10, "Number of node types to list")
	return cmd
}

func run(cmd *cobra.Command, dir string, snippets, top int) error {
	a, err := shared.OpenApp(cmd)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)

	svc := a.Catalog
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return shared.NewMissingInputError("catalog directory not found: "+dir, err)
		}
		svc, err = catalog.NewService(catalog.Config{
			Dir:         dir,
			MaxSnippets: a.Config.Catalog.MaxSnippets,
			Logger:      a.Logger,
		})
		if err != nil {
			return shared.NewFailedError("failed to open catalog", err)
		}
		defer svc.Close()
	}

	cat, err := svc.Get(cmd.Context())
	if err != nil {
		return shared.NewFailedError("failed to read catalog", err)
	}

	var lines []string
	if snippets > 0 {
		lines = cat.ContextSnippets(snippets)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), Response{
			JSONResponse:    shared.NewJSONResponse("catalog"),
			Catalog:         cat,
			Dir:             svc.Dir(),
			ContextSnippets: lines,
		})
	}

	w := cmd.OutOrStdout()
	dir = svc.Dir()
	if dir == "" {
		dir = "bundled examples"
	}
	fmt.Fprintln(w, shared.Header.Render(fmt.Sprintf("%d workflow(s) in %s", cat.TotalWorkflows, dir)))
	if cat.TotalWorkflows == 0 {
		return nil
	}

	if len(cat.TriggerTypes) > 0 {
		fmt.Fprintln(w, "\n"+shared.RenderLabel("Trigger types:"))
		for _, t := range cat.TriggerTypes {
			fmt.Fprintf(w, "  %s\n", t)
		}
	}

	fmt.Fprintln(w, "\n"+shared.RenderLabel("Node types:"))
	for _, t := range topTypes(cat.NodeTypeCounts, top) {
		fmt.Fprintf(w, "  %4d  %s\n", cat.NodeTypeCounts[t], t)
	}

	if len(lines) > 0 {
		fmt.Fprintln(w, "\n"+shared.RenderLabel("Context snippets:"))
		for _, line := range lines {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}

// topTypes orders node types by count, then name, and keeps the first n.
func topTypes(counts map[string]int, n int) []string {
	types := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if n > 0 && len(types) > n {
		types = types[:n]
	}
	return types
}
