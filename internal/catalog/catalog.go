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

// Package catalog summarizes a directory of existing workflows: how often
// each node type is used, which trigger types appear, and short snippets
// that can be fed back to generation as context.
package catalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// Pattern selects catalog files.
	Pattern = "**/*.{json,JSON,Json}"

	// MaxSummaryRunes bounds each snippet summary.
	MaxSummaryRunes = 300

	// DefaultMaxSnippets bounds the snippet list when no limit is given.
	DefaultMaxSnippets = 50

	// UnknownNodeType is counted for nodes without a type.
	UnknownNodeType = "unknown"
)

var triggerPattern = regexp.MustCompile(`(?i)trigger`)

// Catalog is the summary of a workflow directory.
type Catalog struct {
	TotalWorkflows  int            `json:"totalWorkflows"`
	NodeTypeCounts  map[string]int `json:"nodeTypeCounts"`
	TriggerTypes    []string       `json:"triggerTypes"`
	SampleWorkflows []Sample       `json:"sampleWorkflows"`
	Snippets        []Snippet      `json:"snippets"`
}

// Sample names one catalog file.
type Sample struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Snippet is a short description of one catalog file.
type Snippet struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Summary   string `json:"summary"`
	NodeCount int    `json:"nodeCount"`
}

// Empty returns a catalog with no workflows. Collections are non-nil so
// they serialize as empty JSON values.
func Empty() *Catalog {
	return &Catalog{
		NodeTypeCounts:  map[string]int{},
		TriggerTypes:    []string{},
		SampleWorkflows: []Sample{},
		Snippets:        []Snippet{},
	}
}

// BuildOptions tunes Build.
type BuildOptions struct {
	// MaxSnippets bounds the snippet list. Zero means DefaultMaxSnippets.
	MaxSnippets int

	// Logger receives one debug record per skipped file.
	Logger *slog.Logger
}

// Build walks every JSON file under fsys. Files that are not valid JSON are
// skipped. Only I/O errors from the walk itself are returned.
func Build(fsys fs.FS, opts BuildOptions) (*Catalog, error) {
	if opts.MaxSnippets <= 0 {
		opts.MaxSnippets = DefaultMaxSnippets
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat := Empty()
	triggers := map[string]struct{}{}

	err := doublestar.GlobWalk(fsys, Pattern, func(p string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			logger.Debug("skipping invalid catalog file", "path", p, "error", err)
			return nil
		}
		cat.add(p, doc, triggers, opts.MaxSnippets)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking catalog: %w", err)
	}

	for t := range triggers {
		cat.TriggerTypes = append(cat.TriggerTypes, t)
	}
	sort.Strings(cat.TriggerTypes)
	cat.TotalWorkflows = len(cat.SampleWorkflows)
	return cat, nil
}

func (c *Catalog) add(p string, doc any, triggers map[string]struct{}, maxSnippets int) {
	obj, _ := doc.(map[string]any)

	name, _ := obj["name"].(string)
	if name == "" {
		name = path.Base(p)
	}
	nodes, _ := obj["nodes"].([]any)

	summary, ok := obj["__preview"].(string)
	if !ok {
		summary, _ = obj["description"].(string)
	}

	c.SampleWorkflows = append(c.SampleWorkflows, Sample{Name: name, Path: p})
	if len(c.Snippets) < maxSnippets {
		c.Snippets = append(c.Snippets, Snippet{
			Name:      name,
			Path:      p,
			Summary:   truncateRunes(summary, MaxSummaryRunes),
			NodeCount: len(nodes),
		})
	}

	for _, n := range nodes {
		node, _ := n.(map[string]any)
		nodeType, _ := node["type"].(string)
		if nodeType == "" {
			nodeType = UnknownNodeType
		}
		c.NodeTypeCounts[nodeType]++

		displayName, _ := node["name"].(string)
		if triggerPattern.MatchString(nodeType) || triggerPattern.MatchString(displayName) {
			triggers[nodeType] = struct{}{}
		}
	}
}

// ContextSnippets renders up to n snippets as generation context, one
// string per workflow.
func (c *Catalog) ContextSnippets(n int) []string {
	if n > len(c.Snippets) {
		n = len(c.Snippets)
	}
	out := make([]string, 0, n)
	for _, s := range c.Snippets[:max(n, 0)] {
		line := fmt.Sprintf("%s (%d nodes)", s.Name, s.NodeCount)
		if s.Summary != "" {
			line += ": " + s.Summary
		}
		out = append(out, line)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
