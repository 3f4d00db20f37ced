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

// Package workflow defines the n8n-style workflow document produced by
// generation, along with the shape coercion that makes unreliable generator
// output fit it.
//
// A Workflow is a value: once built by the extraction pipeline it is never
// modified in place. Transformations such as placeholder substitution go
// through MapStrings, which returns a deep copy.
package workflow

import "encoding/json"

const (
	// DefaultNodeType is assigned to nodes that arrive without a type.
	DefaultNodeType = "n8n-nodes-base.function"

	// DefaultPreview is the summary used when generation supplies none.
	DefaultPreview = "Generated workflow"

	// MainChannel is the conventional output channel name.
	MainChannel = "main"
)

// Node is a single step in a workflow.
type Node struct {
	// ID uniquely addresses the node within its workflow.
	ID string `json:"id"`

	// Name is the display label. It need not be unique.
	Name string `json:"name"`

	// Type identifies the node's integration, e.g. "n8n-nodes-base.webhook".
	Type string `json:"type"`

	// TypeVersion is passed through to the export target when present.
	TypeVersion float64 `json:"typeVersion,omitempty"`

	// Position is a layout hint only.
	Position [2]float64 `json:"position"`

	// Parameters is node-specific configuration.
	Parameters map[string]any `json:"parameters"`

	// Credentials binds a logical credential slot to a placeholder or a real
	// credential name.
	Credentials map[string]string `json:"credentials,omitempty"`
}

// Edge is one directed link to a target node's input slot.
type Edge struct {
	// Node references the target by id or by name.
	Node string `json:"node"`

	// Type is the channel name, usually "main".
	Type string `json:"type"`

	// Index is the input slot on the target. Any number is accepted.
	Index float64 `json:"index"`
}

// Connections maps source reference -> channel -> output port -> fan-out.
type Connections map[string]map[string][][]Edge

// Workflow is the aggregate document.
type Workflow struct {
	Name        string      `json:"name"`
	Nodes       []Node      `json:"nodes"`
	Connections Connections `json:"connections"`
	Active      bool        `json:"active"`

	// Advisory fields produced by generation. They are stripped on export.
	Preview     string         `json:"__preview"`
	TestPayload map[string]any `json:"__testPayload"`
	Notes       []string       `json:"__notes"`
}

// ExportDocument is the subset of a workflow accepted by the export target.
type ExportDocument struct {
	Name        string      `json:"name"`
	Nodes       []Node      `json:"nodes"`
	Connections Connections `json:"connections"`
	Active      bool        `json:"active"`
}

// Export strips the advisory fields.
func (w *Workflow) Export() ExportDocument {
	return ExportDocument{
		Name:        w.Name,
		Nodes:       w.Nodes,
		Connections: w.Connections,
		Active:      w.Active,
	}
}

// ApplyDefaults fills absent advisory fields and nil collections so the
// workflow always serializes with every key present.
func (w *Workflow) ApplyDefaults() {
	if w.Nodes == nil {
		w.Nodes = []Node{}
	}
	if w.Connections == nil {
		w.Connections = Connections{}
	}
	for i := range w.Nodes {
		if w.Nodes[i].Parameters == nil {
			w.Nodes[i].Parameters = map[string]any{}
		}
	}
	if w.Preview == "" {
		w.Preview = DefaultPreview
	}
	if w.TestPayload == nil {
		w.TestPayload = map[string]any{}
	}
	if w.Notes == nil {
		w.Notes = []string{}
	}
}

// AddNote appends a caveat.
func (w *Workflow) AddNote(note string) {
	w.Notes = append(w.Notes, note)
}

// NodeByID returns the node with the given id.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// Parse decodes a workflow from JSON without validation. It is meant for
// documents that were validated before they were stored.
func Parse(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	wf.ApplyDefaults()
	return &wf, nil
}

// Edges returns every edge leaving the given source reference, across all
// channels and ports. Channels are visited in sorted order.
func (c Connections) Edges(source string) []Edge {
	channels, ok := c[source]
	if !ok {
		return nil
	}
	var out []Edge
	for _, channel := range sortedKeys(channels) {
		for _, port := range channels[channel] {
			out = append(out, port...)
		}
	}
	return out
}

// Sources returns the connection source keys in sorted order.
func (c Connections) Sources() []string {
	return sortedKeys(c)
}
