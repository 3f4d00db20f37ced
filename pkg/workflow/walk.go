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

package workflow

import "sort"

// MapValue returns a deep copy of a decoded JSON value with fn applied to
// every string leaf. Map keys are preserved as-is.
func MapValue(v any, fn func(string) string) any {
	switch t := v.(type) {
	case string:
		return fn(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = MapValue(val, fn)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = MapValue(val, fn)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = fn(s)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = fn(s)
		}
		return out
	default:
		return v
	}
}

// VisitValue calls fn for every string leaf of a decoded JSON value. Maps are
// visited in sorted key order so the visit order is stable.
func VisitValue(v any, fn func(string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case map[string]any:
		for _, k := range sortedKeys(t) {
			VisitValue(t[k], fn)
		}
	case []any:
		for _, val := range t {
			VisitValue(val, fn)
		}
	case []string:
		for _, s := range t {
			fn(s)
		}
	case map[string]string:
		for _, k := range sortedKeys(t) {
			fn(t[k])
		}
	}
}

// MapStrings returns a deep copy of the workflow with fn applied to every
// string value. Connection source keys and map keys are not rewritten.
func (w *Workflow) MapStrings(fn func(string) string) *Workflow {
	out := &Workflow{
		Name:   fn(w.Name),
		Active: w.Active,
	}

	if w.Nodes != nil {
		out.Nodes = make([]Node, len(w.Nodes))
		for i, n := range w.Nodes {
			out.Nodes[i] = Node{
				ID:          fn(n.ID),
				Name:        fn(n.Name),
				Type:        fn(n.Type),
				TypeVersion: n.TypeVersion,
				Position:    n.Position,
			}
			if n.Parameters != nil {
				out.Nodes[i].Parameters = MapValue(n.Parameters, fn).(map[string]any)
			}
			if n.Credentials != nil {
				out.Nodes[i].Credentials = MapValue(n.Credentials, fn).(map[string]string)
			}
		}
	}

	if w.Connections != nil {
		out.Connections = make(Connections, len(w.Connections))
		for source, channels := range w.Connections {
			mapped := make(map[string][][]Edge, len(channels))
			for channel, ports := range channels {
				newPorts := make([][]Edge, len(ports))
				for p, port := range ports {
					newPort := make([]Edge, len(port))
					for e, edge := range port {
						newPort[e] = Edge{Node: fn(edge.Node), Type: fn(edge.Type), Index: edge.Index}
					}
					newPorts[p] = newPort
				}
				mapped[channel] = newPorts
			}
			out.Connections[source] = mapped
		}
	}

	out.Preview = fn(w.Preview)
	if w.TestPayload != nil {
		out.TestPayload = MapValue(w.TestPayload, fn).(map[string]any)
	}
	if w.Notes != nil {
		out.Notes = MapValue(w.Notes, fn).([]string)
	}
	return out
}

// VisitStrings calls fn for every string value in a fixed order: name,
// nodes in declaration order, connections by sorted source, then the
// advisory fields.
func (w *Workflow) VisitStrings(fn func(string)) {
	fn(w.Name)
	for _, n := range w.Nodes {
		fn(n.ID)
		fn(n.Name)
		fn(n.Type)
		VisitValue(n.Parameters, fn)
		VisitValue(n.Credentials, fn)
	}
	for _, source := range w.Connections.Sources() {
		for _, edge := range w.Connections.Edges(source) {
			fn(edge.Node)
			fn(edge.Type)
		}
	}
	fn(w.Preview)
	VisitValue(w.TestPayload, fn)
	VisitValue(w.Notes, fn)
}

// Clone returns a deep copy.
func (w *Workflow) Clone() *Workflow {
	return w.MapStrings(func(s string) string { return s })
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
