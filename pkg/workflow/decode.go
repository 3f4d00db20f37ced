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

import (
	"encoding/json"
	"fmt"
)

// FromMap decodes a document that has already passed schema validation.
func FromMap(doc map[string]any) (*Workflow, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding workflow: %w", err)
	}
	wf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decoding workflow: %w", err)
	}
	return wf, nil
}

// FromLenient builds a workflow from a coerced document without requiring it
// to match the schema. Pieces of the wrong shape are dropped rather than
// rejected, so it always succeeds. Callers are expected to tell the user
// that the structure was accepted leniently.
func FromLenient(doc map[string]any) *Workflow {
	wf := &Workflow{}

	if name, ok := doc["name"].(string); ok {
		wf.Name = name
	} else if doc["name"] != nil {
		wf.Name = Stringify(doc["name"])
	}

	if nodes, ok := doc["nodes"].([]any); ok {
		for _, n := range nodes {
			obj, ok := n.(map[string]any)
			if !ok {
				continue
			}
			wf.Nodes = append(wf.Nodes, lenientNode(obj))
		}
	}

	if conns, ok := doc["connections"].(map[string]any); ok {
		wf.Connections = lenientConnections(conns)
	}

	wf.Active, _ = doc["active"].(bool)
	wf.Preview, _ = doc["__preview"].(string)
	wf.TestPayload, _ = doc["__testPayload"].(map[string]any)
	if notes, ok := doc["__notes"].([]any); ok {
		for _, n := range notes {
			wf.Notes = append(wf.Notes, Stringify(n))
		}
	}

	wf.ApplyDefaults()
	return wf
}

func lenientNode(obj map[string]any) Node {
	node := Node{
		ID:   Stringify(valueOr(obj["id"], "")),
		Name: Stringify(valueOr(obj["name"], "")),
		Type: Stringify(valueOr(obj["type"], DefaultNodeType)),
	}
	node.TypeVersion, _ = obj["typeVersion"].(float64)

	if pos, ok := obj["position"].([]any); ok && len(pos) == 2 {
		node.Position[0], _ = pos[0].(float64)
		node.Position[1], _ = pos[1].(float64)
	}

	if params, ok := obj["parameters"].(map[string]any); ok {
		node.Parameters = params
	} else {
		node.Parameters = map[string]any{}
	}

	if creds, ok := obj["credentials"].(map[string]any); ok && len(creds) > 0 {
		node.Credentials = make(map[string]string, len(creds))
		for k, v := range creds {
			node.Credentials[k] = Stringify(v)
		}
	}
	return node
}

func lenientConnections(conns map[string]any) Connections {
	out := make(Connections, len(conns))
	for source, outputs := range conns {
		channels, ok := outputs.(map[string]any)
		if !ok {
			continue
		}
		mapped := make(map[string][][]Edge, len(channels))
		for channel, ports := range channels {
			portList, ok := ports.([]any)
			if !ok {
				continue
			}
			var edgesByPort [][]Edge
			for _, port := range portList {
				edges, _ := port.([]any)
				var decoded []Edge
				for _, e := range edges {
					if edge, ok := lenientEdge(e, channel); ok {
						decoded = append(decoded, edge)
					}
				}
				if decoded == nil {
					decoded = []Edge{}
				}
				edgesByPort = append(edgesByPort, decoded)
			}
			if edgesByPort == nil {
				edgesByPort = [][]Edge{}
			}
			mapped[channel] = edgesByPort
		}
		out[source] = mapped
	}
	return out
}

func lenientEdge(v any, channel string) (Edge, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Edge{}, false
	}
	edge := Edge{Type: channel}
	switch n := obj["node"].(type) {
	case string:
		edge.Node = n
	case nil:
		return Edge{}, false
	default:
		edge.Node = Stringify(n)
	}
	if t, ok := obj["type"].(string); ok {
		edge.Type = t
	}
	if idx, ok := obj["index"].(float64); ok {
		edge.Index = idx
	}
	return edge, true
}

func valueOr(v, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}
