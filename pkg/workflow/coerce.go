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
	"math/rand/v2"
	"strconv"
)

// Coerce normalizes the common shape deviations of generated workflows so
// that schema validation has a fair chance. It operates on decoded JSON
// (nil, bool, float64, string, []any, map[string]any) and never panics.
//
// Non-object input is returned unchanged. The input is never mutated; every
// map and slice that is rewritten is a fresh copy.
//
// Coerce is idempotent: a second pass produces the same shape.
func Coerce(doc any) any {
	obj, ok := doc.(map[string]any)
	if !ok {
		return doc
	}

	out := make(map[string]any, len(obj)+4)
	for k, v := range obj {
		out[k] = v
	}

	// Unprefixed advisory aliases are accepted from generators that drop
	// the underscores.
	for alias, key := range map[string]string{
		"preview":     "__preview",
		"testPayload": "__testPayload",
		"notes":       "__notes",
	} {
		if _, has := out[key]; has {
			continue
		}
		if v, has := out[alias]; has {
			out[key] = v
			delete(out, alias)
		}
	}

	if nodes, ok := out["nodes"].([]any); ok {
		coerced := make([]any, len(nodes))
		for i, n := range nodes {
			coerced[i] = coerceNode(n)
		}
		out["nodes"] = coerced
	}

	if conns, ok := out["connections"].(map[string]any); ok {
		out["connections"] = normalizeConnections(conns)
	}

	if _, ok := out["active"].(bool); !ok {
		out["active"] = false
	}
	if _, ok := out["__preview"].(string); !ok {
		out["__preview"] = DefaultPreview
	}
	if _, ok := out["__testPayload"].(map[string]any); !ok {
		out["__testPayload"] = map[string]any{}
	}
	out["__notes"] = coerceNotes(out["__notes"])

	return out
}

func coerceNode(n any) map[string]any {
	src, ok := n.(map[string]any)
	if !ok {
		src = map[string]any{}
	}

	node := make(map[string]any, len(src)+5)
	for k, v := range src {
		node[k] = v
	}

	node["id"] = stringOr(node["id"], func() string { return randomNodeID() })
	id := node["id"].(string)
	node["name"] = stringOr(node["name"], func() string { return id })
	node["type"] = stringOr(node["type"], func() string { return DefaultNodeType })
	node["position"] = coercePosition(node["position"])

	if v, present := node["typeVersion"]; present {
		if tv, ok := coerceTypeVersion(v); ok {
			node["typeVersion"] = tv
		} else {
			delete(node, "typeVersion")
		}
	}

	if _, ok := node["parameters"].(map[string]any); !ok {
		node["parameters"] = map[string]any{}
	}

	if creds, ok := node["credentials"].(map[string]any); ok {
		node["credentials"] = coerceCredentials(creds)
	}

	return node
}

// stringOr keeps strings, stringifies other present values and calls
// fallback for missing or null ones.
func stringOr(v any, fallback func() string) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return fallback()
	default:
		return Stringify(t)
	}
}

// coerceTypeVersion accepts numbers and numeric strings. Anything else is
// dropped, since the field is only passed through to the export target.
func coerceTypeVersion(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coercePosition(v any) []any {
	switch p := v.(type) {
	case []any:
		if len(p) == 2 {
			x, okX := p[0].(float64)
			y, okY := p[1].(float64)
			if okX && okY {
				return []any{x, y}
			}
		}
	case map[string]any:
		x, okX := p["x"].(float64)
		y, okY := p["y"].(float64)
		if okX && okY {
			return []any{x, y}
		}
	}
	return []any{float64(0), float64(0)}
}

func coerceCredentials(creds map[string]any) map[string]any {
	out := make(map[string]any, len(creds))
	for k, v := range creds {
		switch t := v.(type) {
		case string:
			out[k] = t
		case map[string]any:
			if name, ok := t["name"].(string); ok {
				out[k] = name
				continue
			}
			out[k] = Stringify(t)
		default:
			out[k] = Stringify(t)
		}
	}
	return out
}

func coerceNotes(v any) []any {
	notes, ok := v.([]any)
	if !ok {
		return []any{}
	}
	out := make([]any, len(notes))
	for i, n := range notes {
		if s, ok := n.(string); ok {
			out[i] = s
			continue
		}
		out[i] = Stringify(n)
	}
	return out
}

// normalizeConnections brings every channel value into the port-of-edges
// shape. A channel whose array holds any nested array is treated as a list
// of ports: null entries become empty ports and stray edges become
// single-edge ports. A flat array of edges is wrapped as one port. Values
// that are not arrays are left for the validator to reject.
func normalizeConnections(conns map[string]any) map[string]any {
	out := make(map[string]any, len(conns))
	for source, outputs := range conns {
		channels, ok := outputs.(map[string]any)
		if !ok {
			out[source] = outputs
			continue
		}
		normalized := make(map[string]any, len(channels))
		for channel, ports := range channels {
			normalized[channel] = normalizePorts(ports)
		}
		out[source] = normalized
	}
	return out
}

func normalizePorts(v any) any {
	ports, ok := v.([]any)
	if !ok || len(ports) == 0 {
		return v
	}

	nested := false
	for _, p := range ports {
		if _, isArr := p.([]any); isArr || p == nil {
			nested = true
			break
		}
	}
	if !nested {
		return []any{ports}
	}

	out := make([]any, len(ports))
	for i, p := range ports {
		switch t := p.(type) {
		case []any:
			out[i] = t
		case nil:
			out[i] = []any{}
		default:
			out[i] = []any{t}
		}
	}
	return out
}

// Stringify renders a decoded JSON value as a string: whole numbers without
// a decimal point, everything structured as compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func randomNodeID() string {
	return "node_" + strconv.FormatUint(rand.Uint64(), 36)
}
