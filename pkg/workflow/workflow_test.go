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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow() *Workflow {
	return &Workflow{
		Name: "Lead intake",
		Nodes: []Node{
			{ID: "1", Name: "Webhook", Type: "n8n-nodes-base.webhook", Parameters: map[string]any{"path": "leads"}},
			{
				ID:          "2",
				Name:        "Notify",
				Type:        "n8n-nodes-base.slack",
				Position:    [2]float64{200, 0},
				Parameters:  map[string]any{"text": "new lead", "nested": []any{"a", map[string]any{"b": "c"}}},
				Credentials: map[string]string{"slackApi": "{{CRED:slack_token}}"},
			},
		},
		Connections: Connections{
			"Webhook": {"main": [][]Edge{{{Node: "Notify", Type: "main", Index: 0}}}},
		},
		Preview:     "Posts leads to Slack",
		TestPayload: map[string]any{"email": "a@example.com"},
		Notes:       []string{"check channel"},
	}
}

func TestMapStrings_DeepCopy(t *testing.T) {
	wf := sampleWorkflow()
	upper := wf.MapStrings(strings.ToUpper)

	assert.Equal(t, "LEAD INTAKE", upper.Name)
	assert.Equal(t, "NOTIFY", upper.Nodes[1].Name)
	assert.Equal(t, "NEW LEAD", upper.Nodes[1].Parameters["text"])
	assert.Equal(t, "C", upper.Nodes[1].Parameters["nested"].([]any)[1].(map[string]any)["b"])
	assert.Equal(t, "{{CRED:SLACK_TOKEN}}", upper.Nodes[1].Credentials["slackApi"])
	assert.Equal(t, "NOTIFY", upper.Connections["Webhook"]["main"][0][0].Node)
	assert.Equal(t, "A@EXAMPLE.COM", upper.TestPayload["email"])
	assert.Equal(t, []string{"CHECK CHANNEL"}, upper.Notes)
	assert.Equal(t, [2]float64{200, 0}, upper.Nodes[1].Position)

	// Keys untouched.
	assert.Contains(t, upper.Connections, "Webhook")
	assert.Contains(t, upper.Nodes[1].Credentials, "slackApi")

	// Original untouched.
	assert.Equal(t, "Lead intake", wf.Name)
	assert.Equal(t, "new lead", wf.Nodes[1].Parameters["text"])
	assert.Equal(t, "c", wf.Nodes[1].Parameters["nested"].([]any)[1].(map[string]any)["b"])
}

func TestVisitStrings_Order(t *testing.T) {
	var seen []string
	sampleWorkflow().VisitStrings(func(s string) { seen = append(seen, s) })

	require.NotEmpty(t, seen)
	assert.Equal(t, "Lead intake", seen[0])
	assert.Equal(t, []string{"1", "Webhook", "n8n-nodes-base.webhook", "leads"}, seen[1:5])

	var again []string
	sampleWorkflow().VisitStrings(func(s string) { again = append(again, s) })
	assert.Equal(t, seen, again)
}

func TestExport_StripsAdvisoryFields(t *testing.T) {
	data, err := json.Marshal(sampleWorkflow().Export())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.ElementsMatch(t, []string{"name", "nodes", "connections", "active"}, keys(doc))
}

func TestParse_AppliesDefaults(t *testing.T) {
	wf, err := Parse([]byte(`{"name": "x", "nodes": [{"id": "a", "name": "A", "type": "t", "position": [1, 2]}]}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultPreview, wf.Preview)
	assert.NotNil(t, wf.TestPayload)
	assert.NotNil(t, wf.Notes)
	assert.NotNil(t, wf.Connections)
	assert.NotNil(t, wf.Nodes[0].Parameters)
	assert.Equal(t, [2]float64{1, 2}, wf.Nodes[0].Position)
}

func TestFromLenient(t *testing.T) {
	doc := map[string]any{
		"name": "loose",
		"nodes": []any{
			map[string]any{"id": "a", "name": "Start", "type": "manualTrigger", "position": []any{1.0, 2.0}, "parameters": map[string]any{}},
			"garbage",
			map[string]any{"id": "b", "name": "B", "type": "x", "credentials": map[string]any{"k": 1.0}},
		},
		"connections": map[string]any{
			"a":   map[string]any{"main": []any{[]any{map[string]any{"node": "b", "index": 1.5}, "junk"}}},
			"bad": "value",
		},
		"active":  "nope",
		"__notes": []any{"n1"},
	}

	wf := FromLenient(doc)
	require.Len(t, wf.Nodes, 2)
	assert.Equal(t, "loose", wf.Name)
	assert.Equal(t, map[string]string{"k": "1"}, wf.Nodes[1].Credentials)
	assert.False(t, wf.Active)
	assert.Equal(t, []Edge{{Node: "b", Type: "main", Index: 1}}, wf.Connections["a"]["main"][0])
	assert.NotContains(t, wf.Connections, "bad")
	assert.Equal(t, []string{"n1"}, wf.Notes)
	assert.Equal(t, DefaultPreview, wf.Preview)
}

func TestConnections_Edges(t *testing.T) {
	c := Connections{
		"A": {
			"main":  [][]Edge{{{Node: "B"}}, {{Node: "C"}, {Node: "D"}}},
			"error": [][]Edge{{{Node: "E"}}},
		},
	}

	var targets []string
	for _, e := range c.Edges("A") {
		targets = append(targets, e.Node)
	}
	assert.Equal(t, []string{"E", "B", "C", "D"}, targets)
	assert.Nil(t, c.Edges("missing"))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
