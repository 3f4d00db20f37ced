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

package lint

import (
	"fmt"

	"github.com/tombee/flowsmith/pkg/workflow"
)

// graph is the resolved adjacency view of a workflow.
type graph struct {
	byID      map[string]*workflow.Node
	nameToID  map[string]string
	isTrigger map[string]bool
	triggers  []string

	// out holds distinct successors per node id in insertion order.
	out map[string][]string
	in  map[string]int

	reachable map[string]bool
	dangling  []Issue
}

func buildGraph(wf *workflow.Workflow) *graph {
	g := &graph{
		byID:      make(map[string]*workflow.Node, len(wf.Nodes)),
		nameToID:  make(map[string]string, len(wf.Nodes)),
		isTrigger: make(map[string]bool),
		out:       make(map[string][]string),
		in:        make(map[string]int),
		reachable: make(map[string]bool),
	}

	for i := range wf.Nodes {
		n := &wf.Nodes[i]
		if _, dup := g.byID[n.ID]; !dup {
			g.byID[n.ID] = n
		}
		// First declaration wins for duplicate names.
		if _, dup := g.nameToID[n.Name]; !dup {
			g.nameToID[n.Name] = n.ID
		}
		if IsTrigger(n.Name, n.Type) {
			if !g.isTrigger[n.ID] {
				g.triggers = append(g.triggers, n.ID)
			}
			g.isTrigger[n.ID] = true
		}
	}

	g.buildEdges(wf)
	g.walk(wf)
	return g
}

// resolve maps a reference to a node id: id first, then name, then the raw
// reference. known is false when nothing matched.
func (g *graph) resolve(ref string) (id string, known bool) {
	if _, ok := g.byID[ref]; ok {
		return ref, true
	}
	if id, ok := g.nameToID[ref]; ok {
		return id, true
	}
	return ref, false
}

func (g *graph) buildEdges(wf *workflow.Workflow) {
	seen := make(map[[2]string]bool)

	for _, sourceKey := range wf.Connections.Sources() {
		source, sourceKnown := g.resolve(sourceKey)
		if !sourceKnown {
			g.dangling = append(g.dangling, Issue{
				RuleID:   RuleDanglingReference,
				Severity: SeverityWarn,
				Message:  fmt.Sprintf("Connection source %q does not match any node.", sourceKey),
			})
		}

		reported := make(map[string]bool)
		for _, edge := range wf.Connections.Edges(sourceKey) {
			if edge.Node == "" {
				continue
			}
			target, targetKnown := g.resolve(edge.Node)
			if !targetKnown && !reported[edge.Node] {
				reported[edge.Node] = true
				issue := Issue{
					RuleID:   RuleDanglingReference,
					Severity: SeverityWarn,
					Message:  fmt.Sprintf("Connection from %q targets unknown node %q.", sourceKey, edge.Node),
				}
				if sourceKnown {
					issue.NodeID = source
				}
				g.dangling = append(g.dangling, issue)
			}

			key := [2]string{source, target}
			if seen[key] {
				continue
			}
			seen[key] = true
			g.out[source] = append(g.out[source], target)
			g.in[target]++
		}
	}
}

// walk marks every node reachable from the triggers, or from the first
// declared node when there are none.
func (g *graph) walk(wf *workflow.Workflow) {
	queue := append([]string(nil), g.triggers...)
	if len(queue) == 0 && len(wf.Nodes) > 0 {
		queue = []string{wf.Nodes[0].ID}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if g.reachable[cur] {
			continue
		}
		g.reachable[cur] = true
		queue = append(queue, g.out[cur]...)
	}
}
