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

// Package lint reports structural problems in a workflow graph: missing
// triggers, unreachable nodes, dead ends, weak names and references to
// nodes that do not exist.
//
// Linting is pure and deterministic. Issues are ordered by check (trigger,
// unreachable, dead end, naming, dangling references, custom rules) and
// within a check by node declaration order.
package lint

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tombee/flowsmith/pkg/workflow"
)

// Severity is the weight of an issue. Each check hardcodes its own.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
	SeverityInfo  Severity = "info"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityError || s == SeverityWarn || s == SeverityInfo
}

// Built-in rule identifiers.
const (
	RuleTriggerRequired   = "trigger.required"
	RuleUnreachable       = "graph.unreachable"
	RuleNoOutgoing        = "graph.noOutgoing"
	RuleWeakName          = "naming.weak"
	RuleDanglingReference = "graph.danglingReference"
)

// Issue is a single finding.
type Issue struct {
	RuleID   string   `json:"ruleId"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeID   string   `json:"nodeId,omitempty"`
}

// triggerKeywords mark a node as a trigger when contained in its name or type.
var triggerKeywords = []string{"trigger", "webhook", "manualtrigger", "cron", "schedule"}

// IsTrigger reports whether a node with the given name and type starts a
// workflow.
func IsTrigger(name, nodeType string) bool {
	fold := cases.Fold()
	name = fold.String(name)
	nodeType = fold.String(nodeType)
	for _, k := range triggerKeywords {
		if strings.Contains(name, k) || strings.Contains(nodeType, k) {
			return true
		}
	}
	return false
}

// IsWeakName reports whether a node name is too short to be useful or
// merely repeats the node type.
func IsWeakName(name, nodeType string) bool {
	if len([]rune(strings.TrimSpace(name))) < 3 {
		return true
	}
	fold := cases.Fold()
	return fold.String(name) == fold.String(nodeType)
}

var defaultLinter = &Linter{}

// Lint checks wf with the built-in rules only.
func Lint(wf *workflow.Workflow) []Issue {
	return defaultLinter.Lint(wf)
}

// Linter runs the built-in checks plus any custom rules. It is immutable
// after construction and safe for concurrent use.
type Linter struct {
	rules []*compiledRule
}

// Option configures a Linter.
type Option func(*Linter) error

// New creates a linter. Custom rule expressions are compiled here so that
// syntax errors surface at startup rather than per workflow.
func New(opts ...Option) (*Linter, error) {
	l := &Linter{}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Lint checks wf and returns every issue found. It never returns nil.
func (l *Linter) Lint(wf *workflow.Workflow) []Issue {
	g := buildGraph(wf)
	issues := []Issue{}

	if len(g.triggers) == 0 {
		issues = append(issues, Issue{
			RuleID:   RuleTriggerRequired,
			Severity: SeverityError,
			Message:  "No trigger node found. Add a Webhook, Manual Trigger, Cron, or other trigger.",
		})
	}

	for _, n := range wf.Nodes {
		if !g.reachable[n.ID] {
			issues = append(issues, Issue{
				RuleID:   RuleUnreachable,
				Severity: SeverityWarn,
				Message:  fmt.Sprintf("Node %q is unreachable from triggers.", n.Name),
				NodeID:   n.ID,
			})
		}
	}

	for _, n := range wf.Nodes {
		if len(g.out[n.ID]) == 0 && !g.isTrigger[n.ID] {
			issues = append(issues, Issue{
				RuleID:   RuleNoOutgoing,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("Node %q has no outgoing connections.", n.Name),
				NodeID:   n.ID,
			})
		}
	}

	for _, n := range wf.Nodes {
		if IsWeakName(n.Name, n.Type) {
			issues = append(issues, Issue{
				RuleID:   RuleWeakName,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("Node %q has a weak name. Consider something more descriptive.", n.ID),
				NodeID:   n.ID,
			})
		}
	}

	issues = append(issues, g.dangling...)

	for _, r := range l.rules {
		issues = append(issues, r.apply(wf, g)...)
	}

	return issues
}

// Count tallies issues by severity.
func Count(issues []Issue) map[Severity]int {
	out := map[Severity]int{}
	for _, i := range issues {
		out[i.Severity]++
	}
	return out
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
