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
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/workflow"
)

// Rule is a user-defined per-node check. When is an expr-lang boolean
// expression evaluated against NodeEnv; the rule fires for every node where
// it is true.
//
// Example:
//
//	Rule{
//	    ID:       "http.noTimeout",
//	    Severity: SeverityWarn,
//	    Message:  "HTTP request without timeout",
//	    When:     `nodeType endsWith "httpRequest" && !("timeout" in parameters)`,
//	}
type Rule struct {
	ID       string   `yaml:"id" json:"id"`
	Severity Severity `yaml:"severity" json:"severity"`
	Message  string   `yaml:"message" json:"message"`
	When     string   `yaml:"when" json:"when"`
}

// NodeEnv is the evaluation environment of a custom rule.
type NodeEnv struct {
	ID          string            `expr:"id"`
	Name        string            `expr:"name"`
	Type        string            `expr:"nodeType"`
	Parameters  map[string]any    `expr:"parameters"`
	Credentials map[string]string `expr:"credentials"`
	Trigger     bool              `expr:"trigger"`
	Outgoing    int               `expr:"outgoing"`
	Incoming    int               `expr:"incoming"`
	Reachable   bool              `expr:"reachable"`
}

type compiledRule struct {
	Rule
	program *vm.Program
}

// WithRules adds custom rules. Each expression is compiled once.
func WithRules(rules ...Rule) Option {
	return func(l *Linter) error {
		for _, r := range rules {
			compiled, err := compileRule(r)
			if err != nil {
				return err
			}
			l.rules = append(l.rules, compiled)
		}
		return nil
	}
}

func compileRule(r Rule) (*compiledRule, error) {
	if strings.TrimSpace(r.ID) == "" {
		return nil, &errors.ValidationError{Field: "lint.rules.id", Message: "rule id is required"}
	}
	if r.Severity == "" {
		r.Severity = SeverityWarn
	}
	if !r.Severity.Valid() {
		return nil, &errors.ValidationError{
			Field:      fmt.Sprintf("lint.rules[%s].severity", r.ID),
			Message:    fmt.Sprintf("unknown severity %q", r.Severity),
			Suggestion: "use one of error, warn, info",
		}
	}

	program, err := expr.Compile(r.When, expr.Env(NodeEnv{}), expr.AsBool())
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      fmt.Sprintf("lint.rules[%s].when", r.ID),
			Message:    fmt.Sprintf("failed to compile expression: %s", err.Error()),
			Suggestion: "check expression syntax and ensure only node fields are referenced",
		}
	}
	if r.Message == "" {
		r.Message = fmt.Sprintf("Rule %s matched.", r.ID)
	}
	return &compiledRule{Rule: r, program: program}, nil
}

// apply evaluates the rule against every node in declaration order. A
// runtime evaluation error counts as no match.
func (r *compiledRule) apply(wf *workflow.Workflow, g *graph) []Issue {
	var issues []Issue
	for _, n := range wf.Nodes {
		env := NodeEnv{
			ID:          n.ID,
			Name:        n.Name,
			Type:        n.Type,
			Parameters:  n.Parameters,
			Credentials: n.Credentials,
			Trigger:     g.isTrigger[n.ID],
			Outgoing:    len(g.out[n.ID]),
			Incoming:    g.in[n.ID],
			Reachable:   g.reachable[n.ID],
		}
		if env.Parameters == nil {
			env.Parameters = map[string]any{}
		}
		if env.Credentials == nil {
			env.Credentials = map[string]string{}
		}

		out, err := expr.Run(r.program, env)
		if err != nil {
			continue
		}
		if matched, _ := out.(bool); matched {
			issues = append(issues, Issue{
				RuleID:   r.ID,
				Severity: r.Severity,
				Message:  r.Message,
				NodeID:   n.ID,
			})
		}
	}
	return issues
}
