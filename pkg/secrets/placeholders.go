package secrets

import (
	"regexp"

	"github.com/tombee/flowsmith/pkg/workflow"
)

var placeholderRe = regexp.MustCompile(`\{\{CRED:([^}]+)\}\}`)

// Placeholder formats the placeholder reference for a logical credential name.
func Placeholder(name string) string {
	return "{{CRED:" + name + "}}"
}

// ExtractPlaceholders returns the distinct credential names referenced by
// {{CRED:name}} placeholders, in first-seen order.
func ExtractPlaceholders(wf *workflow.Workflow) []string {
	seen := make(map[string]bool)
	names := []string{}
	wf.VisitStrings(func(s string) {
		for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	})
	return names
}

// ReplacePlaceholders returns a copy of wf where every placeholder whose name
// is in mapping is replaced by the mapped value. Unmapped placeholders stay
// visible so the consumer notices them.
func ReplacePlaceholders(wf *workflow.Workflow, mapping map[string]string) *workflow.Workflow {
	if len(mapping) == 0 {
		return wf.Clone()
	}
	return wf.MapStrings(func(s string) string {
		return ReplaceInString(s, mapping)
	})
}

// ReplaceInString substitutes mapped placeholders in a single string.
func ReplaceInString(s string, mapping map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		if value, ok := mapping[name]; ok {
			return value
		}
		return match
	})
}

// Unmapped returns the names in wf that mapping does not cover.
func Unmapped(wf *workflow.Workflow, mapping map[string]string) []string {
	var out []string
	for _, name := range ExtractPlaceholders(wf) {
		if _, ok := mapping[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
