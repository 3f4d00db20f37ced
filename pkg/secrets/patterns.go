package secrets

import (
	"regexp"
	"strings"

	"github.com/tombee/flowsmith/pkg/workflow"
)

// Pattern rewrites one recognizable token shape.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// Apply rewrites every match in s. The replacement is literal.
func (p Pattern) Apply(s string) string {
	return p.Regex.ReplaceAllLiteralString(s, p.Replacement)
}

// RedactionPatterns are applied to anything leaving the process for a
// human: log attributes, error diagnostics, previews of raw output.
func RedactionPatterns() []Pattern {
	return []Pattern{
		{Name: "openai_key", Regex: regexp.MustCompile(`sk-[A-Za-z0-9]{8,}`), Replacement: "sk-***"},
		{Name: "slack_bot_token", Regex: regexp.MustCompile(`xoxb-[A-Za-z0-9-]+`), Replacement: "xoxb-***"},
		{Name: "github_pat", Regex: regexp.MustCompile(`ghp_[A-Za-z0-9]{8,}`), Replacement: "ghp_***"},
		{Name: "bearer_token", Regex: regexp.MustCompile(`Bearer\s+[A-Za-z0-9.\-_]+`), Replacement: "Bearer ***"},
	}
}

// SanitizePatterns turn full-length tokens found in generated workflows into
// credential placeholders the user maps at export time.
func SanitizePatterns() []Pattern {
	return []Pattern{
		{Name: "openai_api_key", Regex: regexp.MustCompile(`sk-[A-Za-z0-9]{48}`), Replacement: Placeholder("openai_api_key")},
		{Name: "slack_token", Regex: regexp.MustCompile(`xoxb-[A-Za-z0-9-]+`), Replacement: Placeholder("slack_token")},
		{Name: "github_token", Regex: regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`), Replacement: Placeholder("github_token")},
	}
}

var (
	redactionPatterns = RedactionPatterns()
	sanitizePatterns  = SanitizePatterns()
)

// Redact masks secret-like substrings for display. Strings without a match
// are returned unchanged.
func Redact(s string) string {
	return applyAll(redactionPatterns, s)
}

// RedactPreview redacts s and then truncates the result to at most n runes,
// so a token cut at the boundary never escapes redaction.
func RedactPreview(s string, n int) string {
	s = Redact(s)
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// RedactValue redacts every string leaf of a decoded JSON value.
func RedactValue(v any) any {
	return workflow.MapValue(v, Redact)
}

// Sanitize replaces full-length secret tokens with placeholders.
func Sanitize(s string) string {
	return applyAll(sanitizePatterns, s)
}

// SanitizeValue sanitizes every string leaf of a decoded JSON value.
func SanitizeValue(v any) any {
	return workflow.MapValue(v, Sanitize)
}

// SanitizeWorkflow returns a copy of wf with every string value sanitized.
func SanitizeWorkflow(wf *workflow.Workflow) *workflow.Workflow {
	return wf.MapStrings(Sanitize)
}

func applyAll(patterns []Pattern, s string) string {
	// Cheap reject: every pattern starts with one of these prefixes.
	if !strings.Contains(s, "sk-") && !strings.Contains(s, "xoxb-") &&
		!strings.Contains(s, "ghp_") && !strings.Contains(s, "Bearer") {
		return s
	}
	for _, p := range patterns {
		s = p.Apply(s)
	}
	return s
}
