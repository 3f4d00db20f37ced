package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/flowsmith/pkg/workflow"
)

func placeholderWorkflow() *workflow.Workflow {
	wf := &workflow.Workflow{
		Name: "Digest",
		Nodes: []workflow.Node{
			{ID: "1", Name: "Cron", Type: "n8n-nodes-base.cron", Parameters: map[string]any{}},
			{
				ID:          "2",
				Name:        "Fetch",
				Type:        "n8n-nodes-base.httpRequest",
				Parameters:  map[string]any{"headers": map[string]any{"Authorization": "Bearer {{CRED:foo}}"}},
				Credentials: map[string]string{"httpHeaderAuth": "{{CRED:foo}}"},
			},
			{
				ID:          "3",
				Name:        "Post",
				Type:        "n8n-nodes-base.slack",
				Parameters:  map[string]any{"text": "{{CRED:bar}} and {{CRED:foo}}"},
				Credentials: map[string]string{"slackApi": "{{CRED:bar}}"},
			},
		},
		Connections: workflow.Connections{},
	}
	wf.ApplyDefaults()
	return wf
}

func TestExtractPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, ExtractPlaceholders(placeholderWorkflow()))

	empty := &workflow.Workflow{Name: "none"}
	assert.Empty(t, ExtractPlaceholders(empty))
}

func TestReplacePlaceholders(t *testing.T) {
	wf := placeholderWorkflow()
	out := ReplacePlaceholders(wf, map[string]string{"foo": "real_cred"})

	var all []string
	out.VisitStrings(func(s string) { all = append(all, s) })
	joined := strings.Join(all, "\n")

	assert.NotContains(t, joined, "{{CRED:foo}}")
	assert.Contains(t, joined, "real_cred")
	assert.Contains(t, joined, "{{CRED:bar}}")
	assert.Equal(t, "Bearer real_cred", out.Nodes[1].Parameters["headers"].(map[string]any)["Authorization"])
	assert.Equal(t, "{{CRED:bar}} and real_cred", out.Nodes[2].Parameters["text"])

	// The input is a value; it must not change.
	assert.Equal(t, "{{CRED:foo}}", wf.Nodes[1].Credentials["httpHeaderAuth"])
	assert.Equal(t, []string{"foo", "bar"}, ExtractPlaceholders(wf))
}

func TestReplacePlaceholders_LiteralValues(t *testing.T) {
	wf := placeholderWorkflow()
	out := ReplacePlaceholders(wf, map[string]string{"bar": "$1 {{odd}}"})
	assert.Equal(t, "$1 {{odd}}", out.Nodes[2].Credentials["slackApi"])
}

func TestReplacePlaceholders_EmptyMapping(t *testing.T) {
	wf := placeholderWorkflow()
	out := ReplacePlaceholders(wf, nil)
	require.NotSame(t, wf, out)
	assert.Equal(t, wf, out)
}

func TestUnmapped(t *testing.T) {
	assert.Equal(t, []string{"bar"}, Unmapped(placeholderWorkflow(), map[string]string{"foo": "x"}))
	assert.Nil(t, Unmapped(placeholderWorkflow(), map[string]string{"foo": "x", "bar": "y"}))
}

func TestSanitizeWorkflow(t *testing.T) {
	wf := placeholderWorkflow()
	wf.Nodes[0].Parameters["token"] = "xoxb-999-abc"

	out := SanitizeWorkflow(wf)
	assert.Equal(t, "{{CRED:slack_token}}", out.Nodes[0].Parameters["token"])
	assert.Equal(t, "xoxb-999-abc", wf.Nodes[0].Parameters["token"])
	assert.Contains(t, ExtractPlaceholders(out), "slack_token")
}
