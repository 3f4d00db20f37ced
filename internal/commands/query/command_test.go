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

package query

import (
	"testing"

	"github.com/tombee/flowsmith/internal/commands/commandtest"
	"github.com/tombee/flowsmith/internal/commands/shared"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "json output", args: []string{".nodes[].type", "-"}, want: "\"n8n-nodes-base.webhook\"\n\"n8n-nodes-base.slack\"\n"},
		{name: "raw output", args: []string{"-r", ".name", "-"}, want: "Webhook to Slack\n"},
		{name: "placeholders variable", args: []string{"$placeholders", "-"}, want: "[\"slack_token\"]\n"},
		{name: "numbers", args: []string{".nodes | length", "-"}, want: "2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commandtest.Setup(t)
			res := commandtest.Run(t, NewCommand(), commandtest.Workflow, tt.args...)
			if res.Err != nil {
				t.Fatalf("query failed: %v", res.Err)
			}
			if res.Stdout != tt.want {
				t.Errorf("stdout = %q, want %q", res.Stdout, tt.want)
			}
		})
	}
}

func TestQuery_InvalidExpression(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), commandtest.Workflow, ".nodes[", "-")
	if shared.ExitCode(res.Err) != shared.ExitMissingInput {
		t.Errorf("exit code = %d, want %d", shared.ExitCode(res.Err), shared.ExitMissingInput)
	}
}

func TestQuery_JSON(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), commandtest.Workflow, ".active", "-", "--json")
	if res.Err != nil {
		t.Fatalf("query failed: %v", res.Err)
	}
	results, _ := res.JSON(t)["results"].([]any)
	if len(results) != 1 || results[0] != false {
		t.Errorf("results = %v", results)
	}
}
