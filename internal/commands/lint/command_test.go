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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tombee/flowsmith/internal/commands/commandtest"
	"github.com/tombee/flowsmith/internal/commands/shared"
)

const noTrigger = `{
  "name": "Orphan",
  "nodes": [{"id": "1", "name": "Set Fields", "type": "n8n-nodes-base.set", "position": [0, 0], "parameters": {}}],
  "connections": {},
  "active": false
}`

func TestLint_CleanWorkflow(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), commandtest.Workflow, "-")
	if res.Err != nil {
		t.Fatalf("lint failed: %v", res.Err)
	}
	if !strings.Contains(res.Stdout, "graph.noOutgoing") {
		t.Errorf("expected the dead-end info issue, got %q", res.Stdout)
	}
	if !strings.Contains(res.Stdout, "0 error(s)") {
		t.Errorf("expected counts line, got %q", res.Stdout)
	}
}

func TestLint_FailOnThreshold(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), commandtest.Workflow, "-", "--fail-on", "info")
	if shared.ExitCode(res.Err) != shared.ExitInvalidWorkflow {
		t.Errorf("exit code = %d, want %d", shared.ExitCode(res.Err), shared.ExitInvalidWorkflow)
	}

	res = commandtest.Run(t, NewCommand(), commandtest.Workflow, "-", "--fail-on", "fatal")
	if shared.ExitCode(res.Err) != shared.ExitMissingInput {
		t.Errorf("invalid threshold exit code = %d, want %d", shared.ExitCode(res.Err), shared.ExitMissingInput)
	}
}

func TestLint_MissingTrigger(t *testing.T) {
	env := commandtest.Setup(t)
	path := filepath.Join(env.Dir, "orphan.json")
	if err := os.WriteFile(path, []byte(noTrigger), 0o600); err != nil {
		t.Fatal(err)
	}

	res := commandtest.Run(t, NewCommand(), "", path, "--json")
	if shared.ExitCode(res.Err) != shared.ExitInvalidWorkflow {
		t.Fatalf("exit code = %d, want %d", shared.ExitCode(res.Err), shared.ExitInvalidWorkflow)
	}
	out := res.JSON(t)
	if out["success"] != false {
		t.Errorf("success = %v", out["success"])
	}
	issues, _ := out["issues"].([]any)
	if len(issues) == 0 || issues[0].(map[string]any)["ruleId"] != "trigger.required" {
		t.Errorf("issues = %v", out["issues"])
	}
}

func TestLint_JSONPlaceholders(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), commandtest.Workflow, "-", "--json")
	if res.Err != nil {
		t.Fatalf("lint failed: %v", res.Err)
	}
	placeholders, _ := res.JSON(t)["placeholders"].([]any)
	if len(placeholders) != 1 || placeholders[0] != "slack_token" {
		t.Errorf("placeholders = %v", placeholders)
	}
}

func TestLint_NoWorkflow(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), "")
	if shared.ExitCode(res.Err) != shared.ExitMissingInput {
		t.Errorf("exit code = %d, want %d", shared.ExitCode(res.Err), shared.ExitMissingInput)
	}
}
