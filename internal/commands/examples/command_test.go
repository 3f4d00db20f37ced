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

package examples

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tombee/flowsmith/internal/commands/commandtest"
	"github.com/tombee/flowsmith/internal/commands/shared"
)

func TestExamples_List(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), "", "list")
	if res.Err != nil {
		t.Fatalf("list failed: %v", res.Err)
	}
	for _, name := range []string{"webhook-to-slack", "github-issue-triage", "schedule-http-report"} {
		if !strings.Contains(res.Stdout, name) {
			t.Errorf("list missing %q:\n%s", name, res.Stdout)
		}
	}

	res = commandtest.Run(t, NewCommand(), "", "list", "--json")
	list, _ := res.JSON(t)["examples"].([]any)
	if len(list) != 3 {
		t.Errorf("examples = %v", list)
	}
}

func TestExamples_ShowIsValidWorkflow(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), "", "show", "webhook-to-slack")
	if res.Err != nil {
		t.Fatalf("show failed: %v", res.Err)
	}
	if _, err := shared.ParseWorkflow([]byte(res.Stdout)); err != nil {
		t.Errorf("example is not a valid workflow: %v", err)
	}

	res = commandtest.Run(t, NewCommand(), "", "show", "nope")
	if shared.ExitCode(res.Err) != shared.ExitMissingInput {
		t.Errorf("exit code = %d, want %d", shared.ExitCode(res.Err), shared.ExitMissingInput)
	}
}

func TestExamples_Copy(t *testing.T) {
	env := commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), "", "copy", "webhook-to-slack", env.Dir)
	if res.Err != nil {
		t.Fatalf("copy failed: %v", res.Err)
	}
	dest := filepath.Join(env.Dir, "webhook-to-slack.json")
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("copied file missing: %v", err)
	}

	res = commandtest.Run(t, NewCommand(), "", "copy", "webhook-to-slack", dest)
	if shared.ExitCode(res.Err) != shared.ExitFailed {
		t.Errorf("overwrite without --force: exit code = %d", shared.ExitCode(res.Err))
	}

	res = commandtest.Run(t, NewCommand(), "", "copy", "webhook-to-slack", dest, "--force")
	if res.Err != nil {
		t.Errorf("copy --force failed: %v", res.Err)
	}
}
