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

package catalog

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tombee/flowsmith/internal/commands/commandtest"
)

func TestCatalog_Missing(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), "")
	if res.Err != nil {
		t.Fatalf("catalog failed: %v", res.Err)
	}
	if !strings.Contains(res.Stdout, "0 workflow(s)") {
		t.Errorf("unexpected output %q", res.Stdout)
	}
}

func TestCatalog_Directory(t *testing.T) {
	env := commandtest.Setup(t)
	dir := filepath.Join(env.Dir, "catalog")
	if err := os.MkdirAll(filepath.Join(dir, "team"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "slack.json"), []byte(commandtest.Workflow), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "team", "cron.json"), []byte(`{"name": "Nightly", "nodes": [{"name": "Cron Trigger", "type": "n8n-nodes-base.scheduleTrigger"}, {"name": "Post", "type": "n8n-nodes-base.slack"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	res := commandtest.Run(t, NewCommand(), "", "--snippets", "5")
	if res.Err != nil {
		t.Fatalf("catalog failed: %v", res.Err)
	}
	for _, want := range []string{"2 workflow(s)", "n8n-nodes-base.slack", "Nightly (2 nodes)"} {
		if !strings.Contains(res.Stdout, want) {
			t.Errorf("output missing %q:\n%s", want, res.Stdout)
		}
	}

	res = commandtest.Run(t, NewCommand(), "", "--json")
	if res.Err != nil {
		t.Fatalf("catalog --json failed: %v", res.Err)
	}
	out := res.JSON(t)
	if out["totalWorkflows"] != 2.0 {
		t.Errorf("totalWorkflows = %v", out["totalWorkflows"])
	}
	counts, _ := out["nodeTypeCounts"].(map[string]any)
	if counts["n8n-nodes-base.slack"] != 2.0 {
		t.Errorf("nodeTypeCounts = %v", counts)
	}
}

func TestTopTypes(t *testing.T) {
	counts := map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}

	if got := topTypes(counts, 3); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Errorf("topTypes() = %v", got)
	}
	if got := topTypes(counts, 0); len(got) != 4 {
		t.Errorf("topTypes(0) = %v", got)
	}
}

func TestCatalog_DirectoryArgument(t *testing.T) {
	env := commandtest.Setup(t)
	dir := filepath.Join(env.Dir, "other")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte(commandtest.Workflow), 0o600); err != nil {
		t.Fatal(err)
	}

	res := commandtest.Run(t, NewCommand(), "", dir, "--json")
	if res.Err != nil {
		t.Fatalf("catalog failed: %v", res.Err)
	}
	out := res.JSON(t)
	if out["totalWorkflows"] != 1.0 || out["dir"] != dir {
		t.Errorf("totalWorkflows = %v, dir = %v", out["totalWorkflows"], out["dir"])
	}

	res = commandtest.Run(t, NewCommand(), "", filepath.Join(env.Dir, "missing"))
	if res.Err == nil {
		t.Error("expected an error for a missing directory")
	}
}
