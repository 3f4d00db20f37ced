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

package generate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tombee/flowsmith/internal/commands/commandtest"
	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/store"
)

func TestGenerate_WritesWorkflowAndRemembersIt(t *testing.T) {
	env := commandtest.Setup(t)
	calls := commandtest.FakeGroq(t, "Sure!\n```json\n"+commandtest.Workflow+"\n```")

	out := filepath.Join(env.Dir, "wf.json")
	res := commandtest.Run(t, NewCommand(), "", "post", "webhooks", "to", "slack", "-o", out)
	if res.Err != nil {
		t.Fatalf("generate failed: %v\n%s", res.Err, res.Stderr)
	}
	if calls.Load() != 1 {
		t.Errorf("completion calls = %d, want 1", calls.Load())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if _, err := shared.ParseWorkflow(data); err != nil {
		t.Errorf("written workflow does not validate: %v", err)
	}
	if !strings.Contains(res.Stderr, `Generated "Webhook to Slack"`) {
		t.Errorf("missing summary in stderr:\n%s", res.Stderr)
	}
	if !strings.Contains(res.Stderr, "slack_token") {
		t.Errorf("missing placeholder list in stderr:\n%s", res.Stderr)
	}

	s, err := store.NewSQLiteStore(store.SQLiteConfig{Path: env.StorePath})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	last, err := s.LastWorkflow(t.Context())
	if err != nil || last == nil || last.Name != "Webhook to Slack" {
		t.Errorf("last workflow = %v, %v", last, err)
	}
	recent, _ := s.RecentPrompts(t.Context())
	if len(recent) != 1 || recent[0] != "post webhooks to slack" {
		t.Errorf("recent prompts = %v", recent)
	}
}

func TestGenerate_JSONOutput(t *testing.T) {
	commandtest.Setup(t)
	commandtest.FakeGroq(t, commandtest.Workflow)

	res := commandtest.Run(t, NewCommand(), "describe a webhook", "--json", "-f", "-", "--no-save")
	if res.Err != nil {
		t.Fatalf("generate failed: %v\n%s", res.Err, res.Stderr)
	}
	out := res.JSON(t)
	if out["command"] != "generate" || out["success"] != true {
		t.Errorf("unexpected envelope %v", out)
	}
	if out["stage"] != "strict" {
		t.Errorf("stage = %v", out["stage"])
	}
	wf := out["workflow"].(map[string]any)
	if wf["name"] != "Webhook to Slack" {
		t.Errorf("workflow name = %v", wf["name"])
	}
}

func TestGenerate_MissingPrompt(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), "")
	if shared.ExitCode(res.Err) != shared.ExitMissingInput {
		t.Errorf("exit code = %d, want %d (%v)", shared.ExitCode(res.Err), shared.ExitMissingInput, res.Err)
	}
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), "", "anything")
	if shared.ExitCode(res.Err) != shared.ExitMissingInput {
		t.Fatalf("exit code = %d, want %d (%v)", shared.ExitCode(res.Err), shared.ExitMissingInput, res.Err)
	}
	if !strings.Contains(res.Err.Error(), "GROQ_API_KEY") {
		t.Errorf("error should name the key variable: %v", res.Err)
	}
}

func TestGenerate_UnusableResponse(t *testing.T) {
	commandtest.Setup(t)
	commandtest.FakeGroq(t, "I am unable to produce a workflow.")

	res := commandtest.Run(t, NewCommand(), "", "anything")
	if shared.ExitCode(res.Err) != shared.ExitInvalidWorkflow {
		t.Errorf("exit code = %d, want %d (%v)", shared.ExitCode(res.Err), shared.ExitInvalidWorkflow, res.Err)
	}
}

func TestBuildRequest_PrefersChangedFlags(t *testing.T) {
	cmd := NewCommand()
	if err := cmd.ParseFlags([]string{"--model", "m2", "--temperature", "0.9"}); err != nil {
		t.Fatal(err)
	}
	opts := &options{model: "m2", temperature: 0.9, maxNodes: 20}
	settings := store.DefaultSettings()
	settings.MaxNodes = 7
	settings.TriggerType = "schedule"

	req := buildRequest(cmd, "p", opts, settings)
	if req.Model != "m2" {
		t.Errorf("model = %q", req.Model)
	}
	if *req.Temperature != 0.9 {
		t.Errorf("temperature = %v", *req.Temperature)
	}
	if req.MaxNodes != 7 || req.TriggerType != "schedule" {
		t.Errorf("settings not applied: %+v", req)
	}
	if *req.MaxTokens != settings.MaxTokens {
		t.Errorf("max tokens = %d", *req.MaxTokens)
	}
}
