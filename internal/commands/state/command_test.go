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

package state

import (
	"context"
	"strings"
	"testing"

	"github.com/tombee/flowsmith/internal/commands/commandtest"
	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/store"
)

func seed(t *testing.T, path string) {
	t.Helper()
	s, err := store.NewSQLiteStore(store.SQLiteConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.AddRecentPrompt(ctx, "post webhooks to slack"); err != nil {
		t.Fatal(err)
	}
	wf, err := shared.ParseWorkflow([]byte(commandtest.Workflow))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveLastWorkflow(ctx, wf); err != nil {
		t.Fatal(err)
	}
}

func TestState_ShowEmpty(t *testing.T) {
	commandtest.Setup(t)

	res := commandtest.Run(t, NewCommand(), "")
	if res.Err != nil {
		t.Fatalf("state failed: %v", res.Err)
	}
	for _, want := range []string{"openai/gpt-oss-20b", "Last workflow", "none"} {
		if !strings.Contains(res.Stdout, want) {
			t.Errorf("output missing %q:\n%s", want, res.Stdout)
		}
	}
}

func TestState_ShowAndClear(t *testing.T) {
	env := commandtest.Setup(t)
	seed(t, env.StorePath)

	res := commandtest.Run(t, NewCommand(), "", "show", "--json")
	if res.Err != nil {
		t.Fatalf("state show failed: %v", res.Err)
	}
	out := res.JSON(t)
	recent, _ := out["recentPrompts"].([]any)
	if len(recent) != 1 || recent[0] != "post webhooks to slack" {
		t.Errorf("recentPrompts = %v", out["recentPrompts"])
	}
	wf, _ := out["lastWorkflow"].(map[string]any)
	if wf["name"] != "Webhook to Slack" {
		t.Errorf("lastWorkflow = %v", out["lastWorkflow"])
	}

	res = commandtest.Run(t, NewCommand(), "", "clear", "--workflow")
	if res.Err != nil {
		t.Fatalf("state clear failed: %v", res.Err)
	}
	res = commandtest.Run(t, NewCommand(), "", "--json")
	out = res.JSON(t)
	if out["lastWorkflow"] != nil {
		t.Errorf("lastWorkflow should be cleared: %v", out["lastWorkflow"])
	}
	if recent, _ := out["recentPrompts"].([]any); len(recent) != 1 {
		t.Errorf("recent prompts should survive --workflow: %v", out["recentPrompts"])
	}

	commandtest.Run(t, NewCommand(), "", "clear")
	out = commandtest.Run(t, NewCommand(), "", "--json").JSON(t)
	if recent, _ := out["recentPrompts"].([]any); len(recent) != 0 {
		t.Errorf("recentPrompts = %v", out["recentPrompts"])
	}
}

func TestState_Set(t *testing.T) {
	env := commandtest.Setup(t)

	tests := []struct {
		args     []string
		wantCode int
	}{
		{args: []string{"set", "model", "llama-3.3-70b-versatile"}},
		{args: []string{"set", "maxnodes", "12"}},
		{args: []string{"set", "forceJson", "false"}},
		{args: []string{"set", "temperature", "3"}, wantCode: shared.ExitMissingInput},
		{args: []string{"set", "maxTokens", "-1"}, wantCode: shared.ExitMissingInput},
		{args: []string{"set", "color", "blue"}, wantCode: shared.ExitMissingInput},
	}
	for _, tt := range tests {
		res := commandtest.Run(t, NewCommand(), "", tt.args...)
		if got := shared.ExitCode(res.Err); got != tt.wantCode {
			t.Errorf("%v: exit code = %d, want %d", tt.args, got, tt.wantCode)
		}
	}

	s, err := store.NewSQLiteStore(store.SQLiteConfig{Path: env.StorePath})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	settings, err := s.Settings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := store.DefaultSettings()
	want.Model = "llama-3.3-70b-versatile"
	want.MaxNodes = 12
	want.ForceJSON = false
	if settings != want {
		t.Errorf("settings = %+v, want %+v", settings, want)
	}
}
