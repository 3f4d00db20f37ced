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

// Package commandtest runs CLI commands against an isolated environment.
package commandtest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/app"
	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/secrets"
)

// Workflow is a valid generated workflow with one credential placeholder
// and a test payload.
const Workflow = `{
  "name": "Webhook to Slack",
  "nodes": [
    {"id": "1", "name": "Webhook", "type": "n8n-nodes-base.webhook", "position": [0, 0], "parameters": {"path": "in"}},
    {"id": "2", "name": "Post to Slack", "type": "n8n-nodes-base.slack", "position": [200, 0],
     "parameters": {"token": "{{CRED:slack_token}}"}}
  ],
  "connections": {"Webhook": {"main": [[{"node": "Post to Slack", "type": "main", "index": 0}]]}},
  "active": false,
  "__preview": "Posts webhooks to Slack",
  "__testPayload": {"text": "hi"},
  "__notes": []
}`

// Env is an isolated CLI environment.
type Env struct {
	Dir       string
	StorePath string
}

// Setup points configuration, state and secrets at a temporary directory
// and clears variables that would leak the caller's setup into a test.
func Setup(t *testing.T) *Env {
	t.Helper()
	dir := t.TempDir()
	env := &Env{Dir: dir, StorePath: filepath.Join(dir, "state.db")}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("FLOWSMITH_STORE_PATH", env.StorePath)
	t.Setenv("FLOWSMITH_CATALOG_DIR", filepath.Join(dir, "catalog"))
	t.Setenv(shared.NonInteractiveEnv, "true")
	for _, k := range []string{"GROQ_API_KEY", "VITE_GROQ_API_KEY", "FLOWSMITH_LLM_BASE_URL", "N8N_API_URL", "N8N_API_KEY", "LOG_LEVEL", "LOG_FORMAT", "FLOWSMITH_ADDR", "FLOWSMITH_JWT_SECRET", "FLOWSMITH_SERVER_URL", "FLOWSMITH_TOKEN"} {
		t.Setenv(k, "")
	}

	restore := shared.SetAppOptionsForTest(app.WithSecretBackends(secrets.NewEnvBackend()))
	t.Cleanup(restore)
	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)
	return env
}

// Result is the captured output of one command run.
type Result struct {
	Stdout string
	Stderr string
	Err    error
}

// JSON decodes Stdout.
func (r Result) JSON(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(r.Stdout), &out); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, r.Stdout)
	}
	return out
}

// Run executes cmd under a root that carries the global flags.
func Run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) Result {
	t.Helper()
	shared.ResetFlagsForTest()

	root := &cobra.Command{Use: "flowsmith", SilenceUsage: true, SilenceErrors: true}
	verbose, quiet, jsonOut, config := shared.RegisterFlagPointers()
	root.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "")
	root.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "")
	root.PersistentFlags().BoolVar(jsonOut, "json", false, "")
	root.PersistentFlags().StringVar(config, "config", "", "")
	root.AddCommand(cmd)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{cmd.Name()}, args...))

	err := root.ExecuteContext(context.Background())
	return Result{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

// FakeGroq serves chat completions answering with content and points the
// environment at it. It returns the number of calls made so far.
func FakeGroq(t *testing.T, content string) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		resp := map[string]any{
			"id":      "chatcmpl-test",
			"model":   "openai/gpt-oss-20b",
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("GROQ_API_KEY", "gsk_test_key_123456")
	t.Setenv("FLOWSMITH_LLM_BASE_URL", srv.URL)
	return &calls
}
