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

package simulate

import (
	"strings"
	"testing"

	"github.com/tombee/flowsmith/internal/app"
	"github.com/tombee/flowsmith/internal/commands/commandtest"
	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/secrets"
	"github.com/tombee/flowsmith/internal/simulate"
)

func setup(t *testing.T) {
	t.Helper()
	commandtest.Setup(t)
	sim := simulate.New(
		simulate.WithDelay(0),
		simulate.WithRand(func(int) int { return 0 }),
		simulate.WithIDGenerator(func() string { return "fixed" }),
	)
	restore := shared.SetAppOptionsForTest(
		app.WithSecretBackends(secrets.NewEnvBackend()),
		app.WithSimulator(sim),
	)
	t.Cleanup(restore)
}

func TestSimulate(t *testing.T) {
	setup(t)

	res := commandtest.Run(t, NewCommand(), commandtest.Workflow, "-")
	if res.Err != nil {
		t.Fatalf("simulate failed: %v", res.Err)
	}
	for _, want := range []string{simulate.CompletedMessage, "test-fixed", "nodes executed: 2"} {
		if !strings.Contains(res.Stdout, want) {
			t.Errorf("output missing %q:\n%s", want, res.Stdout)
		}
	}
}

func TestSimulate_JSONWithPayloadOverride(t *testing.T) {
	setup(t)

	res := commandtest.Run(t, NewCommand(), commandtest.Workflow, "-", "--payload", `{"user": "ada"}`, "--json")
	if res.Err != nil {
		t.Fatalf("simulate failed: %v", res.Err)
	}
	results, _ := res.JSON(t)["testResults"].(map[string]any)
	payload, _ := results["testPayload"].(map[string]any)
	if payload["user"] != "ada" {
		t.Errorf("testPayload = %v", results["testPayload"])
	}
	if results["executionId"] != "test-fixed" {
		t.Errorf("executionId = %v", results["executionId"])
	}
}

func TestSimulate_NoPayload(t *testing.T) {
	setup(t)
	wf := strings.Replace(commandtest.Workflow, `"__testPayload": {"text": "hi"},`, "", 1)

	res := commandtest.Run(t, NewCommand(), wf, "-")
	if shared.ExitCode(res.Err) != shared.ExitMissingInput {
		t.Errorf("exit code = %d, want %d", shared.ExitCode(res.Err), shared.ExitMissingInput)
	}
}

func TestSimulate_BadPayloadFlag(t *testing.T) {
	setup(t)

	res := commandtest.Run(t, NewCommand(), commandtest.Workflow, "-", "--payload", "[1]")
	if shared.ExitCode(res.Err) != shared.ExitMissingInput {
		t.Errorf("exit code = %d, want %d", shared.ExitCode(res.Err), shared.ExitMissingInput)
	}
}
