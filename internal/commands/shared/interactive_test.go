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

package shared

import "testing"

func TestIsNonInteractive(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{"explicit", map[string]string{NonInteractiveEnv: "true"}},
		{"CI=true", map[string]string{"CI": "true"}},
		{"CI=1", map[string]string{"CI": "1"}},
		{"GITHUB_ACTIONS", map[string]string{"GITHUB_ACTIONS": "true"}},
		{"JENKINS_HOME", map[string]string{"JENKINS_HOME": "/var/jenkins"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{NonInteractiveEnv, "CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "JENKINS_HOME"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			if !IsNonInteractive() {
				t.Error("IsNonInteractive() = false, want true")
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := map[string]string{
		"12s":    FormatElapsed(12_400_000_000),
		"2m":     FormatElapsed(120_000_000_000),
		"1m 23s": FormatElapsed(83_000_000_000),
	}
	for want, got := range tests {
		if got != want {
			t.Errorf("FormatElapsed() = %q, want %q", got, want)
		}
	}
}
