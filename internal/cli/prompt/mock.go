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

package prompt

import (
	"context"
	"fmt"
)

// MockPrompter answers from scripted values for tests.
type MockPrompter struct {
	interactive bool

	// ConfirmAnswer is returned by Confirm.
	ConfirmAnswer bool

	// Mapping answers CredentialMapping. Names it does not cover are left
	// unmapped.
	Mapping map[string]string

	// Err, when set, is returned by every prompt.
	Err error

	calls []string
}

// NewMockPrompter creates a mock prompter.
func NewMockPrompter(interactive bool) *MockPrompter {
	return &MockPrompter{interactive: interactive}
}

// Confirm records the call and returns ConfirmAnswer.
func (mp *MockPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	mp.calls = append(mp.calls, fmt.Sprintf("Confirm(%s)", message))
	if !mp.interactive {
		return false, ErrNonInteractive
	}
	return mp.ConfirmAnswer, mp.Err
}

// CredentialMapping records the call and answers from Mapping.
func (mp *MockPrompter) CredentialMapping(ctx context.Context, names []string, current map[string]string) (map[string]string, error) {
	mp.calls = append(mp.calls, fmt.Sprintf("CredentialMapping(%v)", names))
	if !mp.interactive {
		return nil, ErrNonInteractive
	}
	if mp.Err != nil {
		return nil, mp.Err
	}
	out := map[string]string{}
	for _, name := range names {
		if id, ok := mp.Mapping[name]; ok {
			out[name] = id
		}
	}
	return out, nil
}

// IsInteractive returns the configured mode.
func (mp *MockPrompter) IsInteractive() bool {
	return mp.interactive
}

// Calls returns the prompts shown so far.
func (mp *MockPrompter) Calls() []string {
	return mp.calls
}
