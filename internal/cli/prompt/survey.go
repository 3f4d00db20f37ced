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
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/huh"
)

// TerminalPrompter prompts on the controlling terminal. Confirmation uses
// survey; the credential mapping is a huh form with one input per name.
type TerminalPrompter struct {
	interactive bool
}

// NewTerminalPrompter creates a terminal prompter.
func NewTerminalPrompter(interactive bool) *TerminalPrompter {
	return &TerminalPrompter{interactive: interactive}
}

// Confirm asks a yes/no question using survey.Confirm.
func (tp *TerminalPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if !tp.interactive {
		return false, ErrNonInteractive
	}

	var result bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &result)
	return result, err
}

// CredentialMapping shows one form with an input per placeholder name.
func (tp *TerminalPrompter) CredentialMapping(ctx context.Context, names []string, current map[string]string) (map[string]string, error) {
	if !tp.interactive {
		return nil, ErrNonInteractive
	}

	values := make([]string, len(names))
	fields := make([]huh.Field, 0, len(names)+1)
	fields = append(fields, huh.NewNote().
		Title("Credential mapping").
		Description("Enter the n8n credential id for each placeholder.\nLeave blank to keep the placeholder."))
	for i, name := range names {
		values[i] = current[name]
		fields = append(fields, huh.NewInput().
			Title(fmt.Sprintf("{{CRED:%s}}", name)).
			Value(&values[i]).
			Validate(ValidateCredentialID))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(names))
	for i, name := range names {
		if v := strings.TrimSpace(values[i]); v != "" {
			out[name] = v
		}
	}
	return out, nil
}

// IsInteractive reports whether prompts are shown.
func (tp *TerminalPrompter) IsInteractive() bool {
	return tp.interactive
}
