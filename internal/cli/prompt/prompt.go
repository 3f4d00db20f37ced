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

// Package prompt collects interactive answers for CLI commands. Every
// prompter refuses to prompt when the session is non-interactive so that
// CI runs fail fast instead of hanging.
package prompt

import (
	"context"
	"errors"
)

// ErrNonInteractive is returned by prompts in non-interactive mode.
var ErrNonInteractive = errors.New("cannot prompt in non-interactive mode")

// Prompter asks the user questions.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, message string, def bool) (bool, error)

	// CredentialMapping asks for an n8n credential id for each placeholder
	// name. Names present in current are prefilled. Names left blank are
	// omitted from the result.
	CredentialMapping(ctx context.Context, names []string, current map[string]string) (map[string]string, error)

	// IsInteractive reports whether prompts can be displayed.
	IsInteractive() bool
}

// MapMissing prompts for the names not yet in mapping and returns the
// merged mapping. It returns mapping unchanged when nothing is missing or
// p is not interactive.
func MapMissing(ctx context.Context, p Prompter, names []string, mapping map[string]string) (map[string]string, error) {
	var missing []string
	for _, name := range names {
		if _, ok := mapping[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 || !p.IsInteractive() {
		return mapping, nil
	}

	answers, err := p.CredentialMapping(ctx, missing, mapping)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(mapping)+len(answers))
	for k, v := range mapping {
		merged[k] = v
	}
	for k, v := range answers {
		merged[k] = v
	}
	return merged, nil
}
