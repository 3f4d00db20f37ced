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
	"fmt"
	"strings"
	"unicode"
)

// MaxCredentialIDLength bounds a credential id answer.
const MaxCredentialIDLength = 256

// ValidateCredentialID accepts blank answers and ids without whitespace or
// control characters.
func ValidateCredentialID(input string) error {
	input = strings.TrimSpace(input)
	if len(input) > MaxCredentialIDLength {
		return fmt.Errorf("credential id exceeds %d bytes", MaxCredentialIDLength)
	}
	for i, r := range input {
		if unicode.IsSpace(r) {
			return fmt.Errorf("credential id contains whitespace at position %d", i)
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("credential id contains a control character at position %d", i)
		}
	}
	return nil
}

// ParseMapping parses name=id pairs. Whitespace around names and ids is
// trimmed.
func ParseMapping(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, id, ok := strings.Cut(pair, "=")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if !ok || name == "" || id == "" {
			return nil, fmt.Errorf("invalid mapping %q: want name=credentialId", pair)
		}
		if err := ValidateCredentialID(id); err != nil {
			return nil, fmt.Errorf("invalid mapping %q: %w", pair, err)
		}
		out[name] = id
	}
	return out, nil
}
