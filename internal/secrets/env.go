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

package secrets

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
)

// envSecretPrefix namespaces flowsmith-specific secret variables.
const envSecretPrefix = "FLOWSMITH_SECRET_"

// EnvBackend provides read-only access to secrets via environment variables.
// A key is looked up as-is first (env:GROQ_API_KEY), then in its normalized
// FLOWSMITH_SECRET_ form (env:n8n/api_key -> FLOWSMITH_SECRET_N8N_API_KEY).
type EnvBackend struct {
	lookup func(string) (string, bool)
}

// NewEnvBackend creates a new environment variable backend.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{lookup: os.LookupEnv}
}

// Name returns the backend identifier.
func (e *EnvBackend) Name() string {
	return "env"
}

// Get retrieves a secret from environment variables. Empty values count as
// unset.
func (e *EnvBackend) Get(ctx context.Context, key string) (string, error) {
	if value, ok := e.lookup(key); ok && value != "" {
		return value, nil
	}
	if value, ok := e.lookup(normalizeEnvKey(key)); ok && value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: environment variable %s not set", ErrSecretNotFound, key)
}

// Set returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Set(ctx context.Context, key string, value string) error {
	return ErrReadOnlyBackend
}

// Delete returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Delete(ctx context.Context, key string) error {
	return ErrReadOnlyBackend
}

// List returns the FLOWSMITH_SECRET_* variables that are set.
func (e *EnvBackend) List(ctx context.Context) ([]string, error) {
	var keys []string
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if ok && value != "" && strings.HasPrefix(name, envSecretPrefix) {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Available returns true as environment variables are always available.
func (e *EnvBackend) Available() bool {
	return true
}

// ReadOnly returns true as environment backend is read-only.
func (e *EnvBackend) ReadOnly() bool {
	return true
}

// normalizeEnvKey converts a secret key to an environment variable name.
// Example: "n8n/api-key" -> "FLOWSMITH_SECRET_N8N_API_KEY"
func normalizeEnvKey(key string) string {
	r := strings.NewReplacer("/", "_", "-", "_", ".", "_")
	return envSecretPrefix + strings.ToUpper(r.Replace(key))
}
