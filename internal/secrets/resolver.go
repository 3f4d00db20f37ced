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
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	pkgsecrets "github.com/tombee/flowsmith/pkg/secrets"
)

// Schemes understood in secret references.
const (
	SchemeEnv      = "env"
	SchemeKeychain = "keychain"
	SchemeFile     = "file"
	SchemeLiteral  = "literal"
)

var (
	// legacyEnvVarRegex matches ${VAR_NAME} syntax
	legacyEnvVarRegex = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

	knownSchemes = map[string]bool{SchemeEnv: true, SchemeKeychain: true, SchemeFile: true}
)

// ResolutionError reports a reference that could not be resolved. It never
// carries the secret value, only the scheme and key.
type ResolutionError struct {
	Scheme string
	Key    string
	Reason string
	Cause  error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("secret %s:%s: %s", e.Scheme, e.Key, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// Resolver routes secret references to the backend named by their scheme.
//
// Reference formats:
//   - env:GROQ_API_KEY -> environment variable
//   - keychain:groq -> OS keychain entry under service "flowsmith"
//   - file:groq -> entry in the encrypted secrets file
//   - ${GROQ_API_KEY} -> environment variable (legacy syntax)
//   - anything else -> the string itself
//
// Every resolved value is registered with the masker so it never reaches a
// log line.
type Resolver struct {
	backends map[string]SecretBackend
	masker   *pkgsecrets.Masker
}

// NewResolver creates a resolver over the given backends. Unavailable
// backends are dropped; references to their scheme fail with
// ErrBackendUnavailable. masker may be nil.
func NewResolver(masker *pkgsecrets.Masker, backends ...SecretBackend) *Resolver {
	r := &Resolver{
		backends: make(map[string]SecretBackend, len(backends)),
		masker:   masker,
	}
	for _, b := range backends {
		if b.Available() {
			r.backends[b.Name()] = b
		}
	}
	return r
}

// NewDefaultResolver wires the env, keychain and encrypted file backends.
// The file backend reads filePath (empty for the default location).
func NewDefaultResolver(masker *pkgsecrets.Masker, filePath string) (*Resolver, error) {
	file, err := NewFileBackend(filePath, "")
	if err != nil {
		return nil, err
	}
	return NewResolver(masker, NewEnvBackend(), NewKeychainBackend(), file), nil
}

// ParseReference splits a reference into scheme and key. Strings without a
// known scheme are literals.
func ParseReference(reference string) (scheme, key string) {
	if m := legacyEnvVarRegex.FindStringSubmatch(reference); m != nil {
		return SchemeEnv, m[1]
	}
	if s, k, ok := strings.Cut(reference, ":"); ok && knownSchemes[s] {
		return s, k
	}
	return SchemeLiteral, reference
}

// IsReference reports whether value names a secret rather than holding one.
func IsReference(value string) bool {
	scheme, _ := ParseReference(value)
	return scheme != SchemeLiteral
}

// Resolve returns the value behind reference. An empty reference resolves
// to the empty string.
func (r *Resolver) Resolve(ctx context.Context, reference string) (string, error) {
	if strings.TrimSpace(reference) == "" {
		return "", nil
	}

	scheme, key := ParseReference(reference)
	if scheme == SchemeLiteral {
		r.remember(key)
		return key, nil
	}
	if strings.TrimSpace(key) == "" {
		return "", &ResolutionError{Scheme: scheme, Reason: "empty key"}
	}

	backend, ok := r.backends[scheme]
	if !ok {
		return "", &ResolutionError{Scheme: scheme, Key: key, Reason: "backend not available", Cause: ErrBackendUnavailable}
	}

	value, err := backend.Get(ctx, key)
	if err != nil {
		reason := "lookup failed"
		if errors.Is(err, ErrSecretNotFound) {
			reason = "not found"
		}
		return "", &ResolutionError{Scheme: scheme, Key: key, Reason: reason, Cause: err}
	}

	r.remember(value)
	return value, nil
}

// ResolveAll resolves each named reference, failing on the first error.
func (r *Resolver) ResolveAll(ctx context.Context, refs map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(refs))
	for name, ref := range refs {
		value, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

// Set stores value under a scheme:key reference.
func (r *Resolver) Set(ctx context.Context, reference, value string) error {
	backend, key, err := r.writable(reference)
	if err != nil {
		return err
	}
	if err := backend.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to set secret in %s: %w", backend.Name(), err)
	}
	r.remember(value)
	return nil
}

// Delete removes the secret behind a scheme:key reference.
func (r *Resolver) Delete(ctx context.Context, reference string) error {
	backend, key, err := r.writable(reference)
	if err != nil {
		return err
	}
	if err := backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete secret from %s: %w", backend.Name(), err)
	}
	return nil
}

// List returns the keys every available backend can enumerate, sorted by
// backend then key.
func (r *Resolver) List(ctx context.Context) ([]SecretMetadata, error) {
	var result []SecretMetadata
	for _, name := range r.Backends() {
		backend := r.backends[name]
		keys, err := backend.List(ctx)
		if err != nil {
			continue
		}
		readOnly := false
		if ro, ok := backend.(ReadOnlyBackend); ok {
			readOnly = ro.ReadOnly()
		}
		sort.Strings(keys)
		for _, key := range keys {
			result = append(result, SecretMetadata{Key: key, Backend: name, ReadOnly: readOnly})
		}
	}
	return result, nil
}

// Backends returns the available backend names, sorted.
func (r *Resolver) Backends() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Resolver) writable(reference string) (SecretBackend, string, error) {
	scheme, key := ParseReference(reference)
	if scheme == SchemeLiteral {
		return nil, "", fmt.Errorf("%q is not a secret reference (want keychain:<name> or file:<name>)", reference)
	}
	backend, ok := r.backends[scheme]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrBackendUnavailable, scheme)
	}
	if ro, ok := backend.(ReadOnlyBackend); ok && ro.ReadOnly() {
		return nil, "", fmt.Errorf("%w: %s", ErrReadOnlyBackend, scheme)
	}
	return backend, key, nil
}

func (r *Resolver) remember(value string) {
	if r.masker != nil {
		r.masker.AddSecret(value)
	}
}
