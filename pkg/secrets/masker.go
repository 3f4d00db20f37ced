// Package secrets detects secret-like values in generated workflows and
// log output, and rewrites them into either a redaction marker or a
// credential placeholder.
package secrets

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/tombee/flowsmith/pkg/workflow"
)

// Masker masks specific known secret values, such as the API keys the
// process resolved at startup. It is safe for concurrent use.
type Masker struct {
	// patterns are key suffixes that indicate a secret (e.g., _TOKEN, _SECRET)
	patterns []string

	mu      sync.RWMutex
	secrets map[string]bool
}

// NewMasker creates a new secret masker with default patterns.
func NewMasker() *Masker {
	return &Masker{
		patterns: []string{
			"_TOKEN",
			"_SECRET",
			"_KEY",
			"_PASSWORD",
			"_PASS",
			"_PWD",
		},
		secrets: make(map[string]bool),
	}
}

// AddSecret registers a value to be masked.
func (m *Masker) AddSecret(value string) {
	if value == "" {
		return
	}
	m.mu.Lock()
	m.secrets[value] = true
	m.mu.Unlock()
}

// AddSecretsFromEnv registers the values of environment entries whose keys
// look like secrets (GROQ_API_KEY, N8N_API_KEY, FLOWSMITH_JWT_SECRET, ...).
func (m *Masker) AddSecretsFromEnv(env map[string]string) {
	for key, value := range env {
		if m.isSecretKey(key) {
			m.AddSecret(value)
		}
	}
}

// isSecretKey checks if an environment variable key matches a secret pattern.
func (m *Masker) isSecretKey(key string) bool {
	upperKey := strings.ToUpper(key)
	for _, pattern := range m.patterns {
		if strings.HasSuffix(upperKey, pattern) {
			return true
		}
	}
	return false
}

// Mask replaces all known secrets in a string with "***". Longer secrets
// are replaced first so a secret that contains another is fully masked.
func (m *Masker) Mask(s string) string {
	m.mu.RLock()
	if len(m.secrets) == 0 {
		m.mu.RUnlock()
		return s
	}
	known := make([]string, 0, len(m.secrets))
	for secret := range m.secrets {
		known = append(known, secret)
	}
	m.mu.RUnlock()

	sort.Slice(known, func(i, j int) bool { return len(known[i]) > len(known[j]) })

	result := s
	for _, secret := range known {
		if strings.Contains(result, secret) {
			result = strings.ReplaceAll(result, secret, "***")
		}
	}
	return result
}

// MaskValue masks every string leaf of a decoded JSON value.
func (m *Masker) MaskValue(v any) any {
	return workflow.MapValue(v, m.Mask)
}

// MaskJSON masks secrets in a JSON string.
// Returns the masked JSON or the string-masked input if parsing fails.
func (m *Masker) MaskJSON(jsonStr string) string {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return m.Mask(jsonStr)
	}

	result, err := json.Marshal(m.MaskValue(data))
	if err != nil {
		return m.Mask(jsonStr)
	}
	return string(result)
}

// Len returns the number of registered secrets.
func (m *Masker) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}
