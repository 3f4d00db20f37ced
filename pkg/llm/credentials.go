package llm

import (
	"fmt"
	"strings"
)

// Credentials represents authentication information for a provider.
type Credentials interface {
	// Validate checks if the credentials are present and well formed.
	Validate() error

	// Redacted returns a safe-to-log version of the credentials.
	Redacted() string
}

// APIKeyCredentials holds API key-based authentication for HTTP providers.
type APIKeyCredentials struct {
	// APIKey is the bearer token for the provider's API.
	APIKey string

	// BaseURL is an optional override for the API endpoint.
	// If empty, the provider's default endpoint is used.
	BaseURL string
}

// Validate checks that an API key is present.
func (c APIKeyCredentials) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

// Redacted returns the credentials with the API key masked.
func (c APIKeyCredentials) Redacted() string {
	masked := maskSecret(c.APIKey)
	if c.BaseURL != "" {
		return fmt.Sprintf("APIKey: %s, BaseURL: %s", masked, c.BaseURL)
	}
	return fmt.Sprintf("APIKey: %s", masked)
}

// maskSecret keeps the first four characters of long secrets.
func maskSecret(s string) string {
	if s == "" {
		return "<empty>"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}
