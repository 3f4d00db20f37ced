package httpclient

import (
	"net/url"
	"strings"

	"github.com/tombee/flowsmith/pkg/secrets"
)

const redacted = "REDACTED"

// credentialParams are query parameter name fragments whose values are
// credentials. n8n webhook and API URLs sometimes carry keys this way.
var credentialParams = []string{"key", "token", "secret", "password", "signature", "jwt", "auth", "credential"}

// sanitizeURL renders u for request logs. Userinfo passwords and
// credential query values are replaced, and token-shaped substrings left
// anywhere in the URL go through secrets.Redact.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	safe := *u
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			safe.User = url.UserPassword(u.User.Username(), redacted)
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for name, values := range q {
			if !isCredentialParam(name) {
				continue
			}
			for i := range values {
				values[i] = redacted
			}
		}
		safe.RawQuery = q.Encode()
	}
	return secrets.Redact(safe.String())
}

func isCredentialParam(name string) bool {
	lower := strings.ToLower(name)
	for _, fragment := range credentialParams {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
