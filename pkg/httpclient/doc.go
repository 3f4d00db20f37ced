// Package httpclient provides a unified HTTP client factory with consistent
// timeout, retry, and observability behavior for flowsmith.
//
// The package creates HTTP clients with sensible, secure defaults including:
//   - Automatic retry with exponential backoff and jitter
//   - Request logging with sanitized URLs (sensitive parameters redacted)
//   - User-Agent header injection
//   - Correlation ID propagation for distributed tracing
//   - TLS 1.2 minimum (TLS 1.3 preferred)
//   - Connection pooling for performance
//
// # Usage
//
// Create a client with default settings:
//
//	client, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	resp, err := client.Get("https://api.example.com/resource")
//
// Customize configuration:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.UserAgent = "my-service/2.0"
//	cfg.Timeout = 60 * time.Second
//	cfg.RetryAttempts = 5
//	client, err := httpclient.New(cfg)
//
// # Retry Behavior
//
// Retries are driven by github.com/cenkalti/backoff/v5 with exponential
// backoff and 20% jitter:
//   - HTTP 5xx, 408 and 429 are retried
//   - Retry-After is honored, capped at MaxBackoff
//   - connection resets, refusals, timeouts and temporary DNS failures are retried
//   - other 4xx responses and cancellation are final
//   - only GET, HEAD and OPTIONS are retried by default
//   - when every attempt fails with a retryable status, the last response
//     is returned so callers can read the upstream error body
//
// POST, PUT, PATCH and DELETE are retried only with AllowNonIdempotentRetry,
// and only when the body can be replayed through Request.GetBody.
//
// # Security
//
// The package includes security features:
//   - Credential query values and userinfo passwords are redacted from logs,
//     and token-shaped strings in the URL go through secrets.Redact
//   - Authorization headers are never logged
//   - TLS 1.2 minimum with certificate validation enabled
//   - Connection pooling limits prevent resource exhaustion
//
// # Observability
//
// All requests emit structured logs via log/slog:
//   - Debug level: successful requests (2xx status)
//   - Warn level: failed requests (4xx/5xx status, errors)
//   - Fields: method, url (sanitized), status, duration_ms, error
//   - Correlation IDs automatically propagated when present in request context
//
// # Integration
//
// flowsmith uses this package for:
//   - the Groq chat completions client (pkg/llm/providers)
//   - the n8n workflow import client (internal/n8n)
//
// Both issue POST requests, which are never retried unless
// AllowNonIdempotentRetry is set.
package httpclient
