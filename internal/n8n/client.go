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

// Package n8n imports generated workflows into an n8n instance through its
// public REST API.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tombee/flowsmith/internal/tracing"
	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/httpclient"
	"github.com/tombee/flowsmith/pkg/secrets"
	"github.com/tombee/flowsmith/pkg/workflow"
)

const (
	// ProviderName identifies n8n in errors and logs.
	ProviderName = "n8n"

	// APIKeyHeader carries the n8n API key.
	APIKeyHeader = "X-N8N-API-KEY"

	// ImportedMessage is returned on a successful import.
	ImportedMessage = "Workflow imported successfully"

	apiPathSuffix = "/api/v1"

	maxResponseBytes  = 1 << 20
	maxErrorBodyRunes = 2000
)

// ImportResult is the outcome of a successful import.
type ImportResult struct {
	WorkflowID string `json:"workflowId"`
	Message    string `json:"message"`
	URL        string `json:"n8nUrl"`
}

// Client talks to one n8n instance.
type Client struct {
	apiURL     string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = client
		return nil
	}
}

// WithTimeout bounds each request made by the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("timeout must be >= 0, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// New creates a client for the API rooted at apiURL, usually
// "https://host/api/v1". Both apiURL and apiKey are required.
func New(apiURL, apiKey string, opts ...Option) (*Client, error) {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" || strings.TrimSpace(apiKey) == "" {
		return nil, &pkgerrors.ValidationError{
			Field:      "n8nApiUrl",
			Message:    "Missing required parameters",
			Suggestion: "provide an n8n API URL and API key, or set N8N_API_URL and N8N_API_KEY",
		}
	}
	u, err := url.Parse(apiURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &pkgerrors.ValidationError{
			Field:   "n8nApiUrl",
			Message: fmt.Sprintf("invalid n8n API URL %q", apiURL),
		}
	}

	c := &Client{
		apiURL:  apiURL,
		apiKey:  apiKey,
		timeout: 30 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.httpClient == nil {
		cfg := httpclient.DefaultConfig()
		if c.timeout > 0 {
			cfg.Timeout = c.timeout
		}
		cfg.Component = ProviderName
		cfg.Logger = c.logger
		client, err := httpclient.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		c.httpClient = client
	}
	return c, nil
}

// APIURL returns the API root the client was created with.
func (c *Client) APIURL() string {
	return c.apiURL
}

// WorkflowURL returns the editor URL of a workflow: the API root without
// its "/api/v1" segment, then "/workflow/<id>".
func (c *Client) WorkflowURL(id string) string {
	return strings.Replace(c.apiURL, apiPathSuffix, "", 1) + "/workflow/" + id
}

// Import creates wf on the instance. Only the exported fields are sent, so
// advisory fields never reach n8n. Credential placeholders must already be
// mapped by the caller.
//
// A non-2xx answer is returned as an *errors.APIError carrying the remote
// status, code upstream_error and the redacted body under details.body.
func (c *Client) Import(ctx context.Context, wf *workflow.Workflow) (*ImportResult, error) {
	if wf == nil {
		return nil, &pkgerrors.ValidationError{Field: "workflow", Message: "Missing required parameters"}
	}

	body, err := json.Marshal(wf.Export())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/workflows", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)
	tracing.InjectIntoRequest(ctx, req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &pkgerrors.TimeoutError{Operation: "n8n import", Duration: time.Since(start), Cause: err}
		}
		return nil, &pkgerrors.ProviderError{
			Provider: ProviderName,
			Message:  secrets.Redact(err.Error()),
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &pkgerrors.ProviderError{
			Provider:   ProviderName,
			StatusCode: resp.StatusCode,
			Message:    "failed to read response body",
			Cause:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := redactBody(raw)
		return nil, (&pkgerrors.APIError{
			Status:  resp.StatusCode,
			Code:    pkgerrors.CodeUpstream,
			Message: "n8n API error",
			Cause: &pkgerrors.ProviderError{
				Provider:   ProviderName,
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
				Body:       body,
			},
		}).WithDetails(map[string]any{"body": body})
	}

	id, err := workflowID(raw)
	if err != nil {
		return nil, &pkgerrors.ProviderError{
			Provider:   ProviderName,
			StatusCode: resp.StatusCode,
			Message:    err.Error(),
			Body:       redactBody(raw),
		}
	}

	result := &ImportResult{
		WorkflowID: id,
		Message:    ImportedMessage,
		URL:        c.WorkflowURL(id),
	}
	c.logger.InfoContext(ctx, "n8n_import_success",
		"workflow_id", id,
		"n8n_host", hostOf(result.URL),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// workflowID reads the id of the created workflow. n8n returns it as a
// string, older releases as a number.
func workflowID(raw []byte) (string, error) {
	var created struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("malformed n8n response: %w", err)
	}

	var s string
	if err := json.Unmarshal(created.ID, &s); err == nil && s != "" {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(created.ID, &n); err == nil && n != "" {
		return n.String(), nil
	}
	return "", errors.New("n8n response has no workflow id")
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}

func redactBody(raw []byte) string {
	return secrets.RedactPreview(string(raw), maxErrorBodyRunes)
}
