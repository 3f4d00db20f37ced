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

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/httpclient"
)

const (
	// DefaultBaseURL matches the server's default listen address.
	DefaultBaseURL = "http://127.0.0.1:8787"

	// EnvServerURL overrides the base URL in FromEnvironment.
	EnvServerURL = "FLOWSMITH_SERVER_URL"

	// EnvToken supplies the bearer token in FromEnvironment.
	EnvToken = "FLOWSMITH_TOKEN"

	maxErrorBody = 64 << 10
)

// Client is a client for the flowsmith HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures a Client.
type Option func(*Client) error

// New creates a client. Without WithHTTPClient, requests go through a
// retrying httpclient with a short timeout.
func New(opts ...Option) (*Client, error) {
	c := &Client{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.httpClient == nil {
		cfg := httpclient.DefaultConfig()
		cfg.Timeout = 10 * time.Second
		cfg.RetryAttempts = 1
		cfg.Component = "flowsmith"
		hc, err := httpclient.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		c.httpClient = hc
	}
	return c, nil
}

// FromEnvironment creates a client configured from FLOWSMITH_SERVER_URL
// and FLOWSMITH_TOKEN.
func FromEnvironment(opts ...Option) (*Client, error) {
	var envOpts []Option
	if u := os.Getenv(EnvServerURL); u != "" {
		envOpts = append(envOpts, WithBaseURL(u))
	}
	if tok := os.Getenv(EnvToken); tok != "" {
		envOpts = append(envOpts, WithToken(tok))
	}
	return New(append(envOpts, opts...)...)
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = client
		return nil
	}
}

// WithBaseURL sets the server URL, e.g. "http://127.0.0.1:8787".
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
			return fmt.Errorf("server URL must start with http:// or https://, got %q", baseURL)
		}
		c.baseURL = baseURL
		return nil
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthResponse is the response from /v1/health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// VersionResponse is the response from /v1/version.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Health returns the server health status.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.get(ctx, "/v1/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Version returns the server version information.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	var version VersionResponse
	if err := c.get(ctx, "/v1/version", &version); err != nil {
		return nil, err
	}
	return &version, nil
}

// Ping checks if the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}

// get performs a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.addAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &pkgerrors.ProviderError{Provider: "flowsmith", Message: "server unreachable at " + c.baseURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// decodeError turns a failure envelope into an *errors.APIError. Bodies
// that are not envelopes keep the status and raw text.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var env struct {
		Error struct {
			Code    pkgerrors.Code `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		return &pkgerrors.APIError{
			Status:  resp.StatusCode,
			Code:    env.Error.Code,
			Message: env.Error.Message,
			Details: env.Error.Details,
		}
	}
	return &pkgerrors.APIError{
		Status:  resp.StatusCode,
		Code:    pkgerrors.CodeUpstream,
		Message: fmt.Sprintf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
	}
}

// addAuth adds the bearer token, if configured.
func (c *Client) addAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
