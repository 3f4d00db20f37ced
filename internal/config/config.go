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

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/flowsmith/internal/tracing"
	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/workflow/lint"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config represents the complete flowsmith configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	LLM     LLMConfig      `yaml:"llm"`
	N8N     N8NConfig      `yaml:"n8n"`
	Catalog CatalogConfig  `yaml:"catalog"`
	Store   StoreConfig    `yaml:"store"`
	Log     LogConfig      `yaml:"log"`
	Tracing tracing.Config `yaml:"tracing"`
	Lint    LintConfig     `yaml:"lint"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	// Environment: FLOWSMITH_ADDR
	// Default: 127.0.0.1:8787
	Addr string `yaml:"addr"`

	// ReadTimeout bounds reading a full request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing a response. It must cover a full
	// generation round trip.
	// Default: 120s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 5s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth"`
}

// RateLimitConfig configures per-client request throttling on /api routes.
// A zero RequestsPerSecond disables throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// AuthConfig configures bearer token authentication.
type AuthConfig struct {
	// JWTSecret is a secret reference. When it resolves to a non-empty
	// value, /api routes require an HS256 bearer token.
	// Environment: FLOWSMITH_JWT_SECRET
	JWTSecret string `yaml:"jwt_secret"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `yaml:"issuer"`
}

// LLMConfig configures the text generation provider.
type LLMConfig struct {
	// Provider is the registered provider name.
	// Default: groq
	Provider string `yaml:"provider"`

	// BaseURL is the provider API root.
	// Environment: FLOWSMITH_LLM_BASE_URL
	BaseURL string `yaml:"base_url"`

	// APIKey is a secret reference (env:, keychain:, file: or a literal).
	// Environment: GROQ_API_KEY, VITE_GROQ_API_KEY
	// Default: env:GROQ_API_KEY
	APIKey string `yaml:"api_key"`

	// Model is used when a request names none.
	// Environment: FLOWSMITH_LLM_MODEL
	Model string `yaml:"model"`

	// FallbackModel is tried last, without JSON mode.
	FallbackModel string `yaml:"fallback_model"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// Timeout bounds a single completion call.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for transient provider failures.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`
}

// N8NConfig configures the export target.
type N8NConfig struct {
	// APIURL is the n8n REST root, e.g. https://n8n.example.com/api/v1.
	// Environment: N8N_API_URL
	APIURL string `yaml:"api_url"`

	// APIKey is a secret reference.
	// Environment: N8N_API_KEY
	APIKey string `yaml:"api_key"`

	// Timeout bounds one import request.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// CatalogConfig configures the example workflow catalog.
type CatalogConfig struct {
	// Dir is scanned for *.json workflows. Empty uses the embedded examples.
	// Environment: FLOWSMITH_CATALOG_DIR
	Dir string `yaml:"dir"`

	// CacheTTL is how long a built catalog is reused.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// MaxSnippets bounds the snippets returned.
	// Default: 50
	MaxSnippets int `yaml:"max_snippets"`

	// Watch invalidates the cache when Dir changes.
	Watch bool `yaml:"watch"`
}

// StoreConfig configures local state persistence.
type StoreConfig struct {
	// Path is the SQLite database file.
	// Environment: FLOWSMITH_STORE_PATH
	// Default: $XDG_DATA_HOME/flowsmith/state.db
	Path string `yaml:"path"`

	// RecentLimit caps the remembered prompts.
	// Default: 8
	RecentLimit int `yaml:"recent_limit"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: LOG_LEVEL
	// Default: info
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: json
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	AddSource bool `yaml:"add_source"`
}

// LintConfig holds user-defined lint rules.
type LintConfig struct {
	Rules []lint.Rule `yaml:"rules"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8787",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 5,
				Burst:             10,
			},
		},
		LLM: LLMConfig{
			Provider:      "groq",
			BaseURL:       "https://api.groq.com/openai/v1",
			APIKey:        "env:GROQ_API_KEY",
			Model:         "openai/gpt-oss-20b",
			FallbackModel: "mixtral-8x7b-32768",
			Temperature:   0.3,
			MaxTokens:     2000,
			Timeout:       60 * time.Second,
			MaxRetries:    2,
		},
		N8N: N8NConfig{
			Timeout: 30 * time.Second,
		},
		Catalog: CatalogConfig{
			CacheTTL:    5 * time.Minute,
			MaxSnippets: 50,
		},
		Store: StoreConfig{
			Path:        defaultStorePath(),
			RecentLimit: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: tracing.Config{
			ServiceName: "flowsmith",
			Exporter:    tracing.ExporterNone,
		},
	}
}

// Load loads configuration from an optional YAML file and the environment.
// Environment variables take precedence over file-based configuration.
// If configPath is empty, only environment variables are used.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &pkgerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	// Apply defaults to any zero values (handles minimal configs)
	cfg.applyDefaults()

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &pkgerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// LoadDefault loads the file at ConfigPath when it exists, and the
// environment otherwise.
func LoadDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Load("")
	}
	if _, err := os.Stat(path); err != nil {
		return Load("")
	}
	return Load(path)
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Server.RateLimit.RequestsPerSecond > 0 && c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = max(1, int(c.Server.RateLimit.RequestsPerSecond))
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaults.LLM.BaseURL
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = defaults.LLM.APIKey
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.LLM.Model
	}
	if c.LLM.FallbackModel == "" {
		c.LLM.FallbackModel = defaults.LLM.FallbackModel
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = defaults.LLM.Temperature
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = defaults.LLM.MaxTokens
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = defaults.LLM.Timeout
	}

	if c.N8N.Timeout == 0 {
		c.N8N.Timeout = defaults.N8N.Timeout
	}

	if c.Catalog.CacheTTL == 0 {
		c.Catalog.CacheTTL = defaults.Catalog.CacheTTL
	}
	if c.Catalog.MaxSnippets == 0 {
		c.Catalog.MaxSnippets = defaults.Catalog.MaxSnippets
	}

	if c.Store.Path == "" {
		c.Store.Path = defaults.Store.Path
	}
	if c.Store.RecentLimit == 0 {
		c.Store.RecentLimit = defaults.Store.RecentLimit
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaults.Tracing.ServiceName
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaults.Tracing.Exporter
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("FLOWSMITH_ADDR"); val != "" {
		c.Server.Addr = val
	}
	if val := os.Getenv("FLOWSMITH_JWT_SECRET"); val != "" {
		c.Server.Auth.JWTSecret = val
	}
	if val := os.Getenv("SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			c.Server.ShutdownTimeout = duration
		}
	}

	// An exported key wins over the configured reference. VITE_ is checked
	// first, matching the browser build's lookup order.
	switch {
	case os.Getenv("VITE_GROQ_API_KEY") != "":
		c.LLM.APIKey = "env:VITE_GROQ_API_KEY"
	case os.Getenv("GROQ_API_KEY") != "":
		c.LLM.APIKey = "env:GROQ_API_KEY"
	}
	if val := os.Getenv("FLOWSMITH_LLM_MODEL"); val != "" {
		c.LLM.Model = val
	}
	if val := os.Getenv("FLOWSMITH_LLM_BASE_URL"); val != "" {
		c.LLM.BaseURL = val
	}
	if val := os.Getenv("LLM_MAX_RETRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.LLM.MaxRetries = n
		}
	}

	if val := os.Getenv("N8N_API_URL"); val != "" {
		c.N8N.APIURL = val
	}
	if val := os.Getenv("N8N_API_KEY"); val != "" {
		c.N8N.APIKey = "env:N8N_API_KEY"
	}

	if val := os.Getenv("FLOWSMITH_CATALOG_DIR"); val != "" {
		c.Catalog.Dir = val
	}
	if val := os.Getenv("FLOWSMITH_STORE_PATH"); val != "" {
		c.Store.Path = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.EqualFold(val, "true")
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, fmt.Sprintf("server.addr must be host:port, got %q", c.Server.Addr))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout))
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, "server.rate_limit.requests_per_second must not be negative")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries))
	}

	if c.N8N.APIURL != "" && !strings.HasPrefix(c.N8N.APIURL, "http://") && !strings.HasPrefix(c.N8N.APIURL, "https://") {
		errs = append(errs, fmt.Sprintf("n8n.api_url must be an http(s) URL, got %q", c.N8N.APIURL))
	}

	if c.Catalog.MaxSnippets < 0 {
		errs = append(errs, fmt.Sprintf("catalog.max_snippets must not be negative, got %d", c.Catalog.MaxSnippets))
	}
	if c.Store.RecentLimit < 1 {
		errs = append(errs, fmt.Sprintf("store.recent_limit must be positive, got %d", c.Store.RecentLimit))
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(c.Lint.Rules) > 0 {
		if _, err := lint.New(lint.WithRules(c.Lint.Rules...)); err != nil {
			errs = append(errs, fmt.Sprintf("lint.rules: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

func defaultStorePath() string {
	dir, err := DataDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "flowsmith", "state.db")
	}
	return filepath.Join(dir, "state.db")
}
