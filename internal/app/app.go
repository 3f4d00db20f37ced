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

// Package app assembles flowsmith's services from configuration. The CLI
// and the daemon share it so both see the same logger, secrets, state and
// generation stack.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tombee/flowsmith/internal/catalog"
	"github.com/tombee/flowsmith/internal/config"
	"github.com/tombee/flowsmith/internal/generator"
	"github.com/tombee/flowsmith/internal/jq"
	internallog "github.com/tombee/flowsmith/internal/log"
	"github.com/tombee/flowsmith/internal/n8n"
	"github.com/tombee/flowsmith/internal/secrets"
	"github.com/tombee/flowsmith/internal/simulate"
	"github.com/tombee/flowsmith/internal/store"
	"github.com/tombee/flowsmith/internal/tracing"
	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/llm"
	_ "github.com/tombee/flowsmith/pkg/llm/providers"
	pkgsecrets "github.com/tombee/flowsmith/pkg/secrets"
	"github.com/tombee/flowsmith/pkg/workflow/lint"
)

const (
	// queryTimeout bounds a single jq evaluation.
	queryTimeout = 5 * time.Second

	// queryMaxInput bounds the encoded size of a queried workflow.
	queryMaxInput = 8 << 20
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// App holds the wired services. Fields are read-only after New.
type App struct {
	Config *config.Config
	Build  BuildInfo
	Logger *slog.Logger

	// Masker collects every resolved secret value; the logger redacts
	// through it.
	Masker  *pkgsecrets.Masker
	Secrets *secrets.Resolver

	Tracing   *tracing.Provider
	Linter    *lint.Linter
	Store     store.Store
	Catalog   *catalog.Service
	Simulator *simulate.Simulator
	Query     *jq.Executor

	// Providers holds the registered provider factories. The configured
	// provider is activated on first use.
	Providers *llm.Registry

	mu        sync.Mutex
	generator *generator.Service
}

// Option customizes New.
type Option func(*options)

type options struct {
	logOutput   io.Writer
	provider    llm.Provider
	store       store.Store
	simulator   *simulate.Simulator
	secretsFile string
	backends    []secrets.SecretBackend
	tracingOpts []tracing.ProviderOption
}

// WithLogOutput redirects logs (default os.Stderr).
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithProvider replaces the configured text generation provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithStore replaces the SQLite state store.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithSimulator replaces the default simulator.
func WithSimulator(s *simulate.Simulator) Option {
	return func(o *options) { o.simulator = s }
}

// WithSecretBackends replaces the default env, keychain and file backends.
func WithSecretBackends(backends ...secrets.SecretBackend) Option {
	return func(o *options) { o.backends = backends }
}

// WithSecretsFile sets the encrypted secrets file used by the file backend.
func WithSecretsFile(path string) Option {
	return func(o *options) { o.secretsFile = path }
}

// WithTracingOptions is passed through to tracing.NewProvider.
func WithTracingOptions(opts ...tracing.ProviderOption) Option {
	return func(o *options) { o.tracingOpts = append(o.tracingOpts, opts...) }
}

// New wires every service. The text generation provider is created on
// first use, so commands that never generate do not need an API key.
func New(ctx context.Context, cfg *config.Config, build BuildInfo, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		Config:    cfg,
		Build:     build,
		Masker:    pkgsecrets.NewMasker(),
		Providers: llm.NewRegistryFromGlobal(),
	}
	if o.provider != nil {
		if err := a.Providers.Register(o.provider); err != nil {
			return nil, err
		}
	}
	a.Masker.AddSecretsFromEnv(environMap())

	a.Logger = internallog.New(&internallog.Config{
		Level:     cfg.Log.Level,
		Format:    internallog.Format(cfg.Log.Format),
		Output:    o.logOutput,
		AddSource: cfg.Log.AddSource,
		Masker:    a.Masker,
	})

	if o.backends != nil {
		a.Secrets = secrets.NewResolver(a.Masker, o.backends...)
	} else {
		resolver, err := secrets.NewDefaultResolver(a.Masker, o.secretsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize secrets: %w", err)
		}
		a.Secrets = resolver
	}

	tracingCfg := cfg.Tracing
	tracingCfg.ServiceVersion = build.Version
	tp, err := tracing.NewProvider(ctx, tracingCfg, o.tracingOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.Tracing = tp

	a.Linter, err = lint.New(lint.WithRules(cfg.Lint.Rules...))
	if err != nil {
		_ = a.Close(ctx)
		return nil, &pkgerrors.ConfigError{Key: "lint.rules", Reason: "invalid lint rule", Cause: err}
	}

	a.Store = o.store
	if a.Store == nil {
		s, err := store.NewSQLiteStore(store.SQLiteConfig{
			Path:        cfg.Store.Path,
			RecentLimit: cfg.Store.RecentLimit,
		})
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		a.Store = s
	}

	a.Catalog, err = catalog.NewService(catalog.Config{
		Dir:         cfg.Catalog.Dir,
		TTL:         cfg.Catalog.CacheTTL,
		MaxSnippets: cfg.Catalog.MaxSnippets,
		Watch:       cfg.Catalog.Watch,
		Logger:      a.Logger,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	a.Simulator = o.simulator
	if a.Simulator == nil {
		a.Simulator = simulate.New(simulate.WithLogger(a.Logger))
	}
	a.Query = jq.NewExecutor(queryTimeout, queryMaxInput)

	return a, nil
}

// Generator returns the generation service, creating the provider on
// first call. A missing API key is reported as a ConfigError and retried
// on the next call.
func (a *App) Generator(ctx context.Context) (*generator.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.generator != nil {
		return a.generator, nil
	}

	provider, err := a.Providers.GetDefault()
	if err != nil {
		provider, err = a.newProvider(ctx)
		if err != nil {
			return nil, err
		}
	}

	cfg := a.Config.LLM
	a.generator = generator.New(provider, generator.Config{
		Model:         cfg.Model,
		FallbackModel: cfg.FallbackModel,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		Timeout:       cfg.Timeout,
	},
		generator.WithLogger(a.Logger),
		generator.WithMetrics(a.Tracing.Metrics()),
		generator.WithLinter(a.Linter),
		generator.WithTracer(a.Tracing.Tracer("github.com/tombee/flowsmith/internal/generator")),
	)
	return a.generator, nil
}

func (a *App) newProvider(ctx context.Context) (llm.Provider, error) {
	cfg := a.Config.LLM
	apiKey, err := a.resolveOptional(ctx, cfg.APIKey)
	if err != nil {
		return nil, &pkgerrors.ConfigError{Key: "llm.api_key", Reason: "could not resolve API key", Cause: err}
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, &pkgerrors.ConfigError{
			Key:    "llm.api_key",
			Reason: "API key not configured (set GROQ_API_KEY or VITE_GROQ_API_KEY)",
		}
	}

	creds := llm.APIKeyCredentials{APIKey: apiKey, BaseURL: cfg.BaseURL}
	if err := a.Providers.Activate(cfg.Provider, creds); err != nil {
		if errors.Is(err, llm.ErrFactoryNotFound) {
			return nil, &pkgerrors.ConfigError{
				Key:    "llm.provider",
				Reason: fmt.Sprintf("unknown provider %q (available: %s)", cfg.Provider, strings.Join(a.Providers.ListFactories(), ", ")),
				Cause:  err,
			}
		}
		return nil, err
	}
	provider, err := a.Providers.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}

	internallog.WithProvider(a.Logger, provider.Name()).Debug("text generation provider ready",
		"model", cfg.Model,
		"credentials", creds.Redacted(),
		"max_retries", cfg.MaxRetries,
	)

	if cfg.MaxRetries <= 0 {
		return provider, nil
	}
	retry := llm.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	return llm.NewRetryableProvider(provider, retry), nil
}

// ProviderStatus describes the text generation provider for health checks.
// The configured provider stays idle until the first generation.
func (a *App) ProviderStatus() string {
	if active := a.Providers.List(); len(active) > 0 {
		return strings.Join(active, ", ") + " (active)"
	}
	return a.Config.LLM.Provider + " (idle)"
}

// N8N returns an export client. Empty arguments fall back to the
// configured URL and API key. Only the configured key is treated as a
// secret reference; a caller-supplied key is used verbatim.
func (a *App) N8N(ctx context.Context, apiURL, apiKey string) (*n8n.Client, error) {
	if apiURL == "" {
		apiURL = a.Config.N8N.APIURL
	}
	if apiKey != "" {
		a.Masker.AddSecret(apiKey)
	} else {
		key, err := a.resolveOptional(ctx, a.Config.N8N.APIKey)
		if err != nil {
			return nil, &pkgerrors.ConfigError{Key: "n8n.api_key", Reason: "could not resolve API key", Cause: err}
		}
		apiKey = key
	}
	return n8n.New(apiURL, apiKey,
		n8n.WithTimeout(a.Config.N8N.Timeout),
		n8n.WithLogger(a.Logger),
	)
}

// JWTSecret resolves the server's token signing secret. Empty means
// authentication is disabled.
func (a *App) JWTSecret(ctx context.Context) ([]byte, error) {
	secret, err := a.resolveOptional(ctx, a.Config.Server.Auth.JWTSecret)
	if err != nil {
		return nil, &pkgerrors.ConfigError{Key: "server.auth.jwt_secret", Reason: "could not resolve secret", Cause: err}
	}
	if secret == "" {
		return nil, nil
	}
	return []byte(secret), nil
}

// resolveOptional resolves ref, treating a secret that does not exist as
// unset.
func (a *App) resolveOptional(ctx context.Context, ref string) (string, error) {
	value, err := a.Secrets.Resolve(ctx, ref)
	if errors.Is(err, secrets.ErrSecretNotFound) {
		return "", nil
	}
	return value, err
}

// Close releases the store, the catalog watcher and the tracing provider.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Catalog != nil {
		errs = append(errs, a.Catalog.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Tracing != nil {
		errs = append(errs, a.Tracing.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func environMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
