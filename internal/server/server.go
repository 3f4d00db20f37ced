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

// Package server exposes workflow generation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tombee/flowsmith/internal/app"
	internallog "github.com/tombee/flowsmith/internal/log"
	"github.com/tombee/flowsmith/internal/tracing"
)

// Server is the HTTP API.
type Server struct {
	app      *app.App
	logger   *slog.Logger
	metrics  *tracing.MetricsCollector
	jwt      JWTConfig
	limiters *clientLimiters
	handler  http.Handler
	started  time.Time
}

// New builds the server and its routes. The JWT secret is resolved once.
func New(ctx context.Context, a *app.App) (*Server, error) {
	secret, err := a.JWTSecret(ctx)
	if err != nil {
		return nil, err
	}

	s := &Server{
		app:     a,
		logger:  internallog.WithComponent(a.Logger, "server"),
		metrics: a.Tracing.Metrics(),
		jwt: JWTConfig{
			Secret:    secret,
			Issuer:    a.Config.Server.Auth.Issuer,
			ClockSkew: 30 * time.Second,
		},
		started: time.Now(),
	}
	if rl := a.Config.Server.RateLimit; rl.RequestsPerSecond > 0 {
		s.limiters = newClientLimiters(rl.RequestsPerSecond, rl.Burst)
	}
	s.handler = s.routes()
	return s, nil
}

// JWT returns the token settings, for issuing tokens.
func (s *Server) JWT() JWTConfig {
	return s.jwt
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	api := func(route string, h http.HandlerFunc, methods ...string) {
		var handler http.Handler = s.allowMethods(h, methods...)
		handler = s.requireAuth(handler)
		handler = s.rateLimit(handler)
		mux.Handle(route, s.instrument(route, handler))
	}
	api("/api/generate-workflow", s.handleGenerate, http.MethodPost)
	api("/api/test-workflow", s.handleTest, http.MethodPost)
	api("/api/import-to-n8n", s.handleImport, http.MethodPost)
	api("/api/workflow-catalog", s.handleCatalog, http.MethodGet)
	api("/api/lint-workflow", s.handleLint, http.MethodPost)
	api("/api/settings", s.handleSettings, http.MethodGet, http.MethodPut)
	api("/api/state", s.handleState, http.MethodGet, http.MethodDelete)

	mux.Handle("GET /v1/health", s.instrument("/v1/health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /v1/version", s.instrument("/v1/version", http.HandlerFunc(s.handleVersion)))
	mux.Handle("GET /metrics", s.app.Tracing.MetricsHandler())

	var handler http.Handler = mux
	handler = s.recoverPanics(handler)
	handler = internallog.HTTPMiddleware(s.logger)(handler)
	handler = tracing.CorrelationMiddleware(handler)
	return handler
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.app.Config.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.app.Config.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.app.Config.Server
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("server listening",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("auth", len(s.jwt.Secret) > 0),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("graceful shutdown initiated")
	srv.SetKeepAlivesEnabled(false)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", internallog.Error(err))
		return err
	}
	return <-errCh
}
