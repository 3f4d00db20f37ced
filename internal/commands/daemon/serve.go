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

// Package daemon implements the serve command and the server command group
// for talking to a running API server.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/server"
)

// notifyContext is replaced in tests.
var notifyContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the flowsmith HTTP API server",
		Long: `Start the HTTP API server. It serves the /api routes used by the web
client (generate, test, import, catalog, lint, settings and state) plus
/v1/health, /v1/version and /metrics.

The server runs until interrupted, then drains in-flight requests within
server.shutdown_timeout. Set server.auth.jwt_secret (or
FLOWSMITH_JWT_SECRET) to require bearer tokens; "flowsmith server token"
mints them.`,
		Example: `  # Start with the configured address (default 127.0.0.1:8787)
  flowsmith serve

  # Listen on all interfaces
  flowsmith serve --addr 0.0.0.0:8787`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address as host:port (default: server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return shared.Classify("failed to load configuration", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	switch {
	case shared.GetVerbose():
		cfg.Log.Level = "debug"
	case shared.GetQuiet():
		cfg.Log.Level = "error"
	}

	ctx, stop := notifyContext(cmd.Context())
	defer stop()

	a, err := shared.NewApp(cmd, cfg)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer shared.CloseApp(cmd, a)

	a.Logger.Info("flowsmith starting",
		"version", a.Build.Version,
		"log_level", cfg.Log.Level,
		"log_format", cfg.Log.Format)

	srv, err := server.New(ctx, a)
	if err != nil {
		return shared.Classify("failed to start server", err)
	}
	if err := srv.Run(ctx); err != nil {
		return shared.NewFailedError("server error", err)
	}

	a.Logger.Info("shutdown complete")
	return nil
}
