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

package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/client"
	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/server"
)

// NewCommand creates the server command group.
func NewCommand() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Check on a running API server and mint tokens",
		Long: `Commands for a flowsmith API server started with "flowsmith serve" or
flowsmithd.

The server URL defaults to FLOWSMITH_SERVER_URL or http://127.0.0.1:8787.
FLOWSMITH_TOKEN is sent as the bearer token.`,
	}
	cmd.PersistentFlags().StringVar(&serverURL, "url", "", "Server URL (default: $FLOWSMITH_SERVER_URL)")

	newClient := func() (*client.Client, error) {
		var opts []client.Option
		if serverURL != "" {
			opts = append(opts, client.WithBaseURL(serverURL))
		}
		c, err := client.FromEnvironment(opts...)
		if err != nil {
			return nil, shared.NewMissingInputError(err.Error(), nil)
		}
		return c, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show server health and version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				return runStatus(cmd, c)
			},
		},
		&cobra.Command{
			Use:   "ping",
			Short: "Check if the server is reachable",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				return runPing(cmd, c)
			},
		},
		newTokenCommand(),
	)
	return cmd
}

// StatusResponse is the --json output of server status.
type StatusResponse struct {
	shared.JSONResponse
	URL     string                  `json:"url"`
	Health  *client.HealthResponse  `json:"health"`
	Version *client.VersionResponse `json:"version"`
}

func runStatus(cmd *cobra.Command, c *client.Client) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	type result struct {
		health  *client.HealthResponse
		version *client.VersionResponse
		err     error
	}
	healthCh := make(chan result, 1)
	versionCh := make(chan result, 1)
	go func() {
		h, err := c.Health(ctx)
		healthCh <- result{health: h, err: err}
	}()
	go func() {
		v, err := c.Version(ctx)
		versionCh <- result{version: v, err: err}
	}()
	hr, vr := <-healthCh, <-versionCh

	if hr.err != nil {
		return shared.Classify("server unavailable", hr.err)
	}
	if vr.err != nil {
		return shared.Classify("failed to read server version", vr.err)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), StatusResponse{
			JSONResponse: shared.NewJSONResponse("server status"),
			URL:          c.BaseURL(),
			Health:       hr.health,
			Version:      vr.version,
		})
	}

	w := cmd.OutOrStdout()
	status := fmt.Sprintf("%s is %s (up %s)", c.BaseURL(), hr.health.Status, hr.health.Uptime)
	if hr.health.Status == "healthy" {
		fmt.Fprintln(w, shared.RenderOK(status))
	} else {
		fmt.Fprintln(w, shared.RenderWarn(status))
	}
	fmt.Fprintf(w, "  %s %s (%s, %s)\n", shared.RenderLabel("version:"), vr.version.Version, vr.version.Commit, vr.version.GoVersion)
	for _, name := range []string{"api", "runtime", "auth", "catalog", "store"} {
		if v, ok := hr.health.Checks[name]; ok {
			fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel(name+":"), v)
		}
	}
	return nil
}

func runPing(cmd *cobra.Command, c *client.Client) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := c.Ping(ctx); err != nil {
		return shared.Classify("server unavailable", err)
	}
	elapsed := time.Since(start)

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), struct {
			shared.JSONResponse
			URL       string `json:"url"`
			LatencyMS int64  `json:"latency_ms"`
		}{shared.NewJSONResponse("server ping"), c.BaseURL(), elapsed.Milliseconds()})
	}
	fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("%s reachable in %s", c.BaseURL(), shared.FormatElapsed(elapsed))))
	return nil
}

func newTokenCommand() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API server",
		Long: `Token signs an HS256 bearer token with the configured
server.auth.jwt_secret. The token is printed to stdout.`,
		Example: `  FLOWSMITH_TOKEN=$(flowsmith server token --ttl 1h)`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				return shared.NewMissingInputError("--ttl must be positive", nil)
			}
			a, err := shared.OpenApp(cmd)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer shared.CloseApp(cmd, a)

			secret, err := a.JWTSecret(cmd.Context())
			if err != nil {
				return shared.Classify("failed to resolve signing key", err)
			}
			if len(secret) == 0 {
				return shared.NewMissingInputError("authentication is disabled: set server.auth.jwt_secret or FLOWSMITH_JWT_SECRET", nil)
			}

			token, err := server.GenerateJWT(subject, ttl, server.JWTConfig{
				Secret: secret,
				Issuer: a.Config.Server.Auth.Issuer,
			})
			if err != nil {
				return shared.NewFailedError("failed to mint token", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Token     string    `json:"token"`
					ExpiresAt time.Time `json:"expires_at"`
				}{shared.NewJSONResponse("server token"), token, time.Now().Add(ttl).UTC()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "flowsmith-cli", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
