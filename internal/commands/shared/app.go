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

package shared

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/tombee/flowsmith/internal/app"
	"github.com/tombee/flowsmith/internal/config"
)

// testAppOptions are appended to every OpenApp call.
var testAppOptions []app.Option

// SetAppOptionsForTest injects options into OpenApp until the returned
// function is called.
func SetAppOptionsForTest(opts ...app.Option) func() {
	prev := testAppOptions
	testAppOptions = opts
	return func() { testAppOptions = prev }
}

// LoadConfig loads the file named by --config, or the default config file
// when the flag is unset.
func LoadConfig() (*config.Config, error) {
	if path := GetConfigPath(); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// BuildInfo returns the version information set by main.
func BuildInfo() app.BuildInfo {
	v, c, b := GetVersion()
	return app.BuildInfo{Version: v, Commit: c, BuildDate: b}
}

// OpenApp loads configuration and wires the application services for a
// one-shot command. Logs go to stderr as text at warn level unless
// --verbose, --quiet or a log level variable says otherwise. The caller
// must Close the app.
func OpenApp(cmd *cobra.Command, opts ...app.Option) (*app.App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	switch {
	case GetVerbose():
		cfg.Log.Level = "debug"
	case GetQuiet():
		cfg.Log.Level = "error"
	case os.Getenv("LOG_LEVEL") == "" && os.Getenv("FLOWSMITH_LOG_LEVEL") == "":
		cfg.Log.Level = "warn"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.Log.Format = "text"
	}

	return NewApp(cmd, cfg, opts...)
}

// NewApp wires the application services from cfg as given, logging to
// the command's stderr. The caller must Close the app.
func NewApp(cmd *cobra.Command, cfg *config.Config, opts ...app.Option) (*app.App, error) {
	opts = append([]app.Option{app.WithLogOutput(cmd.ErrOrStderr())}, opts...)
	opts = append(opts, testAppOptions...)
	return app.New(commandContext(cmd), cfg, BuildInfo(), opts...)
}

// CloseApp releases the app, logging rather than returning failures.
func CloseApp(cmd *cobra.Command, a *app.App) {
	if err := a.Close(context.WithoutCancel(commandContext(cmd))); err != nil {
		a.Logger.Warn("failed to close", "error", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
