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
	"os"
	"path/filepath"
)

const appDir = "flowsmith"

// ConfigDir returns the XDG config directory for flowsmith, creating it if
// needed.
// On Unix and macOS: ~/.config/flowsmith
// Respects XDG_CONFIG_HOME environment variable
func ConfigDir() (string, error) {
	base, err := xdgBase("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(base, appDir)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}

	return configDir, nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns the XDG data directory for flowsmith without creating it.
// On Unix and macOS: ~/.local/share/flowsmith
// Respects XDG_DATA_HOME environment variable
func DataDir() (string, error) {
	base, err := xdgBase("XDG_DATA_HOME", filepath.Join(".local", "share"))
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDir), nil
}

// xdgBase returns $env, or ~/fallback when it is unset. macOS follows the
// XDG layout rather than ~/Library.
func xdgBase(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback), nil
}
