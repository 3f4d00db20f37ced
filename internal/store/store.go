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

// Package store persists local session state: generation preferences, the
// last generated workflow and recently used prompts.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/tombee/flowsmith/pkg/workflow"
)

// DefaultRecentLimit caps the remembered prompts when no limit is given.
const DefaultRecentLimit = 8

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Settings are the remembered generation preferences.
type Settings struct {
	Provider       string  `json:"llmProvider"`
	Model          string  `json:"model"`
	MaxNodes       int     `json:"maxNodes"`
	TriggerType    string  `json:"triggerType"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"maxTokens"`
	ForceJSON      bool    `json:"forceJson"`
	AutoValidate   bool    `json:"autoValidate"`
	EnableTestMode bool    `json:"enableTestMode"`
}

// DefaultSettings returns the preferences used before anything is saved.
func DefaultSettings() Settings {
	return Settings{
		Provider:     "groq",
		Model:        "openai/gpt-oss-20b",
		MaxNodes:     20,
		TriggerType:  "webhook",
		Temperature:  0.3,
		MaxTokens:    2000,
		ForceJSON:    true,
		AutoValidate: true,
	}
}

// Store holds session state. Implementations are safe for concurrent use.
// Workflows are stored and returned as-is; a loaded workflow is not
// re-validated.
type Store interface {
	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error

	// LastWorkflow returns nil when nothing is stored.
	LastWorkflow(ctx context.Context) (*workflow.Workflow, error)
	SaveLastWorkflow(ctx context.Context, wf *workflow.Workflow) error
	ClearLastWorkflow(ctx context.Context) error

	// RecentPrompts returns prompts most recent first.
	RecentPrompts(ctx context.Context) ([]string, error)
	AddRecentPrompt(ctx context.Context, prompt string) error

	// Clear removes all state.
	Clear(ctx context.Context) error
	Close() error
}

// pushRecent puts prompt at the front of recent, drops earlier copies and
// trims to limit. Blank prompts leave recent unchanged.
func pushRecent(recent []string, prompt string, limit int) []string {
	if strings.TrimSpace(prompt) == "" {
		return recent
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	next := make([]string, 0, limit)
	next = append(next, prompt)
	for _, p := range recent {
		if len(next) == limit {
			break
		}
		if p != prompt {
			next = append(next, p)
		}
	}
	return next
}
