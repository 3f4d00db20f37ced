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

package store

import (
	"context"
	"sync"

	"github.com/tombee/flowsmith/pkg/workflow"
)

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	limit    int
	settings *Settings
	last     *workflow.Workflow
	recent   []string
	closed   bool
}

// NewMemoryStore creates an empty store that remembers up to recentLimit
// prompts (DefaultRecentLimit when zero).
func NewMemoryStore(recentLimit int) *MemoryStore {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &MemoryStore{limit: recentLimit}
}

func (m *MemoryStore) Settings(ctx context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Settings{}, ErrClosed
	}
	if m.settings == nil {
		return DefaultSettings(), nil
	}
	return *m.settings, nil
}

func (m *MemoryStore) SaveSettings(ctx context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.settings = &s
	return nil
}

func (m *MemoryStore) LastWorkflow(ctx context.Context) (*workflow.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.last, nil
}

func (m *MemoryStore) SaveLastWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.last = wf
	return nil
}

func (m *MemoryStore) ClearLastWorkflow(ctx context.Context) error {
	return m.SaveLastWorkflow(ctx, nil)
}

func (m *MemoryStore) RecentPrompts(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return append([]string(nil), m.recent...), nil
}

func (m *MemoryStore) AddRecentPrompt(ctx context.Context, prompt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.recent = pushRecent(m.recent, prompt, m.limit)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.settings, m.last, m.recent = nil, nil, nil
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
