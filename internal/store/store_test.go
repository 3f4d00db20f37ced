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
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/flowsmith/pkg/workflow"
)

func stores() map[string]func(t *testing.T, limit int) Store {
	return map[string]func(t *testing.T, limit int) Store{
		"memory": func(t *testing.T, limit int) Store { return NewMemoryStore(limit) },
		"sqlite": func(t *testing.T, limit int) Store {
			s, err := NewSQLiteStore(SQLiteConfig{
				Path:        filepath.Join(t.TempDir(), "state.db"),
				RecentLimit: limit,
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func sampleWorkflow() *workflow.Workflow {
	wf := &workflow.Workflow{
		Name: "Webhook to Slack",
		Nodes: []workflow.Node{
			{ID: "1", Name: "Webhook", Type: "n8n-nodes-base.webhook", Parameters: map[string]any{"path": "hook"}},
			{ID: "2", Name: "Slack", Type: "n8n-nodes-base.slack", Parameters: map[string]any{}, Credentials: map[string]string{"slackApi": "{{CRED:slack}}"}},
		},
		Connections: workflow.Connections{
			"Webhook": {"main": {{{Node: "Slack", Type: "main", Index: 0}}}},
		},
		Preview:     "Posts webhook payloads to Slack",
		TestPayload: map[string]any{"text": "hi"},
	}
	wf.ApplyDefaults()
	return wf
}

func TestStore_Settings(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 0)

			got, err := s.Settings(ctx)
			require.NoError(t, err)
			assert.Equal(t, DefaultSettings(), got)

			want := DefaultSettings()
			want.Model = "llama-3.1-8b-instant"
			want.MaxNodes = 12
			want.ForceJSON = false
			require.NoError(t, s.SaveSettings(ctx, want))

			got, err = s.Settings(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestStore_LastWorkflow(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 0)

			got, err := s.LastWorkflow(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)

			wf := sampleWorkflow()
			require.NoError(t, s.SaveLastWorkflow(ctx, wf))

			got, err = s.LastWorkflow(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, wf.Name, got.Name)
			assert.Len(t, got.Nodes, 2)
			assert.Equal(t, "{{CRED:slack}}", got.Nodes[1].Credentials["slackApi"])
			assert.Equal(t, wf.Connections, got.Connections)

			require.NoError(t, s.ClearLastWorkflow(ctx))
			got, err = s.LastWorkflow(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStore_RecentPrompts(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 3)

			for _, p := range []string{"a", "b", "c", "b", "  ", "d"} {
				require.NoError(t, s.AddRecentPrompt(ctx, p))
			}

			got, err := s.RecentPrompts(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"d", "b", "c"}, got)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 0)

			require.NoError(t, s.SaveLastWorkflow(ctx, sampleWorkflow()))
			require.NoError(t, s.AddRecentPrompt(ctx, "x"))
			require.NoError(t, s.Clear(ctx))

			wf, err := s.LastWorkflow(ctx)
			require.NoError(t, err)
			assert.Nil(t, wf)
			recent, err := s.RecentPrompts(ctx)
			require.NoError(t, err)
			assert.Empty(t, recent)
		})
	}
}

func TestPushRecent_DefaultLimit(t *testing.T) {
	var recent []string
	for i := 0; i < 20; i++ {
		recent = pushRecent(recent, fmt.Sprintf("prompt %d", i), 0)
	}
	assert.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, "prompt 19", recent[0])
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	s, err := NewSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.AddRecentPrompt(ctx, "send slack alerts"))
	require.NoError(t, s.SaveLastWorkflow(ctx, sampleWorkflow()))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()

	recent, err := s.RecentPrompts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"send slack alerts"}, recent)

	wf, err := s.LastWorkflow(ctx)
	require.NoError(t, err)
	require.NotNil(t, wf)
	assert.Equal(t, "Webhook to Slack", wf.Name)
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore(SQLiteConfig{})
	assert.Error(t, err)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore(0)
	require.NoError(t, s.Close())
	_, err := s.Settings(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.AddRecentPrompt(context.Background(), "x"), ErrClosed)
}
