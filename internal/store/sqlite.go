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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/flowsmith/pkg/workflow"
)

const (
	keySettings      = "settings"
	keyLastWorkflow  = "last_workflow"
	keyRecentPrompts = "recent_prompts"
)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Path is the filesystem path to the database file, or ":memory:".
	Path string

	// RecentLimit caps the remembered prompts.
	RecentLimit int
}

// SQLiteStore persists state in a single key/value table.
type SQLiteStore struct {
	db    *sql.DB
	limit int

	// mu serializes read-modify-write sequences within this process.
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("store: database path is required")
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = DefaultRecentLimit
	}

	connStr := cfg.Path
	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		// WAL lets the CLI read while the daemon writes.
		connStr += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and avoids
	// writer contention.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, limit: cfg.RecentLimit}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// get loads the raw value for key. ok is false when the key is absent.
func (s *SQLiteStore) get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Settings returns the saved preferences, or DefaultSettings.
func (s *SQLiteStore) Settings(ctx context.Context) (Settings, error) {
	raw, ok, err := s.get(ctx, keySettings)
	if err != nil || !ok {
		return DefaultSettings(), err
	}
	settings := DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, settings Settings) error {
	return s.put(ctx, keySettings, settings)
}

// LastWorkflow returns the stored workflow without re-validating it. A
// corrupt entry reads as absent.
func (s *SQLiteStore) LastWorkflow(ctx context.Context) (*workflow.Workflow, error) {
	raw, ok, err := s.get(ctx, keyLastWorkflow)
	if err != nil || !ok {
		return nil, err
	}
	wf, err := workflow.Parse([]byte(raw))
	if err != nil {
		return nil, nil
	}
	return wf, nil
}

func (s *SQLiteStore) SaveLastWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	if wf == nil {
		return s.ClearLastWorkflow(ctx)
	}
	return s.put(ctx, keyLastWorkflow, wf)
}

func (s *SQLiteStore) ClearLastWorkflow(ctx context.Context) error {
	return s.remove(ctx, keyLastWorkflow)
}

func (s *SQLiteStore) RecentPrompts(ctx context.Context) ([]string, error) {
	raw, ok, err := s.get(ctx, keyRecentPrompts)
	if err != nil || !ok {
		return []string{}, err
	}
	var recent []string
	if err := json.Unmarshal([]byte(raw), &recent); err != nil {
		return []string{}, nil
	}
	if len(recent) > s.limit {
		recent = recent[:s.limit]
	}
	return recent, nil
}

func (s *SQLiteStore) AddRecentPrompt(ctx context.Context, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent, err := s.RecentPrompts(ctx)
	if err != nil {
		return err
	}
	return s.put(ctx, keyRecentPrompts, pushRecent(recent, prompt, s.limit))
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
