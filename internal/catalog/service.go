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

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gocache "github.com/patrickmn/go-cache"

	"github.com/tombee/flowsmith/internal/examples"
)

// DefaultTTL is how long a built catalog is served from cache.
const DefaultTTL = 5 * time.Minute

const cacheKey = "catalog"

// Config configures a Service.
type Config struct {
	// Dir is the workflow directory. Empty means the embedded examples.
	Dir string

	// TTL bounds how long a built catalog is reused. Zero means DefaultTTL.
	TTL time.Duration

	// MaxSnippets is passed to Build.
	MaxSnippets int

	// Watch invalidates the cache whenever a file under Dir changes.
	Watch bool

	// Logger is used for structured logging (optional)
	Logger *slog.Logger
}

// Service serves the catalog of one directory. It is safe for concurrent
// use.
type Service struct {
	cfg    Config
	cache  *gocache.Cache
	logger *slog.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a Service. With Watch set and a directory that
// exists, a filesystem watcher is started; call Close to stop it.
func NewService(cfg Config) (*Service, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:    cfg,
		cache:  gocache.New(cfg.TTL, 2*cfg.TTL),
		logger: logger.With(slog.String("component", "catalog")),
	}

	if cfg.Watch && cfg.Dir != "" {
		if err := s.startWatcher(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dir returns the configured directory, or "" for the embedded examples.
func (s *Service) Dir() string {
	return s.cfg.Dir
}

// Get returns the catalog, building it when the cached copy is missing or
// expired. A configured directory that does not exist yields an empty
// catalog.
func (s *Service) Get(ctx context.Context) (*Catalog, error) {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*Catalog), nil
	}

	fsys, err := s.source()
	if err != nil {
		return nil, err
	}
	if fsys == nil {
		return Empty(), nil
	}

	start := time.Now()
	cat, err := Build(fsys, BuildOptions{MaxSnippets: s.cfg.MaxSnippets, Logger: s.logger})
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(cacheKey, cat)

	s.logger.DebugContext(ctx, "catalog built",
		"dir", s.cfg.Dir,
		"workflows", cat.TotalWorkflows,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return cat, nil
}

// Invalidate drops the cached catalog.
func (s *Service) Invalidate() {
	s.cache.Delete(cacheKey)
}

// Close stops the watcher, if any.
func (s *Service) Close() error {
	if s.watcher == nil {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	return s.watcher.Close()
}

// source returns the filesystem to catalog, or nil when the configured
// directory does not exist.
func (s *Service) source() (fs.FS, error) {
	if s.cfg.Dir == "" {
		return examples.FS(), nil
	}
	info, err := os.Stat(s.cfg.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog directory %s is not a directory", s.cfg.Dir)
	}
	return os.DirFS(s.cfg.Dir), nil
}

func (s *Service) startWatcher() error {
	if _, err := os.Stat(s.cfg.Dir); errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("catalog directory does not exist, not watching", "dir", s.cfg.Dir)
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	s.watcher = w

	// fsnotify is not recursive.
	err = filepath.WalkDir(s.cfg.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch catalog directory %s: %w", s.cfg.Dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.processEvents(ctx)
	return nil
}

func (s *Service) processEvents(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = s.watcher.Add(event.Name)
				}
			}
			s.logger.Debug("catalog changed", "path", event.Name, "op", event.Op.String())
			s.Invalidate()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("file watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}
