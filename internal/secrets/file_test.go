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

package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_SetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	backend, err := NewFileBackend(path, "test-master-key-for-encryption-123")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	if backend.Name() != "file" || !backend.Available() {
		t.Fatalf("expected available file backend, got %s available=%v", backend.Name(), backend.Available())
	}

	ctx := context.Background()

	if _, err := backend.Get(ctx, "groq"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() on empty store error = %v, want ErrSecretNotFound", err)
	}

	if err := backend.Set(ctx, "groq", "gsk_file_value"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := backend.Set(ctx, "n8n", "n8n_value"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := backend.Get(ctx, "groq")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "gsk_file_value" {
		t.Errorf("Get() = %q, want %q", got, "gsk_file_value")
	}

	keys, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("List() returned %d keys, want 2", len(keys))
	}

	if err := backend.Delete(ctx, "groq"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := backend.Get(ctx, "groq"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSecretNotFound", err)
	}
	if err := backend.Delete(ctx, "groq"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSecretNotFound", err)
	}
}

func TestFileBackend_EncryptedAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	backend, err := NewFileBackend(path, "master")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	if err := backend.Set(context.Background(), "groq", "plaintext-should-not-appear"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if containsBytes(raw, []byte("plaintext-should-not-appear")) {
		t.Error("secret value stored in plaintext")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestFileBackend_WrongMasterKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	writer, err := NewFileBackend(path, "right-key")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	if err := writer.Set(context.Background(), "groq", "value"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reader, err := NewFileBackend(path, "wrong-key")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	if _, err := reader.Get(context.Background(), "groq"); err == nil || errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() with wrong key error = %v, want decryption failure", err)
	}
}

func TestFileBackend_UnavailableWithoutMasterKey(t *testing.T) {
	t.Setenv(MasterKeyEnv, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "secrets.enc"), "")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	if backend.Available() {
		t.Fatal("Available() = true without a master key")
	}
	if _, err := backend.Get(context.Background(), "x"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Get() error = %v, want ErrBackendUnavailable", err)
	}
}

func containsBytes(haystack, needle []byte) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return true
		}
	}
	return false
}
