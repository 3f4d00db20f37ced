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
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeychainBackend_WithMock(t *testing.T) {
	keyring.MockInit()

	backend := NewKeychainBackend()
	if backend.Name() != "keychain" {
		t.Errorf("Name() = %v, want keychain", backend.Name())
	}
	if !backend.Available() {
		t.Fatal("mock keyring should be available")
	}

	ctx := context.Background()
	if _, err := backend.Get(ctx, "groq"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() error = %v, want ErrSecretNotFound", err)
	}

	if err := backend.Set(ctx, "groq", "gsk_keychain"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := backend.Get(ctx, "groq")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "gsk_keychain" {
		t.Errorf("Get() = %q, want gsk_keychain", got)
	}

	// Entries are scoped to the flowsmith service.
	if v, err := keyring.Get(KeychainService, "groq"); err != nil || v != "gsk_keychain" {
		t.Errorf("keyring.Get(%s) = %q, %v", KeychainService, v, err)
	}

	if err := backend.Delete(ctx, "groq"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := backend.Delete(ctx, "groq"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSecretNotFound", err)
	}
}

func TestKeychainBackend_UnavailableKeyring(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus: connection refused"))

	backend := NewKeychainBackend()
	if backend.Available() {
		t.Fatal("Available() = true with a failing keyring")
	}
	if _, err := backend.Get(context.Background(), "groq"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Get() error = %v, want ErrBackendUnavailable", err)
	}
}

func TestIsKeychainUnavailableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("keychain is locked"), true},
		{errors.New("The name org.freedesktop.secrets was not provided by any .service files (secret service)"), true},
		{errors.New("item already exists"), false},
	}
	for _, tt := range tests {
		if got := isKeychainUnavailableError(tt.err); got != tt.want {
			t.Errorf("isKeychainUnavailableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
