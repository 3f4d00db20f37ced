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

package prompt

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestMapMissing(t *testing.T) {
	mock := NewMockPrompter(true)
	mock.Mapping = map[string]string{"github_token": "7"}

	got, err := MapMissing(context.Background(), mock, []string{"slack_token", "github_token", "db"}, map[string]string{"slack_token": "3"})
	if err != nil {
		t.Fatalf("MapMissing() error = %v", err)
	}
	want := map[string]string{"slack_token": "3", "github_token": "7"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MapMissing() = %v, want %v", got, want)
	}
	if calls := mock.Calls(); len(calls) != 1 || !strings.Contains(calls[0], "[github_token db]") {
		t.Errorf("calls = %v", calls)
	}
}

func TestMapMissing_SkipsPrompt(t *testing.T) {
	tests := []struct {
		name        string
		interactive bool
		mapping     map[string]string
	}{
		{name: "non-interactive", interactive: false, mapping: map[string]string{}},
		{name: "fully mapped", interactive: true, mapping: map[string]string{"a": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockPrompter(tt.interactive)
			got, err := MapMissing(context.Background(), mock, []string{"a"}, tt.mapping)
			if err != nil {
				t.Fatalf("MapMissing() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.mapping) {
				t.Errorf("MapMissing() = %v, want %v", got, tt.mapping)
			}
			if len(mock.Calls()) != 0 {
				t.Errorf("unexpected prompts: %v", mock.Calls())
			}
		})
	}
}

func TestMapMissing_PropagatesError(t *testing.T) {
	mock := NewMockPrompter(true)
	mock.Err = errors.New("interrupted")

	if _, err := MapMissing(context.Background(), mock, []string{"a"}, nil); !errors.Is(err, mock.Err) {
		t.Errorf("MapMissing() error = %v, want %v", err, mock.Err)
	}
}

func TestTerminalPrompter_NonInteractive(t *testing.T) {
	tp := NewTerminalPrompter(false)
	if tp.IsInteractive() {
		t.Error("IsInteractive() = true")
	}
	if _, err := tp.Confirm(context.Background(), "Import?", true); !errors.Is(err, ErrNonInteractive) {
		t.Errorf("Confirm() error = %v", err)
	}
	if _, err := tp.CredentialMapping(context.Background(), []string{"a"}, nil); !errors.Is(err, ErrNonInteractive) {
		t.Errorf("CredentialMapping() error = %v", err)
	}
}

func TestValidateCredentialID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"12", false},
		{"  abc123  ", false},
		{"a b", true},
		{"a\x00b", true},
		{strings.Repeat("x", MaxCredentialIDLength+1), true},
	}

	for _, tt := range tests {
		if err := ValidateCredentialID(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateCredentialID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestParseMapping(t *testing.T) {
	got, err := ParseMapping([]string{"slack_token=12", " db = 4 "})
	if err != nil {
		t.Fatalf("ParseMapping() error = %v", err)
	}
	if !reflect.DeepEqual(got, map[string]string{"slack_token": "12", "db": "4"}) {
		t.Errorf("ParseMapping() = %v", got)
	}

	for _, bad := range []string{"noequals", "=1", "name=", "name=a b"} {
		if _, err := ParseMapping([]string{bad}); err == nil {
			t.Errorf("ParseMapping(%q) should fail", bad)
		}
	}
}
