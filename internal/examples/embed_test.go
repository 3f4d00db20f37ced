package examples

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/tombee/flowsmith/pkg/workflow/schema"
)

func TestList(t *testing.T) {
	examples, err := List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	if len(examples) == 0 {
		t.Fatal("List() returned no examples")
	}

	found := false
	for _, ex := range examples {
		if ex.Name == "webhook-to-slack" {
			found = true
			if ex.Title != "Webhook to Slack" {
				t.Errorf("unexpected title %q", ex.Title)
			}
			if ex.Description == "" {
				t.Error("webhook-to-slack example has no description")
			}
			if ex.FilePath != "webhook-to-slack.json" {
				t.Errorf("unexpected path %q", ex.FilePath)
			}
			break
		}
	}

	if !found {
		t.Error("webhook-to-slack example not found in list")
	}
}

// Every embedded example must be a valid workflow.
func TestExamplesAreValid(t *testing.T) {
	examples, err := List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	for _, ex := range examples {
		t.Run(ex.Name, func(t *testing.T) {
			content, err := Get(ex.Name)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			var doc any
			if err := json.Unmarshal(content, &doc); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			wf, err := schema.ValidateWorkflow(doc)
			if err != nil {
				t.Fatalf("ValidateWorkflow() failed: %v", err)
			}
			if len(wf.TestPayload) == 0 {
				t.Error("example has no test payload")
			}
		})
	}
}

func TestFS(t *testing.T) {
	matches, err := fs.Glob(FS(), "*.json")
	if err != nil {
		t.Fatalf("Glob() failed: %v", err)
	}
	examples, _ := List()
	if len(matches) != len(examples) {
		t.Errorf("FS has %d files, List has %d", len(matches), len(examples))
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"webhook-to-slack", false},
		{"nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := Get(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Error("Get() expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Get() unexpected error: %v", err)
				}
				if len(content) == 0 {
					t.Error("Get() returned empty content")
				}
			}
		})
	}
}

func TestExists(t *testing.T) {
	tests := []struct {
		name   string
		expect bool
	}{
		{"github-issue-triage", true},
		{"nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Exists(tt.name)
			if result != tt.expect {
				t.Errorf("Exists(%q) = %v, want %v", tt.name, result, tt.expect)
			}
		})
	}
}

func TestCopyTo(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		destPath string
		wantErr  bool
	}{
		{
			name:     "webhook-to-slack",
			destPath: filepath.Join(tmpDir, "test.json"),
			wantErr:  false,
		},
		{
			name:     "nonexistent",
			destPath: filepath.Join(tmpDir, "nonexistent.json"),
			wantErr:  true,
		},
		{
			name:     "schedule-http-report",
			destPath: filepath.Join(tmpDir, "subdir", "nested.json"),
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+"_to_"+filepath.Base(tt.destPath), func(t *testing.T) {
			err := CopyTo(tt.name, tt.destPath)
			if tt.wantErr {
				if err == nil {
					t.Error("CopyTo() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("CopyTo() unexpected error: %v", err)
			}

			content, err := os.ReadFile(tt.destPath)
			if err != nil {
				t.Fatalf("Failed to read copied file: %v", err)
			}
			original, err := Get(tt.name)
			if err != nil {
				t.Fatalf("Failed to get original content: %v", err)
			}
			if string(content) != string(original) {
				t.Error("Copied content does not match original")
			}
		})
	}
}
