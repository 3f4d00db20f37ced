// Package examples embeds sample n8n workflows. They seed the catalog when
// no workflow directory is configured and can be copied out as starting
// points.
package examples

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed workflows/*.json
var embeddedFS embed.FS

const dir = "workflows"

// Example represents metadata about an embedded example workflow
type Example struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FilePath    string `json:"path"`
}

// FS returns the embedded workflows rooted at their directory, so paths
// look like "webhook-to-slack.json".
func FS() fs.FS {
	sub, err := fs.Sub(embeddedFS, dir)
	if err != nil {
		panic(fmt.Sprintf("examples: %v", err))
	}
	return sub
}

// List returns all available embedded examples
func List() ([]Example, error) {
	entries, err := embeddedFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded examples: %w", err)
	}

	var examples []Example
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		content, err := Get(name)
		if err != nil {
			return nil, err
		}
		title, description := describe(content)
		examples = append(examples, Example{
			Name:        name,
			Title:       title,
			Description: description,
			FilePath:    entry.Name(),
		})
	}

	return examples, nil
}

// Get returns the content of a specific example by name
func Get(name string) ([]byte, error) {
	content, err := embeddedFS.ReadFile(dir + "/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("example %q not found: %w", name, err)
	}
	return content, nil
}

// Exists checks if an example with the given name exists
func Exists(name string) bool {
	_, err := Get(name)
	return err == nil
}

// CopyTo writes an example to the filesystem at the specified destination
func CopyTo(name string, destPath string) error {
	content, err := Get(name)
	if err != nil {
		return err
	}

	// Ensure the destination directory exists
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := os.WriteFile(destPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write example file: %w", err)
	}

	return nil
}

// describe reads the workflow name and preview of an example.
func describe(content []byte) (title, description string) {
	var doc struct {
		Name    string `json:"name"`
		Preview string `json:"__preview"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		return "", "Example workflow"
	}
	if doc.Preview == "" {
		doc.Preview = "Example workflow"
	}
	return doc.Name, doc.Preview
}
