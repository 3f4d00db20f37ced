// Package schemas provides access to embedded JSON schemas.
package schemas

import (
	_ "embed"
)

// Embed the workflow JSON Schema into the binary. It describes the n8n
// document shape that generated workflows must match before they are
// accepted.
//
//go:embed workflow.schema.json
var workflowSchema []byte

// GetWorkflowSchema returns the embedded workflow JSON Schema as raw bytes.
func GetWorkflowSchema() []byte {
	return workflowSchema
}

// GetWorkflowSchemaString returns the embedded workflow JSON Schema as a string.
// This is a convenience method for use cases that need the schema as a string.
func GetWorkflowSchemaString() string {
	return string(workflowSchema)
}
