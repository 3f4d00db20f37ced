package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tombee/flowsmith/schemas"
)

var (
	workflowSchemaOnce sync.Once
	workflowSchema     map[string]interface{}
	workflowSchemaErr  error
)

// GetEmbeddedSchema returns the embedded workflow JSON Schema as raw bytes.
//
// The schema is embedded via the schemas package at the module root level,
// since go:embed directives cannot reference parent directories.
func GetEmbeddedSchema() []byte {
	return schemas.GetWorkflowSchema()
}

// WorkflowSchema returns the decoded embedded schema. It is parsed once.
func WorkflowSchema() (map[string]interface{}, error) {
	workflowSchemaOnce.Do(func() {
		if err := json.Unmarshal(GetEmbeddedSchema(), &workflowSchema); err != nil {
			workflowSchemaErr = fmt.Errorf("parsing embedded workflow schema: %w", err)
		}
	})
	return workflowSchema, workflowSchemaErr
}
