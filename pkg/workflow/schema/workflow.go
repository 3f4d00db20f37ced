package schema

import (
	"github.com/tombee/flowsmith/pkg/workflow"
)

// ValidateWorkflow checks a coerced document against the embedded workflow
// schema and decodes it. Any violation rejects the whole document; the
// returned error is then of type Violations and lists all of them.
//
// Only structure is checked. Reachability and reference integrity are left
// to the linter.
func ValidateWorkflow(doc interface{}) (*workflow.Workflow, error) {
	s, err := WorkflowSchema()
	if err != nil {
		return nil, err
	}
	if err := NewValidator().Validate(s, doc); err != nil {
		return nil, err
	}
	// The schema guarantees the root is an object.
	return workflow.FromMap(doc.(map[string]interface{}))
}
