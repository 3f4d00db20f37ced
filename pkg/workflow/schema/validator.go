// Package schema provides JSON Schema validation for generated workflow documents.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Validator validates data against a JSON Schema.
type Validator interface {
	// Validate checks if data conforms to the schema. A non-nil error is
	// always of type Violations.
	Validate(schema map[string]interface{}, data interface{}) error
}

// DefaultValidator implements the Validator interface with support for
// a subset of JSON Schema Draft 7 keywords. It collects every violation
// rather than stopping at the first one.
type DefaultValidator struct{}

// NewValidator creates a new schema validator.
func NewValidator() Validator {
	return &DefaultValidator{}
}

// Validate validates data against a JSON Schema.
// Supports: type, properties, required, enum, items, additionalProperties,
// minItems, maxItems
func (v *DefaultValidator) Validate(schema map[string]interface{}, data interface{}) error {
	var errs Violations
	v.validate(schema, data, "$", &errs)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validate is the recursive validation function with path tracking.
func (v *DefaultValidator) validate(schema map[string]interface{}, data interface{}, path string, errs *Violations) {
	schemaType, ok := schema["type"].(string)
	if !ok {
		return
	}
	if err := v.validateType(schemaType, data, path); err != nil {
		*errs = append(*errs, err)
		return
	}

	switch schemaType {
	case "object":
		v.validateObject(schema, data.(map[string]interface{}), path, errs)
	case "array":
		v.validateArray(schema, data.([]interface{}), path, errs)
	case "string":
		v.validateString(schema, data.(string), path, errs)
	}
}

// validateType checks if data matches the expected type.
func (v *DefaultValidator) validateType(schemaType string, data interface{}, path string) *ValidationError {
	switch schemaType {
	case "object":
		if _, ok := data.(map[string]interface{}); !ok {
			return NewValidationError(path, "type", fmt.Sprintf("expected object, got %s", typeName(data)))
		}
	case "array":
		if _, ok := data.([]interface{}); !ok {
			return NewValidationError(path, "type", fmt.Sprintf("expected array, got %s", typeName(data)))
		}
	case "string":
		if _, ok := data.(string); !ok {
			return NewValidationError(path, "type", fmt.Sprintf("expected string, got %s", typeName(data)))
		}
	case "number":
		switch data.(type) {
		case float64, int, int64, float32:
		default:
			return NewValidationError(path, "type", fmt.Sprintf("expected number, got %s", typeName(data)))
		}
	case "integer":
		switch n := data.(type) {
		case float64:
			// JSON numbers are float64, check if it's a whole number
			if n != float64(int64(n)) {
				return NewValidationError(path, "type", fmt.Sprintf("expected integer, got %v", n))
			}
		case int, int64:
		default:
			return NewValidationError(path, "type", fmt.Sprintf("expected integer, got %s", typeName(data)))
		}
	case "boolean":
		if _, ok := data.(bool); !ok {
			return NewValidationError(path, "type", fmt.Sprintf("expected boolean, got %s", typeName(data)))
		}
	default:
		return NewValidationError(path, "type", fmt.Sprintf("unsupported schema type: %s", schemaType))
	}
	return nil
}

// validateObject validates required fields, declared properties and, when
// the schema describes a record, every additional property.
func (v *DefaultValidator) validateObject(schema map[string]interface{}, obj map[string]interface{}, path string, errs *Violations) {
	if required, ok := schema["required"].([]interface{}); ok {
		for _, reqField := range required {
			fieldName, ok := reqField.(string)
			if !ok {
				continue
			}
			if _, exists := obj[fieldName]; !exists {
				*errs = append(*errs, NewValidationError(joinPath(path, fieldName), "required", fmt.Sprintf("missing required field: %s", fieldName)))
			}
		}
	}

	properties, _ := schema["properties"].(map[string]interface{})
	additional, _ := schema["additionalProperties"].(map[string]interface{})

	// Sorted so the violation list is stable across runs.
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, fieldName := range keys {
		fieldPath := joinPath(path, fieldName)
		if propSchema, ok := properties[fieldName].(map[string]interface{}); ok {
			v.validate(propSchema, obj[fieldName], fieldPath, errs)
			continue
		}
		if additional != nil {
			v.validate(additional, obj[fieldName], fieldPath, errs)
		}
		// Otherwise extra fields are allowed and ignored.
	}
}

// validateArray validates array bounds and items.
func (v *DefaultValidator) validateArray(schema map[string]interface{}, arr []interface{}, path string, errs *Violations) {
	if minItems, ok := intKeyword(schema, "minItems"); ok && len(arr) < minItems {
		*errs = append(*errs, NewValidationError(path, "minItems", fmt.Sprintf("expected at least %d items, got %d", minItems, len(arr))))
	}
	if maxItems, ok := intKeyword(schema, "maxItems"); ok && len(arr) > maxItems {
		*errs = append(*errs, NewValidationError(path, "maxItems", fmt.Sprintf("expected at most %d items, got %d", maxItems, len(arr))))
	}

	if items, ok := schema["items"].(map[string]interface{}); ok {
		for i, item := range arr {
			v.validate(items, item, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	}
}

// validateString validates string constraints (enum).
func (v *DefaultValidator) validateString(schema map[string]interface{}, str string, path string, errs *Violations) {
	enum, ok := schema["enum"].([]interface{})
	if !ok {
		return
	}
	for _, allowedValue := range enum {
		if allowedStr, ok := allowedValue.(string); ok && allowedStr == str {
			return
		}
	}
	enumJSON, _ := json.Marshal(enum)
	*errs = append(*errs, NewValidationError(path, "enum", fmt.Sprintf("value %q not in allowed values: %s", str, enumJSON)))
}

func intKeyword(schema map[string]interface{}, key string) (int, bool) {
	switch n := schema[key].(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func joinPath(path, field string) string {
	return path + "." + field
}

// typeName describes a decoded JSON value the way a JSON author would.
func typeName(data interface{}) string {
	switch data.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", data)
	}
}
