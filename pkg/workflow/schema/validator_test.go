package schema

import (
	"errors"
	"testing"
)

// TestValidateType covers type validation for every supported keyword type.
func TestValidateType(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		schema  map[string]interface{}
		data    interface{}
		wantErr bool
	}{
		{"valid string", map[string]interface{}{"type": "string"}, "hello", false},
		{"invalid string (number given)", map[string]interface{}{"type": "string"}, 42.0, true},
		{"valid number (float)", map[string]interface{}{"type": "number"}, 42.5, false},
		{"valid number (int)", map[string]interface{}{"type": "number"}, 42, false},
		{"invalid number (string given)", map[string]interface{}{"type": "number"}, "42", true},
		{"valid integer", map[string]interface{}{"type": "integer"}, float64(42), false},
		{"invalid integer (float given)", map[string]interface{}{"type": "integer"}, 42.5, true},
		{"valid boolean", map[string]interface{}{"type": "boolean"}, true, false},
		{"invalid boolean", map[string]interface{}{"type": "boolean"}, "true", true},
		{"valid object", map[string]interface{}{"type": "object"}, map[string]interface{}{"key": "value"}, false},
		{"invalid object", map[string]interface{}{"type": "object"}, []interface{}{}, true},
		{"null object", map[string]interface{}{"type": "object"}, nil, true},
		{"valid array", map[string]interface{}{"type": "array"}, []interface{}{"a", "b"}, false},
		{"invalid array", map[string]interface{}{"type": "array"}, map[string]interface{}{}, true},
		{"no type constraint", map[string]interface{}{}, 12.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.schema, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidateCollectsAll checks that every violation is reported, in a
// stable order, rather than only the first.
func TestValidateCollectsAll(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name", "active"},
		"properties": map[string]interface{}{
			"name":  map[string]interface{}{"type": "string"},
			"count": map[string]interface{}{"type": "integer"},
			"tags":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
	}
	data := map[string]interface{}{
		"name":  7.0,
		"count": 1.5,
		"tags":  []interface{}{"ok", false},
	}

	err := NewValidator().Validate(schema, data)
	var violations Violations
	if !errors.As(err, &violations) {
		t.Fatalf("expected Violations, got %T", err)
	}

	want := []Violation{
		{Path: "$.active", Message: "missing required field: active", Code: "required"},
		{Path: "$.count", Message: "expected integer, got 1.5", Code: "invalid_type"},
		{Path: "$.name", Message: "expected string, got number", Code: "invalid_type"},
		{Path: "$.tags[1]", Message: "expected string, got boolean", Code: "invalid_type"},
	}
	got := violations.List()
	if len(got) != len(want) {
		t.Fatalf("got %d violations, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("violation %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestValidateAdditionalProperties(t *testing.T) {
	schema := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": map[string]interface{}{"type": "string"},
	}

	if err := NewValidator().Validate(schema, map[string]interface{}{"a": "x", "b": "y"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := NewValidator().Validate(schema, map[string]interface{}{"a": "x", "b": 1.0})
	if err == nil {
		t.Fatal("expected error for non-string record value")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Path != "$.b" {
		t.Errorf("expected violation at $.b, got %v", err)
	}
}

func TestValidateItemBounds(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "array",
		"minItems": float64(2),
		"maxItems": float64(2),
		"items":    map[string]interface{}{"type": "number"},
	}

	tests := []struct {
		name     string
		data     []interface{}
		wantCode string
	}{
		{"exact", []interface{}{1.0, 2.0}, ""},
		{"too short", []interface{}{1.0}, "too_small"},
		{"too long", []interface{}{1.0, 2.0, 3.0}, "too_big"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidator().Validate(schema, tt.data)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var violations Violations
			if !errors.As(err, &violations) || violations[0].Code() != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestValidateEnum(t *testing.T) {
	schema := map[string]interface{}{
		"type": "string",
		"enum": []interface{}{"error", "warn", "info"},
	}

	if err := NewValidator().Validate(schema, "warn"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := NewValidator().Validate(schema, "fatal")
	if !errors.Is(err, &ValidationError{Path: "$", Keyword: "enum"}) {
		t.Errorf("expected enum violation, got %v", err)
	}
}

func TestViolationsError(t *testing.T) {
	v := Violations{
		NewValidationError("$.a", "required", "missing required field: a"),
		NewValidationError("$.b", "type", "expected string, got number"),
	}
	want := "validation failed at $.a (required): missing required field: a (and 1 more)"
	if v.Error() != want {
		t.Errorf("Error() = %q, want %q", v.Error(), want)
	}
	if v.Summary() != "$.a: missing required field: a\n$.b: expected string, got number" {
		t.Errorf("unexpected summary: %q", v.Summary())
	}
}
