package schema

import (
	"encoding/json"
	"testing"
)

func outputSetSchema() json.RawMessage {
	return json.RawMessage(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"required": ["value"],
		"properties": {
			"value": {"type": "integer", "minimum": 0, "maximum": 255},
			"wait": {"type": "boolean"}
		},
		"additionalProperties": false
	}`)
}

func newValidator() *Validator {
	v := NewValidator()
	v.Register("output_set", outputSetSchema())
	return v
}

func TestValidate_ValidPayload(t *testing.T) {
	v := newValidator()

	err := v.Validate("output_set", map[string]any{
		"value": 200,
		"wait":  true,
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_ValueOnly(t *testing.T) {
	v := newValidator()

	err := v.Validate("output_set", map[string]any{
		"value": 0,
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	v := newValidator()

	err := v.Validate("output_set", map[string]any{
		"wait": false,
	})
	if err == nil {
		t.Error("expected validation error for missing value")
	}
}

func TestValidate_OutOfRange(t *testing.T) {
	v := newValidator()

	err := v.Validate("output_set", map[string]any{
		"value": 300,
	})
	if err == nil {
		t.Error("expected validation error for out-of-range value")
	}
}

func TestValidate_UnknownProperty(t *testing.T) {
	v := newValidator()

	err := v.Validate("output_set", map[string]any{
		"value":   1,
		"unknown": "value",
	})
	if err == nil {
		t.Error("expected validation error for unknown property")
	}
}

func TestValidate_StructDocument(t *testing.T) {
	v := newValidator()

	doc := struct {
		Value int  `json:"value"`
		Wait  bool `json:"wait"`
	}{Value: 12, Wait: true}

	if err := v.Validate("output_set", doc); err != nil {
		t.Errorf("expected struct document to validate, got: %v", err)
	}
}

func TestValidate_UnregisteredSchema(t *testing.T) {
	v := NewValidator()

	if err := v.Validate("missing", map[string]any{}); err == nil {
		t.Error("expected error for unregistered schema")
	}
}

func TestValidate_ReRegisterRecompiles(t *testing.T) {
	v := newValidator()
	if err := v.Validate("output_set", map[string]any{"value": 300}); err == nil {
		t.Fatal("expected out-of-range error before re-register")
	}

	v.Register("output_set", json.RawMessage(`{"type": "object"}`))
	if err := v.Validate("output_set", map[string]any{"value": 300}); err != nil {
		t.Errorf("expected permissive schema to accept payload, got: %v", err)
	}
}
