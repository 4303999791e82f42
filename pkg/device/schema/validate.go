package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator validates documents against named JSON Schema documents.
// Schemas are compiled once on first use and cached by name.
type Validator struct {
	mu       sync.RWMutex
	raw      map[string]json.RawMessage
	compiled map[string]*jsonschema.Schema
}

// NewValidator creates a new Validator with no registered schemas.
func NewValidator() *Validator {
	return &Validator{
		raw:      make(map[string]json.RawMessage),
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register adds or replaces a named schema document.
func (v *Validator) Register(name string, schemaDoc json.RawMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.raw[name] = schemaDoc
	delete(v.compiled, name)
}

// Validate validates doc against the named schema. doc may be any value that
// marshals to JSON (decoded YAML, structs, maps).
func (v *Validator) Validate(name string, doc any) error {
	compiled, err := v.compile(name)
	if err != nil {
		return err
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}

	return compiled.Validate(inst)
}

func (v *Validator) compile(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	if s, ok := v.compiled[name]; ok {
		v.mu.RUnlock()
		return s, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	// Double-check after acquiring write lock
	if s, ok := v.compiled[name]; ok {
		return s, nil
	}

	doc, ok := v.raw[name]
	if !ok {
		return nil, fmt.Errorf("schema %q is not registered", name)
	}

	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema %q: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := name + ".json"
	if err := c.AddResource(url, schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %q: %w", name, err)
	}

	v.compiled[name] = compiled
	return compiled, nil
}
