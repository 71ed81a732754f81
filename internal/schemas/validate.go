// Package schemas validates chunk payloads against their per-kind JSON
// Schemas at the store boundary.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed definitions/*.json
var definitionsFS embed.FS

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema for %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema for %s: %s", e.Kind, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

// compile loads every embedded schema once. Schema files are named
// <kind>.json after the chunk kind they validate.
func compile() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[string]*gojsonschema.Schema)

		entries, err := definitionsFS.ReadDir("definitions")
		if err != nil {
			compileErr = fmt.Errorf("failed to read embedded schemas: %w", err)
			return
		}

		for _, entry := range entries {
			name := strings.TrimSuffix(entry.Name(), ".json")
			raw, err := definitionsFS.ReadFile("definitions/" + entry.Name())
			if err != nil {
				compileErr = &SchemaLoadError{Kind: name, Message: "failed to read schema", Cause: err}
				return
			}

			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				compileErr = &SchemaLoadError{Kind: name, Message: "failed to compile schema", Cause: err}
				return
			}
			compiled[name] = schema
		}
	})
	return compiled, compileErr
}

// ValidateChunk validates a serialized chunk payload against the schema
// for its kind. An unknown kind is a load error, not a validation error.
func ValidateChunk(kind string, payload []byte) error {
	schemaSet, err := compile()
	if err != nil {
		return err
	}

	schema, ok := schemaSet[kind]
	if !ok {
		return &SchemaLoadError{Kind: kind, Message: "no schema defined"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return &SchemaLoadError{Kind: kind, Message: "validation failed during load", Cause: err}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
