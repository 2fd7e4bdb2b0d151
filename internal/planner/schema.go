package planner

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

//go:embed schema/input.schema.json
var inputSchemaJSON string

// SchemaValidator checks raw requests against the embedded input schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

// NewSchemaValidator compiles the embedded schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(inputSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate returns a *roadmap.ValidationError listing every schema
// violation in raw, or nil.
func (v *SchemaValidator) Validate(raw []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &roadmap.ValidationError{Problems: []string{fmt.Sprintf("decode input: %v", err)}}
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return &roadmap.ValidationError{Problems: problems}
}
