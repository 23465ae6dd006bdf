package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// themesSchema is the shape the analytics prompt asks the model for.
var themesSchema = []byte(`{
  "type": "object",
  "required": ["themes"],
  "properties": {
    "themes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "value"],
        "properties": {
          "name": {"type": "string"},
          "value": {"type": "number"}
        }
      }
    }
  }
}`)

// validator checks decoded model output against a compiled JSON Schema.
type validator struct {
	schema *jsonschema.Schema
}

func newValidator(schemaData []byte) (*validator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &validator{schema: schema}, nil
}

func (v *validator) validate(instance interface{}) error {
	result := v.schema.Validate(instance)
	if result.IsValid() {
		return nil
	}

	var messages []string
	for field, evalErr := range result.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	sort.Strings(messages)
	return fmt.Errorf("themes validation failed: %s", strings.Join(messages, "; "))
}
