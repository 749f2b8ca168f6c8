package fieldschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ResponseJSONSchema derives the JSON Schema of a complete extraction response:
// every field of s at the top level plus an "indices" object of the same shape
// whose leaves are lists of token ids.
//
// Objects are closed (additionalProperties false) and list every property as
// required, which is what strict structured-output modes expect.
func ResponseJSONSchema(s *Schema) map[string]any {
	root := objectSchema(s.Fields, valueLeaf)
	props := root["properties"].(map[string]any)
	props[IndicesKey] = objectSchema(s.Fields, indexLeaf)
	root["required"] = append(root["required"].([]string), IndicesKey)
	return root
}

// ValueJSONSchema derives the JSON Schema of the value tree alone.
func ValueJSONSchema(s *Schema) map[string]any {
	return objectSchema(s.Fields, valueLeaf)
}

func valueLeaf() map[string]any {
	return map[string]any{"type": "string"}
}

func indexLeaf() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "integer", "minimum": 0},
	}
}

func objectSchema(fields []Field, leaf func() map[string]any) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props[f.Name] = fieldSchema(f, leaf)
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func fieldSchema(f Field, leaf func() map[string]any) map[string]any {
	var node map[string]any
	switch f.Kind() {
	case TypeMap:
		node = objectSchema(f.Fields, leaf)
	case TypeList:
		var item map[string]any
		if f.Items.IsMap() {
			item = objectSchema(f.Items.Fields, leaf)
		} else {
			item = leaf()
		}
		node = map[string]any{"type": "array", "items": item}
	default:
		node = leaf()
	}
	if desc := describe(f); desc != "" {
		node["description"] = desc
	}
	return node
}

func describe(f Field) string {
	parts := make([]string, 0, 2)
	if f.DisplayName != "" && f.DisplayName != f.Name {
		parts = append(parts, f.DisplayName)
	}
	if f.Description != "" {
		parts = append(parts, f.Description)
	}
	return strings.Join(parts, ": ")
}

// CompileResponseSchema compiles ResponseJSONSchema for validating parsed
// model output.
func CompileResponseSchema(s *Schema) (*jsonschema.Schema, error) {
	return compile("response.json", ResponseJSONSchema(s))
}

// CompileValueSchema compiles ValueJSONSchema for validating edited values.
func CompileValueSchema(s *Schema) (*jsonschema.Schema, error) {
	return compile("values.json", ValueJSONSchema(s))
}

// ValidateValues checks an edited value tree against the schema.
func ValidateValues(s *Schema, values json.RawMessage) error {
	compiled, err := CompileValueSchema(s)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(values, &doc); err != nil {
		return fmt.Errorf("failed to decode values: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("values do not match the schema: %w", err)
	}
	return nil
}

func compile(name string, doc map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	return compiled, nil
}
