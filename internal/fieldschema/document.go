package fieldschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentMetaSchema checks the shape of a schema document before it is decoded.
// Semantic rules that JSON Schema cannot express (sibling uniqueness, depth)
// are left to Validate.
const documentMetaSchema = `{
  "type": "object",
  "required": ["fields"],
  "properties": {
    "fields": {"type": "array", "items": {"$ref": "#/definitions/field"}}
  },
  "definitions": {
    "field": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "display_name": {"type": "string"},
        "description": {"type": "string"},
        "type": {"enum": ["string", "map", "list"]},
        "fields": {"type": "array", "items": {"$ref": "#/definitions/field"}},
        "items": {"$ref": "#/definitions/item"}
      }
    },
    "item": {
      "type": "object",
      "properties": {
        "type": {"enum": ["string", "map"]},
        "fields": {"type": "array", "items": {"$ref": "#/definitions/field"}}
      }
    }
  }
}`

var compileMetaSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fieldschema.json", strings.NewReader(documentMetaSchema)); err != nil {
		return nil, fmt.Errorf("failed to load document meta-schema: %w", err)
	}
	return compiler.Compile("fieldschema.json")
})

// Decode parses a JSON schema document and validates it. A bare array of
// fields is accepted and treated as {"fields": [...]}.
func Decode(data []byte) (*Schema, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &SchemaError{Reason: "document is not valid JSON", Err: err}
	}
	if arr, ok := doc.([]any); ok {
		doc = map[string]any{"fields": arr}
	}

	meta, err := compileMetaSchema()
	if err != nil {
		return nil, err
	}
	if err := meta.Validate(doc); err != nil {
		return nil, &SchemaError{Reason: "document does not match field schema format", Err: err}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize schema document: %w", err)
	}
	var s Schema
	dec := json.NewDecoder(bytes.NewReader(normalized))
	if err := dec.Decode(&s); err != nil {
		return nil, &SchemaError{Reason: "failed to decode fields", Err: err}
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeYAML parses a YAML schema document.
func DecodeYAML(data []byte) (*Schema, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, &SchemaError{Reason: "document is not valid YAML", Err: err}
	}
	return Decode(js)
}

// LoadFile reads a schema document from disk. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return Decode(data)
	}
}

// Encode renders the schema as an indented JSON document.
func Encode(s *Schema) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
