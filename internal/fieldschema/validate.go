package fieldschema

import (
	"fmt"
	"strings"
)

// MaxDepth bounds schema nesting. Deeper documents are rejected rather than walked.
const MaxDepth = 32

// IndicesKey is the top-level response key that carries the evidence index tree.
// It is reserved and cannot be used as a top-level field name.
const IndicesKey = "indices"

// SchemaError reports a malformed schema. Path is the dotted location of the
// offending field ("" for document-level problems).
type SchemaError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "invalid schema: " + e.Reason
	}
	return fmt.Sprintf("invalid schema at %s: %s", e.Path, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Validate checks structural invariants of the schema:
//   - every field has a name without dots, unique among its siblings
//   - types are string, map or list
//   - map fields have children, list fields have an item schema
//   - string fields carry neither children nor an item schema
//   - list items are strings or maps (no lists of lists)
func Validate(s *Schema) error {
	if s == nil || len(s.Fields) == 0 {
		return &SchemaError{Reason: "schema has no fields"}
	}
	for _, f := range s.Fields {
		if f.Name == IndicesKey {
			return &SchemaError{Path: f.Name, Reason: fmt.Sprintf("%q is reserved for the evidence index", IndicesKey)}
		}
	}
	return validateFields(s.Fields, "", 1)
}

func validateFields(fields []Field, prefix string, depth int) error {
	if depth > MaxDepth {
		return &SchemaError{Path: strings.TrimSuffix(prefix, "."), Reason: fmt.Sprintf("nesting exceeds %d levels", MaxDepth)}
	}

	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		path := prefix + f.Name
		if f.Name == "" {
			return &SchemaError{Path: fmt.Sprintf("%s[%d]", strings.TrimSuffix(prefix, "."), i), Reason: "field has no name"}
		}
		if strings.Contains(f.Name, ".") {
			return &SchemaError{Path: path, Reason: "field name must not contain '.'"}
		}
		if seen[f.Name] {
			return &SchemaError{Path: path, Reason: "duplicate field name"}
		}
		seen[f.Name] = true

		if !f.Type.Valid() {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("unrecognized type %q", f.Type)}
		}

		switch f.Kind() {
		case TypeString:
			if len(f.Fields) > 0 || f.Items != nil {
				return &SchemaError{Path: path, Reason: "string field cannot have fields or items"}
			}
		case TypeMap:
			if f.Items != nil {
				return &SchemaError{Path: path, Reason: "map field cannot have items"}
			}
			if len(f.Fields) == 0 {
				return &SchemaError{Path: path, Reason: "map field requires fields"}
			}
			if err := validateFields(f.Fields, path+".", depth+1); err != nil {
				return err
			}
		case TypeList:
			if len(f.Fields) > 0 {
				return &SchemaError{Path: path, Reason: "list field declares fields; use items"}
			}
			if f.Items == nil {
				return &SchemaError{Path: path, Reason: "list field requires items"}
			}
			if err := validateItems(f.Items, path, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateItems(it *ItemSchema, path string, depth int) error {
	if !it.Type.Valid() {
		return &SchemaError{Path: path, Reason: fmt.Sprintf("unrecognized item type %q", it.Type)}
	}
	switch it.Kind() {
	case TypeList:
		return &SchemaError{Path: path, Reason: "lists of lists are not supported"}
	case TypeString:
		if len(it.Fields) > 0 {
			return &SchemaError{Path: path, Reason: "string items cannot have fields"}
		}
	case TypeMap:
		if len(it.Fields) == 0 {
			return &SchemaError{Path: path, Reason: "map items require fields"}
		}
		return validateFields(it.Fields, path+".", depth+1)
	}
	return nil
}
