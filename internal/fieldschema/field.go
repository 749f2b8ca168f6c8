// Package fieldschema defines the recursive field schema that drives extraction.
//
// A schema is an ordered list of fields. Each field is a string leaf, a map of
// child fields, or a list whose entries follow an item schema (a string or a
// map of fields). Lists of lists are not supported.
//
// Schemas arrive as plain documents:
//
//	{
//	  "fields": [
//	    {"name": "invoice_date", "display_name": "Invoice date", "type": "string"},
//	    {"name": "company_info", "display_name": "Company", "type": "map",
//	     "fields": [{"name": "name", "display_name": "Name", "type": "string"}]},
//	    {"name": "items", "display_name": "Line items", "type": "list",
//	     "items": {"type": "map", "fields": [...]}}
//	  ]
//	}
//
// Traversals (template generation, target flattening, response reconciliation)
// assume the schema has passed Validate.
package fieldschema

// FieldType is the kind of a schema node.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeMap    FieldType = "map"
	TypeList   FieldType = "list"
)

// Valid reports whether t is a recognized field type. The empty type is
// accepted and means string, matching how schema documents are authored.
func (t FieldType) Valid() bool {
	switch t {
	case "", TypeString, TypeMap, TypeList:
		return true
	}
	return false
}

// Field is one node of the schema tree.
type Field struct {
	Name        string      `json:"name" yaml:"name"`
	DisplayName string      `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Type        FieldType   `json:"type,omitempty" yaml:"type,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field     `json:"fields,omitempty" yaml:"fields,omitempty"`
	Items       *ItemSchema `json:"items,omitempty" yaml:"items,omitempty"`
}

// ItemSchema describes each entry of a list field.
type ItemSchema struct {
	Type   FieldType `json:"type,omitempty" yaml:"type,omitempty"`
	Fields []Field   `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Schema is the ordered set of top-level fields for one application.
type Schema struct {
	Fields []Field `json:"fields" yaml:"fields"`
}

// Kind returns the field type, defaulting to string.
func (f Field) Kind() FieldType {
	if f.Type == "" {
		return TypeString
	}
	return f.Type
}

// Label is the human-readable name used in prompts.
func (f Field) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Name
}

// Kind returns the item type, defaulting to string.
func (it ItemSchema) Kind() FieldType {
	if it.Type == "" {
		return TypeString
	}
	return it.Type
}

// IsMap reports whether list entries are objects.
func (it *ItemSchema) IsMap() bool {
	return it != nil && it.Kind() == TypeMap
}
