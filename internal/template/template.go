// Package template derives output skeletons from a field schema.
//
// The value template shows the model the exact JSON shape to return; the index
// template shows the parallel evidence structure (lists of OCR token ids).
// Both come out of a single recursive walk so they always zip leaf for leaf.
package template

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/tree"
)

// Unified pairs the value template with its index template.
type Unified struct {
	Values  *tree.Map
	Indices *tree.Map
}

// GenerateUnified walks the schema once and builds both templates.
// String leaves become "" and [] respectively; list fields hold a single
// exemplar entry shaped like the item schema.
func GenerateUnified(s *fieldschema.Schema) Unified {
	if s == nil {
		return Unified{Values: tree.NewMap(), Indices: tree.NewMap()}
	}
	values, indices := walk(s.Fields)
	return Unified{Values: values, Indices: indices}
}

// GenerateValue returns only the value template.
func GenerateValue(s *fieldschema.Schema) *tree.Map {
	return GenerateUnified(s).Values
}

// GenerateIndex returns only the index template.
func GenerateIndex(s *fieldschema.Schema) *tree.Map {
	return GenerateUnified(s).Indices
}

func walk(fields []fieldschema.Field) (*tree.Map, *tree.Map) {
	values := tree.NewMap()
	indices := tree.NewMap()
	for _, f := range fields {
		switch f.Kind() {
		case fieldschema.TypeMap:
			v, i := walk(f.Fields)
			values.Set(f.Name, v)
			indices.Set(f.Name, i)
		case fieldschema.TypeList:
			if f.Items.IsMap() {
				v, i := walk(f.Items.Fields)
				values.Set(f.Name, []any{v})
				indices.Set(f.Name, []any{i})
			} else {
				values.Set(f.Name, []any{""})
				indices.Set(f.Name, []any{[]int{}})
			}
		default:
			values.Set(f.Name, "")
			indices.Set(f.Name, []int{})
		}
	}
	return values, indices
}

// Combined returns the single response document the model is asked to emit:
// the value template with the index template under "indices".
func (u Unified) Combined() *tree.Map {
	out := tree.NewMap()
	for _, k := range u.Values.Keys() {
		v, _ := u.Values.Get(k)
		out.Set(k, v)
	}
	out.Set(fieldschema.IndicesKey, u.Indices)
	return out
}

// Render formats a tree as indented JSON in schema key order.
func Render(m *tree.Map) (string, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return string(b), nil
}
