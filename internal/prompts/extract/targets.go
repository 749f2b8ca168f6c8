package extract

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/docfields/internal/fieldschema"
)

// Target is one flattened schema field as shown to the model.
type Target struct {
	Path  string                // dotted field name, e.g. items.description
	Label string                // display label with parent prefix
	Type  fieldschema.FieldType // declared type
}

// Line renders the target without its number: "Company > Name (string)".
func (t Target) Line() string {
	return fmt.Sprintf("%s (%s)", t.Label, t.Type)
}

// Flatten lists every field in depth-first pre-order. Map children are
// labelled "Parent > Child"; fields of list items are labelled
// "Parent (each item) > Child" and appear once regardless of item count.
func Flatten(s *fieldschema.Schema) []Target {
	if s == nil {
		return nil
	}
	var out []Target
	flatten(s.Fields, "", "", &out)
	return out
}

func flatten(fields []fieldschema.Field, pathPrefix, labelPrefix string, out *[]Target) {
	for _, f := range fields {
		path := f.Name
		if pathPrefix != "" {
			path = pathPrefix + "." + f.Name
		}
		label := f.Label()
		if labelPrefix != "" {
			label = labelPrefix + " > " + label
		}
		*out = append(*out, Target{Path: path, Label: label, Type: f.Kind()})

		switch f.Kind() {
		case fieldschema.TypeMap:
			flatten(f.Fields, path, label, out)
		case fieldschema.TypeList:
			if f.Items.IsMap() {
				flatten(f.Items.Fields, path, label+" (each item)", out)
			}
		}
	}
}

// Numbered renders targets as a numbered list, one per line.
func Numbered(targets []Target) string {
	lines := make([]string, len(targets))
	for i, t := range targets {
		lines[i] = fmt.Sprintf("%d. %s", i+1, t.Line())
	}
	return strings.Join(lines, "\n")
}
