// Package response turns free-form model output into a value tree and an
// evidence index tree shaped exactly like the field schema.
//
// Parsing never fails outright. Unparseable output yields an error marker in
// the value tree, and index trees that do not mirror the values are replaced
// with empty ones. Every degradation is reported on the Result.
package response

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/tree"
)

// Result is the outcome of parsing one model response.
type Result struct {
	Values  *tree.Map
	Indices *tree.Map

	// Err is a *ResponseFormatError when no JSON object could be recovered.
	Err error

	// Issues records absorbed problems: index mismatches and schema
	// violations in the raw response.
	Issues []string
}

// OK reports whether the response held a JSON object.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Document recombines the trees into the single response document the model
// is asked to produce.
func (r *Result) Document() *tree.Map {
	out := tree.NewMap()
	for _, k := range r.Values.Keys() {
		v, _ := r.Values.Get(k)
		out.Set(k, v)
	}
	out.Set(fieldschema.IndicesKey, r.Indices)
	return out
}

// Parse extracts, reconciles and splits a model response against s.
func Parse(text string, s *fieldschema.Schema) *Result {
	obj, err := extractObject(text)
	if err != nil {
		values := tree.NewMap()
		values.Set("error", ErrorMessage)
		return &Result{Values: values, Indices: tree.NewMap(), Err: err}
	}

	var fields []fieldschema.Field
	if s != nil {
		fields = s.Fields
	}

	res := &Result{}
	res.Values = reconcileValues(fields, obj)

	rawIndices, ok := obj[fieldschema.IndicesKey]
	if !ok {
		res.Indices = emptyIndex(fields, res.Values)
		res.Issues = append(res.Issues, "indices: missing")
	} else if idx, err := reconcileIndex(fields, rawIndices, res.Values, fieldschema.IndicesKey); err != nil {
		res.Indices = emptyIndex(fields, res.Values)
		res.Issues = append(res.Issues, err.Error())
	} else {
		res.Indices = idx
	}

	if s != nil {
		res.Issues = append(res.Issues, schemaIssues(s, obj)...)
	}
	return res
}

func reconcileValues(fields []fieldschema.Field, raw map[string]any) *tree.Map {
	out := tree.NewMap()
	for _, f := range fields {
		v := raw[f.Name]
		switch f.Kind() {
		case fieldschema.TypeMap:
			child, _ := v.(map[string]any)
			out.Set(f.Name, reconcileValues(f.Fields, child))
		case fieldschema.TypeList:
			out.Set(f.Name, reconcileList(f.Items, v))
		default:
			out.Set(f.Name, toText(v))
		}
	}
	return out
}

func reconcileList(items *fieldschema.ItemSchema, v any) []any {
	raw, ok := v.([]any)
	if !ok {
		return []any{}
	}
	out := make([]any, 0, len(raw))
	for _, e := range raw {
		if items.IsMap() {
			obj, _ := e.(map[string]any)
			out = append(out, reconcileValues(items.Fields, obj))
			continue
		}
		out = append(out, toText(e))
	}
	return out
}

// toText renders any JSON value as leaf text.
func toText(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case json.Number:
		return n.String()
	case bool:
		return strconv.FormatBool(n)
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	default:
		b, err := json.Marshal(n)
		if err != nil {
			return fmt.Sprint(n)
		}
		return string(b)
	}
}

// reconcileIndex accepts raw only if it mirrors values exactly.
func reconcileIndex(fields []fieldschema.Field, raw any, values *tree.Map, path string) (*tree.Map, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object, got %s", path, jsonKind(raw))
	}
	out := tree.NewMap()
	for _, f := range fields {
		p := path + "." + f.Name
		rv, ok := obj[f.Name]
		if !ok {
			return nil, fmt.Errorf("%s: missing", p)
		}
		vv, _ := values.Get(f.Name)

		switch f.Kind() {
		case fieldschema.TypeMap:
			child, err := reconcileIndex(f.Fields, rv, vv.(*tree.Map), p)
			if err != nil {
				return nil, err
			}
			out.Set(f.Name, child)
		case fieldschema.TypeList:
			list, err := reconcileIndexList(f.Items, rv, vv.([]any), p)
			if err != nil {
				return nil, err
			}
			out.Set(f.Name, list)
		default:
			ids, err := tokenIDs(rv, p)
			if err != nil {
				return nil, err
			}
			out.Set(f.Name, ids)
		}
	}
	return out, nil
}

func reconcileIndexList(items *fieldschema.ItemSchema, raw any, values []any, path string) ([]any, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected list, got %s", path, jsonKind(raw))
	}
	if len(list) != len(values) {
		return nil, fmt.Errorf("%s: %d index entries for %d values", path, len(list), len(values))
	}
	out := make([]any, len(list))
	for i, e := range list {
		p := path + "." + strconv.Itoa(i)
		if items.IsMap() {
			child, err := reconcileIndex(items.Fields, e, values[i].(*tree.Map), p)
			if err != nil {
				return nil, err
			}
			out[i] = child
			continue
		}
		ids, err := tokenIDs(e, p)
		if err != nil {
			return nil, err
		}
		out[i] = ids
	}
	return out, nil
}

// tokenIDs decodes an index leaf, dropping repeated ids and keeping first
// occurrence order.
func tokenIDs(raw any, path string) ([]int, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected list of token ids, got %s", path, jsonKind(raw))
	}
	ids := make([]int, 0, len(list))
	seen := make(map[int]struct{}, len(list))
	for _, e := range list {
		id, ok := tokenID(e)
		if !ok {
			return nil, fmt.Errorf("%s: invalid token id %v", path, e)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func tokenID(v any) (int, bool) {
	var n int64
	switch t := v.(type) {
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, false
		}
		n = i
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		n = int64(t)
	default:
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	return int(n), true
}

// emptyIndex builds an index tree mirroring values with every leaf empty.
func emptyIndex(fields []fieldschema.Field, values *tree.Map) *tree.Map {
	out := tree.NewMap()
	for _, f := range fields {
		vv, _ := values.Get(f.Name)
		switch f.Kind() {
		case fieldschema.TypeMap:
			child, _ := vv.(*tree.Map)
			out.Set(f.Name, emptyIndex(f.Fields, child))
		case fieldschema.TypeList:
			items, _ := vv.([]any)
			list := make([]any, len(items))
			for i, e := range items {
				if f.Items.IsMap() {
					child, _ := e.(*tree.Map)
					list[i] = emptyIndex(f.Items.Fields, child)
				} else {
					list[i] = []int{}
				}
			}
			out.Set(f.Name, list)
		default:
			out.Set(f.Name, []int{})
		}
	}
	return out
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
