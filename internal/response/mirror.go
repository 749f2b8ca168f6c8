package response

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/docfields/internal/tree"
)

// MirrorIndex builds an index tree shaped exactly like values. An entry of
// indices is kept when it sits at the same position as a value leaf and holds
// valid token ids; every other leaf gets an empty id list.
func MirrorIndex(values, indices any) any {
	switch v := values.(type) {
	case *tree.Map:
		out := tree.NewMap()
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			out.Set(k, MirrorIndex(child, indexChild(indices, k)))
		}
		return out
	case []any:
		prev, _ := indices.([]any)
		out := make([]any, len(v))
		for i, e := range v {
			var p any
			if i < len(prev) {
				p = prev[i]
			}
			out[i] = MirrorIndex(e, p)
		}
		return out
	default:
		if ids, err := tokenIDs(indices, ""); err == nil {
			return ids
		}
		return []int{}
	}
}

func indexChild(indices any, key string) any {
	switch n := indices.(type) {
	case *tree.Map:
		v, _ := n.Get(key)
		return v
	case map[string]any:
		return n[key]
	}
	return nil
}

// Reindex rebuilds a stored index tree against corrected values. indices may
// be empty, in which case every leaf starts with no evidence.
func Reindex(values, indices json.RawMessage) (json.RawMessage, error) {
	v, err := tree.Decode(values)
	if err != nil {
		return nil, fmt.Errorf("failed to decode values: %w", err)
	}
	if _, ok := v.(*tree.Map); !ok {
		return nil, fmt.Errorf("values must be a JSON object")
	}
	var idx any
	if len(indices) > 0 {
		if idx, err = tree.Decode(indices); err != nil {
			return nil, fmt.Errorf("failed to decode indices: %w", err)
		}
	}
	out, err := json.Marshal(MirrorIndex(v, idx))
	if err != nil {
		return nil, fmt.Errorf("failed to encode indices: %w", err)
	}
	return out, nil
}
