// Package tree holds the ordered JSON object used for value and index trees.
//
// Go maps marshal with sorted keys; extraction output and prompt templates need the
// schema's field order instead, so every object node in a tree is a *Map.
//
// Node kinds:
//   - string        value leaf
//   - []int         index leaf (evidence token ids)
//   - *Map          object (map field, or list item of a map item schema)
//   - []any         list field; elements are *Map, string or []int
package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Map is a JSON object that remembers key insertion order.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set adds or replaces a key. Replacing keeps the original position.
func (m *Map) Set(key string, v any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// MarshalJSON writes the object with keys in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNode(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNode keeps empty id lists as [] instead of null.
func marshalNode(v any) ([]byte, error) {
	switch n := v.(type) {
	case []int:
		if n == nil {
			return []byte("[]"), nil
		}
	case []any:
		if n == nil {
			return []byte("[]"), nil
		}
	}
	return json.Marshal(v)
}

// Plain converts the tree into map[string]any / []any values for callers that
// do not care about key order (persistence, YAML output).
func (m *Map) Plain() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = plainNode(m.values[k])
	}
	return out
}

func plainNode(v any) any {
	switch n := v.(type) {
	case *Map:
		return n.Plain()
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = plainNode(e)
		}
		return out
	case []int:
		out := make([]int, len(n))
		copy(out, n)
		return out
	default:
		return v
	}
}

// Lookup resolves a dotted path such as "company_info.name" or
// "items.0.description". Numeric segments index into lists.
func (m *Map) Lookup(path string) (any, bool) {
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		switch n := cur.(type) {
		case *Map:
			v, ok := n.Get(seg)
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			cur = n[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// LeafPaths lists the dotted path of every leaf in order. Two trees with equal
// LeafPaths can be zipped leaf by leaf. Empty lists and maps count as leaves so
// that shape differences in them are visible.
func LeafPaths(m *Map) []string {
	var paths []string
	var walk func(v any, path string)
	walk = func(v any, path string) {
		switch n := v.(type) {
		case *Map:
			if n.Len() == 0 {
				paths = append(paths, path)
				return
			}
			for _, k := range n.keys {
				walk(n.values[k], join(path, k))
			}
		case []any:
			if len(n) == 0 {
				paths = append(paths, path)
				return
			}
			for i, e := range n {
				walk(e, join(path, strconv.Itoa(i)))
			}
		default:
			paths = append(paths, path)
		}
	}
	for _, k := range m.Keys() {
		walk(m.values[k], k)
	}
	return paths
}

func join(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

// Decode parses a JSON document keeping object key order. Objects become
// *Map, arrays []any, numbers json.Number; other scalars decode as usual.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func decodeNode(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		m := NewMap()
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := kt.(string)
			v, err := decodeNode(dec)
			if err != nil {
				return nil, err
			}
			m.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeNode(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", d)
	}
}
