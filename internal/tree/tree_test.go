package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Map {
	item := NewMap()
	item.Set("description", "Widget")
	item.Set("quantity", "3")

	m := NewMap()
	m.Set("zeta", "last-alphabetically")
	m.Set("alpha", "")
	m.Set("items", []any{item})
	m.Set("ids", []int{})
	return m
}

func TestMap_MarshalPreservesOrder(t *testing.T) {
	b, err := json.Marshal(sample())
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"last-alphabetically","alpha":"","items":[{"description":"Widget","quantity":"3"}],"ids":[]}`, string(b))
}

func TestMap_SetReplaceKeepsPosition(t *testing.T) {
	m := sample()
	m.Set("zeta", "changed")
	assert.Equal(t, []string{"zeta", "alpha", "items", "ids"}, m.Keys())
	v, ok := m.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, "changed", v)
}

func TestMap_NilIDListMarshalsEmpty(t *testing.T) {
	m := NewMap()
	m.Set("ids", []int(nil))
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"ids":[]}`, string(b))
}

func TestMap_Lookup(t *testing.T) {
	m := sample()

	v, ok := m.Lookup("items.0.description")
	require.True(t, ok)
	assert.Equal(t, "Widget", v)

	_, ok = m.Lookup("items.1.description")
	assert.False(t, ok)
	_, ok = m.Lookup("alpha.beta")
	assert.False(t, ok)
}

func TestMap_Plain(t *testing.T) {
	plain := sample().Plain()
	items, ok := plain["items"].([]any)
	require.True(t, ok)
	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "3", first["quantity"])
	assert.Equal(t, []int{}, plain["ids"])
}

func TestLeafPaths(t *testing.T) {
	assert.Equal(t, []string{
		"zeta",
		"alpha",
		"items.0.description",
		"items.0.quantity",
		"ids",
	}, LeafPaths(sample()))
}

func TestDecode_KeepsOrder(t *testing.T) {
	v, err := Decode([]byte(`{"zeta":"z","alpha":{"b":1,"a":[true,null]}}`))
	require.NoError(t, err)
	m, ok := v.(*Map)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha"}, m.Keys())

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":{"b":1,"a":[true,null]}}`, string(b))

	_, err = Decode([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"a":`))
	assert.Error(t, err)
}
