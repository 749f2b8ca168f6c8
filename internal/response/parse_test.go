package response

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/template"
	"github.com/jackzampolin/docfields/internal/tree"
)

func invoiceSchema() *fieldschema.Schema {
	return &fieldschema.Schema{Fields: []fieldschema.Field{
		{Name: "company_info", Type: fieldschema.TypeMap, Fields: []fieldschema.Field{
			{Name: "name"},
			{Name: "address"},
		}},
		{Name: "items", Type: fieldschema.TypeList, Items: &fieldschema.ItemSchema{
			Type: fieldschema.TypeMap,
			Fields: []fieldschema.Field{
				{Name: "description"},
				{Name: "quantity"},
			},
		}},
	}}
}

const invoiceResponse = `{"company_info":{"name":"Acme Corp","address":""},"items":[{"description":"Widget","quantity":"3"}],"indices":{"company_info":{"name":[0],"address":[]},"items":[{"description":[],"quantity":[]}]}}`

func TestParse_CompanyInfoExample(t *testing.T) {
	res := Parse(invoiceResponse, invoiceSchema())
	require.NoError(t, res.Err)
	assert.Empty(t, res.Issues)

	name, ok := res.Values.Lookup("company_info.name")
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", name)

	ids, ok := res.Indices.Lookup("company_info.name")
	require.True(t, ok)
	assert.Equal(t, []int{0}, ids)

	qty, _ := res.Values.Lookup("items.0.quantity")
	assert.Equal(t, "3", qty)
	assert.Equal(t, tree.LeafPaths(res.Values), tree.LeafPaths(res.Indices))
}

func TestParse_FencedBlock(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"json fence", "Here you go:\n```json\n" + invoiceResponse + "\n```\nThanks."},
		{"uppercase json fence", "```JSON\n" + invoiceResponse + "\n```"},
		{"bare fence", "```\n" + invoiceResponse + "\n```"},
		{"surrounding prose", "The extracted data is " + invoiceResponse + " as requested."},
		{"whole text", "  " + invoiceResponse + "\n"},
	}

	want := Parse(invoiceResponse, invoiceSchema())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text, invoiceSchema())
			require.NoError(t, got.Err)
			assert.Equal(t, want.Values.Plain(), got.Values.Plain())
			assert.Equal(t, want.Indices.Plain(), got.Indices.Plain())
		})
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	for _, text := range []string{
		"I could not read the document.",
		"",
		"```json\n{not json}\n```",
		`["a", "b"]`,
	} {
		res := Parse(text, invoiceSchema())

		var ferr *ResponseFormatError
		require.True(t, errors.As(res.Err, &ferr), "text %q", text)
		assert.False(t, res.OK())
		assert.Equal(t, []string{"error"}, res.Values.Keys())
		v, _ := res.Values.Get("error")
		assert.Equal(t, ErrorMessage, v)
		assert.Equal(t, 0, res.Indices.Len())
	}
}

func TestParse_Coercion(t *testing.T) {
	s := &fieldschema.Schema{Fields: []fieldschema.Field{
		{Name: "amount"},
		{Name: "paid"},
		{Name: "memo"},
		{Name: "missing"},
		{Name: "nested"},
		{Name: "tags", Type: fieldschema.TypeList, Items: &fieldschema.ItemSchema{Type: fieldschema.TypeString}},
		{Name: "lines", Type: fieldschema.TypeList, Items: &fieldschema.ItemSchema{
			Type:   fieldschema.TypeMap,
			Fields: []fieldschema.Field{{Name: "sku"}},
		}},
	}}
	text := `{"amount": 12.50, "paid": true, "memo": null, "nested": {"a": 1},
		"tags": ["x", 7], "lines": ["oops", {"sku": "A1", "extra": "drop"}], "unknown": "drop"}`

	res := Parse(text, s)
	require.NoError(t, res.Err)

	plain := res.Values.Plain()
	assert.Equal(t, "12.50", plain["amount"])
	assert.Equal(t, "true", plain["paid"])
	assert.Equal(t, "", plain["memo"])
	assert.Equal(t, "", plain["missing"])
	assert.Equal(t, `{"a":1}`, plain["nested"])
	assert.Equal(t, []any{"x", "7"}, plain["tags"])
	assert.Equal(t, []any{
		map[string]any{"sku": ""},
		map[string]any{"sku": "A1"},
	}, plain["lines"])
	assert.NotContains(t, plain, "unknown")

	// No indices key: empty index tree in the value shape.
	assert.Equal(t, tree.LeafPaths(res.Values), tree.LeafPaths(res.Indices))
	assert.Contains(t, res.Issues, "indices: missing")
}

func TestParse_NonListForListField(t *testing.T) {
	res := Parse(`{"company_info": "Acme", "items": "none"}`, invoiceSchema())
	require.NoError(t, res.Err)

	items, _ := res.Values.Get("items")
	assert.Equal(t, []any{}, items)
	name, _ := res.Values.Lookup("company_info.name")
	assert.Equal(t, "", name)
	assert.NotEmpty(t, res.Issues)
}

func TestParse_IndexMismatch(t *testing.T) {
	tests := []struct {
		name    string
		indices string
		issue   string
	}{
		{"missing leaf", `{"company_info":{"name":[0]},"items":[{"description":[],"quantity":[]}]}`, "indices.company_info.address: missing"},
		{"list length", `{"company_info":{"name":[0],"address":[]},"items":[]}`, "indices.items: 0 index entries for 1 values"},
		{"non-list leaf", `{"company_info":{"name":0,"address":[]},"items":[{"description":[],"quantity":[]}]}`, "indices.company_info.name: expected list of token ids, got number"},
		{"negative id", `{"company_info":{"name":[-1],"address":[]},"items":[{"description":[],"quantity":[]}]}`, "indices.company_info.name: invalid token id -1"},
		{"not an object", `[]`, "indices: expected object, got list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := `{"company_info":{"name":"Acme Corp","address":""},"items":[{"description":"Widget","quantity":"3"}],"indices":` + tt.indices + `}`
			res := Parse(text, invoiceSchema())
			require.NoError(t, res.Err)
			assert.Contains(t, res.Issues, tt.issue)

			ids, ok := res.Indices.Lookup("company_info.name")
			require.True(t, ok)
			assert.Equal(t, []int{}, ids)
			assert.Equal(t, tree.LeafPaths(res.Values), tree.LeafPaths(res.Indices))

			name, _ := res.Values.Lookup("company_info.name")
			assert.Equal(t, "Acme Corp", name)
		})
	}
}

func TestParse_DeduplicatesIDs(t *testing.T) {
	text := `{"company_info":{"name":"Acme","address":"1 Main"},"items":[],
		"indices":{"company_info":{"name":[3,1,3,1,2],"address":[4]},"items":[]}}`
	res := Parse(text, invoiceSchema())
	ids, _ := res.Indices.Lookup("company_info.name")
	assert.Equal(t, []int{3, 1, 2}, ids)
}

func TestParse_Idempotent(t *testing.T) {
	s := invoiceSchema()
	inputs := []string{
		invoiceResponse,
		`{"company_info":{"name":42},"items":[{"description":"x"},"bad"]}`,
		`{"company_info":{"name":"A","address":"B"},"items":[{"description":"d","quantity":"1"}],"indices":{"company_info":{"name":[1,1],"address":[2]},"items":[{"description":[3],"quantity":[]}]}}`,
	}
	for _, in := range inputs {
		first := Parse(in, s)
		require.NoError(t, first.Err)

		doc, err := json.Marshal(first.Document())
		require.NoError(t, err)
		second := Parse(string(doc), s)

		assert.Equal(t, first.Values.Plain(), second.Values.Plain())
		assert.Equal(t, first.Indices.Plain(), second.Indices.Plain())
		assert.Empty(t, second.Issues)
	}
}

func TestParse_TemplateIsValidResponse(t *testing.T) {
	s := invoiceSchema()
	rendered, err := template.Render(template.GenerateUnified(s).Combined())
	require.NoError(t, err)

	res := Parse(rendered, s)
	require.NoError(t, res.Err)
	assert.Empty(t, res.Issues)
	assert.True(t, strings.Contains(rendered, `"indices"`))
	assert.Equal(t, tree.LeafPaths(res.Values), tree.LeafPaths(res.Indices))
}

func TestExtractJSON(t *testing.T) {
	raw, err := ExtractJSON("Sure:\n```json\n[ {\"name\": \"a\"} ]\n```")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"a"}]`, string(raw))

	raw, err = ExtractJSON(`prefix {"fields": []} suffix`)
	require.NoError(t, err)
	assert.Equal(t, `{"fields":[]}`, string(raw))

	raw, err = ExtractJSON("```\n{\"draft\": true}\n```\nFinal:\n```JSON\n{\"name\": \"b\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"b"}`, string(raw), "a fence labelled JSON wins over an unlabelled one")

	_, err = ExtractJSON("nothing here")
	var ferr *ResponseFormatError
	assert.True(t, errors.As(err, &ferr))
}

func TestReindex(t *testing.T) {
	tests := []struct {
		name    string
		values  string
		indices string
		want    string
	}{
		{
			name:    "list grows",
			values:  `{"company_info":{"name":"Acme Corp","address":""},"items":[{"description":"Widget","quantity":"3"},{"description":"Gadget","quantity":"1"}]}`,
			indices: `{"company_info":{"name":[0],"address":[]},"items":[{"description":[3],"quantity":[4]}]}`,
			want:    `{"company_info":{"name":[0],"address":[]},"items":[{"description":[3],"quantity":[4]},{"description":[],"quantity":[]}]}`,
		},
		{
			name:    "list shrinks",
			values:  `{"company_info":{"name":"Acme Corp","address":""},"items":[]}`,
			indices: `{"company_info":{"name":[0],"address":[]},"items":[{"description":[3],"quantity":[4]}]}`,
			want:    `{"company_info":{"name":[0],"address":[]},"items":[]}`,
		},
		{
			name:   "no indices",
			values: `{"company_info":{"name":"Acme Corp","address":""},"items":[{"description":"Widget","quantity":"3"}]}`,
			want:   `{"company_info":{"name":[],"address":[]},"items":[{"description":[],"quantity":[]}]}`,
		},
		{
			name:    "malformed leaves are emptied",
			values:  `{"total":"5.00","tags":["a","b"]}`,
			indices: `{"total":"seven","tags":[[1,1,2],[-1]]}`,
			want:    `{"total":[],"tags":[[1,2],[]]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var indices json.RawMessage
			if tt.indices != "" {
				indices = json.RawMessage(tt.indices)
			}
			got, err := Reindex(json.RawMessage(tt.values), indices)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}

	got, err := Reindex(json.RawMessage(`{"zeta":"z","alpha":"a"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":[],"alpha":[]}`, string(got), "index keys follow value order")

	_, err = Reindex(json.RawMessage(`["not","an","object"]`), nil)
	assert.Error(t, err)
}
