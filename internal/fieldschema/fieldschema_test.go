package fieldschema

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := LoadFile(filepath.Join("testdata", "invoice.json"))
	require.NoError(t, err)
	return s
}

func TestLoadFile(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		s := invoiceSchema(t)
		require.Len(t, s.Fields, 4)
		assert.Equal(t, TypeMap, s.Fields[1].Kind())
		require.NotNil(t, s.Fields[2].Items)
		assert.True(t, s.Fields[2].Items.IsMap())
		assert.False(t, s.Fields[3].Items.IsMap())
	})

	t.Run("yaml", func(t *testing.T) {
		s, err := LoadFile(filepath.Join("testdata", "invoice.yaml"))
		require.NoError(t, err)
		require.Len(t, s.Fields, 2)
		assert.Equal(t, "Company name", s.Fields[1].Fields[0].Label())
		assert.Equal(t, TypeString, s.Fields[1].Fields[0].Kind())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join("testdata", "nope.json"))
		require.Error(t, err)
	})
}

func TestDecode_BareArray(t *testing.T) {
	s, err := Decode([]byte(`[{"name":"total","type":"string"}]`))
	require.NoError(t, err)
	require.Len(t, s.Fields, 1)
	assert.Equal(t, "total", s.Fields[0].Name)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
	}{
		{"not json", `{"fields":`, ""},
		{"missing fields key", `{"apps": []}`, ""},
		{"unknown type in document", `{"fields":[{"name":"a","type":"number"}]}`, ""},
		{"list of lists in document", `{"fields":[{"name":"a","type":"list","items":{"type":"list"}}]}`, ""},
		{"empty name", `{"fields":[{"name":"","type":"string"}]}`, ""},
		{"duplicate siblings", `{"fields":[{"name":"a"},{"name":"a"}]}`, "a"},
		{"map without children", `{"fields":[{"name":"m","type":"map"}]}`, "m"},
		{"list without items", `{"fields":[{"name":"l","type":"list"}]}`, "l"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.Error(t, err)
			var se *SchemaError
			require.True(t, errors.As(err, &se), "expected SchemaError, got %T", err)
			if tt.path != "" {
				assert.Equal(t, tt.path, se.Path)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  *Schema
		wantErr bool
		path    string
	}{
		{
			name:    "nil schema",
			schema:  nil,
			wantErr: true,
		},
		{
			name:    "no fields",
			schema:  &Schema{},
			wantErr: true,
		},
		{
			name:   "empty type defaults to string",
			schema: &Schema{Fields: []Field{{Name: "a"}}},
		},
		{
			name:    "unrecognized type",
			schema:  &Schema{Fields: []Field{{Name: "a", Type: "date"}}},
			wantErr: true,
			path:    "a",
		},
		{
			name: "nested duplicate",
			schema: &Schema{Fields: []Field{{
				Name: "m", Type: TypeMap,
				Fields: []Field{{Name: "x"}, {Name: "x"}},
			}}},
			wantErr: true,
			path:    "m.x",
		},
		{
			name: "same name at different depths is fine",
			schema: &Schema{Fields: []Field{
				{Name: "name"},
				{Name: "m", Type: TypeMap, Fields: []Field{{Name: "name"}}},
			}},
		},
		{
			name:    "string with children",
			schema:  &Schema{Fields: []Field{{Name: "s", Fields: []Field{{Name: "x"}}}}},
			wantErr: true,
			path:    "s",
		},
		{
			name: "list of lists",
			schema: &Schema{Fields: []Field{{
				Name: "l", Type: TypeList, Items: &ItemSchema{Type: TypeList},
			}}},
			wantErr: true,
			path:    "l",
		},
		{
			name: "map items without fields",
			schema: &Schema{Fields: []Field{{
				Name: "l", Type: TypeList, Items: &ItemSchema{Type: TypeMap},
			}}},
			wantErr: true,
			path:    "l",
		},
		{
			name: "list item field duplicate",
			schema: &Schema{Fields: []Field{{
				Name: "l", Type: TypeList,
				Items: &ItemSchema{Type: TypeMap, Fields: []Field{{Name: "d"}, {Name: "d"}}},
			}}},
			wantErr: true,
			path:    "l.d",
		},
		{
			name:    "dotted name",
			schema:  &Schema{Fields: []Field{{Name: "a.b"}}},
			wantErr: true,
			path:    "a.b",
		},
		{
			name:    "reserved indices name",
			schema:  &Schema{Fields: []Field{{Name: IndicesKey}}},
			wantErr: true,
			path:    IndicesKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			if tt.path != "" {
				assert.Equal(t, tt.path, se.Path)
			}
		})
	}
}

func TestValidate_MaxDepth(t *testing.T) {
	leaf := Field{Name: "leaf"}
	for i := 0; i < MaxDepth+1; i++ {
		leaf = Field{Name: "m", Type: TypeMap, Fields: []Field{leaf}}
	}
	err := Validate(&Schema{Fields: []Field{leaf}})
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "nesting")
}

func TestFieldNames(t *testing.T) {
	s := invoiceSchema(t)
	assert.Equal(t, []string{
		"invoice_date",
		"company_info",
		"company_info.name",
		"company_info.address",
		"items",
		"items.description",
		"items.quantity",
		"notes",
	}, FieldNames(s))
	assert.Equal(t, 6, LeafCount(s))
}

func TestResponseJSONSchema(t *testing.T) {
	s := invoiceSchema(t)
	compiled, err := CompileResponseSchema(s)
	require.NoError(t, err)

	valid := `{
		"invoice_date": "2024-01-02",
		"company_info": {"name": "Acme", "address": ""},
		"items": [{"description": "Widget", "quantity": "3"}],
		"notes": ["paid"],
		"indices": {
			"invoice_date": [0],
			"company_info": {"name": [1], "address": []},
			"items": [{"description": [2], "quantity": [3]}],
			"notes": [[4]]
		}
	}`
	var doc any
	require.NoError(t, json.Unmarshal([]byte(valid), &doc))
	assert.NoError(t, compiled.Validate(doc))

	invalid := `{"invoice_date": 5, "company_info": {}, "items": [], "notes": [], "indices": {}}`
	require.NoError(t, json.Unmarshal([]byte(invalid), &doc))
	assert.Error(t, compiled.Validate(doc))
}

func TestCompileValueSchema(t *testing.T) {
	compiled, err := CompileValueSchema(invoiceSchema(t))
	require.NoError(t, err)

	var doc any
	edited := `{
		"invoice_date": "2024-01-03",
		"company_info": {"name": "Acme Ltd", "address": "1 Main St"},
		"items": [],
		"notes": []
	}`
	require.NoError(t, json.Unmarshal([]byte(edited), &doc))
	assert.NoError(t, compiled.Validate(doc))

	// Value trees carry no indices.
	withIndices := `{"invoice_date": "", "company_info": {"name": "", "address": ""}, "items": [], "notes": [], "indices": {}}`
	require.NoError(t, json.Unmarshal([]byte(withIndices), &doc))
	assert.Error(t, compiled.Validate(doc))
}

func TestValidateValues(t *testing.T) {
	s := invoiceSchema(t)

	ok := json.RawMessage(`{"invoice_date":"2024-01-03","company_info":{"name":"Acme","address":""},"items":[{"description":"Widget","quantity":"3"}],"notes":["paid"]}`)
	assert.NoError(t, ValidateValues(s, ok))

	missing := json.RawMessage(`{"invoice_date":"2024-01-03"}`)
	assert.Error(t, ValidateValues(s, missing))

	wrongType := json.RawMessage(`{"invoice_date":3,"company_info":{"name":"","address":""},"items":[],"notes":[]}`)
	assert.Error(t, ValidateValues(s, wrongType))

	assert.Error(t, ValidateValues(s, json.RawMessage(`{`)))
}

func TestEncode_RoundTrip(t *testing.T) {
	s := invoiceSchema(t)
	data, err := Encode(s)
	require.NoError(t, err)
	again, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}
