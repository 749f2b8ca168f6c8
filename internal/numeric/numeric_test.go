package numeric

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatToDecimal_RoundTrip(t *testing.T) {
	in := map[string]any{"price": 12.5}

	dec := FloatToDecimal(in).(map[string]any)
	d, ok := dec["price"].(*apd.Decimal)
	require.True(t, ok, "price should be a decimal, got %T", dec["price"])
	assert.Equal(t, "12.5", d.String())

	back := DecimalToFloat(dec).(map[string]any)
	assert.Equal(t, 12.5, back["price"])

	// Input is untouched.
	assert.Equal(t, 12.5, in["price"])
}

func TestFloatToDecimal_Nested(t *testing.T) {
	in := map[string]any{
		"items": []any{
			map[string]any{"qty": 3.0, "name": "bolt"},
			json.Number("0.10"),
		},
		"flag": true,
	}
	out := FloatToDecimal(in).(map[string]any)

	items := out["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "3", first["qty"].(*apd.Decimal).String())
	assert.Equal(t, "bolt", first["name"])
	assert.Equal(t, "0.10", items[1].(*apd.Decimal).String())
	assert.Equal(t, true, out["flag"])
}

func TestConversionsAreTotal(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"bad number", json.Number("twelve")},
		{"string", "12.5"},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FloatToDecimal(tt.in)
			_, isDec := out.(*apd.Decimal)
			assert.False(t, isDec)
		})
	}

	assert.Equal(t, "x", DecimalToFloat("x"))
	var nilDec *apd.Decimal
	assert.Equal(t, nilDec, DecimalToFloat(nilDec))
}

func TestParseDecimal(t *testing.T) {
	d, ok := ParseDecimal("12.50")
	require.True(t, ok)
	assert.Equal(t, "12.50", d.String())

	_, ok = ParseDecimal("abc")
	assert.False(t, ok)
}
