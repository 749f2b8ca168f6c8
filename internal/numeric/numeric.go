// Package numeric converts between binary floats and exact decimals at the
// persistence boundary. Both directions are total: a value that cannot be
// converted is returned unchanged.
package numeric

import (
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// FloatToDecimal walks v and replaces every float64 and json.Number with an
// exact *apd.Decimal. Maps and slices are copied, never mutated.
func FloatToDecimal(v any) any {
	switch n := v.(type) {
	case float64:
		if d, ok := decimalFromString(strconv.FormatFloat(n, 'g', -1, 64)); ok {
			return d
		}
		return n
	case float32:
		if d, ok := decimalFromString(strconv.FormatFloat(float64(n), 'g', -1, 32)); ok {
			return d
		}
		return n
	case json.Number:
		if d, ok := decimalFromString(n.String()); ok {
			return d
		}
		return n
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[k] = FloatToDecimal(e)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = FloatToDecimal(e)
		}
		return out
	default:
		return v
	}
}

// DecimalToFloat is the inverse of FloatToDecimal.
func DecimalToFloat(v any) any {
	switch n := v.(type) {
	case *apd.Decimal:
		if n == nil {
			return v
		}
		f, err := n.Float64()
		if err != nil {
			return v
		}
		return f
	case apd.Decimal:
		f, err := n.Float64()
		if err != nil {
			return v
		}
		return f
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[k] = DecimalToFloat(e)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = DecimalToFloat(e)
		}
		return out
	default:
		return v
	}
}

// ParseDecimal parses exact decimal text such as "12.50".
func ParseDecimal(s string) (*apd.Decimal, bool) {
	return decimalFromString(s)
}

func decimalFromString(s string) (*apd.Decimal, bool) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, false
	}
	if d.Form != apd.Finite {
		return nil, false
	}
	return d, true
}
