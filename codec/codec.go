package codec

import (
	"math"
	"time"
)

// Encode translates a host value into its wire-safe JSON form. Dates become
// ISO-8601 strings, tagged statistical values become tagged objects, and
// containers are walked recursively. Sequence order and mapping key sets
// are preserved.
func Encode(v any) any {
	switch val := v.(type) {
	case nil:
		return nil

	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.RFC3339)

	case DataFrame:
		return val.wireMap()
	case *DataFrame:
		if val == nil {
			return nil
		}
		return val.wireMap()
	case Ndarray:
		return val.wireMap()
	case *Ndarray:
		if val == nil {
			return nil
		}
		return val.wireMap()
	case Factor:
		return val.wireMap()
	case *Factor:
		if val == nil {
			return nil
		}
		return val.wireMap()
	case Matrix:
		return val.wireMap()
	case *Matrix:
		if val == nil {
			return nil
		}
		return val.wireMap()

	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Encode(elem)
		}
		return out

	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Encode(elem)
		}
		return out
	}

	return v
}

// Decode translates a wire value back into its host form. Tag detection is
// applied before generic container recursion at every nesting level, so an
// array of data frames or a mapping containing an ndarray both reconstruct
// correctly. Decode is total: it never fails, and malformed tagged objects
// degrade to best-effort values.
func Decode(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if tag, ok := val[tagKey].(string); ok {
			if decoded, handled := decodeTagged(tag, val); handled {
				return decoded
			}
		}
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Decode(elem)
		}
		return out

	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Decode(elem)
		}
		return out
	}

	return v
}

// decodeTagged reconstructs one tagged statistical value. Unknown tags are
// reported unhandled so the object falls back to plain mapping recursion.
func decodeTagged(tag string, m map[string]any) (any, bool) {
	switch tag {
	case TagDataFrame:
		return decodeDataFrame(m), true
	case TagNdarray:
		return decodeNdarray(m), true
	case TagFactor:
		return Factor{
			Levels: stringSlice(m["levels"]),
			Values: intSlice(m["values"]),
		}, true
	case TagMatrix:
		return decodeMatrix(m), true
	}
	return nil, false
}

// decodeDataFrame flattens the positional rows into one mapping per row,
// keyed by column name.
func decodeDataFrame(m map[string]any) []map[string]any {
	columns := stringSlice(m["columns"])
	rawRows, _ := m["rows"].([]any)

	rows := make([]map[string]any, 0, len(rawRows))
	for _, rawRow := range rawRows {
		cells, _ := rawRow.([]any)
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(cells) {
				row[col] = Decode(cells[i])
			} else {
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// decodeNdarray returns the flat data sequence. Shape metadata is dropped
// at this layer; consumers needing structure re-derive it upstream.
func decodeNdarray(m map[string]any) []any {
	raw, _ := m["data"].([]any)
	out := make([]any, len(raw))
	for i, elem := range raw {
		out[i] = Decode(elem)
	}
	return out
}

func decodeMatrix(m map[string]any) Matrix {
	mat := Matrix{
		Data: floatSlice(m["data"]),
		NRow: intValue(m["nrow"]),
		NCol: intValue(m["ncol"]),
	}
	if dimnames, ok := m["dimnames"].([]any); ok {
		if len(dimnames) > 0 && dimnames[0] != nil {
			mat.RowNames = stringSlice(dimnames[0])
		}
		if len(dimnames) > 1 && dimnames[1] != nil {
			mat.ColNames = stringSlice(dimnames[1])
		}
	}
	return mat
}

// Coercion helpers. JSON numbers arrive as float64; everything else is
// coerced leniently to keep reconstruction total.

func stringSlice(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, elem := range raw {
		s, _ := elem.(string)
		out = append(out, s)
	}
	return out
}

func intSlice(v any) []int {
	raw, _ := v.([]any)
	out := make([]int, 0, len(raw))
	for _, elem := range raw {
		out = append(out, intValue(elem))
	}
	return out
}

func floatSlice(v any) []float64 {
	raw, _ := v.([]any)
	out := make([]float64, 0, len(raw))
	for _, elem := range raw {
		f, _ := toFloat(elem)
		out = append(out, f)
	}
	return out
}

func intValue(v any) int {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
