package codec

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

// roundTrip pushes a value through the wire the way the bridge does:
// encode, marshal, unmarshal, decode.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(Encode(v))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var wire any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return Decode(wire)
}

func TestRoundTrip_PlainValues(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"bool", true},
		{"number", 3.5},
		{"string", "hello"},
		{"sequence", []any{1.0, "two", false, nil}},
		{"mapping", map[string]any{"a": 1.0, "b": []any{"x", "y"}}},
		{"nested", map[string]any{"outer": map[string]any{"inner": []any{map[string]any{"k": 1.0}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.in)
			if !reflect.DeepEqual(got, tt.in) {
				t.Errorf("round trip changed value: got %#v, want %#v", got, tt.in)
			}
		})
	}
}

func TestEncode_DateIsOneWay(t *testing.T) {
	d := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	got := roundTrip(t, d)
	if got != "2024-03-15T09:30:00Z" {
		t.Errorf("expected ISO-8601 string, got %#v", got)
	}
}

func TestEncode_DateInsideContainer(t *testing.T) {
	d := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)
	enc := Encode(map[string]any{"when": d}).(map[string]any)
	if enc["when"] != "2021-01-02T03:04:05Z" {
		t.Errorf("nested date not encoded: %#v", enc["when"])
	}
}

func TestEncode_NilPointersBecomeNull(t *testing.T) {
	var df *DataFrame
	if Encode(df) != nil {
		t.Error("nil *DataFrame should encode to nil")
	}
	var ts *time.Time
	if Encode(ts) != nil {
		t.Error("nil *time.Time should encode to nil")
	}
}

func TestDecode_DataFrame(t *testing.T) {
	wire := map[string]any{
		tagKey:    TagDataFrame,
		"columns": []any{"a", "b"},
		"index":   []any{0.0, 1.0},
		"rows":    []any{[]any{1.0, 2.0}, []any{3.0, 4.0}},
	}

	got := Decode(wire)
	want := []map[string]any{
		{"a": 1.0, "b": 2.0},
		{"a": 3.0, "b": 4.0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DataFrame decode: got %#v, want %#v", got, want)
	}
}

func TestDecode_DataFrameRaggedRow(t *testing.T) {
	wire := map[string]any{
		tagKey:    TagDataFrame,
		"columns": []any{"a", "b"},
		"rows":    []any{[]any{1.0}},
	}
	got := Decode(wire).([]map[string]any)
	if len(got) != 1 || got[0]["a"] != 1.0 || got[0]["b"] != nil {
		t.Errorf("ragged row should pad with nil: %#v", got)
	}
}

func TestDecode_Ndarray(t *testing.T) {
	wire := map[string]any{
		tagKey:  TagNdarray,
		"dtype": "float64",
		"shape": []any{2.0, 2.0},
		"data":  []any{1.0, 2.0, 3.0, 4.0},
	}

	got := Decode(wire)
	want := []any{1.0, 2.0, 3.0, 4.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ndarray decode: got %#v, want %#v", got, want)
	}
}

func TestDecode_Factor(t *testing.T) {
	wire := map[string]any{
		tagKey:   TagFactor,
		"levels": []any{"low", "mid", "high"},
		"values": []any{1.0, 3.0, 2.0, -1.0},
	}

	got, ok := Decode(wire).(Factor)
	if !ok {
		t.Fatalf("expected Factor, got %T", Decode(wire))
	}
	wantLabels := []string{"low", "high", "mid", ""}
	if !reflect.DeepEqual(got.Labels(), wantLabels) {
		t.Errorf("Labels() = %v, want %v", got.Labels(), wantLabels)
	}
}

func TestDecode_Matrix(t *testing.T) {
	wire := map[string]any{
		tagKey: TagMatrix,
		"data": []any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0},
		"nrow": 2.0,
		"ncol": 3.0,
		"dimnames": []any{
			[]any{"r1", "r2"},
			nil,
		},
	}

	got, ok := Decode(wire).(Matrix)
	if !ok {
		t.Fatalf("expected Matrix, got %T", Decode(wire))
	}
	if got.At(1, 2) != 6.0 {
		t.Errorf("At(1,2) = %v, want 6", got.At(1, 2))
	}
	if !reflect.DeepEqual(got.RowNames, []string{"r1", "r2"}) {
		t.Errorf("RowNames = %v", got.RowNames)
	}
	if got.ColNames != nil {
		t.Errorf("ColNames should be nil, got %v", got.ColNames)
	}
	if got.At(5, 5) != 0 {
		t.Error("out of range At should return 0")
	}
}

func TestDecode_TaggedInsideContainers(t *testing.T) {
	wire := []any{
		map[string]any{
			"arr": map[string]any{
				tagKey:  TagNdarray,
				"dtype": "int64",
				"shape": []any{2.0},
				"data":  []any{7.0, 8.0},
			},
		},
	}

	got := Decode(wire).([]any)
	inner := got[0].(map[string]any)["arr"]
	if !reflect.DeepEqual(inner, []any{7.0, 8.0}) {
		t.Errorf("nested ndarray not decoded: %#v", inner)
	}
}

func TestDecode_MalformedTaggedIsTotal(t *testing.T) {
	// Missing members degrade, never panic or error.
	tests := []map[string]any{
		{tagKey: TagDataFrame},
		{tagKey: TagNdarray},
		{tagKey: TagFactor, "values": "not-a-list"},
		{tagKey: TagMatrix, "nrow": "huh"},
	}
	for i, wire := range tests {
		got := Decode(wire)
		if got == nil {
			t.Errorf("case %d: decode returned nil", i)
		}
	}
}

func TestDecode_UnknownTagFallsThrough(t *testing.T) {
	wire := map[string]any{
		tagKey: "timeseries",
		"data": []any{1.0},
	}
	got, ok := Decode(wire).(map[string]any)
	if !ok {
		t.Fatalf("unknown tag should stay a mapping, got %T", Decode(wire))
	}
	if got[tagKey] != "timeseries" {
		t.Error("unknown tag member should be preserved")
	}
}

func TestEncodeDecode_TaggedRoundTrip(t *testing.T) {
	f := Factor{Levels: []string{"a", "b"}, Values: []int{2, 1}}
	got := roundTrip(t, f)
	if !reflect.DeepEqual(got, f) {
		t.Errorf("Factor round trip: got %#v, want %#v", got, f)
	}

	m := Matrix{Data: []float64{1, 2, 3, 4}, NRow: 2, NCol: 2, ColNames: []string{"x", "y"}}
	got = roundTrip(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Errorf("Matrix round trip: got %#v, want %#v", got, m)
	}
}

func TestEncode_DataFrameWire(t *testing.T) {
	df := DataFrame{
		Columns: []string{"a"},
		Index:   []any{0},
		Rows:    [][]any{{time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)}},
	}
	wire := Encode(df).(map[string]any)
	if wire[tagKey] != TagDataFrame {
		t.Fatalf("missing tag: %#v", wire)
	}
	rows := wire["rows"].([]any)
	cell := rows[0].([]any)[0]
	if cell != "2020-06-01T00:00:00Z" {
		t.Errorf("date inside data frame cell not encoded: %#v", cell)
	}
}
