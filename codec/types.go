package codec

// Wire type tags. A JSON object carrying one of these under the "__type"
// member is a tagged statistical value.
const (
	tagKey = "__type"

	TagDataFrame = "dataframe"
	TagNdarray   = "ndarray"
	TagFactor    = "factor"
	TagMatrix    = "matrix"
)

// DataFrame is a two-dimensional table with named columns and a row index.
// Rows are stored positionally; Rows[r][i] belongs to Columns[i].
type DataFrame struct {
	Columns []string
	Index   []any
	Rows    [][]any
}

// Ndarray is an n-dimensional array flattened to a single data sequence.
type Ndarray struct {
	DType string
	Shape []int
	Data  []any
}

// Factor is a categorical vector. Values are 1-based level indices; values
// outside [1, len(Levels)] are missing-data sentinels.
type Factor struct {
	Levels []string
	Values []int
}

// Labels resolves the level codes to their string labels. Sentinel and
// out-of-range codes resolve to the empty string.
func (f Factor) Labels() []string {
	labels := make([]string, len(f.Values))
	for i, v := range f.Values {
		if v >= 1 && v <= len(f.Levels) {
			labels[i] = f.Levels[v-1]
		}
	}
	return labels
}

// Matrix is a numeric matrix stored row-major with optional dimension names.
type Matrix struct {
	Data     []float64
	NRow     int
	NCol     int
	RowNames []string
	ColNames []string
}

// At returns the element at row r, column c, or 0 if out of range.
func (m Matrix) At(r, c int) float64 {
	if r < 0 || c < 0 || r >= m.NRow || c >= m.NCol {
		return 0
	}
	i := r*m.NCol + c
	if i >= len(m.Data) {
		return 0
	}
	return m.Data[i]
}

// wireMap returns the tagged wire form of the data frame.
func (d DataFrame) wireMap() map[string]any {
	cols := make([]any, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = c
	}
	rows := make([]any, len(d.Rows))
	for r, row := range d.Rows {
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = Encode(v)
		}
		rows[r] = vals
	}
	idx := make([]any, len(d.Index))
	for i, v := range d.Index {
		idx[i] = Encode(v)
	}
	return map[string]any{
		tagKey:    TagDataFrame,
		"columns": cols,
		"index":   idx,
		"rows":    rows,
	}
}

func (n Ndarray) wireMap() map[string]any {
	shape := make([]any, len(n.Shape))
	for i, s := range n.Shape {
		shape[i] = s
	}
	data := make([]any, len(n.Data))
	for i, v := range n.Data {
		data[i] = Encode(v)
	}
	return map[string]any{
		tagKey:  TagNdarray,
		"dtype": n.DType,
		"shape": shape,
		"data":  data,
	}
}

func (f Factor) wireMap() map[string]any {
	levels := make([]any, len(f.Levels))
	for i, l := range f.Levels {
		levels[i] = l
	}
	values := make([]any, len(f.Values))
	for i, v := range f.Values {
		values[i] = v
	}
	return map[string]any{
		tagKey:   TagFactor,
		"levels": levels,
		"values": values,
	}
}

func (m Matrix) wireMap() map[string]any {
	data := make([]any, len(m.Data))
	for i, v := range m.Data {
		data[i] = v
	}
	out := map[string]any{
		tagKey: TagMatrix,
		"data": data,
		"nrow": m.NRow,
		"ncol": m.NCol,
	}
	if m.RowNames != nil || m.ColNames != nil {
		var rn, cn any
		if m.RowNames != nil {
			rn = toAnySlice(m.RowNames)
		}
		if m.ColNames != nil {
			cn = toAnySlice(m.ColNames)
		}
		out["dimnames"] = []any{rn, cn}
	}
	return out
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
