// Package codec provides bidirectional translation between host values and
// wire-safe JSON values.
//
// The codec handles the recursive Value model exchanged with the runtime
// subprocess, including detection and reconstruction of tagged statistical
// types:
//
//	┌──────────────────────────────────────────────────────────┐
//	│ Host Value ←→ [Codec] ←→ JSON-safe wire value            │
//	└──────────────────────────────────────────────────────────┘
//
// # Tagged Statistical Values
//
// Structurally rich values cross the wire as JSON objects discriminated by
// a "__type" member. Detection is a single discriminant check applied
// before generic container recursion, so a tagged object is never
// misclassified as a plain mapping:
//
//	Tag          Wire form                                Decoded host form
//	────────────────────────────────────────────────────────────────────────
//	dataframe    {columns, index, rows}                   []map[string]any
//	ndarray      {dtype, shape, data}                     flat []any
//	factor       {levels, values}                         Factor
//	matrix       {data, nrow, ncol, dimnames?}            Matrix
//
// # Lossy Cases
//
// Two translations are deliberately one-way:
//
//   - time.Time encodes to its ISO-8601 string; decoding yields the string.
//   - Ndarray decoding drops shape metadata and returns the flat data
//     sequence. Shape-aware consumers must re-derive structure upstream.
//
// # Totality
//
// Decode never fails: reconstruction is total over the tagged-variant
// schema, and malformed tagged objects degrade to best-effort values
// (missing members become empty containers or zero values).
package codec
