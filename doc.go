// Package statbridge embeds external statistical runtimes (R, Python) in a
// host application and bridges scripts, data, and results between them.
//
// A host submits a script plus named data values; the bridge runs it inside
// a managed runtime subprocess and returns a typed result, captured console
// output, and rendered plots.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	statbridge/          Root package with the shared data model
//	├── engine/          High-level API: configure, start, run, stop
//	├── process/         Subprocess lifecycle and serialized execution
//	├── protocol/        Line-delimited JSON wire envelopes and framing
//	├── codec/           Host <-> wire value translation, tagged stat types
//	├── errors/          Structured error types for debugging
//	├── config/          Engine configuration from YAML and environment
//	├── history/         Run history persistence
//	├── telemetry/       Prometheus metrics
//	└── cmd/run/         CLI and interactive script console
//
// # Quick Start
//
// Run a script against a Python engine:
//
//	eng, err := engine.New(engine.Config{Kind: statbridge.KindPython})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop(ctx)
//
//	resp, err := eng.Run(ctx, "result = sum(xs)",
//	    map[string]any{"xs": []any{1.0, 2.0, 3.0}})
//	fmt.Println(resp.Result) // 6
//
// # Data Model
//
// Values cross the wire as JSON. Structurally rich statistical types are
// carried as tagged objects and reconstructed by the codec package:
//
//	Tag          Host form after decode
//	─────────────────────────────────────────────
//	dataframe    []map[string]any (one map per row)
//	ndarray      flat []any (shape metadata dropped)
//	factor       codec.Factor (levels + 1-based codes)
//	matrix       codec.Matrix (row-major data + dims)
//
// # Lifecycle
//
// Each engine owns exactly one runtime subprocess and its status field is
// the mutual-exclusion mechanism: one request in flight, a second Run while
// busy is rejected. Status transitions are centralized in process.Supervisor:
//
//	uninitialized → initializing → ready ⇄ busy
//	                     ↑            ↓
//	                     └── error ←──┘        any → stopped (terminal)
//
// # Thread Safety
//
// Engine and Supervisor are safe for concurrent use; concurrent Run calls
// on one engine are serialized by rejection, not queuing. Run several
// engine instances to execute scripts in parallel.
package statbridge
