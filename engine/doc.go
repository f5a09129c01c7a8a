// Package engine is the high-level facade over a statistical runtime.
// It assembles the process supervisor, the wire protocol, and the type
// codec into a single Run(script, data) surface.
//
// An Engine owns exactly one interpreter subprocess. Construction picks
// the executable and the embedded wire runner from the engine kind,
// Start spawns the process, Run executes scripts one at a time, and
// Stop is terminal.
//
//	eng, err := engine.New(engine.Config{Kind: statbridge.KindPython})
//	if err != nil { ... }
//	if err := eng.Start(ctx); err != nil { ... }
//	defer eng.Stop(ctx)
//
//	resp, err := eng.Run(ctx, "result = sum(x)", map[string]any{"x": []any{1, 2, 3}})
//
// A script that raises inside the interpreter is a normal response with
// Success false; err is reserved for bridge-level failures such as
// timeouts, protocol violations, and process death.
package engine
