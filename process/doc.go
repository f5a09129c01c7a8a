// Package process owns the external runtime's operating-system process and
// exposes a lifecycle-governed execute operation.
//
// One Supervisor manages exactly one subprocess and its standard streams;
// no other component touches them. The lifecycle status field is the
// mutual-exclusion mechanism: a request is accepted only in the ready
// state, and a second submission while busy is rejected outright, never
// queued.
//
//	uninitialized → initializing → ready ⇄ busy
//	                     ↑            ↓
//	                     └── error ←──┘        any → stopped (terminal)
//
// # Failure Handling
//
// Execute waits for the terminating envelope line, bounded by the
// configured timeout. Recovery depends on the failure:
//
//   - Timeout: the process is killed and respawned internally; the caller
//     gets a timeout error and the supervisor is ready again if the
//     respawn succeeded.
//   - Process exit while busy: the batch framing rule is applied to the
//     buffered output; the supervisor stays in error until restarted.
//   - Correlation mismatch: the stream is no longer trustworthy; error
//     status, explicit restart required.
//   - Context cancellation: necessarily destructive, as the runtime has no
//     cooperative cancellation primitive, so the process is killed and
//     respawned.
package process
