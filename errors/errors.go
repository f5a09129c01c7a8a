package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseConfig  Phase = "config"  // config validation
	PhaseSpawn   Phase = "spawn"   // process startup
	PhaseEncode  Phase = "encode"  // host to wire
	PhaseFrame   Phase = "frame"   // envelope framing
	PhaseExecute Phase = "execute" // script execution
	PhaseDecode  Phase = "decode"  // wire to host
)

// Kind categorizes the error
type Kind string

const (
	KindSpawnFailed  Kind = "spawn_failed"
	KindTimeout      Kind = "timeout"
	KindBusy         Kind = "busy"
	KindNotReady     Kind = "not_ready"
	KindProtocol     Kind = "protocol"
	KindCorrelation  Kind = "correlation"
	KindProcessDead  Kind = "process_dead"
	KindCanceled     Kind = "canceled"
	KindInvalidInput Kind = "invalid_input"
	KindIO           Kind = "io"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Status string
	ReqID  string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.ReqID != "" {
		b.WriteString(" (request ")
		b.WriteString(e.ReqID)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Status != "" {
		b.WriteString(" [status=")
		b.WriteString(e.Status)
		b.WriteByte(']')
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// RequestID sets the request the error belongs to
func (b *Builder) RequestID(id string) *Builder {
	b.err.ReqID = id
	return b
}

// Status sets the engine status at the time of the error
func (b *Builder) Status(s string) *Builder {
	b.err.Status = s
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Spawn creates a process startup failure
func Spawn(executable string, cause error) *Error {
	return &Error{
		Phase:  PhaseSpawn,
		Kind:   KindSpawnFailed,
		Detail: fmt.Sprintf("start %q", executable),
		Cause:  cause,
	}
}

// Timeout creates an execution timeout error
func Timeout(reqID string, window time.Duration) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindTimeout,
		ReqID:  reqID,
		Detail: fmt.Sprintf("no response within %s", window),
	}
}

// Busy rejects a submission while another request is in flight
func Busy(pendingID string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindBusy,
		Detail: fmt.Sprintf("request %s still in flight", pendingID),
	}
}

// NotReady rejects an operation in a state that does not permit it
func NotReady(status string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindNotReady,
		Status: status,
		Detail: "engine is not ready",
	}
}

// Protocol creates a wire protocol violation error
func Protocol(detail string) *Error {
	return &Error{
		Phase:  PhaseFrame,
		Kind:   KindProtocol,
		Detail: detail,
	}
}

// Correlation reports a response whose id does not match the pending request
func Correlation(want, got string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindCorrelation,
		ReqID:  want,
		Detail: fmt.Sprintf("response id %q does not match pending request", got),
	}
}

// ProcessDead reports the runtime process exiting during execution
func ProcessDead(reqID string, cause error) *Error {
	return &Error{
		Phase: PhaseExecute,
		Kind:  KindProcessDead,
		ReqID: reqID,
		Cause: cause,
	}
}

// Canceled reports caller-initiated cancellation of an in-flight request
func Canceled(reqID string, cause error) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindCanceled,
		ReqID:  reqID,
		Detail: "run canceled; process reclaimed",
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// IO wraps a stream read/write failure
func IO(phase Phase, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// Predicate helpers

func isKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsTimeout reports whether err is an execution timeout
func IsTimeout(err error) bool { return isKind(err, KindTimeout) }

// IsBusy reports whether err is a busy rejection
func IsBusy(err error) bool { return isKind(err, KindBusy) }

// IsNotReady reports whether err is a lifecycle-state rejection
func IsNotReady(err error) bool { return isKind(err, KindNotReady) }

// IsProtocol reports whether err is a wire protocol violation
func IsProtocol(err error) bool { return isKind(err, KindProtocol) }

// IsCorrelation reports whether err is a response correlation failure
func IsCorrelation(err error) bool { return isKind(err, KindCorrelation) }

// IsSpawn reports whether err is a process startup failure
func IsSpawn(err error) bool { return isKind(err, KindSpawnFailed) }

// IsCanceled reports whether err is a caller-initiated cancellation
func IsCanceled(err error) bool { return isKind(err, KindCanceled) }
