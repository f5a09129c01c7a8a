package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseExecute,
				Kind:   KindCorrelation,
				ReqID:  "req-1",
				Status: "error",
				Detail: "response id mismatch",
			},
			contains: []string{"[execute]", "correlation", "req-1", "response id mismatch", "status=error"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindInvalidInput,
			},
			contains: []string{"[decode]", "invalid_input"},
		},
		{
			name: "error with path and cause",
			err: &Error{
				Phase:  PhaseEncode,
				Kind:   KindInvalidInput,
				Path:   []string{"data", "xs"},
				Detail: "unsupported value",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[encode]", "at data.xs", "unsupported value", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Spawn("/usr/bin/nope", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap did not return the cause")
	}
}

func TestError_Is(t *testing.T) {
	a := Timeout("r-1", time.Second)
	b := Timeout("r-2", 5*time.Second)
	if !errors.Is(a, b) {
		t.Error("timeout errors with different details should match by Phase+Kind")
	}
	if errors.Is(a, Busy("r-1")) {
		t.Error("timeout should not match busy")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseExecute, KindTimeout).
		RequestID("r-9").
		Status("busy").
		Detail("no response within %s", 50*time.Millisecond).
		Build()

	if err.Phase != PhaseExecute || err.Kind != KindTimeout {
		t.Fatalf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.ReqID != "r-9" {
		t.Errorf("ReqID = %q", err.ReqID)
	}
	if !strings.Contains(err.Detail, "50ms") {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		err  error
		pred func(error) bool
		want bool
	}{
		{Timeout("r", time.Second), IsTimeout, true},
		{Busy("r"), IsBusy, true},
		{NotReady("stopped"), IsNotReady, true},
		{Protocol("bad line"), IsProtocol, true},
		{Correlation("a", "b"), IsCorrelation, true},
		{Spawn("bin", errors.New("enoent")), IsSpawn, true},
		{Canceled("r", nil), IsCanceled, true},
		{Busy("r"), IsTimeout, false},
		{errors.New("plain"), IsTimeout, false},
	}
	for i, tt := range tests {
		if got := tt.pred(tt.err); got != tt.want {
			t.Errorf("case %d: predicate = %v, want %v", i, got, tt.want)
		}
	}
}

func TestPredicates_Wrapped(t *testing.T) {
	err := fmt.Errorf("run failed: %w", Timeout("r-3", time.Second))
	if !IsTimeout(err) {
		t.Error("IsTimeout should classify a wrapped timeout")
	}
}
