package statbridge

import (
	"encoding/base64"
	"fmt"
	"runtime"
)

// Status is the authoritative lifecycle state of one engine instance.
// It is mutated only by the process supervisor.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusInitializing  Status = "initializing"
	StatusReady         Status = "ready"
	StatusBusy          Status = "busy"
	StatusError         Status = "error"
	StatusStopped       Status = "stopped"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusStopped
}

// EngineKind selects the external runtime a bridge manages.
type EngineKind string

const (
	KindPython EngineKind = "python"
	KindR      EngineKind = "r"
)

// DefaultExecutable returns the platform-default interpreter for the kind.
func (k EngineKind) DefaultExecutable() string {
	switch k {
	case KindR:
		return "Rscript"
	case KindPython:
		if runtime.GOOS == "windows" {
			return "python"
		}
		return "python3"
	}
	return ""
}

// Valid reports whether the kind names a supported runtime.
func (k EngineKind) Valid() bool {
	return k == KindPython || k == KindR
}

// Request is a script submission. It is owned by the caller and treated as
// immutable once passed to Engine.Run. ID may be left empty; the engine
// assigns one before transmission and echoes it in the Response.
type Request struct {
	ID       string
	Script   string
	Data     map[string]any
	Packages []string
}

// Response is the outcome of one Request, created exactly once by the
// bridge. Result is set only on success; Error only on failure.
type Response struct {
	ID      string
	Success bool
	Result  any
	Error   string
	Output  string
	Plots   []string
}

// PlotPNGs decodes the base64 plot entries into raw PNG bytes.
func (r *Response) PlotPNGs() ([][]byte, error) {
	if len(r.Plots) == 0 {
		return nil, nil
	}
	pngs := make([][]byte, 0, len(r.Plots))
	for i, p := range r.Plots {
		raw, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("decode plot %d: %w", i, err)
		}
		pngs = append(pngs, raw)
	}
	return pngs, nil
}
