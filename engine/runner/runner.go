// Package runner carries the embedded wire runner scripts that turn a
// plain interpreter process into a statbridge engine. The scripts are
// compiled into the binary and materialized to a temp file at startup so
// deployments need nothing beyond the interpreter itself.
package runner

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/statkit/statbridge"
	"github.com/statkit/statbridge/errors"
)

//go:embed engine.py
var pythonRunner []byte

//go:embed engine.R
var rRunner []byte

// Source returns the embedded runner script for the given engine kind.
func Source(kind statbridge.EngineKind) ([]byte, error) {
	switch kind {
	case statbridge.KindPython:
		return pythonRunner, nil
	case statbridge.KindR:
		return rRunner, nil
	default:
		return nil, errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("unknown engine kind %q", kind))
	}
}

// Materialize writes the embedded runner for kind to a temp file and
// returns its path. The caller removes the file when done.
func Materialize(kind statbridge.EngineKind) (string, error) {
	src, err := Source(kind)
	if err != nil {
		return "", err
	}

	ext := ".py"
	if kind == statbridge.KindR {
		ext = ".R"
	}
	f, err := os.CreateTemp("", "statbridge-runner-*"+ext)
	if err != nil {
		return "", errors.IO(errors.PhaseConfig, err, "create runner temp file")
	}
	if _, err := f.Write(src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.IO(errors.PhaseConfig, err, "write runner script")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.IO(errors.PhaseConfig, err, "close runner script")
	}
	return f.Name(), nil
}
