package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statkit/statbridge"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Len(t, cfg.Engines, 2)
	assert.Equal(t, statbridge.KindPython, cfg.Engines["python"].Kind)
	assert.Equal(t, statbridge.KindR, cfg.Engines["r"].Kind)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.History.Path)
	assert.Zero(t, cfg.Metrics.Port)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
engines:
  python:
    executable: /opt/python3.12/bin/python3
    timeout: 45s
    preload_packages: [numpy, pandas]
  r:
    kind: r
history:
  path: /var/lib/statbridge/history.db
metrics:
  port: 9102
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	py := cfg.Engines["python"]
	assert.Equal(t, statbridge.KindPython, py.Kind, "kind inferred from map key")
	assert.Equal(t, "/opt/python3.12/bin/python3", py.ExecutablePath)
	assert.Equal(t, 45*time.Second, py.Timeout)
	assert.Equal(t, []string{"numpy", "pandas"}, py.PreloadPackages)

	assert.Equal(t, "/var/lib/statbridge/history.db", cfg.History.Path)
	assert.Equal(t, 9102, cfg.Metrics.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
history:
  path: /from/file.db
`)
	t.Setenv("STATBRIDGE__HISTORY__PATH", "/from/env.db")
	t.Setenv("STATBRIDGE__METRICS__PORT", "9200")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.History.Path)
	assert.Equal(t, 9200, cfg.Metrics.Port)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
}

func TestLoad_InvalidEngine(t *testing.T) {
	path := writeConfig(t, `
engines:
  julia:
    kind: julia
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEngineLookup(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	ec, err := cfg.Engine("python")
	require.NoError(t, err)
	assert.Equal(t, statbridge.KindPython, ec.Kind)

	_, err = cfg.Engine("octave")
	assert.Error(t, err)
}
