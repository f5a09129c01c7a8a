// Package config loads the bridge configuration from YAML merged with
// environment variables (prefix `STATBRIDGE__`, delimiter `__`).
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/statkit/statbridge"
	"github.com/statkit/statbridge/engine"
	"github.com/statkit/statbridge/errors"
)

const envPrefix = "STATBRIDGE__"

type HistoryCfg struct {
	// Path is the SQLite database file; empty disables run history.
	Path string `koanf:"path"`
}

type MetricsCfg struct {
	// Port serves Prometheus metrics on /metrics; zero disables the listener.
	Port int `koanf:"port"`
}

type LogCfg struct {
	Level       string `koanf:"level"` // debug|info|warn|error
	Development bool   `koanf:"development"`
}

type Config struct {
	Engines map[string]engine.Config `koanf:"engines"`
	History HistoryCfg               `koanf:"history"`
	Metrics MetricsCfg               `koanf:"metrics"`
	Log     LogCfg                   `koanf:"log"`
}

// Load merges the YAML file at path (if present) with env-vars. A missing
// file is not an error; env-only operation is supported.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!stderrors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.IO(errors.PhaseConfig, err, "load "+path)
		}
	}

	_ = k.Load(env.Provider(envPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, errors.IO(errors.PhaseConfig, err, "unmarshal config")
	}
	applyDefaults(&cfg)

	for name, ec := range cfg.Engines {
		if err := ec.Validate(); err != nil {
			return cfg, errors.InvalidInput(errors.PhaseConfig,
				fmt.Sprintf("engine %q: %v", name, err))
		}
	}
	return cfg, nil
}

// Engine returns the named engine definition.
func (c Config) Engine(name string) (engine.Config, error) {
	ec, ok := c.Engines[name]
	if !ok {
		return engine.Config{}, errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("no engine named %q configured", name))
	}
	return ec, nil
}

// applyDefaults fills the built-in python and r engines when the file
// defines none, and infers Kind from the map key where omitted.
func applyDefaults(c *Config) {
	if c.Engines == nil {
		c.Engines = map[string]engine.Config{}
	}
	if len(c.Engines) == 0 {
		c.Engines["python"] = engine.Config{Kind: statbridge.KindPython}
		c.Engines["r"] = engine.Config{Kind: statbridge.KindR}
	}
	for name, ec := range c.Engines {
		if ec.Kind == "" && statbridge.EngineKind(name).Valid() {
			ec.Kind = statbridge.EngineKind(name)
			c.Engines[name] = ec
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
