package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statkit/statbridge"
	"github.com/statkit/statbridge/codec"
	"github.com/statkit/statbridge/engine/runner"
	"github.com/statkit/statbridge/errors"
	"github.com/statkit/statbridge/process"
	"github.com/statkit/statbridge/protocol"
	"github.com/statkit/statbridge/telemetry"
)

// Config describes one engine instance.
type Config struct {
	// Kind selects the runtime, python or r.
	Kind statbridge.EngineKind `koanf:"kind"`

	// ExecutablePath overrides the kind's default interpreter binary.
	ExecutablePath string `koanf:"executable"`

	// RunnerScript overrides the embedded wire runner with a script on
	// disk. Mainly a development and test hook.
	RunnerScript string `koanf:"runner_script"`

	// Timeout bounds each Run. Zero means process.DefaultTimeout.
	Timeout time.Duration `koanf:"timeout"`

	// PreloadPackages are loaded into every request's namespace.
	PreloadPackages []string `koanf:"preload_packages"`

	// WorkDir is the subprocess working directory; empty means inherit.
	WorkDir string `koanf:"work_dir"`

	// Env entries are appended to the subprocess environment.
	Env []string `koanf:"env"`
}

// Validate checks the config without touching the filesystem.
func (c *Config) Validate() error {
	if !c.Kind.Valid() {
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("unknown engine kind %q", c.Kind))
	}
	if c.Timeout < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "timeout must not be negative")
	}
	if c.RunnerScript != "" {
		if _, err := os.Stat(c.RunnerScript); err != nil {
			return errors.IO(errors.PhaseConfig, err, "runner script not readable")
		}
	}
	return nil
}

// Engine executes scripts in one external statistical runtime. All
// methods are safe for concurrent use; overlapping Run calls are
// rejected, not queued.
type Engine struct {
	cfg        Config
	sup        *process.Supervisor
	runnerPath string
	ownsRunner bool
	cleanup    sync.Once
}

// New validates the config, materializes the wire runner and builds the
// supervisor. The subprocess is not spawned until Start.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	exe := cfg.ExecutablePath
	if exe == "" {
		exe = cfg.Kind.DefaultExecutable()
	}

	runnerPath := cfg.RunnerScript
	ownsRunner := false
	if runnerPath == "" {
		p, err := runner.Materialize(cfg.Kind)
		if err != nil {
			return nil, err
		}
		runnerPath = p
		ownsRunner = true
	}

	sup, err := process.New(process.Config{
		Name:    string(cfg.Kind),
		Argv:    []string{exe, runnerPath},
		Dir:     cfg.WorkDir,
		Env:     cfg.Env,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		if ownsRunner {
			os.Remove(runnerPath)
		}
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		sup:        sup,
		runnerPath: runnerPath,
		ownsRunner: ownsRunner,
	}, nil
}

// Kind returns the engine's runtime kind.
func (e *Engine) Kind() statbridge.EngineKind { return e.cfg.Kind }

// Status returns the current lifecycle state.
func (e *Engine) Status() statbridge.Status { return e.sup.Status() }

// Start spawns the interpreter subprocess.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.sup.Start(ctx); err != nil {
		return err
	}
	Logger().Info("engine started",
		zap.String("kind", string(e.cfg.Kind)),
		zap.String("runner", e.runnerPath))
	return nil
}

// Restart replaces the subprocess, recovering from the error state.
// In-memory interpreter state from earlier runs is lost.
func (e *Engine) Restart(ctx context.Context) error {
	return e.sup.Restart(ctx)
}

// Stop terminates the engine permanently and removes the materialized
// runner script.
func (e *Engine) Stop(ctx context.Context) error {
	err := e.sup.Stop(ctx)
	if e.ownsRunner {
		e.cleanup.Do(func() { os.Remove(e.runnerPath) })
	}
	return err
}

// Run executes one script with the given named data values and returns
// the interpreter's response. Script failures inside the runtime are a
// normal response with Success false; a non-nil error means the bridge
// itself failed.
func (e *Engine) Run(ctx context.Context, script string, data map[string]any) (*statbridge.Response, error) {
	return e.RunRequest(ctx, statbridge.Request{Script: script, Data: data})
}

// RunRequest is Run with full control over the request. An empty ID is
// assigned before transmission.
func (e *Engine) RunRequest(ctx context.Context, req statbridge.Request) (*statbridge.Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if len(e.cfg.PreloadPackages) > 0 {
		req.Packages = append(append([]string{}, e.cfg.PreloadPackages...), req.Packages...)
	}

	wreq := protocol.NewWireRequest(req)

	start := time.Now()
	wresp, err := e.sup.Execute(ctx, wreq)
	elapsed := time.Since(start)
	telemetry.RunSeconds.WithLabelValues(string(e.cfg.Kind)).Observe(elapsed.Seconds())

	if err != nil {
		telemetry.RunsTotal.WithLabelValues(string(e.cfg.Kind), telemetry.OutcomeBridgeError).Inc()
		Logger().Warn("run failed",
			zap.String("kind", string(e.cfg.Kind)),
			zap.String("id", req.ID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		if wresp == nil {
			return nil, err
		}
		// Process-death diagnostics still reach the caller.
		return fromWire(wresp), err
	}

	outcome := telemetry.OutcomeSuccess
	if !wresp.Success {
		outcome = telemetry.OutcomeScriptError
	}
	telemetry.RunsTotal.WithLabelValues(string(e.cfg.Kind), outcome).Inc()
	Logger().Debug("run completed",
		zap.String("kind", string(e.cfg.Kind)),
		zap.String("id", req.ID),
		zap.Bool("success", wresp.Success),
		zap.Duration("elapsed", elapsed))

	return fromWire(wresp), nil
}

// fromWire maps a wire envelope to the public response, decoding tagged
// values back into native Go containers.
func fromWire(w *protocol.WireResponse) *statbridge.Response {
	resp := &statbridge.Response{
		ID:      w.ID,
		Success: w.Success,
		Output:  w.Output,
		Plots:   w.Plots,
	}
	if w.Success {
		resp.Result = codec.Decode(w.Result)
		return resp
	}
	resp.Error = w.Error
	if w.Traceback != "" {
		resp.Error = strings.TrimSpace(w.Error + "\n" + w.Traceback)
	}
	return resp
}
