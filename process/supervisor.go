package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/statkit/statbridge"
	"github.com/statkit/statbridge/errors"
	"github.com/statkit/statbridge/protocol"
	"github.com/statkit/statbridge/telemetry"
)

const (
	// DefaultTimeout bounds the wait for a response envelope when the
	// config does not set one.
	DefaultTimeout = 30 * time.Second

	// maxLineBytes bounds a single output line; large results travel on
	// the envelope line.
	maxLineBytes = 16 * 1024 * 1024

	// reclaimGrace is how long a killed process gets to actually exit
	// before the supervisor stops waiting for it.
	reclaimGrace = 2 * time.Second

	// stderrTailBytes bounds how much captured stderr is attached to
	// process-death diagnostics.
	stderrTailBytes = 4096
)

// Config describes the subprocess a Supervisor manages.
type Config struct {
	// Name labels the engine in logs and metrics, e.g. "python".
	Name string

	// Argv is the executable and its arguments.
	Argv []string

	// Dir is the working directory; empty means inherit.
	Dir string

	// Env entries are appended to the parent environment.
	Env []string

	// Timeout bounds each Execute wait. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Supervisor owns one external runtime process. The status field is the
// single source of lifecycle truth and the mutual-exclusion mechanism:
// Execute is accepted only in the ready state.
//
// Supervisor is safe for concurrent use; concurrent Execute calls are
// serialized by rejection, not queuing.
type Supervisor struct {
	cfg Config

	mu        sync.Mutex
	status    statbridge.Status
	pendingID string
	proc      *child
}

// child is one spawned runtime process with its streams.
type child struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	exited  chan struct{}
	waitErr error
	stderr  *tailBuffer
}

// New validates the config and returns an uninitialized supervisor.
// Call Start before Execute.
func New(cfg Config) (*Supervisor, error) {
	if len(cfg.Argv) == 0 || cfg.Argv[0] == "" {
		return nil, errors.InvalidInput(errors.PhaseConfig, "argv must name an executable")
	}
	if cfg.Timeout < 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, "timeout must not be negative")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Supervisor{
		cfg:    cfg,
		status: statbridge.StatusUninitialized,
	}, nil
}

// Status returns the current lifecycle state.
func (s *Supervisor) Status() statbridge.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start spawns the runtime process. Readiness is spawn success; the wire
// runners perform no explicit handshake. Start is a no-op if the process
// is already running, and fails after Stop.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case statbridge.StatusReady, statbridge.StatusBusy:
		return nil
	case statbridge.StatusStopped:
		return errors.New(errors.PhaseSpawn, errors.KindNotReady).
			Status(string(s.status)).
			Detail("supervisor is stopped").
			Build()
	}
	return s.spawnLocked()
}

// spawnLocked starts a fresh process. Caller must hold s.mu.
func (s *Supervisor) spawnLocked() error {
	s.status = statbridge.StatusInitializing

	cmd := exec.Command(s.cfg.Argv[0], s.cfg.Argv[1:]...)
	cmd.Dir = s.cfg.Dir
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}

	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.status = statbridge.StatusError
		return errors.Spawn(s.cfg.Argv[0], err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.status = statbridge.StatusError
		return errors.Spawn(s.cfg.Argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		s.status = statbridge.StatusError
		return errors.Spawn(s.cfg.Argv[0], err)
	}

	c := &child{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, 256),
		exited: make(chan struct{}),
		stderr: stderr,
	}
	go c.readLines(stdout)
	go func() {
		c.waitErr = cmd.Wait()
		close(c.exited)
	}()

	s.proc = c
	s.status = statbridge.StatusReady

	Logger().Debug("runtime process started",
		zap.String("engine", s.cfg.Name),
		zap.String("executable", s.cfg.Argv[0]),
		zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (c *child) readLines(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		c.lines <- sc.Text()
	}
	close(c.lines)
}

// Execute transmits one framed request and waits for its response
// envelope, bounded by the configured timeout. It fails immediately when
// the supervisor is not ready. On failure the returned response may carry
// a synthesized diagnostic envelope alongside the error.
func (s *Supervisor) Execute(ctx context.Context, req *protocol.WireRequest) (*protocol.WireResponse, error) {
	s.mu.Lock()
	switch s.status {
	case statbridge.StatusBusy:
		pending := s.pendingID
		s.mu.Unlock()
		return nil, errors.Busy(pending)
	case statbridge.StatusReady:
	default:
		st := s.status
		s.mu.Unlock()
		return nil, errors.NotReady(string(st))
	}
	proc := s.proc
	s.status = statbridge.StatusBusy
	s.pendingID = req.ID
	s.mu.Unlock()

	frame, err := req.EncodeFrame()
	if err != nil {
		// Nothing was transmitted; the process is untouched.
		s.setStatus(statbridge.StatusReady)
		return nil, errors.IO(errors.PhaseFrame, err, "encode request frame")
	}

	if _, err := proc.stdin.Write(frame); err != nil {
		s.setStatus(statbridge.StatusError)
		return nil, errors.ProcessDead(req.ID, fmt.Errorf("write request: %w", err))
	}

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	var output []string
	for {
		select {
		case line, ok := <-proc.lines:
			if !ok {
				return s.resolveExit(req, proc, output)
			}
			resp, isEnvelope := protocol.DecodeLine([]byte(line))
			if !isEnvelope {
				output = append(output, line)
				continue
			}
			return s.resolveEnvelope(req, resp, output, statbridge.StatusReady)

		case <-proc.exited:
			return s.resolveExit(req, proc, output)

		case <-timer.C:
			// The process may still complete the stale request later; it
			// must never be correlated with a future one, so the process
			// is reclaimed rather than reused.
			s.reclaim(proc)
			if err := s.restartInternal("timeout"); err != nil {
				Logger().Warn("restart after timeout failed",
					zap.String("engine", s.cfg.Name), zap.Error(err))
			}
			return nil, errors.Timeout(req.ID, s.cfg.Timeout)

		case <-ctx.Done():
			// The runtime has no cooperative cancellation primitive;
			// cancellation is destructive to the process instance.
			s.reclaim(proc)
			if err := s.restartInternal("cancel"); err != nil {
				Logger().Warn("restart after cancel failed",
					zap.String("engine", s.cfg.Name), zap.Error(err))
			}
			return nil, errors.Canceled(req.ID, ctx.Err())
		}
	}
}

// resolveEnvelope correlates a received envelope with the pending request
// and fills in buffered console output.
func (s *Supervisor) resolveEnvelope(req *protocol.WireRequest, resp *protocol.WireResponse, output []string, next statbridge.Status) (*protocol.WireResponse, error) {
	if resp.ID != req.ID {
		s.setStatus(statbridge.StatusError)
		Logger().Warn("response correlation mismatch",
			zap.String("engine", s.cfg.Name),
			zap.String("want", req.ID),
			zap.String("got", resp.ID))
		return nil, errors.Correlation(req.ID, resp.ID)
	}
	if resp.Output == "" && len(output) > 0 {
		resp.Output = strings.Join(output, "\n")
	}
	s.setStatus(next)
	return resp, nil
}

// resolveExit handles the process exiting while a request is in flight.
// Remaining buffered lines are drained first: the envelope may have been
// written just before exit. Otherwise the batch framing rule is applied to
// the captured output.
func (s *Supervisor) resolveExit(req *protocol.WireRequest, proc *child, output []string) (*protocol.WireResponse, error) {
	for line := range proc.lines {
		if resp, ok := protocol.DecodeLine([]byte(line)); ok {
			// Delivered, but the process is gone: error status, restartable.
			return s.resolveEnvelope(req, resp, output, statbridge.StatusError)
		}
		output = append(output, line)
	}
	<-proc.exited

	synth := protocol.ParseResponse([]byte(strings.Join(output, "\n")))
	s.setStatus(statbridge.StatusError)

	detail := synth.Error
	if tail := proc.stderr.String(); tail != "" {
		detail += "; stderr: " + tail
	}
	return synth, errors.New(errors.PhaseExecute, errors.KindProcessDead).
		RequestID(req.ID).
		Detail("%s", detail).
		Cause(proc.waitErr).
		Build()
}

// Restart reclaims the current process (if any) and spawns a fresh one.
// It is the recovery path out of the error state.
func (s *Supervisor) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.status == statbridge.StatusStopped {
		s.mu.Unlock()
		return errors.NotReady(string(statbridge.StatusStopped))
	}
	proc := s.proc
	s.mu.Unlock()

	if proc != nil {
		s.reclaim(proc)
	}
	telemetry.EngineRestarts.WithLabelValues(s.cfg.Name, "manual").Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == statbridge.StatusStopped {
		return errors.NotReady(string(statbridge.StatusStopped))
	}
	return s.spawnLocked()
}

// restartInternal is the supervisor's own recovery after timeout or
// cancellation. The error state is entered first so a failed respawn
// leaves a truthful status.
func (s *Supervisor) restartInternal(reason string) error {
	telemetry.EngineRestarts.WithLabelValues(s.cfg.Name, reason).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == statbridge.StatusStopped {
		return errors.NotReady(string(statbridge.StatusStopped))
	}
	s.status = statbridge.StatusError
	s.pendingID = ""
	return s.spawnLocked()
}

// Stop terminates the supervisor. The state is terminal; the underlying
// process is forcibly reclaimed if still alive.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.status = statbridge.StatusStopped
	s.pendingID = ""
	s.mu.Unlock()

	if proc != nil {
		s.reclaim(proc)
	}
	return nil
}

// reclaim shuts a process down: stdin close first so a healthy runner
// exits on EOF, then a kill.
func (s *Supervisor) reclaim(proc *child) {
	_ = proc.stdin.Close()
	select {
	case <-proc.exited:
		return
	case <-time.After(100 * time.Millisecond):
	}

	if proc.cmd.Process != nil {
		_ = proc.cmd.Process.Kill()
	}
	select {
	case <-proc.exited:
	case <-time.After(reclaimGrace):
		Logger().Warn("process did not exit after kill",
			zap.String("engine", s.cfg.Name))
	}
}

func (s *Supervisor) setStatus(st statbridge.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == statbridge.StatusStopped {
		return
	}
	s.status = st
	if st != statbridge.StatusBusy {
		s.pendingID = ""
	}
}

// tailBuffer is a bounded io.Writer keeping the most recent bytes.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
