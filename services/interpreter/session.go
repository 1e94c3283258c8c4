// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/StipulaForge/pkg/scratch"
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle position of a Session's interpreter process.
type State int

const (
	// StateIdle means no process is registered.
	StateIdle State = iota

	// StateStarting means temp files are being written and the process launched.
	StateStarting

	// StateRunning means a live process is registered.
	StateRunning

	// StateClosing means the process is being killed.
	StateClosing
)

// String returns a human-readable state name.
func (s State) String() string {
	names := []string{"idle", "starting", "running", "closing"}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config describes how to launch the interpreter.
type Config struct {
	// Command is the executable. Default: "java".
	Command string `yaml:"command"`

	// Args precede the contract path and HO input paths on the command line.
	// Default: ["-jar", "HOstipula_lan.jar"].
	Args []string `yaml:"args"`

	// WorkDir is the process working directory. Empty inherits ours.
	WorkDir string `yaml:"work_dir"`

	// TempDir receives contract and HO input files. Empty means os.TempDir().
	TempDir string `yaml:"temp_dir"`

	// KillGrace bounds how long output draining may take after the process
	// has exited or been killed. Default: 2s.
	KillGrace time.Duration `yaml:"kill_grace"`
}

// DefaultConfig returns the stock interpreter launch line.
func DefaultConfig() Config {
	return Config{
		Command:   "java",
		Args:      []string{"-jar", "HOstipula_lan.jar"},
		KillGrace: 2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Command == "" {
		c.Command = def.Command
		if c.Args == nil {
			c.Args = def.Args
		}
	}
	if c.KillGrace <= 0 {
		c.KillGrace = def.KillGrace
	}
	return c
}

// =============================================================================
// SESSION
// =============================================================================

// process is one launched interpreter and everything it owns.
type process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	files   *scratch.Set
	started time.Time

	// ready gates stream output until INTERPRETER_STARTED has been emitted.
	ready chan struct{}

	// done is closed once the process has been reaped.
	done chan struct{}

	// reason is set by Stop or Close before the kill. Empty means the process
	// exited on its own.
	reason string

	// inputs feeds writeInputs. writing is held from hand-off until the write
	// returns, so at most one line is ever pending.
	inputs  chan string
	writing atomic.Bool
	broken  atomic.Bool
}

// Session binds one client connection to at most one interpreter process.
//
// # Description
//
// Session turns client frames into process control. Process stdout and
// stderr are forwarded as they arrive, the process exit is reported, and every
// temp file written for a launch is deleted when that process ends, is
// stopped, or the connection closes.
//
// # Thread Safety
//
// Safe for concurrent use. Frames from a single connection are expected to be
// handled in order; output callbacks run on their own goroutines.
type Session struct {
	id     string
	cfg    Config
	emit   Emitter
	logger *slog.Logger

	mu    sync.Mutex
	state State
	proc  *process

	closed atomic.Bool
}

// NewSession creates an idle session.
//
// # Inputs
//
//   - id: Connection identifier used in logs and the registry.
//   - cfg: Launch configuration; zero fields take DefaultConfig values.
//   - emit: Destination for outbound frames.
//   - logger: Structured logger; nil falls back to slog.Default().
func NewSession(id string, cfg Config, emit Emitter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:     id,
		cfg:    cfg.withDefaults(),
		emit:   emit,
		logger: logger.With(slog.String("session_id", id)),
	}
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TempFiles returns the paths written for the current process, if any.
func (s *Session) TempFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return nil
	}
	return s.proc.files.Paths()
}

// send delivers o unless the connection has gone away.
func (s *Session) send(o Outbound) {
	if s.closed.Load() {
		return
	}
	if err := s.emit.Emit(o); err != nil {
		s.logger.Debug("emit failed", slog.String("type", string(o.Type)), slog.String("error", err.Error()))
	}
}

// Handle decodes and dispatches one inbound frame.
//
// # Description
//
// Protocol problems are reported to the client as ERROR frames and also
// returned, so the caller can log them. A returned error never means the
// connection should be dropped.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		s.send(ProtocolError(MsgMalformed))
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch in.Type {
	case TypeStart:
		var p StartPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			s.send(ProtocolError("Invalid START_INTERPRETER payload: " + err.Error()))
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return s.Start(ctx, p)

	case TypeSendInput:
		var p InputPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			s.send(ProtocolError("Invalid SEND_INPUT payload: " + err.Error()))
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return s.SendInput(ctx, p.Input)

	case TypeStop:
		return s.Stop(ctx)

	default:
		s.send(ProtocolError(MsgUnknownType))
		return fmt.Errorf("%w: %q", ErrUnknownMessage, in.Type)
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// Start writes the contract and HO inputs to temp files and launches the
// interpreter on them.
//
// # Description
//
// The command line is Args, then the contract path, then one path per HO
// input in order. INTERPRETER_STARTED is emitted before any process output.
// The process runs independently of ctx.
//
// # Outputs
//
//   - error: ErrAlreadyRunning while a process is registered, ErrSpawn when the
//     files or process could not be created. Both are also reported to the
//     client as ERROR frames.
func (s *Session) Start(ctx context.Context, p StartPayload) error {
	ctx, span := startSpawnSpan(ctx, s.id, len(p.HOInputs))
	defer span.End()

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		s.send(ProtocolError(MsgAlreadyRunning))
		return ErrAlreadyRunning
	}
	s.state = StateStarting

	proc, err := s.launch(p)
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		span.RecordError(err)
		recordSpawn(ctx, false)
		s.logger.Warn("interpreter launch failed", slog.String("error", err.Error()))
		s.send(ProtocolError(msgSpawnPrefix + err.Error()))
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	s.proc = proc
	s.state = StateRunning
	s.mu.Unlock()

	go s.supervise(proc)
	go s.writeInputs(proc)

	recordSpawn(ctx, true)
	s.logger.Info("interpreter started",
		slog.Int("pid", proc.cmd.Process.Pid),
		slog.Int("ho_inputs", len(p.HOInputs)),
	)
	s.send(Started())
	close(proc.ready)
	return nil
}

// launch writes the temp files and starts the process. Must hold s.mu.
func (s *Session) launch(p StartPayload) (*process, error) {
	files := scratch.New(s.cfg.TempDir, s.logger)
	fail := func(err error) (*process, error) {
		_ = files.Remove()
		return nil, err
	}

	contractPath, err := files.Write("contract_*.stipula", p.ContractCode)
	if err != nil {
		return fail(err)
	}
	args := append([]string(nil), s.cfg.Args...)
	args = append(args, contractPath)
	for i, in := range p.HOInputs {
		path, err := files.Write(fmt.Sprintf("ho_input_%d_*.stipula", i+1), in.Content)
		if err != nil {
			return fail(err)
		}
		args = append(args, path)
	}

	proc := &process{
		files:  files,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		inputs: make(chan string, 1),
	}

	cmd := exec.Command(s.cfg.Command, args...)
	cmd.Dir = s.cfg.WorkDir
	cmd.Stdout = &streamWriter{s: s, proc: proc, wrap: Output}
	cmd.Stderr = &streamWriter{s: s, proc: proc, wrap: Stderr}
	cmd.WaitDelay = s.cfg.KillGrace

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fail(err)
	}
	if err := cmd.Start(); err != nil {
		return fail(err)
	}

	proc.cmd = cmd
	proc.stdin = stdin
	proc.started = time.Now()
	return proc, nil
}

// supervise reaps proc, releases its files and reports a natural exit.
func (s *Session) supervise(proc *process) {
	err := proc.cmd.Wait()

	s.mu.Lock()
	if s.proc == proc {
		s.proc = nil
		s.state = StateIdle
	}
	reason := proc.reason
	s.mu.Unlock()

	_ = proc.files.Remove()
	close(proc.done)

	var code *int
	if st := proc.cmd.ProcessState; st != nil && st.ExitCode() >= 0 {
		c := st.ExitCode()
		code = &c
	}

	if reason == "" {
		reason = "exited"
		s.send(Closed(code))
	}
	recordExit(context.Background(), reason, time.Since(proc.started))

	attrs := []any{slog.String("reason", reason)}
	if code != nil {
		attrs = append(attrs, slog.Int("exit_code", *code))
	}
	if err != nil && !errors.As(err, new(*exec.ExitError)) {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.Info("interpreter exited", attrs...)
}

// SendInput hands input followed by a newline to the process stdin.
//
// # Description
//
// The write itself happens on the process's writer goroutine, so a child that
// never drains stdin cannot stall the caller. Input is rejected, not queued,
// while an earlier line is still being written or after a write has failed.
//
// # Outputs
//
//   - error: ErrNotWritable when no running process accepts input. The client
//     receives an ERROR frame in that case.
func (s *Session) SendInput(ctx context.Context, input string) error {
	s.mu.Lock()
	proc := s.proc
	running := s.state == StateRunning
	s.mu.Unlock()

	if proc == nil || !running || proc.broken.Load() {
		s.send(ProtocolError(MsgNotWritable))
		return ErrNotWritable
	}
	if !proc.writing.CompareAndSwap(false, true) {
		s.send(ProtocolError(MsgNotWritable))
		return fmt.Errorf("%w: previous input still pending", ErrNotWritable)
	}
	proc.inputs <- input + "\n"
	recordInput(ctx)
	return nil
}

// writeInputs copies handed-off lines to proc's stdin until it is reaped.
// Killing the process unblocks a pending write because Wait closes the pipe.
func (s *Session) writeInputs(proc *process) {
	for {
		select {
		case line := <-proc.inputs:
			if _, err := io.WriteString(proc.stdin, line); err != nil {
				proc.broken.Store(true)
				s.mu.Lock()
				ending := proc.reason != "" || s.proc != proc
				s.mu.Unlock()
				if !ending {
					s.logger.Debug("stdin write failed", slog.String("error", err.Error()))
					s.send(ProtocolError(MsgNotWritable))
				}
			}
			proc.writing.Store(false)
		case <-proc.done:
			return
		}
	}
}

// Stop kills the running process and deletes its temp files.
//
// # Description
//
// INTERPRETER_STOPPED is emitted once the process has been reaped or the kill
// grace period has passed. No INTERPRETER_CLOSED follows a stop.
//
// # Outputs
//
//   - error: ErrNotRunning when no process is registered; the client receives
//     an ERROR frame.
func (s *Session) Stop(ctx context.Context) error {
	proc := s.beginKill("stopped")
	if proc == nil {
		s.send(ProtocolError(MsgNothingToStop))
		return ErrNotRunning
	}
	s.finishKill(proc)
	s.logger.Info("interpreter stopped")
	s.send(Stopped())
	return nil
}

// Close ends the session when its connection goes away. Any running process
// is killed and its files removed; nothing further is emitted. Safe to call
// more than once.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	if proc := s.beginKill("disconnected"); proc != nil {
		s.finishKill(proc)
	}
}

// beginKill marks the registered process as ending for reason and moves the
// session to StateClosing. It returns nil when there is nothing to kill.
func (s *Session) beginKill(reason string) *process {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil || s.state != StateRunning {
		return nil
	}
	s.proc.reason = reason
	s.state = StateClosing
	return s.proc
}

func (s *Session) finishKill(proc *process) {
	if err := proc.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("kill interpreter", slog.String("error", err.Error()))
	}
	_ = proc.files.Remove()

	select {
	case <-proc.done:
	case <-time.After(2 * s.cfg.KillGrace):
		s.logger.Warn("interpreter not reaped after kill")
	}
}

// =============================================================================
// OUTPUT STREAMS
// =============================================================================

// streamWriter forwards every chunk written by the process as one frame.
type streamWriter struct {
	s    *Session
	proc *process
	wrap func(string) Outbound
}

func (w *streamWriter) Write(b []byte) (int, error) {
	<-w.proc.ready
	w.s.send(w.wrap(string(b)))
	return len(b), nil
}
