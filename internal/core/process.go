package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sw5cc/xi-term/internal/logging"
)

// ProcessStatus indicates the current state of the core process.
type ProcessStatus int

const (
	ProcessStatusStopped ProcessStatus = iota
	ProcessStatusRunning
	ProcessStatusExited
)

// String returns a human-readable status name.
func (s ProcessStatus) String() string {
	switch s {
	case ProcessStatusStopped:
		return "stopped"
	case ProcessStatusRunning:
		return "running"
	case ProcessStatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

// CoreConfig defines how to start the engine executable.
type CoreConfig struct {
	// Command is the engine executable to run.
	Command string

	// Args are command-line arguments.
	Args []string

	// Env are additional environment variables.
	Env map[string]string

	// WorkDir is the working directory.
	WorkDir string

	// StopGrace is how long Stop waits after closing stdin before
	// killing the process. Defaults to 2s.
	StopGrace time.Duration
}

// CoreProcess is the spawned engine with its pipes.
type CoreProcess struct {
	mu sync.Mutex

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	status   atomic.Int32
	exitCh   chan error
	waitDone chan struct{}
	grace    time.Duration

	logger *logging.Logger
}

// SpawnCore starts the engine executable with stdin/stdout pipes and a
// monitor goroutine. Stderr is drained into the log: engine diagnostics
// are useful, never fatal.
func SpawnCore(ctx context.Context, cfg CoreConfig) (*CoreProcess, error) {
	if cfg.Command == "" {
		return nil, ErrCoreNotFound
	}
	if _, err := exec.LookPath(cfg.Command); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCoreNotFound, cfg.Command)
	}
	if cfg.StopGrace == 0 {
		cfg.StopGrace = 2 * time.Second
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)

	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("start core process: %w", err)
	}

	p := &CoreProcess{
		cmd:      cmd,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		exitCh:   make(chan error, 1),
		waitDone: make(chan struct{}),
		grace:    cfg.StopGrace,
		logger:   logging.GetLogger().WithComponent("core-process"),
	}
	p.status.Store(int32(ProcessStatusRunning))

	go p.monitor()
	go p.drainStderr()

	p.logger.Info("core started: %s (pid %d)", cfg.Command, cmd.Process.Pid)
	return p, nil
}

// Stdout is the engine's output stream: inbound RPC traffic.
func (p *CoreProcess) Stdout() io.Reader {
	return p.stdout
}

// Stdin is the engine's input stream: outbound RPC traffic.
func (p *CoreProcess) Stdin() io.Writer {
	return p.stdin
}

// Status returns the process state.
func (p *CoreProcess) Status() ProcessStatus {
	return ProcessStatus(p.status.Load())
}

// ExitChannel receives the process's exit error once, when it dies.
func (p *CoreProcess) ExitChannel() <-chan error {
	return p.exitCh
}

// Pid returns the engine's process id, or 0 before start.
func (p *CoreProcess) Pid() int {
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}

// Stop closes stdin so the engine can exit on its own, then kills it
// after the grace period. Safe to call more than once.
func (p *CoreProcess) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ProcessStatus(p.status.Load()) != ProcessStatusRunning {
		return
	}

	p.stdin.Close()

	select {
	case <-p.waitDone:
		return
	case <-time.After(p.grace):
	}

	if p.cmd.Process != nil {
		p.logger.Warn("core did not exit after stdin close; killing pid %d", p.cmd.Process.Pid)
		_ = p.cmd.Process.Kill()
	}
}

// monitor waits on the process and publishes the exit error.
func (p *CoreProcess) monitor() {
	err := p.cmd.Wait()
	p.status.Store(int32(ProcessStatusExited))
	if err != nil {
		p.logger.Error("core exited: %v", err)
	} else {
		p.logger.Info("core exited cleanly")
	}
	select {
	case p.exitCh <- err:
	default:
	}
	close(p.waitDone)
}

// drainStderr forwards engine log lines into our log.
func (p *CoreProcess) drainStderr() {
	scanner := bufio.NewScanner(p.stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), readBufferSize)
	for scanner.Scan() {
		p.logger.Debug("core: %s", scanner.Text())
	}
}
