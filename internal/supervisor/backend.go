package supervisor

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/vasic-digital/LLMsVerifier/internal/logger"
)

// handle owns one spawned backend process. Every lifecycle operation goes
// through this guarded slot; nothing else holds the raw *exec.Cmd.
type handle struct {
	mu        sync.Mutex
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	stoppedAt time.Time
	exited    bool
	exitErr   error
	waitDone  chan struct{} // closed by Wait once the process is reaped
	outCloser io.WriteCloser
	errCloser io.WriteCloser
	tail      *logger.TailBuffer
}

// newHandle builds the exec.Cmd for the spec without starting it.
// stdout/stderr go to the rotated log writers (when configured) and always
// to a bounded in-memory tail used for failure diagnostics.
func newHandle(spec Spec, ep Endpoint) *handle {
	cmd := exec.Command(spec.Path, spec.launchArgs(ep.Port)...) // #nosec G204 -- path and args come from the shell's own config
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	configureSysProcAttr(cmd)

	h := &handle{
		cmd:      cmd,
		tail:     logger.NewTailBuffer(8 * 1024),
		waitDone: make(chan struct{}),
	}

	if spec.Log.Dir != "" || spec.Log.StdoutPath != "" || spec.Log.StderrPath != "" {
		if spec.Log.Dir != "" {
			_ = os.MkdirAll(spec.Log.Dir, 0o750)
		}
		outW, errW, _ := spec.Log.Writers("backend")
		h.outCloser, h.errCloser = outW, errW
	}
	if h.outCloser != nil {
		cmd.Stdout = io.MultiWriter(h.outCloser, h.tail)
	} else {
		cmd.Stdout = h.tail
	}
	if h.errCloser != nil {
		cmd.Stderr = io.MultiWriter(h.errCloser, h.tail)
	} else {
		cmd.Stderr = h.tail
	}
	return h
}

// start spawns the process and records its identity.
func (h *handle) start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.cmd.Start(); err != nil {
		return err
	}
	h.pid = h.cmd.Process.Pid
	h.startedAt = time.Now()
	return nil
}

// wait blocks until the process exits, records the exit and closes waitDone.
// The supervisor attaches exactly one waiter per run, so there is no
// contention over cmd.Wait.
func (h *handle) wait() error {
	err := h.cmd.Wait()
	h.mu.Lock()
	h.exited = true
	h.exitErr = err
	h.stoppedAt = time.Now()
	h.mu.Unlock()
	close(h.waitDone)
	return err
}

// WaitDone is closed once the process has been reaped.
func (h *handle) WaitDone() <-chan struct{} { return h.waitDone }

func (h *handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

func (h *handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedAt
}

func (h *handle) StoppedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stoppedAt
}

// ExitCode returns the recorded exit code, or -1 when the process was
// signaled or has not exited.
func (h *handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.exited {
		return -1
	}
	var ee *exec.ExitError
	if errors.As(h.exitErr, &ee) {
		return ee.ExitCode()
	}
	if h.exitErr == nil {
		return 0
	}
	return -1
}

// Alive probes OS-level liveness. It is authoritative about death: once the
// waiter has reaped the process, Alive is false regardless of pid reuse.
func (h *handle) Alive() bool {
	h.mu.Lock()
	exited := h.exited
	pid := h.pid
	h.mu.Unlock()
	if exited || pid == 0 {
		return false
	}
	return processAlive(pid)
}

// Terminate requests graceful shutdown of the process group.
func (h *handle) Terminate() error {
	pid := h.PID()
	if pid == 0 {
		return nil
	}
	return terminateGroup(pid)
}

// Kill force-terminates the process group.
func (h *handle) Kill() error {
	pid := h.PID()
	if pid == 0 {
		return nil
	}
	return killGroup(pid)
}

// Tail returns the retained end of the backend's combined output.
func (h *handle) Tail() string { return h.tail.String() }

// CloseWriters closes the rotated log writers. Safe to call more than once.
func (h *handle) CloseWriters() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.outCloser != nil {
		_ = h.outCloser.Close()
		h.outCloser = nil
	}
	if h.errCloser != nil {
		_ = h.errCloser.Close()
		h.errCloser = nil
	}
}
