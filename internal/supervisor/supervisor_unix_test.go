//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

func processDead(pid int) bool {
	return syscall.Kill(pid, 0) != nil
}

func TestStartStopRoundTrip(t *testing.T) {
	spec := testSpec(t, "")
	spec.Log.Dir = t.TempDir()
	s := newTestSupervisor(t, spec)

	ep, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := s.Status()
	if !st.Running() {
		t.Fatalf("status = %s, want running", st.State)
	}
	if st.PID <= 0 {
		t.Fatalf("status PID = %d, want > 0", st.PID)
	}

	resp, err := http.Get("http://" + ep.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("health GET: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", resp.StatusCode)
	}

	pid := st.PID
	if err := s.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	st = s.Status()
	if st.State != "stopped" {
		t.Fatalf("status = %s, want stopped", st.State)
	}
	if st.StopOutcome != "graceful" {
		t.Fatalf("stop outcome = %q, want graceful", st.StopOutcome)
	}
	if !processDead(pid) {
		t.Fatalf("backend pid %d still alive after stop", pid)
	}

	out, err := os.ReadFile(filepath.Join(spec.Log.Dir, "backend.stdout.log"))
	if err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	if !strings.Contains(string(out), "listening on port") {
		t.Fatalf("captured stdout missing backend output: %q", out)
	}
}

func TestDoubleStartReturnsAlreadyRunning(t *testing.T) {
	s := newTestSupervisor(t, testSpec(t, ""))

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	pid := s.Status().PID

	if _, err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}
	if got := s.Status().PID; got != pid {
		t.Fatalf("PID changed on rejected start: %d -> %d", pid, got)
	}
}

func TestBackendExitDuringStartup(t *testing.T) {
	s := newTestSupervisor(t, testSpec(t, "exit"))

	_, err := s.Start(context.Background())
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("Start err = %v, want *ExitError", err)
	}
	if ee.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", ee.ExitCode)
	}
	if !strings.Contains(ee.Tail, "refusing to start") {
		t.Fatalf("tail missing backend output: %q", ee.Tail)
	}
}

func TestHealthTimeoutKillsChild(t *testing.T) {
	spec := testSpec(t, "hang")
	spec.HealthTimeout = 500 * time.Millisecond
	s := newTestSupervisor(t, spec)

	_, err := s.Start(context.Background())
	var he *HealthError
	if !errors.As(err, &he) {
		t.Fatalf("Start err = %v, want *HealthError", err)
	}
	st := s.Status()
	if st.State != "failed" {
		t.Fatalf("status = %s, want failed", st.State)
	}
	if !processDead(st.PID) {
		t.Fatalf("unready backend pid %d leaked", st.PID)
	}
}

func TestStopDuringStartingKillsChild(t *testing.T) {
	spec := testSpec(t, "hang")
	spec.HealthTimeout = 30 * time.Second
	s := newTestSupervisor(t, spec)

	startErr := make(chan error, 1)
	go func() {
		_, err := s.Start(context.Background())
		startErr <- err
	}()
	waitFor(t, 5*time.Second, func() bool { return s.Status().State == "starting" })
	pid := s.Status().PID

	if err := s.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop during starting: %v", err)
	}
	if err := <-startErr; !errors.Is(err, ErrStartAborted) {
		t.Fatalf("aborted Start err = %v, want ErrStartAborted", err)
	}
	if st := s.Status(); st.State != "stopped" {
		t.Fatalf("status = %s, want stopped", st.State)
	}
	if !processDead(pid) {
		t.Fatalf("half-started backend pid %d leaked", pid)
	}
}

func TestUnsolicitedExitDetected(t *testing.T) {
	s := newTestSupervisor(t, testSpec(t, ""), WithReapInterval(50*time.Millisecond))

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := s.Status().PID
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		t.Fatalf("kill backend: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool { return s.Status().State == "failed" })
	st := s.Status()
	if st.Failure == "" {
		t.Fatalf("failed status carries no failure detail")
	}
	if st.Running() {
		t.Fatalf("failed backend reported running")
	}
}

func TestAutoRestartAfterUnsolicitedExit(t *testing.T) {
	spec := testSpec(t, "")
	spec.AutoRestart = true
	spec.RestartInterval = 100 * time.Millisecond
	s := newTestSupervisor(t, spec, WithReapInterval(50*time.Millisecond))

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := s.Status().PID
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		t.Fatalf("kill backend: %v", err)
	}

	waitFor(t, 10*time.Second, func() bool {
		st := s.Status()
		return st.Running() && st.PID != pid
	})
	if got := s.Status().Restarts; got < 1 {
		t.Fatalf("restarts = %d, want >= 1", got)
	}

	// A requested stop suppresses further restarts.
	if err := s.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if st := s.Status(); st.State != "stopped" {
		t.Fatalf("restarted after stop: status = %s", st.State)
	}
}

func TestStopNoWaitReturnsImmediately(t *testing.T) {
	s := newTestSupervisor(t, testSpec(t, ""))

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background(), false); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return s.Status().State == "stopped" })
}

func TestShutdownKillsBackend(t *testing.T) {
	s, err := New(testSpec(t, ""))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := s.Status().PID

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !processDead(pid) {
		t.Fatalf("backend pid %d outlived supervisor", pid)
	}
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("Start after shutdown err = %v, want ErrShuttingDown", err)
	}
}
