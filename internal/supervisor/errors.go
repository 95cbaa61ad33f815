package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start when the backend is already
	// running or still starting. No second process is spawned.
	ErrAlreadyRunning = errors.New("backend is already running")

	// ErrStopInProgress is returned by Start while a stop is being executed.
	ErrStopInProgress = errors.New("backend stop is in progress")

	// ErrStartAborted is delivered to a pending Start whose health probe was
	// canceled by a concurrent Stop.
	ErrStartAborted = errors.New("backend start aborted by stop request")

	// ErrStopTimeout is returned when the backend survived both the graceful
	// grace period and the follow-up kill window. The supervisor remains in
	// the stopping state so a retry can escalate again.
	ErrStopTimeout = errors.New("backend did not exit within the stop grace period")

	// ErrShuttingDown is returned once Shutdown has been requested.
	ErrShuttingDown = errors.New("supervisor is shutting down")
)

// SpawnError reports a failure to create the backend process at all
// (missing binary, permission denied, invalid port). Not retried.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn backend %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// HealthError reports a backend that spawned but never became reachable on
// its declared endpoint. The orphaned process is killed before the error is
// surfaced.
type HealthError struct {
	Endpoint string
	Tail     string
	Err      error
}

func (e *HealthError) Error() string {
	if e.Tail != "" {
		return fmt.Sprintf("backend never became ready on %s: %v (output tail: %s)", e.Endpoint, e.Err, e.Tail)
	}
	return fmt.Sprintf("backend never became ready on %s: %v", e.Endpoint, e.Err)
}

func (e *HealthError) Unwrap() error { return e.Err }

// ExitError reports that the backend process exited when it was expected to
// keep running, either during startup or asynchronously while Running.
type ExitError struct {
	ExitCode int
	Tail     string
}

func (e *ExitError) Error() string {
	if e.Tail != "" {
		return fmt.Sprintf("backend exited unexpectedly (exit code %d, output tail: %s)", e.ExitCode, e.Tail)
	}
	return fmt.Sprintf("backend exited unexpectedly (exit code %d)", e.ExitCode)
}
