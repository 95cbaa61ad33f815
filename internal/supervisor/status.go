package supervisor

import "time"

// Status is a point-in-time snapshot of the supervised backend.
// State is backed by a real liveness check: a backend that died since the
// last transition is reported failed, never running.
type Status struct {
	State       string    `json:"state"`
	Endpoint    *Endpoint `json:"endpoint,omitempty"`
	PID         int       `json:"pid,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	StoppedAt   time.Time `json:"stopped_at,omitempty"`
	Restarts    uint32    `json:"restarts"`
	Failure     string    `json:"failure,omitempty"`
	StopOutcome string    `json:"stop_outcome,omitempty"`
}

// Running reports whether the snapshot shows a live, probed backend.
func (s Status) Running() bool { return s.State == StateRunning.String() }
