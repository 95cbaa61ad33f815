package client

import "time"

// Endpoint is where the backend listens.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StartResponse is the daemon's reply to a start request.
type StartResponse struct {
	OK       bool     `json:"ok"`
	Endpoint Endpoint `json:"endpoint"`
}

// BackendStatus mirrors the daemon's status snapshot.
type BackendStatus struct {
	State       string    `json:"state"`
	Endpoint    *Endpoint `json:"endpoint,omitempty"`
	PID         int       `json:"pid,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	StoppedAt   time.Time `json:"stopped_at,omitempty"`
	Restarts    uint32    `json:"restarts"`
	Failure     string    `json:"failure,omitempty"`
	StopOutcome string    `json:"stop_outcome,omitempty"`
}

// SystemInfo mirrors the daemon's host information.
type SystemInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
	GoVersion string `json:"go_version"`
	Hostname  string `json:"hostname"`
	PID       int    `json:"pid"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
