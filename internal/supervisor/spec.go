package supervisor

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/vasic-digital/LLMsVerifier/internal/logger"
)

// Default timings for the supervisor. All can be overridden per Spec.
const (
	DefaultHost            = "127.0.0.1"
	DefaultHealthPath      = "/api/health"
	DefaultStartDuration   = 500 * time.Millisecond
	DefaultHealthTimeout   = 5 * time.Second
	DefaultStopTimeout     = 5 * time.Second
	DefaultRestartInterval = 3 * time.Second
)

// Spec describes the backend process to be supervised.
type Spec struct {
	Path    string   `json:"path" mapstructure:"path"`         // backend executable
	Host    string   `json:"host" mapstructure:"host"`         // listen host (default 127.0.0.1)
	Port    int      `json:"port" mapstructure:"port"`         // 0 picks a free port at start
	Args    []string `json:"args" mapstructure:"args"`         // overrides the default "api --port <port>"
	WorkDir string   `json:"work_dir" mapstructure:"work_dir"` // optional working dir
	Env     []string `json:"env" mapstructure:"env"`           // optional extra env, KEY=VALUE

	// HealthPath is probed over HTTP after the TCP dial succeeds.
	// Empty disables the HTTP probe; "-" is also accepted for TCP-only.
	HealthPath string `json:"health_path" mapstructure:"health_path"`

	StartDuration   time.Duration `json:"startsecs" mapstructure:"startsecs"`           // minimum time the backend must stay up
	HealthTimeout   time.Duration `json:"health_timeout" mapstructure:"health_timeout"` // bound on the readiness wait
	StopTimeout     time.Duration `json:"stop_timeout" mapstructure:"stop_timeout"`     // graceful grace before SIGKILL
	AutoRestart     bool          `json:"autorestart" mapstructure:"autorestart"`       // restart after an unsolicited exit
	RestartInterval time.Duration `json:"restart_interval" mapstructure:"restart_interval"`

	Log logger.Config `json:"log" mapstructure:"log"` // rotated capture of backend stdout/stderr
}

// Endpoint is the host+port the backend listens on, fixed at spawn time.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (e Endpoint) Addr() string   { return net.JoinHostPort(e.Host, strconv.Itoa(e.Port)) }
func (e Endpoint) String() string { return e.Addr() }

// Validate checks the statically checkable parts of the spec.
// Executable checks happen again at start time; the file may change between.
func (s *Spec) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("backend path is required")
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	return nil
}

func (s Spec) withDefaults() Spec {
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.HealthPath == "" {
		s.HealthPath = DefaultHealthPath
	}
	if s.HealthPath == "-" {
		s.HealthPath = ""
	}
	if s.StartDuration <= 0 {
		s.StartDuration = DefaultStartDuration
	}
	if s.HealthTimeout <= 0 {
		s.HealthTimeout = DefaultHealthTimeout
	}
	if s.StopTimeout <= 0 {
		s.StopTimeout = DefaultStopTimeout
	}
	if s.RestartInterval <= 0 {
		s.RestartInterval = DefaultRestartInterval
	}
	return s
}

// launchArgs returns the argv (after the executable) for the given port.
// The backend launch contract is "<path> api --port <port>"; explicit Args
// take precedence for embedders with a different contract.
func (s Spec) launchArgs(port int) []string {
	if len(s.Args) > 0 {
		return append([]string(nil), s.Args...)
	}
	return []string{"api", "--port", strconv.Itoa(port)}
}

// validateExecutable verifies the path points at an executable regular file.
func validateExecutable(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && fi.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

// pickFreePort binds host:0, records the assigned port and releases it.
// The small window before the backend rebinds it is acceptable for a
// loopback desktop shell.
func pickFreePort(host string) (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
