package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shell.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
[backend]
path = "/opt/llm-verifier/bin/llm-verifier"
host = "127.0.0.1"
port = 8095
startsecs = "200ms"
health_timeout = "10s"
stop_timeout = "3s"
autorestart = true
restart_interval = "2s"

[log]
dir = "/var/log/llm-verifier"
max_size_mb = 5

[server]
listen = "127.0.0.1:9000"
base_path = "/shell"

[metrics]
enabled = true
listen = "127.0.0.1:9100"

[history]
dsn = "sqlite:///tmp/history.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Path != "/opt/llm-verifier/bin/llm-verifier" {
		t.Errorf("backend path = %q", cfg.Backend.Path)
	}
	if cfg.Backend.Port != 8095 {
		t.Errorf("backend port = %d", cfg.Backend.Port)
	}
	if cfg.Backend.StartDuration != 200*time.Millisecond {
		t.Errorf("startsecs = %v", cfg.Backend.StartDuration)
	}
	if cfg.Backend.HealthTimeout != 10*time.Second {
		t.Errorf("health_timeout = %v", cfg.Backend.HealthTimeout)
	}
	if !cfg.Backend.AutoRestart {
		t.Error("autorestart not set")
	}
	if cfg.Server.Listen != "127.0.0.1:9000" {
		t.Errorf("server listen = %q", cfg.Server.Listen)
	}
	if cfg.Server.BasePath != "/shell" {
		t.Errorf("base path = %q", cfg.Server.BasePath)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != "127.0.0.1:9100" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}
	if cfg.History.DSN != "sqlite:///tmp/history.db" {
		t.Errorf("history dsn = %q", cfg.History.DSN)
	}
	// Top-level [log] feeds the backend capture config.
	if cfg.Backend.Log.Dir != "/var/log/llm-verifier" {
		t.Errorf("backend log dir = %q", cfg.Backend.Log.Dir)
	}
	if cfg.Backend.Log.MaxSizeMB != 5 {
		t.Errorf("backend log max size = %d", cfg.Backend.Log.MaxSizeMB)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
[backend]
path = "/usr/local/bin/llm-verifier"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Listen != DefaultListen {
		t.Errorf("server listen = %q, want %q", cfg.Server.Listen, DefaultListen)
	}
	if cfg.Server.BasePath != DefaultBasePath {
		t.Errorf("base path = %q, want %q", cfg.Server.BasePath, DefaultBasePath)
	}
	if cfg.Backend.Port != 0 {
		t.Errorf("port = %d, want 0 (auto-pick)", cfg.Backend.Port)
	}
}

func TestLoadBackendLogOverride(t *testing.T) {
	path := writeConfig(t, `
[backend]
path = "/usr/local/bin/llm-verifier"

[backend.log]
dir = "/data/backend-logs"

[log]
dir = "/var/log/llm-verifier"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Log.Dir != "/data/backend-logs" {
		t.Errorf("backend log dir = %q, want the override", cfg.Backend.Log.Dir)
	}
}

func TestLoadMissingPath(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = "127.0.0.1:9000"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted config without backend path")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("Load accepted missing file")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, `[backend`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted invalid TOML")
	}
}
