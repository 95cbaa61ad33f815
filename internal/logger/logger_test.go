package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWritersDefaultPaths(t *testing.T) {
	dir := t.TempDir()
	c := Config{Dir: dir}

	outW, errW, err := c.Writers("backend")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	if outW == nil || errW == nil {
		t.Fatal("expected both writers when Dir is set")
	}
	if _, err := outW.Write([]byte("out line\n")); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
	if _, err := errW.Write([]byte("err line\n")); err != nil {
		t.Fatalf("write stderr: %v", err)
	}
	_ = outW.Close()
	_ = errW.Close()

	out, err := os.ReadFile(filepath.Join(dir, "backend.stdout.log"))
	if err != nil {
		t.Fatalf("read stdout log: %v", err)
	}
	if !strings.Contains(string(out), "out line") {
		t.Fatalf("stdout log = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "backend.stderr.log")); err != nil {
		t.Fatalf("stderr log missing: %v", err)
	}
}

func TestWritersExplicitPathsWin(t *testing.T) {
	dir := t.TempDir()
	c := Config{
		Dir:        dir,
		StdoutPath: filepath.Join(dir, "custom.out"),
	}
	outW, errW, err := c.Writers("backend")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	if _, err := outW.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = outW.Close()
	_ = errW.Close()
	if _, err := os.Stat(filepath.Join(dir, "custom.out")); err != nil {
		t.Fatalf("custom stdout path not used: %v", err)
	}
}

func TestWritersNoneConfigured(t *testing.T) {
	outW, errW, err := Config{}.Writers("backend")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	if outW != nil || errW != nil {
		t.Fatal("expected nil writers for empty config")
	}
}

func TestNewShellLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewShellLogger(&buf, slog.LevelInfo, false)
	log.Info("hello", "key", "value")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("log output = %q", buf.String())
	}

	buf.Reset()
	log = NewShellLogger(&buf, slog.LevelWarn, true)
	log.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	log.Error("boom")
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("error not logged: %q", buf.String())
	}
}

func TestColorTextHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, true)
	log := slog.New(h)

	log.Warn("disk almost full")
	out := buf.String()
	if !strings.Contains(out, "\033[33mWARN"+ansiReset) {
		t.Fatalf("warn output missing colored level prefix: %q", out)
	}
	if !strings.Contains(out, "time=") {
		t.Fatalf("output missing time attribute: %q", out)
	}

	// showTime=false drops the time attribute.
	buf.Reset()
	log = slog.New(NewColorTextHandler(&buf, nil, false))
	log.Info("started")
	out = buf.String()
	if strings.Contains(out, "time=") {
		t.Fatalf("timeless output still carries time: %q", out)
	}
	if !strings.Contains(out, "\033[32mINFO"+ansiReset) {
		t.Fatalf("info output missing colored level prefix: %q", out)
	}

	// Attrs and groups survive wrapping and keep the coloring.
	buf.Reset()
	log = slog.New(NewColorTextHandler(&buf, nil, false)).With("pid", 42).WithGroup("backend")
	log.Error("exited", "code", 3)
	out = buf.String()
	if !strings.Contains(out, "\033[31mERROR"+ansiReset) {
		t.Fatalf("derived logger lost coloring: %q", out)
	}
	if !strings.Contains(out, "pid=42") || !strings.Contains(out, "backend.code=3") {
		t.Fatalf("derived logger lost attrs: %q", out)
	}
}

func TestColorTextHandlerPalette(t *testing.T) {
	var buf bytes.Buffer
	p := DefaultPalette()
	p.Info = "\033[35m" // magenta
	h := NewColorTextHandler(&buf, nil, false).WithPalette(p)
	slog.New(h).Info("hello")
	if !strings.Contains(buf.String(), "\033[35mINFO"+ansiReset) {
		t.Fatalf("custom palette not applied: %q", buf.String())
	}
}

func TestTailBuffer(t *testing.T) {
	tb := NewTailBuffer(8)
	if _, err := tb.Write([]byte("abc")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if tb.String() != "abc" {
		t.Fatalf("tail = %q", tb.String())
	}

	// Overflow keeps only the most recent bytes.
	if _, err := tb.Write([]byte("0123456789")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := tb.String()
	if len(got) != 8 {
		t.Fatalf("tail length = %d, want 8", len(got))
	}
	if !strings.HasSuffix(got, "89") {
		t.Fatalf("tail = %q, want suffix 89", got)
	}

	tb.Reset()
	if tb.String() != "" {
		t.Fatalf("tail after reset = %q", tb.String())
	}
}
