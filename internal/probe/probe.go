// Package probe implements readiness checks against the supervised
// backend's declared endpoint. OS-level process liveness only proves the
// backend was spawned; a probe proves it is actually serving.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Prober checks whether the backend endpoint is ready to serve.
// Implementations must be safe for concurrent use.
type Prober interface {
	// Check returns nil when the endpoint is ready.
	Check(ctx context.Context) error
	// Describe returns a short identifier for logs and status output.
	Describe() string
}

// TCPProber dials the endpoint and reports readiness when the connection
// is accepted.
type TCPProber struct {
	Addr        string        // host:port
	DialTimeout time.Duration // per-attempt timeout (default 1s)
}

func (p TCPProber) Check(ctx context.Context) error {
	d := net.Dialer{Timeout: p.dialTimeout()}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (p TCPProber) Describe() string { return "tcp:" + p.Addr }

func (p TCPProber) dialTimeout() time.Duration {
	if p.DialTimeout > 0 {
		return p.DialTimeout
	}
	return time.Second
}

// HTTPProber performs a GET against the backend's health endpoint and
// accepts any 2xx response. The llm-verifier backend serves
// GET /api/health once its router is up.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func (p HTTPProber) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return err
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (p HTTPProber) Describe() string { return "http:" + p.URL }

// WaitReady polls the probers in order until all succeed or ctx is done.
// Each full pass must succeed within one interval; the caller bounds the
// overall wait via ctx.
func WaitReady(ctx context.Context, interval time.Duration, probers ...Prober) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	var lastErr error
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		lastErr = checkAll(ctx, probers)
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%w (last probe: %v)", ctx.Err(), lastErr)
			}
			return ctx.Err()
		case <-t.C:
		}
	}
}

func checkAll(ctx context.Context, probers []Prober) error {
	for _, p := range probers {
		if err := p.Check(ctx); err != nil {
			return fmt.Errorf("%s: %w", p.Describe(), err)
		}
	}
	return nil
}
