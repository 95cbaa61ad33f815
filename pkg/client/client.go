// Package client provides HTTP client functionality to communicate with a
// running shell daemon. The CLI's remote mode is built on it; UI layers in
// other processes can use it directly.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client talks to the shell's command surface.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string        // e.g. http://127.0.0.1:8091/api
	Timeout time.Duration // per-request bound; stop requests may wait this long
	Logger  *slog.Logger  // optional logger for client operations
}

// DefaultConfig returns default client configuration. The timeout is
// generous because a waiting stop can legitimately take the backend's full
// termination escalation.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8091/api",
		Timeout: 35 * time.Second,
	}
}

// New creates a shell API client.
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the shell daemon is running and reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("shell daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// StartBackend asks the daemon to start the backend and returns the
// endpoint it listens on.
func (c *Client) StartBackend(ctx context.Context) (Endpoint, error) {
	c.logger.Debug("requesting backend start")
	var resp StartResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/backend/start", &resp); err != nil {
		return Endpoint{}, err
	}
	return resp.Endpoint, nil
}

// StopBackend asks the daemon to stop the backend. With wait > 0 the
// daemon blocks until the backend exited (bounded by wait); with wait 0
// the request returns once termination has been initiated.
func (c *Client) StopBackend(ctx context.Context, wait time.Duration) error {
	c.logger.Debug("requesting backend stop", "wait", wait)
	url := c.baseURL + "/backend/stop"
	if wait > 0 {
		url += "?wait=" + wait.String()
	} else {
		url += "?wait=0"
	}
	return c.do(ctx, http.MethodPost, url, nil)
}

// Status fetches the backend's current status.
func (c *Client) Status(ctx context.Context) (BackendStatus, error) {
	var st BackendStatus
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/backend/status", &st); err != nil {
		return BackendStatus{}, err
	}
	return st, nil
}

// SystemInfo fetches the shell host's system information.
func (c *Client) SystemInfo(ctx context.Context) (SystemInfo, error) {
	var info SystemInfo
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/system", &info); err != nil {
		return SystemInfo{}, err
	}
	return info, nil
}

// do performs the request and decodes the JSON response into out (when
// non-nil). Non-2xx responses are decoded as API errors.
func (c *Client) do(ctx context.Context, method, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", url)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		c.logger.Error("API request failed", "error", apiErr.Error, "status", resp.StatusCode)
		return fmt.Errorf("API error: %s", apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
