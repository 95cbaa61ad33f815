// Package server exposes the shell's command surface over HTTP. The UI
// layer (and the CLI's remote mode) drives the supervisor through it.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labstack/echo/v4"

	"github.com/vasic-digital/LLMsVerifier/internal/metrics"
	"github.com/vasic-digital/LLMsVerifier/internal/supervisor"
	"github.com/vasic-digital/LLMsVerifier/internal/sysinfo"
)

// defaultStopWait bounds a waiting stop request. It covers the graceful
// grace period plus the kill escalation with margin.
const defaultStopWait = 30 * time.Second

// Backend is the supervisor surface the router drives.
type Backend interface {
	Start(ctx context.Context) (supervisor.Endpoint, error)
	Stop(ctx context.Context, wait bool) error
	Status() supervisor.Status
}

// Router provides embeddable HTTP handlers for the backend supervisor.
// Endpoints:
//
//	POST {basePath}/backend/start
//	POST {basePath}/backend/stop    query: wait=5s | wait=0 (fire and forget)
//	GET  {basePath}/backend/status
//	GET  {basePath}/system
//	GET  {basePath}/healthz
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	backend     Backend
	basePath    string
	withMetrics bool
}

// RouterOption customizes a Router.
type RouterOption func(*Router)

// WithMetricsEndpoint mounts GET {basePath}/metrics on the same handler.
func WithMetricsEndpoint() RouterOption {
	return func(r *Router) { r.withMetrics = true }
}

// NewRouter constructs a Router with a configurable basePath.
// Example basePath "/api" results in /api/backend/start etc.
func NewRouter(b Backend, basePath string, opts ...RouterOption) *Router {
	r := &Router{backend: b, basePath: sanitizeBase(basePath)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// BasePath returns the sanitized base path.
func (r *Router) BasePath() string { return r.basePath }

// Handler returns an http.Handler powered by gin that can be mounted in
// any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/backend/start", r.handleStart)
	group.POST("/backend/stop", r.handleStop)
	group.GET("/backend/status", r.handleStatus)
	group.GET("/system", r.handleSystem)
	group.GET("/healthz", r.handleHealthz)
	if r.withMetrics {
		group.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return g
}

// MountEcho mounts the router's handler on an existing Echo server, for
// embedders that already run one.
func MountEcho(e *echo.Echo, r *Router) {
	h := echo.WrapHandler(r.Handler())
	base := r.basePath
	if base == "" {
		e.Any("/*", h)
		return
	}
	e.Any(base, h)
	e.Any(base+"/*", h)
}

// NewServer starts a standalone HTTP server on addr using this router.
// Shut it down via http.Server's Shutdown or Close.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      defaultStopWait + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type startResp struct {
	OK       bool                `json:"ok"`
	Endpoint supervisor.Endpoint `json:"endpoint"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleStart(c *gin.Context) {
	ep, err := r.backend.Start(c.Request.Context())
	if err != nil {
		writeJSON(c, startErrorCode(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, startResp{OK: true, Endpoint: ep})
}

func (r *Router) handleStop(c *gin.Context) {
	wait, timeout, err := parseWait(c.Query("wait"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	ctx := c.Request.Context()
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := r.backend.Stop(ctx, wait); err != nil {
		writeJSON(c, stopErrorCode(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.backend.Status())
}

func (r *Router) handleSystem(c *gin.Context) {
	writeJSON(c, http.StatusOK, sysinfo.Get())
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func startErrorCode(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrAlreadyRunning),
		errors.Is(err, supervisor.ErrStopInProgress):
		return http.StatusConflict
	case errors.Is(err, supervisor.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		var se *supervisor.SpawnError
		var he *supervisor.HealthError
		var ee *supervisor.ExitError
		if errors.As(err, &se) || errors.As(err, &he) || errors.As(err, &ee) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}

func stopErrorCode(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrStopInProgress):
		return http.StatusConflict
	case errors.Is(err, supervisor.ErrStopTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, supervisor.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
