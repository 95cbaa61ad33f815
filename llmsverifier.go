// Package llmsverifier is the embeddable facade over the shell's backend
// supervisor: lifecycle management for one external llm-verifier server
// process plus the HTTP command surface, metrics and history sinks.
package llmsverifier

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/vasic-digital/LLMsVerifier/internal/config"
	"github.com/vasic-digital/LLMsVerifier/internal/history"
	"github.com/vasic-digital/LLMsVerifier/internal/history/factory"
	"github.com/vasic-digital/LLMsVerifier/internal/metrics"
	iapi "github.com/vasic-digital/LLMsVerifier/internal/server"
	"github.com/vasic-digital/LLMsVerifier/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = supervisor.Spec

type Status = supervisor.Status

type State = supervisor.State

type Endpoint = supervisor.Endpoint

type Config = cfg.Config

type HistorySink = history.Sink

// Sentinel errors surfaced by the supervisor.
var (
	ErrAlreadyRunning = supervisor.ErrAlreadyRunning
	ErrStopInProgress = supervisor.ErrStopInProgress
	ErrStartAborted   = supervisor.ErrStartAborted
	ErrStopTimeout    = supervisor.ErrStopTimeout
	ErrShuttingDown   = supervisor.ErrShuttingDown
)

// Supervisor is a thin facade over the internal backend supervisor.
// It provides a stable public API for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

// Option customizes the supervisor.
type Option = supervisor.Option

// WithSinks configures history sinks receiving lifecycle events.
func WithSinks(sinks ...HistorySink) Option { return supervisor.WithSinks(sinks...) }

// WithLogger sets the logger for supervisor-side events.
func WithLogger(l *slog.Logger) Option { return supervisor.WithLogger(l) }

// New creates a supervisor for the given backend spec.
func New(spec Spec, opts ...Option) (*Supervisor, error) {
	inner, err := supervisor.New(spec, opts...)
	if err != nil {
		return nil, err
	}
	return &Supervisor{inner: inner}, nil
}

func (s *Supervisor) Start(ctx context.Context) (Endpoint, error) { return s.inner.Start(ctx) }
func (s *Supervisor) Stop(ctx context.Context, wait bool) error   { return s.inner.Stop(ctx, wait) }
func (s *Supervisor) Status() Status                              { return s.inner.Status() }
func (s *Supervisor) Shutdown(ctx context.Context) error          { return s.inner.Shutdown(ctx) }

// LoadConfig reads the shell's TOML configuration.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// NewHTTPServer starts an HTTP server exposing the command surface for the
// given supervisor. With withMetrics true, GET {basePath}/metrics serves
// the default Prometheus registry.
func NewHTTPServer(addr, basePath string, s *Supervisor, withMetrics bool) *http.Server {
	var opts []iapi.RouterOption
	if withMetrics {
		opts = append(opts, iapi.WithMetricsEndpoint())
	}
	return iapi.NewServer(addr, iapi.NewRouter(s.inner, basePath, opts...))
}

// MountEcho mounts the command surface on an existing Echo server.
func MountEcho(e *echo.Echo, basePath string, s *Supervisor) {
	iapi.MountEcho(e, iapi.NewRouter(s.inner, basePath))
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry.
func ServeMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// NewSinkFromDSN builds a history sink from a DSN
// (sqlite:///path, postgres://..., clickhouse://...).
func NewSinkFromDSN(dsn string) (HistorySink, error) {
	return factory.NewSinkFromDSN(dsn)
}
