// Package supervisor manages the lifecycle of exactly one external backend
// server process: spawn with validation and health probing, graceful stop
// with kill escalation, and detection of unsolicited exits.
//
// Lock hierarchy (to prevent deadlocks):
//  1. Supervisor.mu (snapshot lock) - protects the published state
//  2. handle internal lock - managed by handle
//
// State machine:
//
//	Stopped -> Starting -> Running -> Stopping -> Stopped
//
// with Starting -> Failed and Running -> Failed as alternate paths.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vasic-digital/LLMsVerifier/internal/history"
	"github.com/vasic-digital/LLMsVerifier/internal/metrics"
	"github.com/vasic-digital/LLMsVerifier/internal/probe"
)

const (
	// DefaultReapInterval paces the liveness ticker that detects
	// unsolicited exits and drives auto-restart.
	DefaultReapInterval = time.Second

	// killReapWindow bounds the wait for the OS to reap the process after
	// SIGKILL. Surviving it means something is badly wrong (unkillable
	// D-state process); the supervisor reports ErrStopTimeout and stays
	// in the stopping state so a retry can escalate again.
	killReapWindow = 2 * time.Second
)

// Supervisor owns one backend process. All state transitions happen on a
// single actor goroutine fed by cmdChan (external commands) and evtChan
// (events from per-run helper goroutines). Helper events carry the run
// generation they belong to; events from a superseded run are ignored.
type Supervisor struct {
	mu          sync.RWMutex
	spec        Spec
	state       State
	h           *handle
	endpoint    Endpoint
	restarts    uint32
	failure     error
	stopOutcome string

	logger       *slog.Logger
	sinks        []history.Sink
	reapInterval time.Duration

	cmdChan  chan command
	evtChan  chan event
	doneChan chan struct{}

	// Actor-goroutine-only fields below. Never touched outside the loop.
	gen           uint64
	pendingStart  chan error
	pendingStop   chan error
	startCancel   context.CancelFunc
	stopInFlight  bool
	stopRequested bool
	lastFailureAt time.Time
}

type command struct {
	action commandAction
	wait   bool
	reply  chan error
}

type commandAction int

const (
	actionStart commandAction = iota
	actionStop
	actionShutdown
)

type event struct {
	kind     eventKind
	gen      uint64
	err      error
	outcome  string
	probeDur time.Duration
}

type eventKind int

const (
	evtReady eventKind = iota
	evtExited
	evtStopResult
)

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger for supervisor-side events. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSinks configures history sinks receiving lifecycle events.
func WithSinks(sinks ...history.Sink) Option {
	return func(s *Supervisor) { s.sinks = append([]history.Sink(nil), sinks...) }
}

// WithReapInterval overrides the liveness ticker interval. Tests use a
// short interval to observe unsolicited-exit handling quickly.
func WithReapInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.reapInterval = d
		}
	}
}

// New validates the spec and starts the supervisor's actor goroutine.
// The backend itself is not started until Start is called.
func New(spec Spec, opts ...Option) (*Supervisor, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	s := &Supervisor{
		spec:         spec.withDefaults(),
		state:        StateStopped,
		logger:       slog.Default(),
		reapInterval: DefaultReapInterval,
		cmdChan:      make(chan command, 16),
		evtChan:      make(chan event, 8),
		doneChan:     make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	go s.run()
	return s, nil
}

// Spec returns a copy of the effective (defaulted) spec.
func (s *Supervisor) Spec() Spec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spec
}

// Start launches the backend and blocks until it is confirmed serving, the
// launch fails, or ctx is done. On success the returned endpoint is where
// the backend listens. Returns ErrAlreadyRunning when the backend is
// running or still starting.
func (s *Supervisor) Start(ctx context.Context) (Endpoint, error) {
	reply := make(chan error, 1)
	select {
	case s.cmdChan <- command{action: actionStart, reply: reply}:
	case <-s.doneChan:
		return Endpoint{}, ErrShuttingDown
	case <-ctx.Done():
		return Endpoint{}, ctx.Err()
	}
	select {
	case err := <-reply:
		if err != nil {
			return Endpoint{}, err
		}
		s.mu.RLock()
		ep := s.endpoint
		s.mu.RUnlock()
		return ep, nil
	case <-ctx.Done():
		// The start keeps running; its outcome is visible via Status.
		return Endpoint{}, ctx.Err()
	case <-s.doneChan:
		return Endpoint{}, ErrShuttingDown
	}
}

// Stop terminates the backend. With wait true it blocks until the process
// has actually exited (or ErrStopTimeout); with wait false it returns as
// soon as termination has been initiated. Stopping an already stopped
// backend is a no-op; stopping a failed one resets it to stopped.
func (s *Supervisor) Stop(ctx context.Context, wait bool) error {
	reply := make(chan error, 1)
	select {
	case s.cmdChan <- command{action: actionStop, wait: wait, reply: reply}:
	case <-s.doneChan:
		return ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.doneChan:
		return ErrShuttingDown
	}
}

// Shutdown stops the actor goroutine, force-terminating any live backend
// first. The child never outlives the supervisor.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.cmdChan <- command{action: actionShutdown, reply: reply}:
	case <-s.doneChan:
		return nil // already shut down
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a liveness-verified snapshot. A backend that has died
// since the last transition is reported failed, never running; the actor's
// ticker performs the actual transition within one reap interval.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	state := s.state
	h := s.h
	ep := s.endpoint
	restarts := s.restarts
	failure := s.failure
	outcome := s.stopOutcome
	s.mu.RUnlock()

	st := Status{
		State:       state.String(),
		Restarts:    restarts,
		StopOutcome: outcome,
	}
	if failure != nil {
		st.Failure = failure.Error()
	}
	if h != nil {
		st.PID = h.PID()
		st.StartedAt = h.StartedAt()
		st.StoppedAt = h.StoppedAt()
	}
	if state == StateStarting || state == StateRunning || state == StateStopping {
		epCopy := ep
		st.Endpoint = &epCopy
	}
	if state == StateRunning && (h == nil || !h.Alive()) {
		st.State = StateFailed.String()
		if st.Failure == "" {
			st.Failure = "backend process exited"
		}
	}
	return st
}

// run is the actor loop. It is the only goroutine that mutates state.
func (s *Supervisor) run() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-s.cmdChan:
			if cmd.action == actionShutdown {
				cmd.reply <- s.handleShutdown()
				return
			}
			s.handleCommand(cmd)
		case ev := <-s.evtChan:
			s.handleEvent(ev)
		case <-ticker.C:
			s.checkBackendHealth()
		}
	}
}

func (s *Supervisor) handleCommand(cmd command) {
	switch cmd.action {
	case actionStart:
		s.handleStart(cmd.reply)
	case actionStop:
		s.handleStop(cmd.wait, cmd.reply)
	}
}

func (s *Supervisor) handleEvent(ev event) {
	if ev.gen != s.gen {
		return // stale: belongs to a superseded run
	}
	switch ev.kind {
	case evtReady:
		s.handleReady(ev)
	case evtExited:
		s.handleExited()
	case evtStopResult:
		s.handleStopResult(ev)
	}
}

// handleStart admits or rejects a start request for the current state.
func (s *Supervisor) handleStart(reply chan error) {
	switch s.currentState() {
	case StateStarting:
		reply <- ErrAlreadyRunning
	case StateRunning:
		if s.h != nil && s.h.Alive() {
			reply <- ErrAlreadyRunning
			return
		}
		// Died between ticks; settle the exit first, then start fresh.
		s.markUnsolicitedExit()
		s.doStart(reply)
	case StateStopping:
		reply <- ErrStopInProgress
	case StateStopped, StateFailed:
		s.doStart(reply)
	}
}

// doStart spawns the backend and arms the per-run helper goroutines. The
// reply is parked until evtReady or evtExited resolves the run.
func (s *Supervisor) doStart(reply chan error) {
	s.mu.RLock()
	spec := s.spec
	s.mu.RUnlock()

	fail := func(err error) {
		s.setFailure(err)
		s.setState(StateFailed)
		s.persist(history.EventFailed, err.Error())
		if reply != nil {
			reply <- err
		}
	}

	if err := validateExecutable(spec.Path); err != nil {
		fail(&SpawnError{Path: spec.Path, Err: err})
		return
	}

	port := spec.Port
	if port == 0 {
		p, err := pickFreePort(spec.Host)
		if err != nil {
			fail(&SpawnError{Path: spec.Path, Err: fmt.Errorf("pick free port: %w", err)})
			return
		}
		port = p
	}
	ep := Endpoint{Host: spec.Host, Port: port}

	h := newHandle(spec, ep)
	if err := h.start(); err != nil {
		h.CloseWriters()
		fail(&SpawnError{Path: spec.Path, Err: err})
		return
	}

	s.gen++
	gen := s.gen
	s.mu.Lock()
	s.h = h
	s.endpoint = ep
	s.failure = nil
	s.stopOutcome = ""
	s.mu.Unlock()
	s.stopRequested = false
	s.pendingStart = reply
	s.setState(StateStarting)
	s.logger.Info("backend spawned", "pid", h.PID(), "endpoint", ep.String())

	startCtx, cancel := context.WithCancel(context.Background())
	s.startCancel = cancel

	go func() { // single waiter per run
		_ = h.wait()
		s.sendEvent(event{kind: evtExited, gen: gen})
	}()

	go func() { // grace period, then readiness probes
		defer cancel()
		select {
		case <-h.WaitDone():
			return // evtExited carries the failure
		case <-startCtx.Done():
			return
		case <-time.After(spec.StartDuration):
		}
		probers := []probe.Prober{probe.TCPProber{Addr: ep.Addr()}}
		if spec.HealthPath != "" {
			probers = append(probers, probe.HTTPProber{
				URL: fmt.Sprintf("http://%s%s", ep.Addr(), spec.HealthPath),
			})
		}
		pctx, pcancel := context.WithTimeout(startCtx, spec.HealthTimeout)
		defer pcancel()
		began := time.Now()
		err := probe.WaitReady(pctx, 100*time.Millisecond, probers...)
		s.sendEvent(event{kind: evtReady, gen: gen, err: err, probeDur: time.Since(began)})
	}()
}

// handleReady resolves a start once the grace period passed and the probes
// reported. A failed probe means the child is up but not serving: it is
// killed and confirmed dead before the error is surfaced.
func (s *Supervisor) handleReady(ev event) {
	if s.currentState() != StateStarting {
		return // stop or exit already settled this run
	}
	h := s.h
	if ev.err != nil {
		_ = h.Kill()
		select {
		case <-h.WaitDone():
		case <-time.After(killReapWindow):
			s.logger.Error("unready backend survived SIGKILL", "pid", h.PID())
		}
		h.CloseWriters()
		err := &HealthError{Endpoint: s.endpoint.String(), Tail: h.Tail(), Err: ev.err}
		s.setFailure(err)
		s.setState(StateFailed)
		s.persist(history.EventFailed, err.Error())
		s.replyStart(err)
		return
	}
	s.setState(StateRunning)
	metrics.IncStart()
	metrics.ObserveProbeDuration(ev.probeDur.Seconds())
	s.persist(history.EventStart, "")
	s.logger.Info("backend ready", "pid", h.PID(), "endpoint", s.endpoint.String(),
		"probe_duration", ev.probeDur)
	s.replyStart(nil)
}

// handleExited reacts to the waiter reaping the current run's process.
func (s *Supervisor) handleExited() {
	h := s.h
	h.CloseWriters()
	switch s.currentState() {
	case StateStarting:
		// Died during the grace period or while being probed.
		if s.startCancel != nil {
			s.startCancel()
		}
		err := &ExitError{ExitCode: h.ExitCode(), Tail: h.Tail()}
		s.setFailure(err)
		s.setState(StateFailed)
		s.persist(history.EventFailed, err.Error())
		s.replyStart(err)
	case StateRunning:
		s.markUnsolicitedExit()
	case StateStopping:
		// Expected; the stop goroutine observes WaitDone and reports
		// through evtStopResult.
	}
}

// markUnsolicitedExit transitions Running -> Failed for a backend that
// exited without a stop request.
func (s *Supervisor) markUnsolicitedExit() {
	h := s.h
	err := &ExitError{ExitCode: h.ExitCode(), Tail: h.Tail()}
	s.setFailure(err)
	s.setState(StateFailed)
	metrics.IncUnexpectedExit()
	s.persist(history.EventFailed, err.Error())
	s.logger.Error("backend exited unexpectedly", "pid", h.PID(), "exit_code", h.ExitCode())
}

func (s *Supervisor) handleStop(wait bool, reply chan error) {
	switch s.currentState() {
	case StateStopped:
		reply <- nil
	case StateFailed:
		// A stop acknowledges the failure and resets to stopped.
		s.stopRequested = true
		s.setState(StateStopped)
		reply <- nil
	case StateStarting:
		s.stopRequested = true
		if s.startCancel != nil {
			s.startCancel()
		}
		s.replyStart(ErrStartAborted)
		s.setState(StateStopping)
		s.doStop(wait, reply)
	case StateRunning:
		s.stopRequested = true
		s.setState(StateStopping)
		s.doStop(wait, reply)
	case StateStopping:
		if s.stopInFlight {
			reply <- ErrStopInProgress
			return
		}
		// Previous attempt ended in ErrStopTimeout; escalate again.
		s.doStop(wait, reply)
	}
}

// doStop runs the SIGTERM -> SIGKILL escalation in a helper goroutine so
// the actor stays responsive. The result arrives as evtStopResult.
func (s *Supervisor) doStop(wait bool, reply chan error) {
	h := s.h
	gen := s.gen
	grace := s.spec.StopTimeout
	s.stopInFlight = true
	if wait {
		s.pendingStop = reply
	} else {
		reply <- nil
	}

	go func() {
		outcome := "graceful"
		var err error
		_ = h.Terminate()
		select {
		case <-h.WaitDone():
		case <-time.After(grace):
			outcome = "killed"
			_ = h.Kill()
			select {
			case <-h.WaitDone():
			case <-time.After(killReapWindow):
				err = ErrStopTimeout
			}
		}
		s.sendEvent(event{kind: evtStopResult, gen: gen, err: err, outcome: outcome})
	}()
}

func (s *Supervisor) handleStopResult(ev event) {
	s.stopInFlight = false
	if s.currentState() != StateStopping {
		return
	}
	if ev.err != nil {
		// Process survived SIGKILL. Stay in Stopping so a follow-up stop
		// retries the escalation.
		s.logger.Error("backend survived stop escalation", "pid", s.h.PID())
		s.replyStop(ev.err)
		return
	}
	s.h.CloseWriters()
	s.mu.Lock()
	s.stopOutcome = ev.outcome
	s.mu.Unlock()
	s.setState(StateStopped)
	metrics.IncStop(ev.outcome)
	s.persist(history.EventStop, ev.outcome)
	s.logger.Info("backend stopped", "outcome", ev.outcome)
	s.replyStop(nil)
}

// checkBackendHealth is the reaper tick: it settles an unsolicited exit
// the waiter event may have missed and drives auto-restart.
func (s *Supervisor) checkBackendHealth() {
	state := s.currentState()

	if state == StateRunning && s.h != nil && !s.h.Alive() {
		s.markUnsolicitedExit()
		state = StateFailed
	}

	s.mu.RLock()
	spec := s.spec
	s.mu.RUnlock()
	if state == StateFailed && spec.AutoRestart && !s.stopRequested &&
		time.Since(s.lastFailureAt) >= spec.RestartInterval {
		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()
		s.logger.Info("auto-restarting backend", "restarts", s.restartCount())
		s.doStart(nil)
	}
}

// handleShutdown force-terminates any live backend and ends the actor.
func (s *Supervisor) handleShutdown() error {
	if s.startCancel != nil {
		s.startCancel()
	}
	s.replyStart(ErrShuttingDown)
	s.replyStop(ErrShuttingDown)

	h := s.h
	if h != nil && h.Alive() {
		_ = h.Terminate()
		select {
		case <-h.WaitDone():
		case <-time.After(time.Second):
			_ = h.Kill()
			select {
			case <-h.WaitDone():
			case <-time.After(killReapWindow):
				s.logger.Error("backend survived shutdown kill", "pid", h.PID())
			}
		}
		s.persist(history.EventStop, "killed")
		metrics.IncStop("killed")
	}
	if h != nil {
		h.CloseWriters()
	}
	s.setState(StateStopped)
	return nil
}

func (s *Supervisor) sendEvent(ev event) {
	select {
	case s.evtChan <- ev:
	case <-s.doneChan:
	}
}

func (s *Supervisor) replyStart(err error) {
	if s.pendingStart != nil {
		s.pendingStart <- err
		s.pendingStart = nil
	}
}

func (s *Supervisor) replyStop(err error) {
	if s.pendingStop != nil {
		s.pendingStop <- err
		s.pendingStop = nil
	}
}

func (s *Supervisor) currentState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Supervisor) restartCount() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restarts
}

// setFailure records the failure and its time. Only the actor calls it, so
// lastFailureAt needs no lock.
func (s *Supervisor) setFailure(err error) {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
	s.lastFailureAt = time.Now()
}

// setState publishes a transition (minimal lock scope, metrics outside).
func (s *Supervisor) setState(newState State) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.mu.Unlock()
	if oldState == newState {
		return
	}
	metrics.RecordStateTransition(oldState.String(), newState.String())
	metrics.SetCurrentState(oldState.String(), false)
	metrics.SetCurrentState(newState.String(), true)
}

// persist fans the event out to the configured sinks, best effort.
func (s *Supervisor) persist(t history.EventType, detail string) {
	s.mu.RLock()
	sinks := append([]history.Sink(nil), s.sinks...)
	state := s.state
	ep := s.endpoint
	h := s.h
	s.mu.RUnlock()
	if len(sinks) == 0 {
		return
	}

	rec := history.Record{Endpoint: ep.String(), State: state.String(), Detail: detail}
	if h != nil {
		rec.PID = h.PID()
	}
	evt := history.Event{Type: t, OccurredAt: time.Now().UTC(), Record: rec}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, sink := range sinks {
		if err := sink.Send(ctx, evt); err != nil {
			s.logger.Warn("history sink send failed", "type", string(t), "error", err)
		}
	}
}
