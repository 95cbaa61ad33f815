package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	backendStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmshell",
			Subsystem: "backend",
			Name:      "starts_total",
			Help:      "Number of successful backend starts.",
		},
	)
	backendStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmshell",
			Subsystem: "backend",
			Name:      "stops_total",
			Help:      "Number of backend stops by outcome (graceful or killed).",
		}, []string{"outcome"},
	)
	backendUnexpectedExits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmshell",
			Subsystem: "backend",
			Name:      "unexpected_exits_total",
			Help:      "Number of unsolicited backend exits observed by the reaper.",
		},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmshell",
			Subsystem: "backend",
			Name:      "state_transitions_total",
			Help:      "Number of supervisor state transitions.",
		}, []string{"from", "to"},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "llmshell",
			Subsystem: "backend",
			Name:      "current_state",
			Help:      "Current supervisor state (1 = active state, 0 = inactive).",
		}, []string{"state"},
	)
	probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "llmshell",
			Subsystem: "backend",
			Name:      "probe_duration_seconds",
			Help:      "Time from spawn until the health probe reported ready.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the provided registerer. Collectors
// already known to the registerer are skipped, so repeated calls are safe,
// and distinct registerers each get the full set. A successful call arms the
// recording helpers below.
func Register(r prometheus.Registerer) error {
	cs := []prometheus.Collector{backendStarts, backendStops, backendUnexpectedExits, stateTransitions, currentState, probeDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart() {
	if regOK.Load() {
		backendStarts.Inc()
	}
}

func IncStop(outcome string) {
	if regOK.Load() {
		backendStops.WithLabelValues(outcome).Inc()
	}
}

func IncUnexpectedExit() {
	if regOK.Load() {
		backendUnexpectedExits.Inc()
	}
}

func RecordStateTransition(from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(from, to).Inc()
	}
}

func SetCurrentState(state string, active bool) {
	if regOK.Load() {
		v := 0.0
		if active {
			v = 1.0
		}
		currentState.WithLabelValues(state).Set(v)
	}
}

func ObserveProbeDuration(seconds float64) {
	if regOK.Load() {
		probeDuration.Observe(seconds)
	}
}
