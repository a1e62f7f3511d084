// Package observability exposes engine activity as Prometheus metrics,
// attached through the engine's hook points.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arborhq/arbor/pkg/domain"
)

// Collector holds the engine metrics. Attach it to a machine by passing
// Hooks() as the hook set at construction.
type Collector struct {
	transitions        *prometheus.CounterVec
	timersArmed        prometheus.Counter
	timerFires         prometheus.Counter
	cascadeAborts      prometheus.Counter
	unrecognizedStates prometheus.Counter
}

// NewCollector creates the engine metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_transitions_total",
			Help: "State transitions performed, by source and target state.",
		}, []string{"from", "to"}),
		timersArmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_timers_armed_total",
			Help: "Timeout timers armed on state entry.",
		}),
		timerFires: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_timer_fires_total",
			Help: "Timeout timers that elapsed and drove a transition.",
		}),
		cascadeAborts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_cascade_aborts_total",
			Help: "Immediate-transition cascades cut short by cycle detection.",
		}),
		unrecognizedStates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_unrecognized_states_total",
			Help: "Mirrored-entity values that named no declared state.",
		}),
	}
	reg.MustRegister(c.transitions, c.timersArmed, c.timerFires,
		c.cascadeAborts, c.unrecognizedStates)
	return c
}

// Transitions returns the per-edge transition counter vector.
func (c *Collector) Transitions() *prometheus.CounterVec {
	return c.transitions
}

// Hooks returns the hook set that feeds the collector.
func (c *Collector) Hooks() domain.Hooks {
	return domain.Hooks{
		OnTransition: func(from, to domain.State, _ string) {
			c.transitions.WithLabelValues(string(from), string(to)).Inc()
		},
		OnTimerArmed: func(_ domain.State, _ time.Duration) {
			c.timersArmed.Inc()
		},
		OnTimerFired: func(_ domain.State) {
			c.timerFires.Inc()
		},
		OnCascadeAborted: func(_ domain.State) {
			c.cascadeAborts.Inc()
		},
		OnUnrecognizedState: func(_ string) {
			c.unrecognizedStates.Inc()
		},
	}
}
