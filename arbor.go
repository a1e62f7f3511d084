package arbor

import (
	"log/slog"

	"github.com/arborhq/arbor/internal/presentation/graph"
	"github.com/arborhq/arbor/internal/runtime"
	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/ports"
)

// Machine is the high-level entry point for the arbor library.
// It wraps the internal runtime engine and provides a simplified API for
// consumers.
type Machine struct {
	engine *runtime.Engine
}

// Option defines a functional option for configuring a Machine.
type Option func(*config)

type config struct {
	opts []runtime.EngineOption
}

// WithInitial sets the initial state. Defaults to the first declared state.
// A configured mirror entity that already holds a valid state name takes
// precedence.
func WithInitial(s domain.State) Option {
	return func(c *config) {
		c.opts = append(c.opts, runtime.WithInitial(s))
	}
}

// WithMirror names an entity that mirrors the machine's current state.
// Machine transitions are written to it; external writes of a recognized
// state name drive a transition in.
func WithMirror(entity domain.Entity) Option {
	return func(c *config) {
		c.opts = append(c.opts, runtime.WithMirror(entity))
	}
}

// WithLogger sets a custom structured logger for the machine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.opts = append(c.opts, runtime.WithLogger(logger))
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(c *config) {
		c.opts = append(c.opts, runtime.WithHooks(hooks))
	}
}

// New initializes a new machine over the declared state set, wired to the
// given entity bus and timer service. The state set is closed: transitions
// may only reference its members.
func New(states []domain.State, bus ports.EntityBus, timers ports.TimerService, opts ...Option) (*Machine, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	engine, err := runtime.NewEngine(states, bus, timers, c.opts...)
	if err != nil {
		return nil, err
	}
	return &Machine{engine: engine}, nil
}

// AddTransition registers a single transition from one state to another,
// caused by trigger. onTransition, if non-nil, is called every time this
// transition is performed. See the runtime documentation for the immediate
// and timeout semantics applied when from is the current state.
func (m *Machine) AddTransition(from domain.State, trigger domain.Trigger, to domain.State, onTransition func()) error {
	return m.engine.AddTransition(from, trigger, to, onTransition)
}

// AddTransitions registers the cross product of from states and triggers
// against a single destination. domain.Any in the from list expands to every
// declared state.
func (m *Machine) AddTransitions(from []domain.State, triggers []domain.Trigger, to domain.State, onTransition func()) error {
	return m.engine.AddTransitions(from, triggers, to, onTransition)
}

// OnTransition sets a callback invoked on every state transition with the
// old and new state. Only one callback can be set; calls overwrite the
// previously set callback.
func (m *Machine) OnTransition(callback func(from, to domain.State)) {
	m.engine.OnTransition(callback)
}

// Current returns the current state.
func (m *Machine) Current() domain.State {
	return m.engine.Current()
}

// States returns the declared state set in declaration order.
func (m *Machine) States() []domain.State {
	return m.engine.States()
}

// Edges returns the transition graph as an aggregated edge list, for
// introspection and visualization tools.
func (m *Machine) Edges() []domain.Edge {
	return m.engine.Edges()
}

// Graph returns the transition graph in Graphviz DOT format.
func (m *Machine) Graph() string {
	return graph.DOT(m.engine.Edges())
}

// GraphLink returns a URL to an online rendering of the transition graph.
func (m *Machine) GraphLink() string {
	return graph.Link(m.engine.Edges())
}
