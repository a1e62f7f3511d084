// Package runtime implements the arbor transition engine: the transition
// table, trigger evaluation and the run-to-completion transition cascade.
//
// The engine is a single-goroutine reactive state holder. It never spawns
// work and never blocks; every event (entity change, timer elapse, external
// mirror write) arrives as a synchronous callback from an adapter, and the
// engine resolves the full cascade of transitions before returning control.
// Adapters are responsible for serializing delivery.
package runtime

import (
	"fmt"
	"log/slog"

	"github.com/arborhq/arbor/internal/logging"
	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/ports"
)

// Engine owns the current state and the transition table.
type Engine struct {
	states []domain.State
	member map[domain.State]struct{}

	current domain.State

	// valueTransitions holds the ordered candidate lists tried on entity
	// changes; timeoutTransitions holds the single timeout rule per state.
	valueTransitions   map[domain.State][]domain.Transition
	timeoutTransitions map[domain.State]domain.Transition

	// watched tracks entities we already subscribed to, so a bus
	// subscription happens exactly once per distinct entity.
	watched map[domain.Entity]struct{}

	mirror domain.Entity

	bus    ports.EntityBus
	timers ports.TimerService

	// Timer state for the currently occupied state. timerGen is bumped on
	// every occupancy change, so a timer callback armed for an earlier
	// occupancy is provably stale even if the cancel raced its delivery.
	activeTimer ports.TimerHandle
	timerArmed  bool
	timerGen    uint64

	onTransition func(from, to domain.State)
	hooks        domain.Hooks
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithInitial sets the initial state. Defaults to the first declared state.
func WithInitial(s domain.State) EngineOption {
	return func(e *Engine) { e.current = s }
}

// WithMirror names the entity that mirrors the machine's state, in both
// directions.
func WithMirror(entity domain.Entity) EngineOption {
	return func(e *Engine) { e.mirror = entity }
}

// WithLogger sets a structured logger for diagnostics. Defaults to a no-op
// logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) EngineOption {
	return func(e *Engine) { e.hooks = hooks }
}

// NewEngine creates an engine over the declared state set. If a mirror
// entity is configured and currently holds the name of a declared state,
// that state overrides the initial one; any other non-empty value is
// reported through the diagnostic log and ignored. The mirror is then
// written with the effective state and observed for external changes.
func NewEngine(states []domain.State, bus ports.EntityBus, timers ports.TimerService, opts ...EngineOption) (*Engine, error) {
	if len(states) == 0 {
		return nil, domain.ErrNoStates
	}

	e := &Engine{
		states:             states,
		member:             make(map[domain.State]struct{}, len(states)),
		valueTransitions:   make(map[domain.State][]domain.Transition),
		timeoutTransitions: make(map[domain.State]domain.Transition),
		watched:            make(map[domain.Entity]struct{}),
		bus:                bus,
		timers:             timers,
		logger:             logging.NewNop(),
	}

	for _, s := range states {
		if s == domain.Any {
			return nil, fmt.Errorf("declare state %q: %w", s, domain.ErrAnyState)
		}
		if _, dup := e.member[s]; dup {
			return nil, fmt.Errorf("declare state %q: %w", s, domain.ErrDuplicateState)
		}
		e.member[s] = struct{}{}
	}

	e.current = states[0]
	for _, opt := range opts {
		opt(e)
	}
	if _, ok := e.member[e.current]; !ok {
		return nil, fmt.Errorf("initial state %q: %w", e.current, domain.ErrUnknownState)
	}

	if e.mirror != "" {
		if value, ok := e.bus.Read(e.mirror); ok {
			if _, declared := e.member[domain.State(value)]; declared {
				e.current = domain.State(value)
			} else {
				e.warnUnrecognized(value)
			}
		}
		e.bus.Write(e.mirror, string(e.current))
		e.bus.Observe(e.mirror, e.mirrorChanged)
	}

	return e, nil
}

// Current returns the current state.
func (e *Engine) Current() domain.State {
	return e.current
}

// States returns the declared state set in declaration order.
func (e *Engine) States() []domain.State {
	return append([]domain.State(nil), e.states...)
}

// OnTransition sets a callback invoked on each transition with the old and
// new state. Only one callback can be set; later calls overwrite it.
func (e *Engine) OnTransition(callback func(from, to domain.State)) {
	e.onTransition = callback
}

// run executes a transition and then resolves immediate follow-ups: value
// triggers of each newly entered state are re-evaluated against the latest
// known entity values, so chains of already-true conditions complete
// synchronously before any further external event is processed.
//
// A cascade that would re-enter a state already visited within the same
// cascade is cut short with a warning instead of looping forever.
func (e *Engine) run(tr domain.Transition) {
	seen := make(map[domain.State]struct{})
	for {
		seen[e.current] = struct{}{}
		e.perform(tr)

		next, ok := e.immediate()
		if !ok {
			return
		}
		if _, visited := seen[next.To]; visited {
			e.logger.Warn("transition cycle detected, aborting cascade",
				"state", e.current, "to", next.To)
			if e.hooks.OnCascadeAborted != nil {
				e.hooks.OnCascadeAborted(e.current)
			}
			return
		}
		tr = next
	}
}

// perform is the sole state-mutating primitive. Order matters: the state
// register, the mirror write and the timer swap all happen before the
// transition callbacks, so callbacks observe a fully consistent new state.
func (e *Engine) perform(tr domain.Transition) {
	from := e.current
	e.current = tr.To

	if e.mirror != "" {
		// The bus echoes this write back through mirrorChanged, which
		// recognizes the current state name and does nothing.
		e.bus.Write(e.mirror, string(e.current))
	}

	e.restartTimer()

	if tr.OnTransition != nil {
		tr.OnTransition()
	}
	if e.onTransition != nil {
		e.onTransition(from, e.current)
	}
	if e.hooks.OnTransition != nil {
		e.hooks.OnTransition(from, e.current, tr.TriggerLabel())
	}
	e.logger.Debug("transition",
		"from", from, "to", e.current, "trigger", tr.TriggerLabel())
}

// immediate returns the first value transition of the current state, in
// registration order, whose predicate is already satisfied by the entity's
// present value and whose target differs from the current state.
func (e *Engine) immediate() (domain.Transition, bool) {
	for _, tr := range e.valueTransitions[e.current] {
		vt, ok := tr.Trigger.(domain.ValueTrigger)
		if !ok {
			continue
		}
		if tr.To == e.current {
			// Self-loops never auto-fire; they only react to fresh
			// entity changes.
			continue
		}
		value, _ := e.bus.Read(vt.Entity)
		if vt.Satisfied(value) {
			return tr, true
		}
	}
	return domain.Transition{}, false
}

// restartTimer cancels the timer of the previous occupancy and arms the
// current state's timeout transition, if it has one. Called on every
// transition, including self-transitions, so re-entering a state restarts
// rather than continues its timer.
func (e *Engine) restartTimer() {
	if e.timerArmed {
		e.timers.Cancel(e.activeTimer)
		e.timerArmed = false
	}
	e.timerGen++

	tr, ok := e.timeoutTransitions[e.current]
	if !ok {
		return
	}
	d := tr.Trigger.(domain.TimeoutTrigger).Duration
	gen := e.timerGen
	e.activeTimer = e.timers.After(d, func() { e.timerElapsed(gen) })
	e.timerArmed = true
	if e.hooks.OnTimerArmed != nil {
		e.hooks.OnTimerArmed(e.current, d)
	}
}

// timerElapsed handles a timer callback armed for occupancy gen. A stale
// generation means the state was left (and possibly re-entered) after the
// timer was armed; such callbacks are ignored.
func (e *Engine) timerElapsed(gen uint64) {
	if gen != e.timerGen {
		return
	}
	e.timerArmed = false

	tr, ok := e.timeoutTransitions[e.current]
	if !ok {
		return
	}
	if e.hooks.OnTimerFired != nil {
		e.hooks.OnTimerFired(e.current)
	}
	e.run(tr)
}

// entityChanged dispatches an entity-value change: only transitions
// registered for the current state are considered, in registration order,
// and the first satisfied one wins.
func (e *Engine) entityChanged(entity domain.Entity, _, newValue string) {
	for _, tr := range e.valueTransitions[e.current] {
		vt, ok := tr.Trigger.(domain.ValueTrigger)
		if !ok || vt.Entity != entity {
			continue
		}
		if vt.Satisfied(newValue) {
			e.run(tr)
			return
		}
	}
}

// mirrorChanged handles a change of the mirrored entity. A value naming the
// current state is either the engine's own write-back or a no-op and is
// ignored; a value naming another declared state is a direct external
// override, performed outside the registered transition table.
func (e *Engine) mirrorChanged(_ domain.Entity, _, newValue string) {
	state := domain.State(newValue)
	if _, declared := e.member[state]; !declared {
		e.warnUnrecognized(newValue)
		return
	}
	if state == e.current {
		return
	}
	e.run(domain.Transition{From: e.current, To: state})
}

func (e *Engine) warnUnrecognized(value string) {
	e.logger.Warn("unrecognized state", "value", value, "entity", e.mirror)
	if e.hooks.OnUnrecognizedState != nil {
		e.hooks.OnUnrecognizedState(value)
	}
}
