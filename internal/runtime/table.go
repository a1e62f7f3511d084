package runtime

import (
	"fmt"

	"github.com/arborhq/arbor/pkg/domain"
)

// AddTransition registers a single transition. Configuration problems
// (unknown states, the Any placeholder, a nil trigger) fail fast with an
// error; they are not recoverable at runtime.
//
// Registering a second timeout transition for the same source state replaces
// the first: only one timer can be active per state. The replacement is
// logged so a misconfigured table does not fail silently.
//
// If from is the current state, a value trigger whose predicate is already
// satisfied performs the transition immediately, unless it is a self-loop;
// a timeout trigger (re)starts the current state's timer for its duration.
func (e *Engine) AddTransition(from domain.State, trigger domain.Trigger, to domain.State, onTransition func()) error {
	if from == domain.Any {
		return fmt.Errorf("from state: %w", domain.ErrAnyState)
	}
	if _, ok := e.member[from]; !ok {
		return fmt.Errorf("from state %q: %w", from, domain.ErrUnknownState)
	}
	if _, ok := e.member[to]; !ok {
		return fmt.Errorf("to state %q: %w", to, domain.ErrUnknownState)
	}
	if trigger == nil {
		return domain.ErrNilTrigger
	}

	tr := domain.Transition{Trigger: trigger, From: from, To: to, OnTransition: onTransition}

	switch t := trigger.(type) {
	case domain.ValueTrigger:
		e.valueTransitions[from] = append(e.valueTransitions[from], tr)
		if _, ok := e.watched[t.Entity]; !ok {
			e.watched[t.Entity] = struct{}{}
			e.bus.Observe(t.Entity, e.entityChanged)
		}
		if from == e.current && to != from {
			value, _ := e.bus.Read(t.Entity)
			if t.Satisfied(value) {
				e.run(tr)
			}
		}
		return nil

	case domain.TimeoutTrigger:
		if prev, exists := e.timeoutTransitions[from]; exists {
			e.logger.Warn("replacing timeout transition",
				"state", from, "old", prev.TriggerLabel(), "new", tr.TriggerLabel())
		}
		e.timeoutTransitions[from] = tr
		if from == e.current {
			e.restartTimer()
		}
		return nil

	default:
		return fmt.Errorf("trigger %T: %w", trigger, domain.ErrUnsupportedTrigger)
	}
}

// AddTransitions registers the cross product of from states and triggers,
// states outer loop, triggers inner loop, each pair going through
// AddTransition so immediate-trigger semantics apply uniformly. A
// domain.Any entry in from expands to every declared state.
func (e *Engine) AddTransitions(from []domain.State, triggers []domain.Trigger, to domain.State, onTransition func()) error {
	var expanded []domain.State
	for _, s := range from {
		if s == domain.Any {
			expanded = append(expanded, e.states...)
			continue
		}
		expanded = append(expanded, s)
	}

	for _, s := range expanded {
		for _, trigger := range triggers {
			if err := e.AddTransition(s, trigger, to, onTransition); err != nil {
				return err
			}
		}
	}
	return nil
}

// Edges returns the transition table as an aggregated edge list: one edge
// per (from, to) pair, labelled with every trigger leading along it, in
// declaration then registration order.
func (e *Engine) Edges() []domain.Edge {
	type key struct{ from, to domain.State }
	index := make(map[key]int)
	var edges []domain.Edge

	add := func(tr domain.Transition) {
		k := key{tr.From, tr.To}
		i, ok := index[k]
		if !ok {
			i = len(edges)
			index[k] = i
			edges = append(edges, domain.Edge{From: tr.From, To: tr.To})
		}
		edges[i].Labels = append(edges[i].Labels, tr.TriggerLabel())
	}

	for _, s := range e.states {
		for _, tr := range e.valueTransitions[s] {
			add(tr)
		}
		if tr, ok := e.timeoutTransitions[s]; ok {
			add(tr)
		}
	}
	return edges
}
