/*
Package arbor is a finite-state-machine engine driven by named observable
entities and timeouts.

A Machine owns a single current state out of a closed, declared set.
Transitions are triggered by predicates over entity values (delivered by an
EntityBus adapter) or by per-state timeouts (delivered by a TimerService
adapter). Triggers whose condition is already true the instant a state is
entered fire immediately and cascade until the machine settles. The current
state can optionally be mirrored to an entity, in both directions.

	states := []domain.State{"idle", "lit"}
	m, err := arbor.New(states, bus, timers, arbor.WithMirror("sensor.hallway"))
	if err != nil { ... }
	m.AddTransition("idle", domain.StateOn("sensor.motion"), "lit", nil)
	m.AddTransition("lit", domain.Timeout(30*time.Second), "idle", nil)

Adapters for the two ports live under pkg/adapters: memory (tests and demos),
redis and mqtt (real deployments), plus an HTTP control surface.
*/
package arbor
