package domain

import "time"

// Hooks defines callbacks for engine observability. All fields are optional.
// Hook functions run synchronously inside the transition cascade and must not
// call back into the machine.
type Hooks struct {
	// OnTransition fires after every completed transition, including direct
	// external overrides (trigger label "external").
	OnTransition func(from, to State, trigger string)

	// OnTimerArmed fires when a timeout timer is (re)armed for a state.
	OnTimerArmed func(state State, d time.Duration)

	// OnTimerFired fires when an armed timer elapses while its state is
	// still current.
	OnTimerFired func(state State)

	// OnCascadeAborted fires when an immediate-transition cascade is cut
	// short because it revisited a state within the same cascade.
	OnCascadeAborted func(at State)

	// OnUnrecognizedState fires when the mirrored entity is externally set
	// to a value that names no declared state.
	OnUnrecognizedState func(value string)
}
